// Package dashboard exposes connection, pool and sync state to the frontend.
package dashboard

import (
	"context"

	syncDI "github.com/fd1az/pooldash/business/chainsync/di"
	connDI "github.com/fd1az/pooldash/business/connectivity/di"
	dashhttp "github.com/fd1az/pooldash/business/dashboard/http"
	poolsDI "github.com/fd1az/pooldash/business/pools/di"
	"github.com/fd1az/pooldash/internal/di"
	"github.com/fd1az/pooldash/internal/monolith"
)

// APIPrefix is where the dashboard routes are mounted.
const APIPrefix = "/api"

// Module implements the dashboard API context.
type Module struct{}

// RegisterServices has nothing to register; handlers are built at startup.
func (m *Module) RegisterServices(di.Container) error {
	return nil
}

// Startup mounts the API routes on the shared router.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()

	h := dashhttp.NewHandlers(
		connDI.GetConnectionManager(sr),
		connDI.GetTransactionRelay(sr),
		poolsDI.GetStore(sr),
		poolsDI.GetSession(sr),
		syncDI.GetSyncScheduler(sr),
		mono.Chains(),
		mono.Logger(),
	)
	mono.Router().Mount(APIPrefix, dashhttp.Routes(h))

	mono.Logger().Info(ctx, "dashboard module started", "prefix", APIPrefix)
	return nil
}

// Package di contains dependency injection tokens for the chainsync context.
package di

import (
	"github.com/fd1az/pooldash/business/chainsync/app"
	"github.com/fd1az/pooldash/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SyncScheduler = di.NewToken[*app.SyncScheduler]("chainsync.SyncScheduler")
)

func GetSyncScheduler(c di.ServiceRegistry) *app.SyncScheduler {
	return di.GetToken(c, SyncScheduler)
}

// Package pools implements the pool and token data context fed by the sync scheduler.
package pools

import (
	"context"

	connDI "github.com/fd1az/pooldash/business/connectivity/di"
	"github.com/fd1az/pooldash/business/pools/app"
	poolsDI "github.com/fd1az/pooldash/business/pools/di"
	"github.com/fd1az/pooldash/business/pools/infra/onchain"
	"github.com/fd1az/pooldash/business/pools/infra/subgraph"
	"github.com/fd1az/pooldash/internal/chains"
	"github.com/fd1az/pooldash/internal/config"
	"github.com/fd1az/pooldash/internal/di"
	"github.com/fd1az/pooldash/internal/logger"
	"github.com/fd1az/pooldash/internal/monolith"
)

// Module implements the pools bounded context.
type Module struct {
	source *subgraph.Client
}

// RegisterServices registers all pools services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, poolsDI.Store, func(di.ServiceRegistry) *app.Store {
		return app.NewStore()
	})

	// Register PoolSource (private - internal dependency)
	di.RegisterToken(c, poolsDI.PoolSource, func(sr di.ServiceRegistry) app.PoolSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("chains").(*chains.Registry)

		client, err := subgraph.New(subgraph.Config{
			URL:      registry.SubgraphURL(),
			CacheTTL: cfg.Sync.SubgraphCacheTTL,
		}, log)
		if err != nil {
			panic("failed to create subgraph client: " + err.Error())
		}
		m.source = client
		return client
	})

	// Register TokenReader (private - reads through the live connection)
	di.RegisterToken(c, poolsDI.TokenReader, func(sr di.ServiceRegistry) app.TokenReader {
		cfg := sr.Get("config").(*config.Config)
		return onchain.NewERC20Reader(connDI.GetConnectionManager(sr), cfg.Sync.RPCRequestsPerMinute)
	})

	di.RegisterToken(c, poolsDI.PoolService, func(sr di.ServiceRegistry) *app.PoolService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewPoolService(poolsDI.GetPoolSource(sr), poolsDI.GetStore(sr), log)
	})

	di.RegisterToken(c, poolsDI.TokenService, func(sr di.ServiceRegistry) *app.TokenService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewTokenService(poolsDI.GetTokenReader(sr), poolsDI.GetStore(sr), log)
	})

	di.RegisterToken(c, poolsDI.Session, func(sr di.ServiceRegistry) *app.Session {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewSession(poolsDI.GetPoolService(sr), poolsDI.GetStore(sr), log)
	})

	return nil
}

// Startup hooks the session into account-change handling.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	session := poolsDI.GetSession(mono.Services())
	manager := connDI.GetConnectionManager(mono.Services())
	manager.AddSessionResetter(session)

	mono.Logger().Info(ctx, "pools module started", "subgraph", mono.Chains().SubgraphURL() != "")
	return nil
}

// Shutdown releases the subgraph cache.
func (m *Module) Shutdown(context.Context) error {
	if m.source != nil {
		m.source.Close()
	}
	return nil
}

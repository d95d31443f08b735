// Package chainsync implements the block-gated refresh of downstream pool data.
package chainsync

import (
	"context"
	"sync"

	"github.com/fd1az/pooldash/business/chainsync/app"
	syncDI "github.com/fd1az/pooldash/business/chainsync/di"
	connDI "github.com/fd1az/pooldash/business/connectivity/di"
	poolsDI "github.com/fd1az/pooldash/business/pools/di"
	"github.com/fd1az/pooldash/internal/config"
	"github.com/fd1az/pooldash/internal/di"
	"github.com/fd1az/pooldash/internal/logger"
	"github.com/fd1az/pooldash/internal/monolith"
)

// Module implements the chainsync bounded context.
type Module struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RegisterServices registers the sync scheduler with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, syncDI.SyncScheduler, func(sr di.ServiceRegistry) *app.SyncScheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewSyncScheduler(app.Config{
			SupportedChainID: cfg.Chain.SupportedChainID,
			BlockThreshold:   cfg.Sync.BlockThreshold,
		},
			connDI.GetConnectionManager(sr),
			poolsDI.GetPoolService(sr),
			poolsDI.GetTokenService(sr),
			log,
		)
	})
	return nil
}

// Startup wires the scheduler to connection and session events and starts
// the polling loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	sched := syncDI.GetSyncScheduler(mono.Services())

	connDI.GetConnectionManager(mono.Services()).SetRefresher(sched)
	poolsDI.GetSession(mono.Services()).SetActivePoolListener(sched)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sched.Run(runCtx, cfg.Sync.PollInterval)
	}()

	mono.Logger().Info(ctx, "chainsync module started",
		"poll_interval", cfg.Sync.PollInterval.String(),
		"block_threshold", cfg.Sync.BlockThreshold)
	return nil
}

// Shutdown stops the polling loop and waits for the in-flight tick.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

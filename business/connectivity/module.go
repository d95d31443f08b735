// Package connectivity implements the chain connection and delegated-custody relay context.
package connectivity

import (
	"context"
	"fmt"

	"github.com/fd1az/pooldash/business/connectivity/app"
	connDI "github.com/fd1az/pooldash/business/connectivity/di"
	"github.com/fd1az/pooldash/business/connectivity/infra/ethereum"
	"github.com/fd1az/pooldash/business/connectivity/infra/safe"
	"github.com/fd1az/pooldash/business/connectivity/infra/wallet"
	"github.com/fd1az/pooldash/internal/chains"
	"github.com/fd1az/pooldash/internal/config"
	"github.com/fd1az/pooldash/internal/di"
	"github.com/fd1az/pooldash/internal/logger"
	"github.com/fd1az/pooldash/internal/monolith"
)

// Module implements the connectivity bounded context.
type Module struct {
	manager *app.ConnectionManager
	relay   *app.TransactionRelay
}

// RegisterServices registers all connectivity services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register BackupDialer (private - internal dependency)
	di.RegisterToken(c, connDI.BackupDialer, func(sr di.ServiceRegistry) app.BackupDialer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return ethereum.NewBackupDialer(cfg.Sync.RPCRequestsPerMinute, log)
	})

	// Register Container (private - internal dependency)
	di.RegisterToken(c, connDI.Container, func(sr di.ServiceRegistry) app.Container {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Safe.BridgeURL == "" {
			return safe.NoopContainer{}
		}
		bridge, err := safe.NewBridge(cfg.Safe.BridgeURL, log)
		if err != nil {
			panic("failed to create safe bridge: " + err.Error())
		}
		return bridge
	})

	// Register TransactionRelay (public - exposed to other modules)
	di.RegisterToken(c, connDI.TransactionRelay, func(sr di.ServiceRegistry) *app.TransactionRelay {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewTransactionRelay(connDI.GetContainer(sr), log)
	})

	// Register ConnectionManager (public - exposed to other modules)
	di.RegisterToken(c, connDI.ConnectionManager, func(sr di.ServiceRegistry) *app.ConnectionManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("chains").(*chains.Registry)

		return app.NewConnectionManager(app.ManagerConfig{
			BackupURL:      registry.BackupURL(),
			ConnectTimeout: cfg.Wallet.ConnectTimeout,
		}, connDI.GetBackupDialer(sr), connDI.GetTransactionRelay(sr), log)
	})

	return nil
}

// Startup connects the container bridge and establishes the chain connection.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if bridge, ok := connDI.GetContainer(mono.Services()).(*safe.Bridge); ok {
		if err := bridge.Connect(ctx); err != nil {
			// Identity simply stays absent; backup mode still works read-only.
			log.Error(ctx, "failed to connect safe bridge", "error", err)
		}
	}

	m.relay = connDI.GetTransactionRelay(mono.Services())
	m.manager = connDI.GetConnectionManager(mono.Services())

	if cfg.Wallet.ProviderURL != "" {
		provider := wallet.NewProvider(cfg.Wallet.ProviderURL, "injected", log)
		if err := m.manager.ConnectInjected(ctx, provider); err != nil {
			log.Warn(ctx, "injected provider unavailable, falling back to backup endpoint", "error", err)
			if err := m.manager.ConnectBackup(ctx); err != nil {
				log.Error(ctx, "backup endpoint unavailable", "error", err)
			}
		}
	} else if err := m.manager.ConnectBackup(ctx); err != nil {
		log.Error(ctx, "backup endpoint unavailable", "error", err)
	}

	registry := mono.Chains()
	mono.Health().RegisterCheck("chain", func(context.Context) (bool, string) {
		st := m.manager.Status()
		if !st.Active {
			if st.LastError != nil {
				return false, st.LastError.Error()
			}
			return false, string(st.State)
		}
		if !registry.IsSupported(st.ChainID) {
			return false, fmt.Sprintf("connected to unsupported chain %s", registry.Name(st.ChainID))
		}
		return true, fmt.Sprintf("%s via %s", registry.Name(st.ChainID), st.Mode)
	})

	st := m.manager.Status()
	log.Info(ctx, "connectivity module started",
		"active", st.Active, "mode", string(st.Mode), "chain_id", st.ChainID)
	return nil
}

// Shutdown closes the chain connection and the container bridge.
func (m *Module) Shutdown(context.Context) error {
	if m.manager != nil {
		m.manager.Close()
	}
	if m.relay != nil {
		return m.relay.Close()
	}
	return nil
}

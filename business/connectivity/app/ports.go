// Package app contains the connection lifecycle and transaction relay services.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/fd1az/pooldash/business/connectivity/domain"
)

// ChainClient is a chain-aware client over one RPC transport.
type ChainClient interface {
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// SendTransaction asks the node to sign and broadcast tx from an unlocked account.
	SendTransaction(ctx context.Context, from common.Address, tx domain.Transaction) (common.Hash, error)

	// Endpoint describes the transport for status reporting.
	Endpoint() string
	Close() error
}

// WalletProvider is a wallet-injected provider.
type WalletProvider interface {
	Name() string

	// Connect wraps the raw provider in a chain-aware client.
	Connect(ctx context.Context) (ChainClient, error)

	// Subscribe delivers provider notifications to ch until unsubscribed.
	// Unsubscribe must be idempotent.
	Subscribe(ch chan<- domain.ProviderEvent) event.Subscription
}

// BackupDialer opens a read-only client against a fixed RPC URL.
type BackupDialer func(ctx context.Context, url string) (ChainClient, error)

// Container is a delegated-custody host that co-signs transaction batches.
type Container interface {
	SubscribeIdentity(ch chan<- domain.DelegatedIdentity) event.Subscription
	SendTransactions(ctx context.Context, batch domain.Batch) error
	Close() error
}

// Relayer hands batches to a delegated-custody container.
type Relayer interface {
	Relay(ctx context.Context, batch domain.Batch) error
	HasIdentity() bool
	CurrentIdentity() (domain.DelegatedIdentity, bool)
	SubscribeIdentity(ch chan<- domain.DelegatedIdentity) event.Subscription
}

// Refresher is asked to refetch downstream state.
type Refresher interface {
	Refresh(ctx context.Context, force bool)
}

// SessionResetter clears modal-scoped form state.
type SessionResetter interface {
	CloseModal()
}

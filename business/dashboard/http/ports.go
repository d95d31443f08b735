// Package http serves the dashboard's JSON API.
package http

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	syncApp "github.com/fd1az/pooldash/business/chainsync/app"
	connDomain "github.com/fd1az/pooldash/business/connectivity/domain"
	poolsDomain "github.com/fd1az/pooldash/business/pools/domain"
)

// Connection exposes the live chain connection.
type Connection interface {
	Status() connDomain.ConnectionStatus
	Snapshot() connDomain.ChainSnapshot
	Reconnects() int64
	EncodeCalls(calls ...connDomain.FunctionCall) (connDomain.Batch, error)
	SendTransactions(ctx context.Context, calls ...connDomain.FunctionCall) (connDomain.Batch, error)
}

// Identity exposes the delegated identity announced by the container.
type Identity interface {
	CurrentIdentity() (connDomain.DelegatedIdentity, bool)
}

// PoolState is the read side of the pool store.
type PoolState interface {
	Pools() []poolsDomain.Pool
	PrivatePools() []poolsDomain.Pool
	ContributedPools() ([]poolsDomain.Pool, common.Address)
	Pool(address common.Address) (poolsDomain.Pool, bool)
	ActivePool() (common.Address, bool)
	TotalSupply(token common.Address) (poolsDomain.Amount, bool)
	Balance(k poolsDomain.BalanceKey) (poolsDomain.Amount, bool)
	Balances(account common.Address) map[common.Address]poolsDomain.Amount
	Allowance(k poolsDomain.AllowanceKey) (poolsDomain.Amount, bool)
	UpdatedAt() time.Time
}

// Session changes the pool selection.
type Session interface {
	SetActivePool(ctx context.Context, address common.Address) error
	ClearActivePool()
}

// Syncer runs a sync tick on demand.
type Syncer interface {
	Tick(ctx context.Context, force bool) syncApp.Result
}

// Chains names chain ids.
type Chains interface {
	Name(id uint64) string
	IsSupported(id uint64) bool
}

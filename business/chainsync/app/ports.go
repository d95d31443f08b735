// Package app contains the block-gated sync scheduler.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	connDomain "github.com/fd1az/pooldash/business/connectivity/domain"
)

// Connection is the scheduler's view of the live chain connection.
type Connection interface {
	Status() connDomain.ConnectionStatus
	BlockNumber(ctx context.Context) (uint64, error)

	CurrentBlockNumber() (uint64, bool)
	SetCurrentBlockNumber(n uint64)
	ClearBlockNumber()
}

// PoolFetcher refreshes pool lists.
type PoolFetcher interface {
	FetchPools(ctx context.Context) error
	FetchPrivatePools(ctx context.Context) error
	FetchContributedPools(ctx context.Context, account common.Address) error
	FetchActivePool(ctx context.Context) error

	ContributedPoolAddresses() []common.Address
	HasActivePool() bool
	// ActivePoolTokens returns the selected pool and its token addresses.
	ActivePoolTokens(ctx context.Context) (common.Address, []common.Address, error)
	TrackedTokenAddresses() []common.Address
}

// TokenFetcher refreshes ERC20 state.
type TokenFetcher interface {
	FetchTotalSupplies(ctx context.Context, tokens []common.Address) error
	FetchTokenBalances(ctx context.Context, account common.Address, tokens []common.Address) error
	FetchAccountApprovals(ctx context.Context, tokens []common.Address, owner, spender common.Address) error
}

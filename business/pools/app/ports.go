// Package app contains the pool and token stores fed by the sync scheduler.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/pooldash/business/pools/domain"
)

// PoolSource lists pools from an index.
type PoolSource interface {
	// Pools returns finalized public pools.
	Pools(ctx context.Context) ([]domain.Pool, error)
	// PrivatePools returns controller-managed pools.
	PrivatePools(ctx context.Context) ([]domain.Pool, error)
	// ContributedPools returns pools where account holds shares.
	ContributedPools(ctx context.Context, account common.Address) ([]domain.Pool, error)
	// Pool returns a single pool by address.
	Pool(ctx context.Context, address common.Address) (domain.Pool, error)
}

// TokenReader reads ERC20 state from the chain.
type TokenReader interface {
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// ActivePoolListener is told when the selected pool changes.
type ActivePoolListener interface {
	OnActivePoolChanged(ctx context.Context)
}

// Package domain holds the pool and token state the dashboard renders.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolToken is one bound token of a pool.
type PoolToken struct {
	Address      common.Address  `json:"address"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Decimals     uint8           `json:"decimals"`
	Balance      decimal.Decimal `json:"balance"`
	DenormWeight decimal.Decimal `json:"denormWeight"`
}

// Pool is a weighted AMM pool as indexed by the subgraph.
type Pool struct {
	Address     common.Address  `json:"address"`
	Controller  common.Address  `json:"controller"`
	Finalized   bool            `json:"finalized"`
	PublicSwap  bool            `json:"publicSwap"`
	SwapFee     decimal.Decimal `json:"swapFee"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
	TotalShares decimal.Decimal `json:"totalShares"`
	Tokens      []PoolToken     `json:"tokens"`
}

// TokenAddresses returns the addresses of the pool's bound tokens in order.
func (p Pool) TokenAddresses() []common.Address {
	out := make([]common.Address, len(p.Tokens))
	for i, t := range p.Tokens {
		out[i] = t.Address
	}
	return out
}

// Private reports whether the pool is still controller-managed.
func (p Pool) Private() bool {
	return !p.Finalized
}

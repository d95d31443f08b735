package app

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/pooldash/business/pools/domain"
)

var errFake = errors.New("fake failure")

type fakeSource struct {
	pools       []domain.Pool
	private     []domain.Pool
	contributed map[common.Address][]domain.Pool
	err         error

	mu        sync.Mutex
	poolCalls int
}

func (f *fakeSource) Pools(context.Context) ([]domain.Pool, error) {
	return f.pools, f.err
}

func (f *fakeSource) PrivatePools(context.Context) ([]domain.Pool, error) {
	return f.private, f.err
}

func (f *fakeSource) ContributedPools(_ context.Context, account common.Address) ([]domain.Pool, error) {
	return f.contributed[account], f.err
}

func (f *fakeSource) Pool(_ context.Context, address common.Address) (domain.Pool, error) {
	f.mu.Lock()
	f.poolCalls++
	f.mu.Unlock()
	if f.err != nil {
		return domain.Pool{}, f.err
	}
	for _, p := range append(append([]domain.Pool{}, f.pools...), f.private...) {
		if p.Address == address {
			return p, nil
		}
	}
	return domain.Pool{}, errFake
}

type fakeReader struct {
	supplies   map[common.Address]*big.Int
	balances   map[domain.BalanceKey]*big.Int
	allowances map[domain.AllowanceKey]*big.Int
	decimals   map[common.Address]uint8
	failing    map[common.Address]bool
}

func (f *fakeReader) TotalSupply(_ context.Context, token common.Address) (*big.Int, error) {
	if f.failing[token] {
		return nil, errFake
	}
	return f.supplies[token], nil
}

func (f *fakeReader) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	if f.failing[token] {
		return nil, errFake
	}
	return f.balances[domain.BalanceKey{Token: token, Account: account}], nil
}

func (f *fakeReader) Allowance(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if f.failing[token] {
		return nil, errFake
	}
	return f.allowances[domain.AllowanceKey{Token: token, Owner: owner, Spender: spender}], nil
}

func (f *fakeReader) Decimals(_ context.Context, token common.Address) (uint8, error) {
	d, ok := f.decimals[token]
	if !ok {
		return 0, errFake
	}
	return d, nil
}

type fakeListener struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeListener) OnActivePoolChanged(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeListener) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	poolA  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	poolB  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	tokenX = common.HexToAddress("0x0000000000000000000000000000000000000011")
	tokenY = common.HexToAddress("0x0000000000000000000000000000000000000022")
	tokenZ = common.HexToAddress("0x0000000000000000000000000000000000000033")
	user   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

func testPools() []domain.Pool {
	return []domain.Pool{
		{
			Address:   poolA,
			Finalized: true,
			Tokens: []domain.PoolToken{
				{Address: tokenX, Symbol: "X", Decimals: 18},
				{Address: tokenY, Symbol: "Y", Decimals: 6},
			},
		},
	}
}

func testPrivatePools() []domain.Pool {
	return []domain.Pool{
		{
			Address: poolB,
			Tokens: []domain.PoolToken{
				{Address: tokenY, Symbol: "Y", Decimals: 6},
				{Address: tokenZ, Symbol: "Z", Decimals: 8},
			},
		},
	}
}

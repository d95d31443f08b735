package app

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/pooldash/business/pools/domain"
)

// Store is the in-memory state the dashboard reads. Every setter replaces the
// previous value wholesale; the last write wins.
type Store struct {
	mu sync.RWMutex

	pools       []domain.Pool
	private     []domain.Pool
	contributed []domain.Pool
	contributor common.Address
	byAddress   map[common.Address]domain.Pool

	decimals   map[common.Address]uint8
	supplies   map[common.Address]domain.Amount
	balances   map[domain.BalanceKey]domain.Amount
	allowances map[domain.AllowanceKey]domain.Amount

	activePool common.Address
	updatedAt  time.Time
	now        func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byAddress:  make(map[common.Address]domain.Pool),
		decimals:   make(map[common.Address]uint8),
		supplies:   make(map[common.Address]domain.Amount),
		balances:   make(map[domain.BalanceKey]domain.Amount),
		allowances: make(map[domain.AllowanceKey]domain.Amount),
		now:        time.Now,
	}
}

// SetPools replaces the public pool list.
func (s *Store) SetPools(pools []domain.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = pools
	s.indexLocked(pools)
}

// SetPrivatePools replaces the private pool list.
func (s *Store) SetPrivatePools(pools []domain.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.private = pools
	s.indexLocked(pools)
}

// SetContributedPools replaces the pools account holds shares in.
func (s *Store) SetContributedPools(account common.Address, pools []domain.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributor = account
	s.contributed = pools
	s.indexLocked(pools)
}

// PutPool stores a single pool, replacing any indexed copy.
func (s *Store) PutPool(p domain.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexLocked([]domain.Pool{p})
}

func (s *Store) indexLocked(pools []domain.Pool) {
	for _, p := range pools {
		s.byAddress[p.Address] = p
		for _, t := range p.Tokens {
			s.decimals[t.Address] = t.Decimals
		}
		// Pool shares are 18-decimal tokens.
		s.decimals[p.Address] = domain.DefaultDecimals
	}
	s.updatedAt = s.now()
}

// Pools returns the public pools.
func (s *Store) Pools() []domain.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Pool(nil), s.pools...)
}

// PrivatePools returns the private pools.
func (s *Store) PrivatePools() []domain.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Pool(nil), s.private...)
}

// ContributedPools returns the contributed pools and the account they belong to.
func (s *Store) ContributedPools() ([]domain.Pool, common.Address) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Pool(nil), s.contributed...), s.contributor
}

// Pool looks up any known pool by address.
func (s *Store) Pool(address common.Address) (domain.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byAddress[address]
	return p, ok
}

// Decimals returns the known decimals of token.
func (s *Store) Decimals(token common.Address) (uint8, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decimals[token]
	return d, ok
}

// SetDecimals records token decimals.
func (s *Store) SetDecimals(token common.Address, d uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decimals[token] = d
}

// TrackedTokenAddresses returns every token bound to a known pool, sorted.
func (s *Store) TrackedTokenAddresses() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[common.Address]struct{})
	for _, p := range s.byAddress {
		for _, t := range p.Tokens {
			seen[t.Address] = struct{}{}
		}
	}
	out := make([]common.Address, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// SetTotalSupply records a token's total supply.
func (s *Store) SetTotalSupply(token common.Address, a domain.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supplies[token] = a
}

// TotalSupply returns a recorded total supply.
func (s *Store) TotalSupply(token common.Address) (domain.Amount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.supplies[token]
	return a, ok
}

// SetBalance records a balance.
func (s *Store) SetBalance(k domain.BalanceKey, a domain.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[k] = a
}

// Balance returns a recorded balance.
func (s *Store) Balance(k domain.BalanceKey) (domain.Amount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.balances[k]
	return a, ok
}

// Balances returns every recorded balance of account keyed by token.
func (s *Store) Balances(account common.Address) map[common.Address]domain.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[common.Address]domain.Amount)
	for k, a := range s.balances {
		if k.Account == account {
			out[k.Token] = a
		}
	}
	return out
}

// SetAllowance records an allowance.
func (s *Store) SetAllowance(k domain.AllowanceKey, a domain.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances[k] = a
}

// Allowance returns a recorded allowance.
func (s *Store) Allowance(k domain.AllowanceKey) (domain.Amount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allowances[k]
	return a, ok
}

// SetActivePool selects a pool. The zero address clears the selection.
func (s *Store) SetActivePool(address common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePool = address
}

// ActivePool returns the selected pool address.
func (s *Store) ActivePool() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePool, s.activePool != (common.Address{})
}

// UpdatedAt returns when pool data was last written.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

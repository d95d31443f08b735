package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/pooldash/business/pools/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/logger"
)

// PoolService loads pool lists from the index into the store.
type PoolService struct {
	source  PoolSource
	store   *Store
	log     logger.LoggerInterface
	metrics *fetchMetrics
}

// NewPoolService creates a PoolService.
func NewPoolService(source PoolSource, store *Store, log logger.LoggerInterface) *PoolService {
	return &PoolService{
		source:  source,
		store:   store,
		log:     log,
		metrics: newFetchMetrics(),
	}
}

// FetchPools refreshes the public pool list.
func (s *PoolService) FetchPools(ctx context.Context) (err error) {
	ctx, span := s.metrics.start(ctx, "fetch_pools")
	defer func() { s.metrics.end(ctx, span, "pools", err) }()

	pools, err := s.source.Pools(ctx)
	if err != nil {
		return err
	}
	s.store.SetPools(pools)
	span.SetAttributes(attribute.Int("pools", len(pools)))
	s.log.Debug(ctx, "pools fetched", "count", len(pools))
	return nil
}

// FetchPrivatePools refreshes the private pool list.
func (s *PoolService) FetchPrivatePools(ctx context.Context) (err error) {
	ctx, span := s.metrics.start(ctx, "fetch_private_pools")
	defer func() { s.metrics.end(ctx, span, "private_pools", err) }()

	pools, err := s.source.PrivatePools(ctx)
	if err != nil {
		return err
	}
	s.store.SetPrivatePools(pools)
	span.SetAttributes(attribute.Int("pools", len(pools)))
	s.log.Debug(ctx, "private pools fetched", "count", len(pools))
	return nil
}

// FetchContributedPools refreshes the pools account holds shares in. The zero
// address clears the list.
func (s *PoolService) FetchContributedPools(ctx context.Context, account common.Address) (err error) {
	ctx, span := s.metrics.start(ctx, "fetch_contributed_pools",
		attribute.String("account", account.Hex()))
	defer func() { s.metrics.end(ctx, span, "contributed_pools", err) }()

	if account == (common.Address{}) {
		s.store.SetContributedPools(account, nil)
		return nil
	}

	pools, err := s.source.ContributedPools(ctx, account)
	if err != nil {
		return err
	}
	s.store.SetContributedPools(account, pools)
	span.SetAttributes(attribute.Int("pools", len(pools)))
	s.log.Debug(ctx, "contributed pools fetched", "account", account.Hex(), "count", len(pools))
	return nil
}

// EnsurePool returns a pool from the store, loading it from the index when unknown.
func (s *PoolService) EnsurePool(ctx context.Context, address common.Address) (domain.Pool, error) {
	if p, ok := s.store.Pool(address); ok {
		return p, nil
	}
	p, err := s.source.Pool(ctx, address)
	if err != nil {
		return domain.Pool{}, err
	}
	s.store.PutPool(p)
	return p, nil
}

// FetchActivePool reloads the selected pool. It is a no-op without a selection.
func (s *PoolService) FetchActivePool(ctx context.Context) (err error) {
	address, ok := s.store.ActivePool()
	if !ok {
		return nil
	}

	ctx, span := s.metrics.start(ctx, "fetch_active_pool",
		attribute.String("pool", address.Hex()))
	defer func() { s.metrics.end(ctx, span, "active_pool", err) }()

	p, err := s.source.Pool(ctx, address)
	if err != nil {
		return err
	}
	s.store.PutPool(p)
	return nil
}

// ActivePoolTokens returns the selected pool and its token addresses.
func (s *PoolService) ActivePoolTokens(ctx context.Context) (common.Address, []common.Address, error) {
	address, ok := s.store.ActivePool()
	if !ok {
		return common.Address{}, nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("no active pool selected"))
	}
	p, err := s.EnsurePool(ctx, address)
	if err != nil {
		return address, nil, err
	}
	return address, p.TokenAddresses(), nil
}

// HasActivePool reports whether a pool is selected.
func (s *PoolService) HasActivePool() bool {
	_, ok := s.store.ActivePool()
	return ok
}

// ContributedPoolAddresses returns the addresses of the contributed pools.
func (s *PoolService) ContributedPoolAddresses() []common.Address {
	pools, _ := s.store.ContributedPools()
	out := make([]common.Address, len(pools))
	for i, p := range pools {
		out[i] = p.Address
	}
	return out
}

// PoolTokens returns the token addresses of a known pool.
func (s *PoolService) PoolTokens(address common.Address) ([]common.Address, error) {
	p, ok := s.store.Pool(address)
	if !ok {
		return nil, apperror.NotFound(apperror.CodePoolNotFound, address.Hex())
	}
	return p.TokenAddresses(), nil
}

// TrackedTokenAddresses returns the tokens whose user balances are refreshed.
func (s *PoolService) TrackedTokenAddresses() []common.Address {
	return s.store.TrackedTokenAddresses()
}

package app

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/pooldash/internal/logger"
)

const meterName = "github.com/fd1az/pooldash/business/chainsync/app"

// DefaultBlockThreshold is how many new blocks make a tick fetch.
const DefaultBlockThreshold = 10

// Fetch families, used as log and metric labels.
const (
	familyPools         = "pools"
	familyPrivatePools  = "private_pools"
	familyContributed   = "contributed_pools"
	familyTotalSupplies = "total_supplies"
	familyPoolBalances  = "pool_balances"
	familyActivePool    = "active_pool"
	familyAllowances    = "allowances"
	familyUserBalances  = "user_balances"
)

// Config holds scheduler settings.
type Config struct {
	SupportedChainID uint64
	BlockThreshold   uint64
}

// Result describes what one tick did.
type Result struct {
	Fetched bool
	Block   uint64
	// Skipped names why the tick did nothing before querying the chain.
	Skipped string
	Err     error
}

type schedulerMetrics struct {
	ticks         metric.Int64Counter
	fetchFailures metric.Int64Counter
}

// SyncScheduler decides when downstream state is refetched and fans the
// refetch out to the pool and token services.
type SyncScheduler struct {
	cfg    Config
	conn   Connection
	pools  PoolFetcher
	tokens TokenFetcher
	log    logger.LoggerInterface

	// gateMu makes read-compare-record of the last checked block atomic
	// across concurrent ticks.
	gateMu  sync.Mutex
	metrics *schedulerMetrics
}

// NewSyncScheduler creates a SyncScheduler.
func NewSyncScheduler(cfg Config, conn Connection, pools PoolFetcher, tokens TokenFetcher, log logger.LoggerInterface) *SyncScheduler {
	if cfg.BlockThreshold == 0 {
		cfg.BlockThreshold = DefaultBlockThreshold
	}
	s := &SyncScheduler{
		cfg:    cfg,
		conn:   conn,
		pools:  pools,
		tokens: tokens,
		log:    log,
	}
	if err := s.initMetrics(); err != nil {
		log.Warn(context.Background(), "failed to init sync metrics", "error", err)
	}
	return s
}

func (s *SyncScheduler) initMetrics() error {
	meter := otel.Meter(meterName)

	ticks, err := meter.Int64Counter("sync_ticks_total",
		metric.WithDescription("Sync ticks by outcome"))
	if err != nil {
		return err
	}
	failures, err := meter.Int64Counter("sync_fetch_failures_total",
		metric.WithDescription("Failed downstream fetches by family"))
	if err != nil {
		return err
	}

	s.metrics = &schedulerMetrics{ticks: ticks, fetchFailures: failures}
	return nil
}

func (s *SyncScheduler) countTick(ctx context.Context, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Refresh runs a tick. It satisfies the connection manager's refresher.
func (s *SyncScheduler) Refresh(ctx context.Context, force bool) {
	s.Tick(ctx, force)
}

// Tick refetches downstream state when the connection is active on the
// supported chain and either force is set, the last checked block is unknown,
// or at least BlockThreshold blocks passed since it. It returns once every
// fetch family has finished. Fetch failures are logged, never returned.
func (s *SyncScheduler) Tick(ctx context.Context, force bool) Result {
	st := s.conn.Status()
	if !st.Active {
		s.countTick(ctx, "inactive")
		return Result{Skipped: "inactive"}
	}
	if !st.HasChain() || st.ChainID != s.cfg.SupportedChainID {
		s.countTick(ctx, "unsupported_chain")
		return Result{Skipped: "unsupported chain"}
	}

	block, err := s.conn.BlockNumber(ctx)
	if err != nil {
		s.log.Error(ctx, "fetch loop failure", "force", force, "chain_id", st.ChainID,
			"account", st.Account.Hex(), "error", err)
		s.conn.ClearBlockNumber()
		s.countTick(ctx, "block_error")
		return Result{Err: err}
	}

	if !s.claim(block, force) {
		s.countTick(ctx, "below_threshold")
		return Result{Block: block}
	}

	s.log.Debug(ctx, "fetching chain data", "block", block, "account", st.Account.Hex(), "force", force)
	s.countTick(ctx, "fetched")

	account, hasAccount := st.Account, st.HasAccount()
	s.fanOut(ctx, account, hasAccount)

	return Result{Fetched: true, Block: block}
}

// claim records block as the last checked one if this tick should fetch.
func (s *SyncScheduler) claim(block uint64, force bool) bool {
	s.gateMu.Lock()
	defer s.gateMu.Unlock()

	last, known := s.conn.CurrentBlockNumber()
	if !force && known && block < last+s.cfg.BlockThreshold {
		return false
	}
	s.conn.SetCurrentBlockNumber(block)
	return true
}

func (s *SyncScheduler) fanOut(ctx context.Context, account common.Address, hasAccount bool) {
	var g errgroup.Group

	g.Go(func() error {
		if !s.run(ctx, familyPools, s.pools.FetchPools) {
			return nil
		}
		if hasAccount && s.pools.HasActivePool() {
			s.refreshActivePoolAllowances(ctx, account)
		}
		return nil
	})

	g.Go(func() error {
		s.run(ctx, familyPrivatePools, s.pools.FetchPrivatePools)
		return nil
	})

	g.Go(func() error {
		ok := s.run(ctx, familyContributed, func(ctx context.Context) error {
			return s.pools.FetchContributedPools(ctx, account)
		})
		if !ok || !hasAccount {
			return nil
		}

		poolAddresses := s.pools.ContributedPoolAddresses()
		var deps errgroup.Group
		deps.Go(func() error {
			s.run(ctx, familyTotalSupplies, func(ctx context.Context) error {
				return s.tokens.FetchTotalSupplies(ctx, poolAddresses)
			})
			return nil
		})
		deps.Go(func() error {
			s.run(ctx, familyPoolBalances, func(ctx context.Context) error {
				return s.tokens.FetchTokenBalances(ctx, account, poolAddresses)
			})
			return nil
		})
		return deps.Wait()
	})

	if hasAccount {
		g.Go(func() error {
			s.run(ctx, familyUserBalances, func(ctx context.Context) error {
				return s.tokens.FetchTokenBalances(ctx, account, s.pools.TrackedTokenAddresses())
			})
			return nil
		})
	}

	_ = g.Wait()
}

// OnActivePoolChanged refetches allowances for the newly selected pool
// without waiting for the block gate.
func (s *SyncScheduler) OnActivePoolChanged(ctx context.Context) {
	st := s.conn.Status()
	if !st.Active || st.ChainID != s.cfg.SupportedChainID || !st.HasAccount() {
		return
	}
	if !s.pools.HasActivePool() {
		return
	}
	s.refreshActivePoolAllowances(ctx, st.Account)
}

func (s *SyncScheduler) refreshActivePoolAllowances(ctx context.Context, account common.Address) {
	if !s.run(ctx, familyActivePool, s.pools.FetchActivePool) {
		return
	}
	s.run(ctx, familyAllowances, func(ctx context.Context) error {
		pool, tokens, err := s.pools.ActivePoolTokens(ctx)
		if err != nil {
			return err
		}
		return s.tokens.FetchAccountApprovals(ctx, tokens, account, pool)
	})
}

// run executes one fetch family and reports whether it succeeded.
func (s *SyncScheduler) run(ctx context.Context, family string, fn func(context.Context) error) bool {
	if err := fn(ctx); err != nil {
		s.log.Warn(ctx, "fetch failed", "family", family, "error", err)
		if s.metrics != nil {
			s.metrics.fetchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
		}
		return false
	}
	return true
}

// Run ticks with force once, then every interval until ctx is done.
func (s *SyncScheduler) Run(ctx context.Context, interval time.Duration) {
	s.Tick(ctx, true)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "sync scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.Tick(ctx, false)
		}
	}
}

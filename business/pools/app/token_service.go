package app

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/pooldash/business/pools/domain"
	"github.com/fd1az/pooldash/internal/logger"
)

const defaultTokenConcurrency = 4

// TokenService reads ERC20 state for tracked tokens into the store.
type TokenService struct {
	reader      TokenReader
	store       *Store
	log         logger.LoggerInterface
	metrics     *fetchMetrics
	concurrency int
}

// NewTokenService creates a TokenService.
func NewTokenService(reader TokenReader, store *Store, log logger.LoggerInterface) *TokenService {
	return &TokenService{
		reader:      reader,
		store:       store,
		log:         log,
		metrics:     newFetchMetrics(),
		concurrency: defaultTokenConcurrency,
	}
}

// FetchTotalSupplies refreshes the total supply of each token.
func (s *TokenService) FetchTotalSupplies(ctx context.Context, tokens []common.Address) (err error) {
	ctx, span := s.metrics.start(ctx, "fetch_total_supplies", attribute.Int("tokens", len(tokens)))
	defer func() { s.metrics.end(ctx, span, "total_supplies", err) }()

	return s.each(ctx, tokens, func(ctx context.Context, token common.Address) error {
		raw, err := s.reader.TotalSupply(ctx, token)
		if err != nil {
			return err
		}
		s.store.SetTotalSupply(token, s.amount(ctx, token, raw))
		return nil
	})
}

// FetchTokenBalances refreshes account's balance of each token.
func (s *TokenService) FetchTokenBalances(ctx context.Context, account common.Address, tokens []common.Address) (err error) {
	ctx, span := s.metrics.start(ctx, "fetch_token_balances",
		attribute.String("account", account.Hex()),
		attribute.Int("tokens", len(tokens)))
	defer func() { s.metrics.end(ctx, span, "balances", err) }()

	return s.each(ctx, tokens, func(ctx context.Context, token common.Address) error {
		raw, err := s.reader.BalanceOf(ctx, token, account)
		if err != nil {
			return err
		}
		s.store.SetBalance(domain.BalanceKey{Token: token, Account: account}, s.amount(ctx, token, raw))
		return nil
	})
}

// FetchAccountApprovals refreshes what spender may pull from owner for each token.
func (s *TokenService) FetchAccountApprovals(ctx context.Context, tokens []common.Address, owner, spender common.Address) (err error) {
	ctx, span := s.metrics.start(ctx, "fetch_account_approvals",
		attribute.String("owner", owner.Hex()),
		attribute.String("spender", spender.Hex()),
		attribute.Int("tokens", len(tokens)))
	defer func() { s.metrics.end(ctx, span, "allowances", err) }()

	return s.each(ctx, tokens, func(ctx context.Context, token common.Address) error {
		raw, err := s.reader.Allowance(ctx, token, owner, spender)
		if err != nil {
			return err
		}
		key := domain.AllowanceKey{Token: token, Owner: owner, Spender: spender}
		s.store.SetAllowance(key, s.amount(ctx, token, raw))
		return nil
	})
}

// each runs fn for every token with bounded concurrency. A failing token does
// not stop the others; all failures are joined.
func (s *TokenService) each(ctx context.Context, tokens []common.Address, fn func(context.Context, common.Address) error) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, token := range tokens {
		g.Go(func() error {
			if err := fn(ctx, token); err != nil {
				s.log.Debug(ctx, "token read failed", "token", token.Hex(), "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *TokenService) amount(ctx context.Context, token common.Address, raw *big.Int) domain.Amount {
	if d, ok := s.store.Decimals(token); ok {
		return domain.NewAmount(raw, d)
	}
	d, err := s.reader.Decimals(ctx, token)
	if err != nil {
		s.log.Debug(ctx, "token decimals unavailable, assuming default",
			"token", token.Hex(), "error", err)
		d = domain.DefaultDecimals
	}
	s.store.SetDecimals(token, d)
	return domain.NewAmount(raw, d)
}

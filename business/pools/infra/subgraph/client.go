// Package subgraph reads pool lists from a Balancer-style GraphQL index.
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/pooldash/business/pools/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/cache"
	"github.com/fd1az/pooldash/internal/httpclient"
	"github.com/fd1az/pooldash/internal/logger"
)

const (
	tracerName = "github.com/fd1az/pooldash/business/pools/infra/subgraph"

	pageSize       = 1000
	requestTimeout = 15 * time.Second
)

// Config holds subgraph client settings.
type Config struct {
	URL      string
	CacheTTL time.Duration
}

// Client queries pools from the subgraph. Responses are cached for CacheTTL;
// a zero TTL disables caching.
type Client struct {
	http   httpclient.Client
	cache  *cache.Cache[string, []domain.Pool]
	ttl    time.Duration
	log    logger.LoggerInterface
	tracer trace.Tracer
}

// New creates a subgraph client.
func New(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("subgraph url is required"))
	}

	tracer := otel.Tracer(tracerName)
	hc, err := httpclient.New(
		httpclient.WithProviderName("subgraph"),
		httpclient.WithBaseURL(cfg.URL),
		httpclient.WithRequestTimeout(requestTimeout),
		httpclient.WithTracer(tracer, false),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		http:   hc,
		cache:  cache.New[string, []domain.Pool](time.Minute),
		ttl:    cfg.CacheTTL,
		log:    log,
		tracer: tracer,
	}, nil
}

// Close stops the cache sweeper.
func (c *Client) Close() {
	c.cache.Close()
}

// Pools returns finalized public pools.
func (c *Client) Pools(ctx context.Context) ([]domain.Pool, error) {
	return c.list(ctx, "public_pools", publicPoolsQuery, map[string]any{"first": pageSize},
		func(raw json.RawMessage) ([]wirePool, error) {
			var data struct {
				Pools []wirePool `json:"pools"`
			}
			err := json.Unmarshal(raw, &data)
			return data.Pools, err
		})
}

// PrivatePools returns controller-managed pools.
func (c *Client) PrivatePools(ctx context.Context) ([]domain.Pool, error) {
	return c.list(ctx, "private_pools", privatePoolsQuery, map[string]any{"first": pageSize},
		func(raw json.RawMessage) ([]wirePool, error) {
			var data struct {
				Pools []wirePool `json:"pools"`
			}
			err := json.Unmarshal(raw, &data)
			return data.Pools, err
		})
}

// ContributedPools returns the pools account holds shares in.
func (c *Client) ContributedPools(ctx context.Context, account common.Address) ([]domain.Pool, error) {
	vars := map[string]any{
		"first":   pageSize,
		"account": strings.ToLower(account.Hex()),
	}
	return c.list(ctx, "contributed_pools", contributedPoolsQuery, vars,
		func(raw json.RawMessage) ([]wirePool, error) {
			var data struct {
				Shares []struct {
					Pool wirePool `json:"poolId"`
				} `json:"poolShares"`
			}
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, err
			}
			out := make([]wirePool, len(data.Shares))
			for i, s := range data.Shares {
				out[i] = s.Pool
			}
			return out, nil
		})
}

// Pool returns a single pool.
func (c *Client) Pool(ctx context.Context, address common.Address) (domain.Pool, error) {
	vars := map[string]any{"id": strings.ToLower(address.Hex())}
	pools, err := c.list(ctx, "pool", poolQuery, vars,
		func(raw json.RawMessage) ([]wirePool, error) {
			var data struct {
				Pool *wirePool `json:"pool"`
			}
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, err
			}
			if data.Pool == nil {
				return nil, nil
			}
			return []wirePool{*data.Pool}, nil
		})
	if err != nil {
		return domain.Pool{}, err
	}
	if len(pools) == 0 {
		return domain.Pool{}, apperror.NotFound(apperror.CodePoolNotFound, address.Hex())
	}
	return pools[0], nil
}

func (c *Client) list(ctx context.Context, name, query string, vars map[string]any, extract func(json.RawMessage) ([]wirePool, error)) ([]domain.Pool, error) {
	key, err := cacheKey(name, vars)
	if err != nil {
		return nil, err
	}
	if pools, ok := c.cache.Get(ctx, key); ok {
		return pools, nil
	}

	ctx, span := c.tracer.Start(ctx, "subgraph."+name,
		trace.WithAttributes(attribute.String("query", name)))
	defer span.End()

	raw, err := c.query(ctx, name, query, vars)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	wire, err := extract(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, apperror.New(apperror.CodeSubgraphQueryFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode "+name))
	}

	pools := make([]domain.Pool, 0, len(wire))
	for _, w := range wire {
		pools = append(pools, w.toDomain())
	}
	span.SetAttributes(attribute.Int("pools", len(pools)))

	if c.ttl > 0 {
		c.cache.Set(ctx, key, pools, c.ttl)
	}
	return pools, nil
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphError    `json:"errors"`
}

type graphError struct {
	Message string `json:"message"`
}

func (c *Client) query(ctx context.Context, name, query string, vars map[string]any) (json.RawMessage, error) {
	var out graphResponse
	resp, err := c.http.NewRequest(
		httpclient.WithLabel("query", name),
		httpclient.WithResponseErrorHandler(statusErrorHandler),
	).
		SetBody(graphRequest{Query: query, Variables: vars}).
		SetResult(&out).
		Post(ctx, "")
	if err != nil {
		return nil, apperror.New(apperror.CodeSubgraphQueryFailed,
			apperror.WithCause(err),
			apperror.WithContext(name))
	}

	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, apperror.New(apperror.CodeSubgraphQueryFailed,
			apperror.WithContext(fmt.Sprintf("%s: %s", name, strings.Join(msgs, "; "))))
	}
	if len(out.Data) == 0 {
		return nil, apperror.New(apperror.CodeSubgraphQueryFailed,
			apperror.WithContext(fmt.Sprintf("%s: empty response (HTTP %d)", name, resp.StatusCode)))
	}
	return out.Data, nil
}

func statusErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", statusCode, truncate(string(body), 256))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func cacheKey(name string, vars map[string]any) (string, error) {
	b, err := json.Marshal(vars)
	if err != nil {
		return "", err
	}
	return name + ":" + string(b), nil
}

type wireToken struct {
	Address      string          `json:"address"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Decimals     uint8           `json:"decimals"`
	Balance      decimal.Decimal `json:"balance"`
	DenormWeight decimal.Decimal `json:"denormWeight"`
}

type wirePool struct {
	ID          string          `json:"id"`
	Controller  string          `json:"controller"`
	Finalized   bool            `json:"finalized"`
	PublicSwap  bool            `json:"publicSwap"`
	SwapFee     decimal.Decimal `json:"swapFee"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
	TotalShares decimal.Decimal `json:"totalShares"`
	Tokens      []wireToken     `json:"tokens"`
}

func (w wirePool) toDomain() domain.Pool {
	p := domain.Pool{
		Address:     common.HexToAddress(w.ID),
		Controller:  common.HexToAddress(w.Controller),
		Finalized:   w.Finalized,
		PublicSwap:  w.PublicSwap,
		SwapFee:     w.SwapFee,
		TotalWeight: w.TotalWeight,
		TotalShares: w.TotalShares,
		Tokens:      make([]domain.PoolToken, len(w.Tokens)),
	}
	for i, t := range w.Tokens {
		p.Tokens[i] = domain.PoolToken{
			Address:      common.HexToAddress(t.Address),
			Symbol:       t.Symbol,
			Name:         t.Name,
			Decimals:     t.Decimals,
			Balance:      t.Balance,
			DenormWeight: t.DenormWeight,
		}
	}
	return p
}

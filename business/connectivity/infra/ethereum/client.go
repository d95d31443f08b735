// Package ethereum adapts go-ethereum RPC clients to the connection manager.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/pooldash/business/connectivity/app"
	"github.com/fd1az/pooldash/business/connectivity/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/circuitbreaker"
	"github.com/fd1az/pooldash/internal/logger"
	"github.com/fd1az/pooldash/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/pooldash/business/connectivity/infra/ethereum"
	meterName  = "github.com/fd1az/pooldash/business/connectivity/infra/ethereum"
)

// Options tunes a Client.
type Options struct {
	Name              string // breaker and metric label
	RequestsPerMinute int    // 0 disables rate limiting
	Logger            logger.LoggerInterface
}

type clientMetrics struct {
	calls  metric.Int64Counter
	errors metric.Int64Counter
}

// Client implements app.ChainClient over a JSON-RPC connection.
type Client struct {
	endpoint string
	rpc      *rpc.Client
	eth      *ethclient.Client
	log      logger.LoggerInterface
	limiter  *ratelimit.Limiter

	cbUint  *circuitbreaker.CircuitBreaker[uint64]
	cbBytes *circuitbreaker.CircuitBreaker[[]byte]
	cbAddrs *circuitbreaker.CircuitBreaker[[]common.Address]

	tracer  trace.Tracer
	metrics *clientMetrics
}

var _ app.ChainClient = (*Client)(nil)

// Dial connects to rawURL over HTTP or WebSocket.
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(redact(rawURL)))
	}
	return NewFromRPC(rc, rawURL, opts)
}

// NewFromRPC wraps an existing rpc client.
func NewFromRPC(rc *rpc.Client, rawURL string, opts Options) (*Client, error) {
	if opts.Name == "" {
		opts.Name = "rpc"
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	c := &Client{
		endpoint: redact(rawURL),
		rpc:      rc,
		eth:      ethclient.NewClient(rc),
		log:      log,
		limiter:  ratelimit.New(opts.Name, opts.RequestsPerMinute),
		tracer:   otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	c.initCircuitBreakers(opts.Name)

	return c, nil
}

// NewBackupDialer returns a dialer for the fixed backup endpoint.
func NewBackupDialer(requestsPerMinute int, log logger.LoggerInterface) app.BackupDialer {
	return func(ctx context.Context, rawURL string) (app.ChainClient, error) {
		return Dial(ctx, rawURL, Options{
			Name:              "backup",
			RequestsPerMinute: requestsPerMinute,
			Logger:            log,
		})
	}
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}
	c.metrics.calls, err = meter.Int64Counter(
		"eth_rpc_calls_total",
		metric.WithDescription("JSON-RPC calls issued"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.errors, err = meter.Int64Counter(
		"eth_rpc_errors_total",
		metric.WithDescription("JSON-RPC calls that failed"),
		metric.WithUnit("{error}"),
	)
	return err
}

func (c *Client) initCircuitBreakers(name string) {
	onChange := func(n string, from, to gobreaker.State) {
		c.log.Warn(context.Background(), "rpc circuit breaker state changed",
			"breaker", n, "from", from.String(), "to", to.String())
	}

	uintCfg := circuitbreaker.DefaultConfig(name + "-uint")
	uintCfg.OnStateChange = onChange
	c.cbUint = circuitbreaker.New[uint64](uintCfg)

	bytesCfg := circuitbreaker.DefaultConfig(name + "-bytes")
	bytesCfg.OnStateChange = onChange
	c.cbBytes = circuitbreaker.New[[]byte](bytesCfg)

	addrCfg := circuitbreaker.DefaultConfig(name + "-accounts")
	addrCfg.OnStateChange = onChange
	c.cbAddrs = circuitbreaker.New[[]common.Address](addrCfg)
}

// execute runs fn behind the rate limiter and breaker inside a span.
func execute[T any](ctx context.Context, c *Client, cb *circuitbreaker.CircuitBreaker[T], method string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := c.tracer.Start(ctx, "eth."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", method), attribute.String("endpoint", c.endpoint)),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("method", method))
	c.metrics.calls.Add(ctx, 1, attrs)

	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limited")
		return zero, err
	}

	res, err := cb.Execute(func() (T, error) { return fn(ctx) })
	if err != nil {
		c.metrics.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		if apperror.IsAppError(err) {
			return zero, err
		}
		return zero, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	span.SetStatus(codes.Ok, "")
	return res, nil
}

// ChainID resolves the network id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	return execute(ctx, c, c.cbUint, "eth_chainId", func(ctx context.Context) (uint64, error) {
		id, err := c.eth.ChainID(ctx)
		if err != nil {
			return 0, err
		}
		if !id.IsUint64() {
			return 0, errors.New("chain id overflows uint64")
		}
		return id.Uint64(), nil
	})
}

// BlockNumber returns the head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return execute(ctx, c, c.cbUint, "eth_blockNumber", c.eth.BlockNumber)
}

// Accounts lists the accounts exposed by the node or wallet.
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	return execute(ctx, c, c.cbAddrs, "eth_accounts", func(ctx context.Context) ([]common.Address, error) {
		var accounts []common.Address
		err := c.rpc.CallContext(ctx, &accounts, "eth_accounts")
		return accounts, err
	})
}

// CallContract executes a read-only call at the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return execute(ctx, c, c.cbBytes, "eth_call", func(ctx context.Context) ([]byte, error) {
		return c.eth.CallContract(ctx, goethereum.CallMsg{To: &to, Data: data}, nil)
	})
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value"`
}

// SendTransaction asks the node to sign and broadcast tx from an unlocked account.
// It bypasses the breaker: a wallet rejecting a signature says nothing about endpoint health.
func (c *Client) SendTransaction(ctx context.Context, from common.Address, tx domain.Transaction) (common.Hash, error) {
	ctx, span := c.tracer.Start(ctx, "eth.eth_sendTransaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("to", tx.To.Hex())),
	)
	defer span.End()

	var hash common.Hash
	args := sendTxArgs{From: from, To: tx.To, Data: tx.Data, Value: (*hexutil.Big)(tx.ValueOrZero())}
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("eth_sendTransaction"))
	}
	return hash, nil
}

// Endpoint returns the URL without credentials.
func (c *Client) Endpoint() string { return c.endpoint }

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.rpc.Close()
	return nil
}

// redact drops userinfo, path and query, which often carry API keys.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "rpc"
	}
	return u.Scheme + "://" + u.Host
}

// Package onchain reads ERC20 state through the live chain connection.
package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/contracts"
	"github.com/fd1az/pooldash/internal/ratelimit"
)

const tracerName = "github.com/fd1az/pooldash/business/pools/infra/onchain"

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// ERC20Reader reads token state with eth_call, bounded by a rate limiter.
type ERC20Reader struct {
	caller  Caller
	limiter *ratelimit.Limiter
	tracer  trace.Tracer
}

// NewERC20Reader creates a reader issuing at most requestsPerMinute calls.
func NewERC20Reader(caller Caller, requestsPerMinute int) *ERC20Reader {
	return &ERC20Reader{
		caller:  caller,
		limiter: ratelimit.New("erc20", requestsPerMinute),
		tracer:  otel.Tracer(tracerName),
	}
}

// TotalSupply returns token's total supply.
func (r *ERC20Reader) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	return callBig(ctx, r, token, "totalSupply")
}

// BalanceOf returns account's balance of token.
func (r *ERC20Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return callBig(ctx, r, token, "balanceOf", account)
}

// Allowance returns what spender may transfer from owner.
func (r *ERC20Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return callBig(ctx, r, token, "allowance", owner, spender)
}

// Decimals returns token's decimals.
func (r *ERC20Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := r.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, unexpected("decimals", out[0])
	}
	return d, nil
}

func callBig(ctx context.Context, r *ERC20Reader, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	out, err := r.call(ctx, token, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, unexpected(method, out[0])
	}
	return v, nil
}

func (r *ERC20Reader) call(ctx context.Context, token common.Address, method string, args ...interface{}) (out []interface{}, err error) {
	ctx, span := r.tracer.Start(ctx, "erc20."+method,
		trace.WithAttributes(attribute.String("token", token.Hex())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	data, err := contracts.Encode(contracts.TestToken, method, args...)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := r.caller.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}

	out, err = contracts.Decode(contracts.TestToken, method, raw)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(method+": empty return data"))
	}
	return out, nil
}

func unexpected(method string, v interface{}) error {
	return apperror.New(apperror.CodeContractCallFailed,
		apperror.WithContext(fmt.Sprintf("%s: unexpected return type %T", method, v)))
}

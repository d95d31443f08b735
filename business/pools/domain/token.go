package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is assumed for tokens whose metadata is unknown.
const DefaultDecimals = 18

// Amount is a raw on-chain integer amount with its token's decimals.
type Amount struct {
	Raw      *big.Int
	Decimals uint8
}

// NewAmount wraps raw. A nil raw is treated as zero.
func NewAmount(raw *big.Int, decimals uint8) Amount {
	if raw == nil {
		raw = new(big.Int)
	}
	return Amount{Raw: raw, Decimals: decimals}
}

// Decimal returns the amount scaled down by its decimals.
func (a Amount) Decimal() decimal.Decimal {
	if a.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.Raw, -int32(a.Decimals))
}

// String formats the scaled amount without trailing zeros.
func (a Amount) String() string {
	return a.Decimal().String()
}

// IsZero reports a zero or missing amount.
func (a Amount) IsZero() bool {
	return a.Raw == nil || a.Raw.Sign() == 0
}

// MarshalText renders the scaled decimal.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// AllowanceKey identifies an allowance entry.
type AllowanceKey struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
}

// BalanceKey identifies a balance entry.
type BalanceKey struct {
	Token   common.Address
	Account common.Address
}

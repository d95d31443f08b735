package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/pooldash/internal/contracts"
)

// Transaction is one encoded call ready for submission.
type Transaction struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value"`
}

// ValueOrZero returns the value in wei.
func (t Transaction) ValueOrZero() *big.Int {
	if t.Value == nil {
		return new(big.Int)
	}
	return t.Value.ToInt()
}

// Batch is an ordered set of transactions submitted atomically.
type Batch []Transaction

// Overrides carries optional call parameters.
type Overrides struct {
	Value *big.Int
}

// FunctionCall describes a contract call before encoding.
type FunctionCall struct {
	Kind      contracts.Kind
	Address   common.Address
	Method    string
	Params    []interface{}
	Overrides *Overrides
}

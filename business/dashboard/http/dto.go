package http

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	connDomain "github.com/fd1az/pooldash/business/connectivity/domain"
	poolsDomain "github.com/fd1az/pooldash/business/pools/domain"
)

type identityResponse struct {
	SafeAddress common.Address `json:"safeAddress"`
	Network     string         `json:"network"`
}

type statusResponse struct {
	Active       bool              `json:"active"`
	State        string            `json:"state"`
	Mode         string            `json:"mode,omitempty"`
	ChainID      uint64            `json:"chainId,omitempty"`
	ChainName    string            `json:"chainName,omitempty"`
	Supported    bool              `json:"supported"`
	Account      *common.Address   `json:"account,omitempty"`
	Endpoint     string            `json:"endpoint,omitempty"`
	LastError    string            `json:"lastError,omitempty"`
	CurrentBlock *uint64           `json:"currentBlock"`
	Identity     *identityResponse `json:"identity"`
	ActivePool   *common.Address   `json:"activePool,omitempty"`
	Reconnects   int64             `json:"reconnects"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type poolsResponse struct {
	Pools     []poolsDomain.Pool `json:"pools"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type contributedPool struct {
	Pool        poolsDomain.Pool    `json:"pool"`
	TotalSupply *poolsDomain.Amount `json:"totalSupply,omitempty"`
	Balance     *poolsDomain.Amount `json:"balance,omitempty"`
}

type contributedResponse struct {
	Account common.Address    `json:"account"`
	Pools   []contributedPool `json:"pools"`
}

type tokenAccountState struct {
	Balance   *poolsDomain.Amount `json:"balance,omitempty"`
	Allowance *poolsDomain.Amount `json:"allowance,omitempty"`
}

type poolDetailResponse struct {
	Pool        poolsDomain.Pool                     `json:"pool"`
	Active      bool                                 `json:"active"`
	TotalSupply *poolsDomain.Amount                  `json:"totalSupply,omitempty"`
	Shares      *poolsDomain.Amount                  `json:"shares,omitempty"`
	Tokens      map[common.Address]tokenAccountState `json:"tokens,omitempty"`
}

type activePoolRequest struct {
	Address string `json:"address"`
}

// callRequest is one contract call as sent by the frontend. Params are
// converted to ABI types according to the method's inputs.
type callRequest struct {
	Contract string        `json:"contract"`
	Address  string        `json:"address"`
	Method   string        `json:"method"`
	Params   []interface{} `json:"params"`
	Value    string        `json:"value,omitempty"`
}

type callsRequest struct {
	Calls []callRequest `json:"calls"`
}

type transactionsResponse struct {
	Transactions connDomain.Batch `json:"transactions"`
}

type syncResponse struct {
	Fetched bool   `json:"fetched"`
	Block   uint64 `json:"block,omitempty"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

func amountPtr(a poolsDomain.Amount, ok bool) *poolsDomain.Amount {
	if !ok {
		return nil
	}
	return &a
}

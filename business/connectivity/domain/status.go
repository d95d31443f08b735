// Package domain contains the core domain types for the connectivity context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Mode identifies where the live connection comes from.
type Mode string

const (
	ModeNone     Mode = ""
	ModeInjected Mode = "injected" // wallet-supplied provider
	ModeBackup   Mode = "backup"   // fixed read-only RPC endpoint
)

// ConnectionState represents the lifecycle state of the connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateActive       ConnectionState = "active"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus is an immutable snapshot of the live connection.
// A new value is built for every change; fields are never mutated in place.
type ConnectionStatus struct {
	Active    bool
	State     ConnectionState
	ChainID   uint64         // 0 when unresolved
	Account   common.Address // zero when unset
	Mode      Mode
	Endpoint  string // description of the underlying transport
	LastError error
	UpdatedAt time.Time
}

// Cleared returns a status with every identity field reset.
func Cleared(err error) ConnectionStatus {
	return ConnectionStatus{
		State:     StateDisconnected,
		LastError: err,
		UpdatedAt: time.Now(),
	}
}

// HasAccount reports whether an account is set.
func (s ConnectionStatus) HasAccount() bool {
	return s.Account != (common.Address{})
}

// HasChain reports whether the chain id is resolved.
func (s ConnectionStatus) HasChain() bool {
	return s.ChainID != 0
}

// WithAccount returns a copy with account replaced.
func (s ConnectionStatus) WithAccount(account common.Address) ConnectionStatus {
	s.Account = account
	s.UpdatedAt = time.Now()
	return s
}

// WithState returns a copy with state replaced.
func (s ConnectionStatus) WithState(state ConnectionState) ConnectionStatus {
	s.State = state
	s.UpdatedAt = time.Now()
	return s
}

// ChainSnapshot is the last block height observed on the live connection.
type ChainSnapshot struct {
	CurrentBlock uint64
	Known        bool
}

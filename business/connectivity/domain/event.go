package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// EventKind names a provider-level notification.
type EventKind string

const (
	EventChainChanged    EventKind = "chainChanged"
	EventAccountsChanged EventKind = "accountsChanged"
	EventClose           EventKind = "close"
	EventNetworkChanged  EventKind = "networkChanged"
)

// ProviderEvent is a notification emitted by an injected provider.
type ProviderEvent struct {
	Kind     EventKind
	ChainID  uint64           // chainChanged, networkChanged
	Accounts []common.Address // accountsChanged
	Reason   string           // close
}

// DelegatedIdentity is the identity announced by a delegated-custody container.
type DelegatedIdentity struct {
	SafeAddress common.Address
	Network     string
}

// IsZero reports whether no safe address is set.
func (d DelegatedIdentity) IsZero() bool {
	return d.SafeAddress == (common.Address{})
}

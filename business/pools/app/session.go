package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/pooldash/internal/logger"
)

// Modal names a liquidity form.
type Modal string

const (
	ModalAddLiquidity    Modal = "addLiquidity"
	ModalRemoveLiquidity Modal = "removeLiquidity"
)

// Session holds the user's pool selection and open liquidity forms.
type Session struct {
	pools *PoolService
	store *Store
	log   logger.LoggerInterface

	mu       sync.Mutex
	open     map[Modal]common.Address
	listener ActivePoolListener
}

// NewSession creates a Session.
func NewSession(pools *PoolService, store *Store, log logger.LoggerInterface) *Session {
	return &Session{
		pools: pools,
		store: store,
		log:   log,
		open:  make(map[Modal]common.Address),
	}
}

// SetActivePoolListener installs the listener notified on selection changes.
func (s *Session) SetActivePoolListener(l ActivePoolListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// SetActivePool selects a pool and notifies the listener when the selection
// actually changed. Unknown pools are loaded from the index first.
func (s *Session) SetActivePool(ctx context.Context, address common.Address) error {
	if _, err := s.pools.EnsurePool(ctx, address); err != nil {
		return err
	}

	if current, ok := s.store.ActivePool(); ok && current == address {
		return nil
	}
	s.store.SetActivePool(address)
	s.log.Info(ctx, "active pool changed", "pool", address.Hex())

	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.OnActivePoolChanged(ctx)
	}
	return nil
}

// ClearActivePool drops the selection.
func (s *Session) ClearActivePool() {
	s.store.SetActivePool(common.Address{})
}

// OpenModal opens a liquidity form for pool.
func (s *Session) OpenModal(m Modal, pool common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[m] = pool
}

// CloseModal closes every open liquidity form.
func (s *Session) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.open)
}

// OpenModals returns the open forms and their pools.
func (s *Session) OpenModals() map[Modal]common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Modal]common.Address, len(s.open))
	for k, v := range s.open {
		out[k] = v
	}
	return out
}

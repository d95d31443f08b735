package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"

	"github.com/fd1az/pooldash/business/connectivity/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/logger"
)

// TransactionRelay forwards batches to a delegated-custody container and tracks
// the identity it announces.
type TransactionRelay struct {
	container Container
	log       logger.LoggerInterface

	identity atomic.Pointer[domain.DelegatedIdentity]
	feed     event.Feed

	sub       event.Subscription
	done      chan struct{}
	closeOnce sync.Once
}

// NewTransactionRelay subscribes to the container's identity notifications.
func NewTransactionRelay(container Container, log logger.LoggerInterface) *TransactionRelay {
	r := &TransactionRelay{
		container: container,
		log:       log,
		done:      make(chan struct{}),
	}

	ch := make(chan domain.DelegatedIdentity, 4)
	r.sub = container.SubscribeIdentity(ch)
	go r.loop(ch)

	return r
}

func (r *TransactionRelay) loop(ch <-chan domain.DelegatedIdentity) {
	for {
		select {
		case <-r.done:
			return
		case err, ok := <-r.sub.Err():
			if ok && err != nil {
				r.log.Error(context.Background(), "container identity subscription failed", "error", err)
			}
			return
		case id := <-ch:
			r.identity.Store(&id)
			r.log.Info(context.Background(), "delegated identity updated",
				"safe", id.SafeAddress.Hex(), "network", id.Network)
			r.feed.Send(id)
		}
	}
}

// Relay hands batch to the container verbatim. Success means accepted by the
// container, not mined. Failures are not retried.
func (r *TransactionRelay) Relay(ctx context.Context, batch domain.Batch) error {
	if len(batch) == 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "empty batch")
	}
	if err := r.container.SendTransactions(ctx, batch); err != nil {
		if apperror.GetCode(err) == apperror.CodeRelayFailed {
			return err
		}
		return apperror.New(apperror.CodeRelayFailed, apperror.WithCause(err))
	}
	r.log.Info(ctx, "batch relayed to container", "transactions", len(batch))
	return nil
}

// HasIdentity reports whether the container has announced a safe address.
func (r *TransactionRelay) HasIdentity() bool {
	_, ok := r.CurrentIdentity()
	return ok
}

// CurrentIdentity returns the latest announced identity.
func (r *TransactionRelay) CurrentIdentity() (domain.DelegatedIdentity, bool) {
	id := r.identity.Load()
	if id == nil || id.IsZero() {
		return domain.DelegatedIdentity{}, false
	}
	return *id, true
}

// SubscribeIdentity re-broadcasts identity notifications to ch.
func (r *TransactionRelay) SubscribeIdentity(ch chan<- domain.DelegatedIdentity) event.Subscription {
	return r.feed.Subscribe(ch)
}

// Close stops listening to the container and closes it.
func (r *TransactionRelay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		r.sub.Unsubscribe()
		err = r.container.Close()
	})
	return err
}

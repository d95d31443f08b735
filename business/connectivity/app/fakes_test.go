package app

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/fd1az/pooldash/business/connectivity/domain"
)

var errRPC = errors.New("rpc unreachable")

type fakeClient struct {
	mu         sync.Mutex
	chainID    uint64
	chainErr   error
	accounts   []common.Address
	block      uint64
	blockErr   error
	sent       []domain.Transaction
	sendErr    error
	closed     bool
	closeCalls int
}

func (c *fakeClient) ChainID(context.Context) (uint64, error) { return c.chainID, c.chainErr }

func (c *fakeClient) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block, c.blockErr
}

func (c *fakeClient) Accounts(context.Context) ([]common.Address, error) { return c.accounts, nil }

func (c *fakeClient) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, nil
}

func (c *fakeClient) SendTransaction(_ context.Context, _ common.Address, tx domain.Transaction) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return common.Hash{}, c.sendErr
	}
	c.sent = append(c.sent, tx)
	return common.BytesToHash([]byte{byte(len(c.sent))}), nil
}

func (c *fakeClient) Endpoint() string { return "fake" }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCalls++
	return errors.New("already closed")
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeProvider hands out clients in order; the last one is reused.
type fakeProvider struct {
	mu         sync.Mutex
	clients    []*fakeClient
	connectErr error
	connects   int
	feed       event.Feed
	subs       []event.Subscription
}

func (p *fakeProvider) Name() string { return "fake-wallet" }

func (p *fakeProvider) Connect(context.Context) (ChainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connects++
	if p.connectErr != nil {
		return nil, p.connectErr
	}
	i := p.connects - 1
	if i >= len(p.clients) {
		i = len(p.clients) - 1
	}
	return p.clients[i], nil
}

func (p *fakeProvider) Subscribe(ch chan<- domain.ProviderEvent) event.Subscription {
	sub := p.feed.Subscribe(ch)
	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()
	return sub
}

func (p *fakeProvider) connectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects
}

type fakeRelay struct {
	mu       sync.Mutex
	identity domain.DelegatedIdentity
	relayed  []domain.Batch
	err      error
	feed     event.Feed
}

func (r *fakeRelay) Relay(_ context.Context, b domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.relayed = append(r.relayed, b)
	return nil
}

func (r *fakeRelay) HasIdentity() bool {
	_, ok := r.CurrentIdentity()
	return ok
}

func (r *fakeRelay) CurrentIdentity() (domain.DelegatedIdentity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity, !r.identity.IsZero()
}

func (r *fakeRelay) SubscribeIdentity(ch chan<- domain.DelegatedIdentity) event.Subscription {
	return r.feed.Subscribe(ch)
}

type refreshCall struct{ force bool }

type fakeRefresher struct {
	mu    sync.Mutex
	calls []refreshCall
}

func (f *fakeRefresher) Refresh(_ context.Context, force bool) {
	f.mu.Lock()
	f.calls = append(f.calls, refreshCall{force: force})
	f.mu.Unlock()
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeResetter struct {
	mu     sync.Mutex
	closes int
}

func (f *fakeResetter) CloseModal() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

type fakeContainer struct {
	mu     sync.Mutex
	feed   event.Feed
	sent   []domain.Batch
	err    error
	closed bool
}

func (c *fakeContainer) SubscribeIdentity(ch chan<- domain.DelegatedIdentity) event.Subscription {
	return c.feed.Subscribe(ch)
}

func (c *fakeContainer) SendTransactions(_ context.Context, b domain.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, b)
	return nil
}

func (c *fakeContainer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

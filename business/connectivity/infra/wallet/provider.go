// Package wallet connects to a wallet-injected provider exposed over a
// WebSocket JSON-RPC bridge.
package wallet

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/pooldash/business/connectivity/app"
	"github.com/fd1az/pooldash/business/connectivity/domain"
	"github.com/fd1az/pooldash/business/connectivity/infra/ethereum"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/logger"
)

// Provider is a wallet reachable through eth_subscribe-capable JSON-RPC.
// The bridge emits the wallet's chainChanged, accountsChanged, networkChanged
// and disconnect notifications as subscriptions of the same names.
type Provider struct {
	url  string
	name string
	log  logger.LoggerInterface
	feed event.Feed
}

var _ app.WalletProvider = (*Provider)(nil)

// NewProvider creates a provider for the bridge at url.
func NewProvider(url, name string, log logger.LoggerInterface) *Provider {
	return &Provider{url: url, name: name, log: log}
}

// Name returns the provider label.
func (p *Provider) Name() string { return p.name }

// Subscribe delivers provider notifications to ch.
func (p *Provider) Subscribe(ch chan<- domain.ProviderEvent) event.Subscription {
	return p.feed.Subscribe(ch)
}

// Connect dials the bridge and starts forwarding its notifications.
func (p *Provider) Connect(ctx context.Context) (app.ChainClient, error) {
	rc, err := rpc.DialContext(ctx, p.url)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(p.name))
	}

	client, err := ethereum.NewFromRPC(rc, p.url, ethereum.Options{Name: p.name, Logger: p.log})
	if err != nil {
		rc.Close()
		return nil, err
	}

	fwdCtx, cancel := context.WithCancel(context.Background())
	s := &session{Client: client, cancel: cancel}

	for _, kind := range []domain.EventKind{
		domain.EventChainChanged,
		domain.EventAccountsChanged,
		domain.EventNetworkChanged,
		"disconnect",
	} {
		ch := make(chan json.RawMessage, 8)
		sub, err := rc.EthSubscribe(fwdCtx, ch, string(kind))
		if err != nil {
			s.Close()
			return nil, apperror.New(apperror.CodeProviderSubscription,
				apperror.WithCause(err),
				apperror.WithContext(string(kind)))
		}
		s.wg.Add(1)
		go p.forward(fwdCtx, s, kind, ch, sub)
	}

	return s, nil
}

// forward decodes one notification stream onto the provider feed.
func (p *Provider) forward(ctx context.Context, s *session, kind domain.EventKind, ch <-chan json.RawMessage, sub *rpc.ClientSubscription) {
	defer s.wg.Done()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if s.closing.Load() {
				return
			}
			reason := "subscription ended"
			if err != nil {
				reason = err.Error()
			}
			// One close per session, whichever stream notices first.
			if s.closeSent.CompareAndSwap(false, true) {
				p.feed.Send(domain.ProviderEvent{Kind: domain.EventClose, Reason: reason})
			}
			return
		case raw := <-ch:
			ev, err := decodeEvent(kind, raw)
			if err != nil {
				p.log.Warn(ctx, "undecodable provider notification", "kind", string(kind), "error", err)
				continue
			}
			if ev.Kind == domain.EventClose && !s.closeSent.CompareAndSwap(false, true) {
				continue
			}
			p.feed.Send(ev)
		}
	}
}

func decodeEvent(kind domain.EventKind, raw json.RawMessage) (domain.ProviderEvent, error) {
	switch kind {
	case domain.EventChainChanged:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.ProviderEvent{}, err
		}
		id, err := parseChainID(s)
		if err != nil {
			return domain.ProviderEvent{}, err
		}
		return domain.ProviderEvent{Kind: kind, ChainID: id}, nil

	case domain.EventNetworkChanged:
		// Legacy wallets send the network id as a decimal string or number.
		s := strings.Trim(string(raw), `"`)
		id, err := parseChainID(s)
		if err != nil {
			return domain.ProviderEvent{}, err
		}
		return domain.ProviderEvent{Kind: kind, ChainID: id}, nil

	case domain.EventAccountsChanged:
		var accounts []common.Address
		if err := json.Unmarshal(raw, &accounts); err != nil {
			return domain.ProviderEvent{}, err
		}
		return domain.ProviderEvent{Kind: kind, Accounts: accounts}, nil
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)
	reason := payload.Message
	if reason == "" {
		reason = "disconnected"
	}
	return domain.ProviderEvent{Kind: domain.EventClose, Reason: reason}, nil
}

func parseChainID(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// session is the chain client of one Connect call. Closing it stops the
// notification forwarders without emitting a close event.
type session struct {
	*ethereum.Client
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closing   atomic.Bool
	closeSent atomic.Bool
	closeOnce sync.Once
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.cancel()
		err = s.Client.Close()
		s.wg.Wait()
	})
	return err
}

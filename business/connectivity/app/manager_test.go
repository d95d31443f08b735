package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/pooldash/business/connectivity/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/contracts"
	"github.com/fd1az/pooldash/internal/logger"
)

var (
	walletAccount = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherAccount  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	safeAddress   = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	poolAddress   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func newManager(t *testing.T, backup *fakeClient, relay Relayer) *ConnectionManager {
	t.Helper()
	dial := func(context.Context, string) (ChainClient, error) {
		if backup == nil {
			return nil, errRPC
		}
		return backup, nil
	}
	m := NewConnectionManager(ManagerConfig{BackupURL: "http://backup"}, dial, relay, logger.NewNop())
	t.Cleanup(m.Close)
	return m
}

func setStatus(m *ConnectionManager, st domain.ConnectionStatus) {
	m.opMu.Lock()
	m.publish(st, false)
	m.opMu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func assertCleared(t *testing.T, st domain.ConnectionStatus) {
	t.Helper()
	if st.Active || st.ChainID != 0 || st.HasAccount() || st.Mode != domain.ModeNone || st.Endpoint != "" {
		t.Fatalf("status not fully cleared: %+v", st)
	}
}

func TestConnectInjected_Success(t *testing.T) {
	client := &fakeClient{chainID: 1, accounts: []common.Address{walletAccount, otherAccount}}
	p := &fakeProvider{clients: []*fakeClient{client}}
	m := newManager(t, nil, nil)

	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatalf("ConnectInjected: %v", err)
	}

	st := m.Status()
	if !st.Active || st.State != domain.StateActive || st.Mode != domain.ModeInjected {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.ChainID != 1 || st.Account != walletAccount {
		t.Fatalf("identity = (%d, %s), want (1, %s)", st.ChainID, st.Account.Hex(), walletAccount.Hex())
	}
}

func TestConnectInjected_FailureClearsEverything(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		p      func(*fakeClient) *fakeProvider
	}{
		{
			name:   "connect fails",
			client: &fakeClient{},
			p: func(*fakeClient) *fakeProvider {
				return &fakeProvider{connectErr: errRPC}
			},
		},
		{
			name:   "network resolution fails",
			client: &fakeClient{chainErr: errRPC, accounts: []common.Address{walletAccount}},
			p: func(c *fakeClient) *fakeProvider {
				return &fakeProvider{clients: []*fakeClient{c}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t, nil, nil)

			// Start from a populated status so stale fields would show.
			good := &fakeClient{chainID: 1, accounts: []common.Address{otherAccount}}
			if err := m.ConnectInjected(context.Background(), &fakeProvider{clients: []*fakeClient{good}}); err != nil {
				t.Fatalf("initial connect: %v", err)
			}
			m.SetCurrentBlockNumber(500)

			err := m.ConnectInjected(context.Background(), tt.p(tt.client))
			if apperror.GetCode(err) != apperror.CodeNoChainConnectivity {
				t.Fatalf("expected NO_CHAIN_CONNECTIVITY, got %v", err)
			}

			st := m.Status()
			assertCleared(t, st)
			if apperror.GetCode(st.LastError) != apperror.CodeNoChainConnectivity {
				t.Fatalf("LastError = %v", st.LastError)
			}
			if _, known := m.CurrentBlockNumber(); known {
				t.Fatal("block height should be unknown after failure")
			}
			if !good.isClosed() {
				t.Fatal("previous client should be closed")
			}
		})
	}
}

func TestConnectInjected_FailureUnsubscribesNewListener(t *testing.T) {
	client := &fakeClient{chainErr: errRPC}
	p := &fakeProvider{clients: []*fakeClient{client}}
	m := newManager(t, nil, nil)

	_ = m.ConnectInjected(context.Background(), p)

	if !client.isClosed() {
		t.Fatal("client should be closed after failed resolution")
	}
	if n := p.feed.Send(domain.ProviderEvent{Kind: domain.EventClose}); n != 0 {
		t.Fatalf("event delivered to %d listeners after failed connect", n)
	}
}

func TestConnectBackup(t *testing.T) {
	tests := []struct {
		name     string
		identity domain.DelegatedIdentity
		want     common.Address
	}{
		{name: "without delegated identity"},
		{name: "with delegated identity", identity: domain.DelegatedIdentity{SafeAddress: safeAddress, Network: "rinkeby"}, want: safeAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{identity: tt.identity}
			m := newManager(t, &fakeClient{chainID: 4}, relay)

			if err := m.ConnectBackup(context.Background()); err != nil {
				t.Fatalf("ConnectBackup: %v", err)
			}
			st := m.Status()
			if !st.Active || st.Mode != domain.ModeBackup || st.ChainID != 4 {
				t.Fatalf("unexpected status %+v", st)
			}
			if st.Account != tt.want {
				t.Fatalf("Account = %s, want %s", st.Account.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestConnectBackup_Failure(t *testing.T) {
	m := newManager(t, nil, nil)

	err := m.ConnectBackup(context.Background())
	if apperror.GetCode(err) != apperror.CodeNoChainConnectivity {
		t.Fatalf("expected NO_CHAIN_CONNECTIVITY, got %v", err)
	}
	st := m.Status()
	assertCleared(t, st)
	if !errors.Is(st.LastError, apperror.New(apperror.CodeNoChainConnectivity)) {
		t.Fatalf("LastError = %v", st.LastError)
	}
}

func TestConnectBackup_TearsDownInjectedListeners(t *testing.T) {
	p := &fakeProvider{clients: []*fakeClient{{chainID: 1, accounts: []common.Address{walletAccount}}}}
	m := newManager(t, &fakeClient{chainID: 1}, nil)

	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if err := m.ConnectBackup(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := p.feed.Send(domain.ProviderEvent{Kind: domain.EventNetworkChanged, ChainID: 4}); n != 0 {
		t.Fatalf("injected listener still attached (%d receivers)", n)
	}
	if m.Status().HasAccount() {
		t.Fatal("backup mode without identity must not keep the wallet account")
	}
}

func TestOnAccountsChanged_EmptyClearsAndReconnectsOnce(t *testing.T) {
	first := &fakeClient{chainID: 1, accounts: []common.Address{walletAccount}}
	second := &fakeClient{chainID: 1}
	p := &fakeProvider{clients: []*fakeClient{first, second}}
	resetter := &fakeResetter{}
	refresher := &fakeRefresher{}

	m := newManager(t, nil, nil)
	m.AddSessionResetter(resetter)
	m.SetRefresher(refresher)

	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	m.OnAccountsChanged(context.Background(), nil)

	if got := m.Reconnects(); got != 1 {
		t.Fatalf("Reconnects = %d, want 1", got)
	}
	if got := p.connectCount(); got != 2 {
		t.Fatalf("provider connects = %d, want 2", got)
	}
	if m.Status().HasAccount() {
		t.Fatalf("account should be cleared, got %s", m.Status().Account.Hex())
	}
	if resetter.closes != 1 {
		t.Fatalf("CloseModal calls = %d, want 1", resetter.closes)
	}
	if refresher.count() != 0 {
		t.Fatalf("close path must not force a refetch, got %d", refresher.count())
	}
}

func TestOnAccountsChanged_AdoptsFirstAndForcesRefetch(t *testing.T) {
	p := &fakeProvider{clients: []*fakeClient{{chainID: 1, accounts: []common.Address{walletAccount}}}}
	refresher := &fakeRefresher{}
	resetter := &fakeResetter{}

	m := newManager(t, nil, nil)
	m.SetRefresher(refresher)
	m.AddSessionResetter(resetter)

	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	m.OnAccountsChanged(context.Background(), []common.Address{otherAccount, walletAccount})

	if got := m.Status().Account; got != otherAccount {
		t.Fatalf("Account = %s, want %s", got.Hex(), otherAccount.Hex())
	}
	if refresher.count() != 1 || !refresher.calls[0].force {
		t.Fatalf("expected one forced refresh, got %+v", refresher.calls)
	}
	if m.Reconnects() != 0 {
		t.Fatalf("unexpected reconnect")
	}
	if resetter.closes != 1 {
		t.Fatalf("CloseModal calls = %d, want 1", resetter.closes)
	}
}

func TestOnNetworkChanged(t *testing.T) {
	t.Run("active reconnects and forces refetch", func(t *testing.T) {
		first := &fakeClient{chainID: 1, accounts: []common.Address{walletAccount}}
		second := &fakeClient{chainID: 4, accounts: []common.Address{walletAccount}}
		p := &fakeProvider{clients: []*fakeClient{first, second}}
		refresher := &fakeRefresher{}

		m := newManager(t, nil, nil)
		m.SetRefresher(refresher)
		if err := m.ConnectInjected(context.Background(), p); err != nil {
			t.Fatal(err)
		}

		m.OnNetworkChanged(context.Background(), 4)

		if m.Status().ChainID != 4 {
			t.Fatalf("ChainID = %d, want 4", m.Status().ChainID)
		}
		if !first.isClosed() {
			t.Fatal("old handle should be closed")
		}
		if refresher.count() != 1 || !refresher.calls[0].force {
			t.Fatalf("expected one forced refresh, got %+v", refresher.calls)
		}
	})

	t.Run("inactive is a no-op", func(t *testing.T) {
		refresher := &fakeRefresher{}
		m := newManager(t, nil, nil)
		m.SetRefresher(refresher)

		m.OnNetworkChanged(context.Background(), 4)

		if m.Reconnects() != 0 || refresher.count() != 0 {
			t.Fatalf("reconnects=%d refreshes=%d, want 0/0", m.Reconnects(), refresher.count())
		}
	})

	t.Run("backup mode reconnects through backup", func(t *testing.T) {
		backup := &fakeClient{chainID: 1}
		m := newManager(t, backup, nil)
		if err := m.ConnectBackup(context.Background()); err != nil {
			t.Fatal(err)
		}

		m.OnConnectionClosed(context.Background(), "socket hang up")

		if m.Reconnects() != 1 {
			t.Fatalf("Reconnects = %d, want 1", m.Reconnects())
		}
		st := m.Status()
		if !st.Active || st.Mode != domain.ModeBackup {
			t.Fatalf("unexpected status %+v", st)
		}
	})
}

func TestOnConnectionClosed_FailedRecoveryDisconnects(t *testing.T) {
	good := &fakeClient{chainID: 1, accounts: []common.Address{walletAccount}}
	p := &fakeProvider{clients: []*fakeClient{good}}
	m := newManager(t, nil, nil)
	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	p.mu.Lock()
	p.connectErr = errRPC
	p.mu.Unlock()

	m.OnConnectionClosed(context.Background(), "wallet locked")

	st := m.Status()
	assertCleared(t, st)
	if st.State != domain.StateDisconnected {
		t.Fatalf("State = %s, want disconnected", st.State)
	}

	// A cleared connection ignores further close notifications.
	m.OnConnectionClosed(context.Background(), "again")
	if m.Reconnects() != 1 {
		t.Fatalf("Reconnects = %d, want 1", m.Reconnects())
	}
}

func TestProviderEvents_DispatchedFromFeed(t *testing.T) {
	p := &fakeProvider{clients: []*fakeClient{
		{chainID: 1, accounts: []common.Address{walletAccount}},
		{chainID: 42, accounts: []common.Address{walletAccount}},
	}}
	refresher := &fakeRefresher{}
	m := newManager(t, nil, nil)
	m.SetRefresher(refresher)

	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	p.feed.Send(domain.ProviderEvent{Kind: domain.EventChainChanged, ChainID: 42})

	waitFor(t, func() bool { return refresher.count() == 1 })
	if m.Status().ChainID != 42 {
		t.Fatalf("ChainID = %d, want 42", m.Status().ChainID)
	}
}

func TestStaleGenerationIsDropped(t *testing.T) {
	p := &fakeProvider{clients: []*fakeClient{{chainID: 1, accounts: []common.Address{walletAccount}}}}
	m := newManager(t, nil, nil)
	if err := m.ConnectInjected(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	m.opMu.Lock()
	stale := m.gen - 1
	m.opMu.Unlock()

	m.onNetworkChanged(context.Background(), stale, 4)
	m.onAccountsChanged(context.Background(), stale, []common.Address{otherAccount})

	if m.Reconnects() != 0 {
		t.Fatalf("stale event triggered %d reconnects", m.Reconnects())
	}
	if m.Status().Account != walletAccount {
		t.Fatal("stale accountsChanged must not change the account")
	}
}

func TestOnIdentityChanged_OnlyGovernsBackupMode(t *testing.T) {
	relay := &fakeRelay{}

	t.Run("backup adopts", func(t *testing.T) {
		m := newManager(t, &fakeClient{chainID: 1}, relay)
		if err := m.ConnectBackup(context.Background()); err != nil {
			t.Fatal(err)
		}

		relay.feed.Send(domain.DelegatedIdentity{SafeAddress: safeAddress})

		waitFor(t, func() bool { return m.Status().Account == safeAddress })
	})

	t.Run("injected ignores", func(t *testing.T) {
		p := &fakeProvider{clients: []*fakeClient{{chainID: 1, accounts: []common.Address{walletAccount}}}}
		m := newManager(t, nil, relay)
		if err := m.ConnectInjected(context.Background(), p); err != nil {
			t.Fatal(err)
		}

		m.OnIdentityChanged(domain.DelegatedIdentity{SafeAddress: safeAddress})

		if m.Status().Account != walletAccount {
			t.Fatalf("Account = %s, wallet account should govern", m.Status().Account.Hex())
		}
	})
}

func TestEncodeCall(t *testing.T) {
	m := newManager(t, nil, nil)
	params := []interface{}{poolAddress, big.NewInt(10)}

	_, err := m.EncodeCall(contracts.TestToken, poolAddress, "approve", params, nil)
	if apperror.GetCode(err) != apperror.CodeIdentityMissing {
		t.Fatalf("no account: got %v", err)
	}

	setStatus(m, domain.ConnectionStatus{Active: true, State: domain.StateActive, Account: walletAccount, Mode: domain.ModeInjected})
	_, err = m.EncodeCall(contracts.TestToken, poolAddress, "approve", params, nil)
	if apperror.GetCode(err) != apperror.CodeChainMissing {
		t.Fatalf("no chain: got %v", err)
	}

	setStatus(m, domain.ConnectionStatus{Active: true, State: domain.StateActive, Account: walletAccount, ChainID: 1, Mode: domain.ModeInjected})
	statusBefore := m.Status()
	tx, err := m.EncodeCall(contracts.TestToken, poolAddress, "approve", params, &domain.Overrides{Value: big.NewInt(7)})
	if err != nil {
		t.Fatalf("EncodeCall: %v", err)
	}
	if tx.To != poolAddress || len(tx.Data) != 68 || tx.ValueOrZero().Int64() != 7 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if m.Status() != statusBefore {
		t.Fatal("EncodeCall must not change the status")
	}

	_, err = m.EncodeCall(contracts.Kind("Vault"), poolAddress, "approve", params, nil)
	if apperror.GetCode(err) != apperror.CodeUnknownContractKind {
		t.Fatalf("unknown kind: got %v", err)
	}
}

func TestSubmit_RoutesByMode(t *testing.T) {
	call := domain.FunctionCall{
		Kind:    contracts.BPool,
		Address: poolAddress,
		Method:  "joinPool",
		Params:  []interface{}{big.NewInt(1), []*big.Int{big.NewInt(2), big.NewInt(3)}},
	}

	t.Run("injected signs directly", func(t *testing.T) {
		client := &fakeClient{chainID: 1, accounts: []common.Address{walletAccount}}
		relay := &fakeRelay{identity: domain.DelegatedIdentity{SafeAddress: safeAddress}}
		m := newManager(t, nil, relay)
		if err := m.ConnectInjected(context.Background(), &fakeProvider{clients: []*fakeClient{client}}); err != nil {
			t.Fatal(err)
		}

		batch, err := m.SendTransactions(context.Background(), call, call)
		if err != nil {
			t.Fatalf("SendTransactions: %v", err)
		}
		if len(batch) != 2 || len(client.sent) != 2 {
			t.Fatalf("batch=%d sent=%d, want 2/2", len(batch), len(client.sent))
		}
		if len(relay.relayed) != 0 {
			t.Fatal("injected mode must not use the relay")
		}
	})

	t.Run("backup relays with identity", func(t *testing.T) {
		relay := &fakeRelay{identity: domain.DelegatedIdentity{SafeAddress: safeAddress}}
		m := newManager(t, &fakeClient{chainID: 1}, relay)
		if err := m.ConnectBackup(context.Background()); err != nil {
			t.Fatal(err)
		}

		if _, err := m.SendTransactions(context.Background(), call); err != nil {
			t.Fatalf("SendTransactions: %v", err)
		}
		if len(relay.relayed) != 1 || len(relay.relayed[0]) != 1 {
			t.Fatalf("relayed = %v", relay.relayed)
		}
	})

	t.Run("relay failure surfaces", func(t *testing.T) {
		relay := &fakeRelay{
			identity: domain.DelegatedIdentity{SafeAddress: safeAddress},
			err:      apperror.New(apperror.CodeRelayFailed),
		}
		m := newManager(t, &fakeClient{chainID: 1}, relay)
		if err := m.ConnectBackup(context.Background()); err != nil {
			t.Fatal(err)
		}

		_, err := m.SendTransactions(context.Background(), call)
		if apperror.GetCode(err) != apperror.CodeRelayFailed {
			t.Fatalf("expected RELAY_FAILED, got %v", err)
		}
	})

	t.Run("backup without identity has no signer", func(t *testing.T) {
		m := newManager(t, &fakeClient{chainID: 1}, &fakeRelay{})
		if err := m.ConnectBackup(context.Background()); err != nil {
			t.Fatal(err)
		}

		_, err := m.Submit(context.Background(), domain.Batch{{To: poolAddress}})
		if apperror.GetCode(err) != apperror.CodeIdentityMissing {
			t.Fatalf("expected IDENTITY_MISSING, got %v", err)
		}
	})

	t.Run("signing failure", func(t *testing.T) {
		client := &fakeClient{chainID: 1, accounts: []common.Address{walletAccount}, sendErr: errRPC}
		m := newManager(t, nil, nil)
		if err := m.ConnectInjected(context.Background(), &fakeProvider{clients: []*fakeClient{client}}); err != nil {
			t.Fatal(err)
		}

		_, err := m.Submit(context.Background(), domain.Batch{{To: poolAddress}})
		if apperror.GetCode(err) != apperror.CodeSigningFailed {
			t.Fatalf("expected SIGNING_FAILED, got %v", err)
		}
	})
}

func TestBlockNumber_MonotonicAndResetOnConnect(t *testing.T) {
	backup := &fakeClient{chainID: 1}
	m := newManager(t, backup, nil)

	m.SetCurrentBlockNumber(100)
	m.SetCurrentBlockNumber(90)
	if n, known := m.CurrentBlockNumber(); !known || n != 100 {
		t.Fatalf("CurrentBlockNumber = (%d, %v), want (100, true)", n, known)
	}

	m.SetCurrentBlockNumber(110)
	if n, _ := m.CurrentBlockNumber(); n != 110 {
		t.Fatalf("CurrentBlockNumber = %d, want 110", n)
	}

	if err := m.ConnectBackup(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, known := m.CurrentBlockNumber(); known {
		t.Fatal("connect should reset the block height")
	}
}

func TestBlockNumber_NoConnection(t *testing.T) {
	m := newManager(t, nil, nil)
	if _, err := m.BlockNumber(context.Background()); apperror.GetCode(err) != apperror.CodeNoChainConnectivity {
		t.Fatalf("expected NO_CHAIN_CONNECTIVITY, got %v", err)
	}
}

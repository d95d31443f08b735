package app

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/pooldash/business/connectivity/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/contracts"
	"github.com/fd1az/pooldash/internal/logger"
)

const meterName = "github.com/fd1az/pooldash/business/connectivity/app"

// ManagerConfig holds connection manager settings.
type ManagerConfig struct {
	BackupURL      string
	ConnectTimeout time.Duration
}

type managerMetrics struct {
	reconnects     metric.Int64Counter
	connectFailure metric.Int64Counter
}

// ConnectionManager owns the single live chain connection.
//
// Lifecycle operations are serialized by opMu. Readers never take opMu: the
// published status is an immutable value swapped atomically, and the client
// handle has its own lock.
type ConnectionManager struct {
	cfg     ManagerConfig
	log     logger.LoggerInterface
	dial    BackupDialer
	relay   Relayer // nil when no container is configured
	metrics *managerMetrics

	opMu     sync.Mutex
	provider WalletProvider     // last injected provider, guarded by opMu
	sub      event.Subscription // provider listener, guarded by opMu
	gen      uint64             // listener generation, guarded by opMu

	status atomic.Pointer[domain.ConnectionStatus]

	clientMu sync.RWMutex
	client   ChainClient

	snapMu   sync.Mutex
	snapshot domain.ChainSnapshot

	hooksMu   sync.RWMutex
	refresher Refresher
	resetters []SessionResetter

	reconnects atomic.Int64

	identitySub event.Subscription
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

// NewConnectionManager creates a manager in the disconnected state.
// relay may be nil.
func NewConnectionManager(cfg ManagerConfig, dial BackupDialer, relay Relayer, log logger.LoggerInterface) *ConnectionManager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &ConnectionManager{
		cfg:    cfg,
		log:    log,
		dial:   dial,
		relay:  relay,
		ctx:    ctx,
		cancel: cancel,
	}

	initial := domain.Cleared(nil)
	m.status.Store(&initial)

	if err := m.initMetrics(); err != nil {
		log.Warn(ctx, "connection metrics disabled", "error", err)
	}

	if relay != nil {
		ch := make(chan domain.DelegatedIdentity, 4)
		m.identitySub = relay.SubscribeIdentity(ch)
		go m.listenIdentity(ch, m.identitySub)
	}

	return m
}

func (m *ConnectionManager) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	mm := &managerMetrics{}
	mm.reconnects, err = meter.Int64Counter(
		"chain_reconnects_total",
		metric.WithDescription("Reconnect sequences started by provider events"),
		metric.WithUnit("{reconnect}"),
	)
	if err != nil {
		return err
	}

	mm.connectFailure, err = meter.Int64Counter(
		"chain_connect_failures_total",
		metric.WithDescription("Connection attempts that ended in a cleared status"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	m.metrics = mm
	return nil
}

// SetRefresher registers the component asked to refetch after network or account changes.
func (m *ConnectionManager) SetRefresher(r Refresher) {
	m.hooksMu.Lock()
	m.refresher = r
	m.hooksMu.Unlock()
}

// AddSessionResetter registers a collaborator whose modal state is cleared on account change.
func (m *ConnectionManager) AddSessionResetter(r SessionResetter) {
	m.hooksMu.Lock()
	m.resetters = append(m.resetters, r)
	m.hooksMu.Unlock()
}

// ConnectInjected replaces the live connection with one over provider.
func (m *ConnectionManager) ConnectInjected(ctx context.Context, provider WalletProvider) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.publish(domain.Cleared(nil).WithState(domain.StateConnecting), true)
	return m.connectInjectedLocked(ctx, provider)
}

// ConnectBackup replaces the live connection with a read-only client on the backup URL.
func (m *ConnectionManager) ConnectBackup(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.publish(domain.Cleared(nil).WithState(domain.StateConnecting), true)
	return m.connectBackupLocked(ctx)
}

func (m *ConnectionManager) connectInjectedLocked(ctx context.Context, provider WalletProvider) error {
	m.teardownLocked(ctx)
	m.provider = provider

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	client, err := provider.Connect(ctx)
	if err != nil {
		return m.fail(ctx, provider.Name(), err)
	}

	ch := make(chan domain.ProviderEvent, 16)
	sub := provider.Subscribe(ch)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		sub.Unsubscribe()
		m.closeClient(ctx, client)
		return m.fail(ctx, provider.Name(), err)
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		sub.Unsubscribe()
		m.closeClient(ctx, client)
		return m.fail(ctx, provider.Name(), err)
	}

	var account common.Address
	if len(accounts) > 0 {
		account = accounts[0]
	}

	m.gen++
	m.sub = sub
	m.setClient(client)
	go m.listen(m.gen, ch, sub)

	m.publish(domain.ConnectionStatus{
		Active:   true,
		State:    domain.StateActive,
		ChainID:  chainID,
		Account:  account,
		Mode:     domain.ModeInjected,
		Endpoint: client.Endpoint(),
	}, true)

	m.log.Info(ctx, "connected through injected provider",
		"provider", provider.Name(), "chain_id", chainID, "account", account.Hex())
	return nil
}

func (m *ConnectionManager) connectBackupLocked(ctx context.Context) error {
	m.teardownLocked(ctx)
	m.provider = nil

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	client, err := m.dial(ctx, m.cfg.BackupURL)
	if err != nil {
		return m.fail(ctx, "backup", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		m.closeClient(ctx, client)
		return m.fail(ctx, "backup", err)
	}

	var account common.Address
	if m.relay != nil {
		if id, ok := m.relay.CurrentIdentity(); ok {
			account = id.SafeAddress
		}
	}

	m.setClient(client)
	m.publish(domain.ConnectionStatus{
		Active:   true,
		State:    domain.StateActive,
		ChainID:  chainID,
		Account:  account,
		Mode:     domain.ModeBackup,
		Endpoint: client.Endpoint(),
	}, true)

	m.log.Info(ctx, "connected through backup endpoint", "chain_id", chainID, "account", account.Hex())
	return nil
}

// fail publishes a fully cleared status and returns the connectivity error.
func (m *ConnectionManager) fail(ctx context.Context, source string, cause error) error {
	err := apperror.New(apperror.CodeNoChainConnectivity,
		apperror.WithCause(cause),
		apperror.WithContext(source))

	m.publish(domain.Cleared(err), true)
	if m.metrics != nil {
		m.metrics.connectFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
	m.log.Error(ctx, "chain connection failed", "source", source, "error", cause)
	return err
}

// teardownLocked drops the provider listener and closes the current handle.
func (m *ConnectionManager) teardownLocked(ctx context.Context) {
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
	// Events already queued by the old listener carry the old generation.
	m.gen++

	m.clientMu.Lock()
	old := m.client
	m.client = nil
	m.clientMu.Unlock()

	if old != nil {
		m.closeClient(ctx, old)
	}
}

func (m *ConnectionManager) closeClient(ctx context.Context, c ChainClient) {
	if err := c.Close(); err != nil {
		m.log.Debug(ctx, "closing previous chain client", "endpoint", c.Endpoint(), "error", err)
	}
}

func (m *ConnectionManager) setClient(c ChainClient) {
	m.clientMu.Lock()
	m.client = c
	m.clientMu.Unlock()
}

func (m *ConnectionManager) currentClient() (ChainClient, error) {
	m.clientMu.RLock()
	defer m.clientMu.RUnlock()
	if m.client == nil {
		return nil, apperror.New(apperror.CodeNoChainConnectivity, apperror.WithContext("no live connection"))
	}
	return m.client, nil
}

// publish swaps in st. resetSnapshot is set for connects and clears, where the
// previous block height no longer describes the live chain.
func (m *ConnectionManager) publish(st domain.ConnectionStatus, resetSnapshot bool) {
	st.UpdatedAt = time.Now()
	m.status.Store(&st)

	if resetSnapshot {
		m.ClearBlockNumber()
	}
}

// listen dispatches provider events of one listener generation.
func (m *ConnectionManager) listen(gen uint64, ch <-chan domain.ProviderEvent, sub event.Subscription) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case err, ok := <-sub.Err():
			if ok && err != nil {
				m.log.Warn(m.ctx, "provider subscription dropped", "error", err)
				m.reconnect(m.ctx, gen, "subscription dropped")
			}
			return
		case ev := <-ch:
			m.dispatch(gen, ev)
		}
	}
}

func (m *ConnectionManager) dispatch(gen uint64, ev domain.ProviderEvent) {
	ctx := m.ctx
	m.log.Debug(ctx, "provider event", "kind", string(ev.Kind), "generation", gen)

	switch ev.Kind {
	case domain.EventChainChanged, domain.EventNetworkChanged:
		m.onNetworkChanged(ctx, gen, ev.ChainID)
	case domain.EventAccountsChanged:
		m.onAccountsChanged(ctx, gen, ev.Accounts)
	case domain.EventClose:
		m.onConnectionClosed(ctx, gen, ev.Reason)
	default:
		m.log.Warn(ctx, "unknown provider event", "kind", string(ev.Kind))
	}
}

func (m *ConnectionManager) listenIdentity(ch <-chan domain.DelegatedIdentity, sub event.Subscription) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-sub.Err():
			return
		case id := <-ch:
			m.OnIdentityChanged(id)
		}
	}
}

// OnNetworkChanged reconnects through the active mode and forces a refetch.
func (m *ConnectionManager) OnNetworkChanged(ctx context.Context, chainID uint64) {
	m.onNetworkChanged(ctx, 0, chainID)
}

func (m *ConnectionManager) onNetworkChanged(ctx context.Context, gen, chainID uint64) {
	m.log.Info(ctx, "network changed", "chain_id", chainID)
	if m.reconnect(ctx, gen, "network changed") {
		m.refresh(ctx, true)
	}
}

// OnConnectionClosed reconnects through the active mode.
func (m *ConnectionManager) OnConnectionClosed(ctx context.Context, reason string) {
	m.onConnectionClosed(ctx, 0, reason)
}

func (m *ConnectionManager) onConnectionClosed(ctx context.Context, gen uint64, reason string) {
	m.log.Warn(ctx, "provider connection closed", "reason", reason)
	m.reconnect(ctx, gen, "connection closed")
}

// OnAccountsChanged resets modal state, then either adopts the first account and
// forces a refetch or, for an empty list, clears the account and reconnects.
func (m *ConnectionManager) OnAccountsChanged(ctx context.Context, accounts []common.Address) {
	m.onAccountsChanged(ctx, 0, accounts)
}

func (m *ConnectionManager) onAccountsChanged(ctx context.Context, gen uint64, accounts []common.Address) {
	m.hooksMu.RLock()
	resetters := append([]SessionResetter(nil), m.resetters...)
	m.hooksMu.RUnlock()
	for _, r := range resetters {
		r.CloseModal()
	}

	if len(accounts) == 0 {
		m.opMu.Lock()
		if m.staleLocked(gen) {
			m.opMu.Unlock()
			return
		}
		st := m.Status()
		if st.Active {
			m.publish(st.WithAccount(common.Address{}), false)
		}
		m.opMu.Unlock()

		m.reconnect(ctx, gen, "accounts cleared")
		return
	}

	m.opMu.Lock()
	if m.staleLocked(gen) {
		m.opMu.Unlock()
		return
	}
	st := m.Status()
	adopted := st.Active && st.Mode == domain.ModeInjected
	if adopted {
		m.publish(st.WithAccount(accounts[0]), false)
	}
	m.opMu.Unlock()

	if !adopted {
		m.log.Debug(ctx, "ignoring wallet accounts outside injected mode", "mode", string(st.Mode))
		return
	}
	m.log.Info(ctx, "account changed", "account", accounts[0].Hex())
	m.refresh(ctx, true)
}

// OnIdentityChanged adopts the container's safe address as the account while
// connected in backup mode. In injected mode the wallet account governs.
func (m *ConnectionManager) OnIdentityChanged(id domain.DelegatedIdentity) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	st := m.Status()
	if !st.Active || st.Mode != domain.ModeBackup || st.Account == id.SafeAddress {
		return
	}
	m.publish(st.WithAccount(id.SafeAddress), false)
	m.log.Info(m.ctx, "adopted delegated identity", "safe", id.SafeAddress.Hex(), "network", id.Network)
}

// staleLocked reports whether gen belongs to a torn-down listener. Zero means
// the call did not come from a listener.
func (m *ConnectionManager) staleLocked(gen uint64) bool {
	return gen != 0 && gen != m.gen
}

// reconnect re-runs the connect sequence of the previously active mode. It
// reports whether a reconnect was attempted.
func (m *ConnectionManager) reconnect(ctx context.Context, gen uint64, reason string) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.staleLocked(gen) {
		m.log.Debug(ctx, "dropping event from stale listener", "reason", reason)
		return false
	}

	st := m.Status()
	if !st.Active || st.State == domain.StateReconnecting {
		return false
	}

	m.publish(st.WithState(domain.StateReconnecting), false)
	m.reconnects.Add(1)
	if m.metrics != nil {
		m.metrics.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}

	var err error
	if st.Mode == domain.ModeInjected && m.provider != nil {
		err = m.connectInjectedLocked(ctx, m.provider)
	} else {
		err = m.connectBackupLocked(ctx)
	}
	if err != nil {
		m.log.Warn(ctx, "reconnect failed", "reason", reason, "error", err)
	}
	return true
}

func (m *ConnectionManager) refresh(ctx context.Context, force bool) {
	m.hooksMu.RLock()
	r := m.refresher
	m.hooksMu.RUnlock()
	if r != nil {
		r.Refresh(ctx, force)
	}
}

// EncodeCall builds the transaction for one contract call. It needs both a
// signer account and a resolved chain and never changes the status.
func (m *ConnectionManager) EncodeCall(kind contracts.Kind, address common.Address, method string, params []interface{}, overrides *domain.Overrides) (domain.Transaction, error) {
	st := m.Status()
	if !st.HasAccount() {
		return domain.Transaction{}, apperror.New(apperror.CodeIdentityMissing)
	}
	if !st.HasChain() {
		return domain.Transaction{}, apperror.New(apperror.CodeChainMissing)
	}

	data, err := contracts.Encode(kind, method, params...)
	if err != nil {
		return domain.Transaction{}, err
	}

	value := new(big.Int)
	if overrides != nil && overrides.Value != nil {
		value.Set(overrides.Value)
	}

	return domain.Transaction{
		To:    address,
		Data:  data,
		Value: (*hexutil.Big)(value),
	}, nil
}

// EncodeCalls encodes calls in order into one batch.
func (m *ConnectionManager) EncodeCalls(calls ...domain.FunctionCall) (domain.Batch, error) {
	batch := make(domain.Batch, 0, len(calls))
	for _, c := range calls {
		tx, err := m.EncodeCall(c.Kind, c.Address, c.Method, c.Params, c.Overrides)
		if err != nil {
			return nil, err
		}
		batch = append(batch, tx)
	}
	return batch, nil
}

// SendTransactions encodes calls and submits them as one batch.
func (m *ConnectionManager) SendTransactions(ctx context.Context, calls ...domain.FunctionCall) (domain.Batch, error) {
	batch, err := m.EncodeCalls(calls...)
	if err != nil {
		return nil, err
	}
	return m.Submit(ctx, batch)
}

// Submit routes batch to direct signing in injected mode or to the relay in
// backup mode with a delegated identity. It returns the batch as submitted.
func (m *ConnectionManager) Submit(ctx context.Context, batch domain.Batch) (domain.Batch, error) {
	if len(batch) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "empty batch")
	}

	st := m.Status()
	switch {
	case st.Active && st.Mode == domain.ModeInjected && st.HasAccount():
		client, err := m.currentClient()
		if err != nil {
			return nil, err
		}
		for i, tx := range batch {
			hash, err := client.SendTransaction(ctx, st.Account, tx)
			if err != nil {
				return nil, apperror.New(apperror.CodeSigningFailed,
					apperror.WithCause(err),
					apperror.WithContext(tx.To.Hex()))
			}
			m.log.Info(ctx, "transaction sent", "index", i, "to", tx.To.Hex(), "hash", hash.Hex())
		}
		return batch, nil

	case st.Active && st.Mode == domain.ModeBackup && m.relay != nil && m.relay.HasIdentity():
		if err := m.relay.Relay(ctx, batch); err != nil {
			return nil, err
		}
		return batch, nil
	}

	return nil, apperror.New(apperror.CodeIdentityMissing, apperror.WithContext("no signer for "+string(st.Mode)+" mode"))
}

// Status returns the current connection status.
func (m *ConnectionManager) Status() domain.ConnectionStatus {
	return *m.status.Load()
}

// Snapshot returns the last observed block height.
func (m *ConnectionManager) Snapshot() domain.ChainSnapshot {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	return m.snapshot
}

// CurrentBlockNumber returns the last observed block height, if known.
func (m *ConnectionManager) CurrentBlockNumber() (uint64, bool) {
	s := m.Snapshot()
	return s.CurrentBlock, s.Known
}

// SetCurrentBlockNumber records n. The height never moves backwards while connected.
func (m *ConnectionManager) SetCurrentBlockNumber(n uint64) {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	if m.snapshot.Known && n < m.snapshot.CurrentBlock {
		return
	}
	m.snapshot = domain.ChainSnapshot{CurrentBlock: n, Known: true}
}

// ClearBlockNumber marks the block height unknown.
func (m *ConnectionManager) ClearBlockNumber() {
	m.snapMu.Lock()
	m.snapshot = domain.ChainSnapshot{}
	m.snapMu.Unlock()
}

// BlockNumber queries the live connection for its head.
func (m *ConnectionManager) BlockNumber(ctx context.Context) (uint64, error) {
	client, err := m.currentClient()
	if err != nil {
		return 0, err
	}
	return client.BlockNumber(ctx)
}

// CallContract performs a read-only call on the live connection.
func (m *ConnectionManager) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	client, err := m.currentClient()
	if err != nil {
		return nil, err
	}
	return client.CallContract(ctx, to, data)
}

// Reconnects returns how many reconnect sequences have started.
func (m *ConnectionManager) Reconnects() int64 {
	return m.reconnects.Load()
}

// Close tears down the connection and publishes a cleared status.
func (m *ConnectionManager) Close() {
	m.closeOnce.Do(func() {
		m.opMu.Lock()
		defer m.opMu.Unlock()

		if m.identitySub != nil {
			m.identitySub.Unsubscribe()
		}
		m.teardownLocked(m.ctx)
		m.provider = nil
		m.cancel()
		m.publish(domain.Cleared(nil), true)
	})
}

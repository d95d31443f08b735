package http

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	connDomain "github.com/fd1az/pooldash/business/connectivity/domain"
	poolsDomain "github.com/fd1az/pooldash/business/pools/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/contracts"
	"github.com/fd1az/pooldash/internal/logger"
)

const maxBodyBytes = 1 << 20

// Handlers serves the dashboard API.
type Handlers struct {
	conn     Connection
	identity Identity
	pools    PoolState
	session  Session
	sync     Syncer
	chains   Chains
	log      logger.LoggerInterface
}

// NewHandlers creates Handlers.
func NewHandlers(conn Connection, identity Identity, pools PoolState, session Session, sync Syncer, chains Chains, log logger.LoggerInterface) *Handlers {
	return &Handlers{
		conn:     conn,
		identity: identity,
		pools:    pools,
		session:  session,
		sync:     sync,
		chains:   chains,
		log:      log,
	}
}

// GetStatus reports the connection status, block height and identity.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.conn.Status()

	resp := statusResponse{
		Active:     st.Active,
		State:      string(st.State),
		Mode:       string(st.Mode),
		ChainID:    st.ChainID,
		Endpoint:   st.Endpoint,
		Reconnects: h.conn.Reconnects(),
		UpdatedAt:  st.UpdatedAt,
	}
	if st.HasChain() {
		resp.ChainName = h.chains.Name(st.ChainID)
		resp.Supported = h.chains.IsSupported(st.ChainID)
	}
	if st.HasAccount() {
		account := st.Account
		resp.Account = &account
	}
	if st.LastError != nil {
		resp.LastError = st.LastError.Error()
	}
	if snap := h.conn.Snapshot(); snap.Known {
		block := snap.CurrentBlock
		resp.CurrentBlock = &block
	}
	if id, ok := h.identity.CurrentIdentity(); ok {
		resp.Identity = &identityResponse{SafeAddress: id.SafeAddress, Network: id.Network}
	}
	if active, ok := h.pools.ActivePool(); ok {
		resp.ActivePool = &active
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListPools returns the public pools.
func (h *Handlers) ListPools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, poolsResponse{
		Pools:     nonNil(h.pools.Pools()),
		UpdatedAt: h.pools.UpdatedAt(),
	})
}

// ListPrivatePools returns the private pools.
func (h *Handlers) ListPrivatePools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, poolsResponse{
		Pools:     nonNil(h.pools.PrivatePools()),
		UpdatedAt: h.pools.UpdatedAt(),
	})
}

// ListContributedPools returns the pools the current account holds shares in
// with its share balance and the pool's total supply.
func (h *Handlers) ListContributedPools(w http.ResponseWriter, r *http.Request) {
	pools, account := h.pools.ContributedPools()

	out := contributedResponse{Account: account, Pools: make([]contributedPool, 0, len(pools))}
	for _, p := range pools {
		out.Pools = append(out.Pools, contributedPool{
			Pool:        p,
			TotalSupply: amountPtr(h.pools.TotalSupply(p.Address)),
			Balance:     amountPtr(h.pools.Balance(poolsDomain.BalanceKey{Token: p.Address, Account: account})),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPool returns one pool with the account's balances and allowances.
func (h *Handlers) GetPool(w http.ResponseWriter, r *http.Request) {
	address, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, ok := h.pools.Pool(address)
	if !ok {
		h.writeError(w, r, apperror.NotFound(apperror.CodePoolNotFound, address.Hex()))
		return
	}

	active, _ := h.pools.ActivePool()
	resp := poolDetailResponse{
		Pool:        p,
		Active:      active == address,
		TotalSupply: amountPtr(h.pools.TotalSupply(address)),
	}

	if st := h.conn.Status(); st.HasAccount() {
		account := st.Account
		resp.Shares = amountPtr(h.pools.Balance(poolsDomain.BalanceKey{Token: address, Account: account}))
		resp.Tokens = make(map[common.Address]tokenAccountState, len(p.Tokens))
		for _, t := range p.Tokens {
			resp.Tokens[t.Address] = tokenAccountState{
				Balance: amountPtr(h.pools.Balance(poolsDomain.BalanceKey{Token: t.Address, Account: account})),
				Allowance: amountPtr(h.pools.Allowance(poolsDomain.AllowanceKey{
					Token: t.Address, Owner: account, Spender: address,
				})),
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetActivePool selects the pool the user is viewing. An empty address clears it.
func (h *Handlers) SetActivePool(w http.ResponseWriter, r *http.Request) {
	var req activePoolRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Address == "" {
		h.session.ClearActivePool()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	address, err := parseAddress(req.Address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.session.SetActivePool(r.Context(), address); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EncodeTransactions encodes contract calls without submitting them.
func (h *Handlers) EncodeTransactions(w http.ResponseWriter, r *http.Request) {
	calls, err := h.readCalls(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	batch, err := h.conn.EncodeCalls(calls...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: batch})
}

// SendTransactions encodes and submits contract calls as one batch.
func (h *Handlers) SendTransactions(w http.ResponseWriter, r *http.Request) {
	calls, err := h.readCalls(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	batch, err := h.conn.SendTransactions(r.Context(), calls...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, transactionsResponse{Transactions: batch})
}

// Sync runs a sync tick. ?force=true bypasses the block gate.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, apperror.Validation(apperror.CodeInvalidInput, "force must be a boolean"))
			return
		}
		force = v
	}

	res := h.sync.Tick(r.Context(), force)
	resp := syncResponse{Fetched: res.Fetched, Block: res.Block, Skipped: res.Skipped}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) readCalls(w http.ResponseWriter, r *http.Request) ([]connDomain.FunctionCall, error) {
	var req callsRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	if len(req.Calls) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "calls must not be empty")
	}

	calls := make([]connDomain.FunctionCall, 0, len(req.Calls))
	for _, c := range req.Calls {
		fc, err := toFunctionCall(c)
		if err != nil {
			return nil, err
		}
		calls = append(calls, fc)
	}
	return calls, nil
}

func toFunctionCall(c callRequest) (connDomain.FunctionCall, error) {
	kind, err := contracts.ParseKind(c.Contract)
	if err != nil {
		return connDomain.FunctionCall{}, err
	}
	address, err := parseAddress(c.Address)
	if err != nil {
		return connDomain.FunctionCall{}, err
	}
	params, err := contracts.ConvertArgs(kind, c.Method, c.Params)
	if err != nil {
		return connDomain.FunctionCall{}, err
	}

	fc := connDomain.FunctionCall{
		Kind:    kind,
		Address: address,
		Method:  c.Method,
		Params:  params,
	}
	if c.Value != "" {
		v, ok := new(big.Int).SetString(c.Value, 0)
		if !ok || v.Sign() < 0 {
			return connDomain.FunctionCall{}, apperror.Validation(apperror.CodeInvalidInput, "invalid value "+c.Value)
		}
		fc.Overrides = &connDomain.Overrides{Value: v}
	}
	return fc, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, apperror.Validation(apperror.CodeInvalidInput, "invalid address "+s)
	}
	return common.HexToAddress(s), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("invalid request body"),
			apperror.WithStatusCode(http.StatusBadRequest))
	}
	return nil
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.Wrap(err, apperror.CodeInternalError, r.URL.Path).WithSpan(r.Context())

	fields := append([]any{"path", r.URL.Path}, appErr.LogFields()...)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", fields...)
	} else {
		h.log.Debug(r.Context(), "request rejected", fields...)
	}

	writeJSON(w, appErr.StatusCode, appErr.ToResponse())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(pools []poolsDomain.Pool) []poolsDomain.Pool {
	if pools == nil {
		return []poolsDomain.Pool{}
	}
	return pools
}

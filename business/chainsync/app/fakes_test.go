package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	connDomain "github.com/fd1az/pooldash/business/connectivity/domain"
)

var errFake = errors.New("fake failure")

type fakeConn struct {
	mu       sync.Mutex
	status   connDomain.ConnectionStatus
	block    uint64
	blockErr error
	snap     connDomain.ChainSnapshot
	queries  int
}

func (f *fakeConn) Status() connDomain.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeConn) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.block, f.blockErr
}

func (f *fakeConn) CurrentBlockNumber() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.CurrentBlock, f.snap.Known
}

func (f *fakeConn) SetCurrentBlockNumber(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = connDomain.ChainSnapshot{CurrentBlock: n, Known: true}
}

func (f *fakeConn) ClearBlockNumber() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = connDomain.ChainSnapshot{}
}

func (f *fakeConn) setBlock(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = n
}

// recorder logs calls in order with their completion time.
type recorder struct {
	mu    sync.Mutex
	calls []string
	at    map[string]time.Time
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if r.at == nil {
		r.at = make(map[string]time.Time)
	}
	r.at[name] = time.Now()
}

func (r *recorder) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) time(name string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.at[name]
}

type fakePools struct {
	rec         *recorder
	fail        map[string]bool
	contributed []common.Address
	active      common.Address
	activeToks  []common.Address
	tracked     []common.Address
	delay       time.Duration

	mu                 sync.Mutex
	contributedAccount common.Address
}

func (f *fakePools) step(name string) error {
	if f.delay > 0 && name == "FetchContributedPools" {
		time.Sleep(f.delay)
	}
	f.rec.add(name)
	if f.fail[name] {
		return errFake
	}
	return nil
}

func (f *fakePools) FetchPools(context.Context) error        { return f.step("FetchPools") }
func (f *fakePools) FetchPrivatePools(context.Context) error { return f.step("FetchPrivatePools") }
func (f *fakePools) FetchActivePool(context.Context) error   { return f.step("FetchActivePool") }

func (f *fakePools) FetchContributedPools(_ context.Context, account common.Address) error {
	f.mu.Lock()
	f.contributedAccount = account
	f.mu.Unlock()
	return f.step("FetchContributedPools")
}

func (f *fakePools) ContributedPoolAddresses() []common.Address { return f.contributed }
func (f *fakePools) HasActivePool() bool                        { return f.active != (common.Address{}) }
func (f *fakePools) TrackedTokenAddresses() []common.Address    { return f.tracked }

func (f *fakePools) ActivePoolTokens(context.Context) (common.Address, []common.Address, error) {
	return f.active, f.activeToks, nil
}

type approval struct {
	tokens         []common.Address
	owner, spender common.Address
}

type fakeTokens struct {
	rec *recorder

	mu        sync.Mutex
	supplies  [][]common.Address
	balances  map[string][]common.Address
	approvals []approval
}

func (f *fakeTokens) FetchTotalSupplies(_ context.Context, tokens []common.Address) error {
	f.mu.Lock()
	f.supplies = append(f.supplies, tokens)
	f.mu.Unlock()
	f.rec.add("FetchTotalSupplies")
	return nil
}

func (f *fakeTokens) FetchTokenBalances(_ context.Context, account common.Address, tokens []common.Address) error {
	f.mu.Lock()
	if f.balances == nil {
		f.balances = make(map[string][]common.Address)
	}
	key := "FetchTokenBalances:" + account.Hex()
	if len(tokens) > 0 && tokens[0] == poolShare {
		key = "FetchPoolBalances"
	}
	f.balances[key] = tokens
	f.mu.Unlock()
	f.rec.add(key)
	return nil
}

func (f *fakeTokens) FetchAccountApprovals(_ context.Context, tokens []common.Address, owner, spender common.Address) error {
	f.mu.Lock()
	f.approvals = append(f.approvals, approval{tokens: tokens, owner: owner, spender: spender})
	f.mu.Unlock()
	f.rec.add("FetchAccountApprovals")
	return nil
}

var (
	account    = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	activePool = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	poolShare  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	tokenX     = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

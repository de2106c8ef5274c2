package rollout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/chain"
	"github.com/minertopia/rollout/internal/domain"
)

type memStore struct {
	rec    domain.Record
	exists bool
	writes int
}

func newMemStore(rec domain.Record) *memStore {
	if rec == nil {
		return &memStore{}
	}
	return &memStore{rec: maps.Clone(rec), exists: true}
}

func (s *memStore) Read() (domain.Record, error) {
	if !s.exists {
		return nil, domain.ErrNotFound
	}
	return maps.Clone(s.rec), nil
}

func (s *memStore) ReadOrEmpty() (domain.Record, error) {
	if !s.exists {
		return domain.Record{}, nil
	}
	return maps.Clone(s.rec), nil
}

func (s *memStore) Write(rec domain.Record) error {
	s.rec = maps.Clone(rec)
	s.exists = true
	s.writes++
	return nil
}

type memJournal struct {
	entries map[string]common.Hash
}

func newMemJournal() *memJournal {
	return &memJournal{entries: make(map[string]common.Hash)}
}

func (j *memJournal) Done(id string) (common.Hash, bool) {
	h, ok := j.entries[id]
	return h, ok
}

func (j *memJournal) Mark(id string, tx common.Hash) error {
	j.entries[id] = tx
	return nil
}

type chainCall struct {
	op     string
	kind   domain.Kind
	addr   common.Address
	method string
	value  *big.Int
	args   []any
}

// fakeChain hands out sequential addresses and records every call it receives.
type fakeChain struct {
	mu sync.Mutex

	nextAddr uint64
	nextTx   uint64
	calls    []chainCall

	// impl tracks which kind currently backs each proxy.
	impl map[common.Address]domain.Kind

	deployErr map[domain.Kind]error
	sendErr   map[string]error
	// getters answers read-only calls by method name.
	getters map[string][]any
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		impl:      make(map[common.Address]domain.Kind),
		deployErr: make(map[domain.Kind]error),
		sendErr:   make(map[string]error),
		getters:   make(map[string][]any),
	}
}

func (c *fakeChain) addr() common.Address {
	c.nextAddr++
	return common.BigToAddress(new(big.Int).SetUint64(0xA000 + c.nextAddr))
}

func (c *fakeChain) DeployProxy(_ context.Context, kind domain.Kind, args []any) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chainCall{op: "deployProxy", kind: kind, args: args})
	if err := c.deployErr[kind]; err != nil {
		return common.Address{}, err
	}

	a := c.addr()
	c.impl[a] = kind
	return a, nil
}

func (c *fakeChain) DeployPlain(_ context.Context, kind domain.Kind, args []any) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chainCall{op: "deployPlain", kind: kind, args: args})
	if err := c.deployErr[kind]; err != nil {
		return common.Address{}, err
	}

	a := c.addr()
	c.impl[a] = kind
	return a, nil
}

func (c *fakeChain) Attach(kind domain.Kind, addr common.Address) (chain.Handle, error) {
	return chain.Handle{Kind: kind, Address: addr}, nil
}

func (c *fakeChain) Send(_ context.Context, h chain.Handle, method string, value *big.Int, args []any) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chainCall{op: "send", kind: h.Kind, addr: h.Address, method: method, value: value, args: args})
	if err := c.sendErr[method]; err != nil {
		return common.Hash{}, err
	}

	c.nextTx++
	return common.BigToHash(new(big.Int).SetUint64(c.nextTx)), nil
}

func (c *fakeChain) Call(_ context.Context, h chain.Handle, method string, _ []any) ([]any, error) {
	out, ok := c.getters[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", chain.ErrUnknownMethod, h.Kind, method)
	}
	return out, nil
}

func (c *fakeChain) UpgradeProxy(_ context.Context, proxy common.Address, kind domain.Kind) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chainCall{op: "upgrade", kind: kind, addr: proxy})
	if _, ok := c.impl[proxy]; !ok {
		return common.Address{}, fmt.Errorf("%w: no proxy at %s", domain.ErrTransactionFailure, proxy.Hex())
	}
	c.impl[proxy] = kind
	return proxy, nil
}

func (c *fakeChain) ops(op string) []chainCall {
	var out []chainCall
	for _, call := range c.calls {
		if call.op == op {
			out = append(out, call)
		}
	}
	return out
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func newTestEnv(st RecordStore, ch ChainClient) (*Env, *memJournal, *countingPacer) {
	journal := newMemJournal()
	pacer := &countingPacer{}
	return &Env{
		Store:   st,
		Journal: journal,
		Chain:   ch,
		Pacer:   pacer,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, journal, pacer
}

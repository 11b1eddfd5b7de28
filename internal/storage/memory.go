package storage

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"sort"
	"sync"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// Memory is an in-process store. Each write transaction works on a copy of
// the state that replaces the original only on success.
type Memory struct {
	ops
	mu    sync.RWMutex
	state *memState
}

var _ game.Store = (*Memory)(nil)

var errReadOnly = errors.New("storage: write in read-only transaction")

type memAccount struct {
	namespace string
	data      []byte
}

type memEvent struct {
	seq     uint64
	payload []byte
}

type memState struct {
	accounts map[address.Address]memAccount
	mints    map[address.Address]Mint
	tokens   map[address.Address]TokenAccount
	events   []memEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		state: &memState{
			accounts: make(map[address.Address]memAccount),
			mints:    make(map[address.Address]Mint),
			tokens:   make(map[address.Address]TokenAccount),
		},
	}
	m.ops = ops{r: m}
	return m
}

func (m *Memory) run(ctx context.Context, write bool, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !write {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return fn(&Tx{r: &memRows{base: m.state, st: m.state, readOnly: true}})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := &memState{
		accounts: maps.Clone(m.state.accounts),
		mints:    maps.Clone(m.state.mints),
		tokens:   maps.Clone(m.state.tokens),
		events:   m.state.events,
	}
	r := &memRows{base: m.state, st: work}
	if err := fn(&Tx{r: r}); err != nil {
		return err
	}
	work.events = append(m.state.events[:len(m.state.events):len(m.state.events)], r.pending...)
	m.state = work
	return nil
}

// memRows implements rows over a working copy. Records are immutable once
// stored so the clone can share byte slices with the original.
type memRows struct {
	base     *memState
	st       *memState
	pending  []memEvent
	readOnly bool
}

func (r *memRows) loadAccount(_ context.Context, addr address.Address) ([]byte, bool, error) {
	a, ok := r.st.accounts[addr]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(a.data), true, nil
}

func (r *memRows) insertAccount(_ context.Context, addr address.Address, namespace string, data []byte) (bool, error) {
	if r.readOnly {
		return false, errReadOnly
	}
	if _, ok := r.st.accounts[addr]; ok {
		return false, nil
	}
	r.st.accounts[addr] = memAccount{namespace: namespace, data: bytes.Clone(data)}
	return true, nil
}

func (r *memRows) updateAccount(_ context.Context, addr address.Address, data []byte) (bool, error) {
	if r.readOnly {
		return false, errReadOnly
	}
	a, ok := r.st.accounts[addr]
	if !ok {
		return false, nil
	}
	a.data = bytes.Clone(data)
	r.st.accounts[addr] = a
	return true, nil
}

func (r *memRows) scanAccounts(_ context.Context, namespace string, fn func(address.Address, []byte) error) error {
	var keys []address.Address
	for addr, a := range r.st.accounts {
		if a.namespace == namespace {
			keys = append(keys, addr)
		}
	}
	sortAddresses(keys)
	for _, addr := range keys {
		if err := fn(addr, bytes.Clone(r.st.accounts[addr].data)); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRows) loadMint(_ context.Context, addr address.Address) (Mint, bool, error) {
	m, ok := r.st.mints[addr]
	return m, ok, nil
}

func (r *memRows) insertMint(_ context.Context, m Mint) (bool, error) {
	if r.readOnly {
		return false, errReadOnly
	}
	if _, ok := r.st.mints[m.Address]; ok {
		return false, nil
	}
	if m.Supply > MaxAmount {
		return false, game.ErrOverflow
	}
	r.st.mints[m.Address] = m
	return true, nil
}

func (r *memRows) updateMint(_ context.Context, m Mint) error {
	if r.readOnly {
		return errReadOnly
	}
	if m.Supply > MaxAmount {
		return game.ErrOverflow
	}
	r.st.mints[m.Address] = m
	return nil
}

func (r *memRows) loadToken(_ context.Context, addr address.Address) (TokenAccount, bool, error) {
	ta, ok := r.st.tokens[addr]
	return ta, ok, nil
}

func (r *memRows) insertToken(_ context.Context, ta TokenAccount) (bool, error) {
	if r.readOnly {
		return false, errReadOnly
	}
	if _, ok := r.st.tokens[ta.Address]; ok {
		return false, nil
	}
	if ta.Amount > MaxAmount {
		return false, game.ErrOverflow
	}
	r.st.tokens[ta.Address] = ta
	return true, nil
}

func (r *memRows) updateToken(_ context.Context, ta TokenAccount) error {
	if r.readOnly {
		return errReadOnly
	}
	if ta.Amount > MaxAmount {
		return game.ErrOverflow
	}
	r.st.tokens[ta.Address] = ta
	return nil
}

func (r *memRows) listTokens(_ context.Context, fn func(TokenAccount) error) error {
	keys := make([]address.Address, 0, len(r.st.tokens))
	for addr := range r.st.tokens {
		keys = append(keys, addr)
	}
	sortAddresses(keys)
	for _, addr := range keys {
		if err := fn(r.st.tokens[addr]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRows) appendEvent(_ context.Context, _ uint64, _ string, payload []byte) (uint64, error) {
	if r.readOnly {
		return 0, errReadOnly
	}
	seq := uint64(len(r.base.events)+len(r.pending)) + 1
	r.pending = append(r.pending, memEvent{seq: seq, payload: bytes.Clone(payload)})
	return seq, nil
}

func (r *memRows) listEvents(_ context.Context, after uint64, limit int, fn func(uint64, []byte) error) error {
	all := append(r.st.events[:len(r.st.events):len(r.st.events)], r.pending...)
	i := sort.Search(len(all), func(i int) bool { return all[i].seq > after })
	n := 0
	for ; i < len(all); i++ {
		if limit > 0 && n >= limit {
			break
		}
		if err := fn(all[i].seq, all[i].payload); err != nil {
			return err
		}
		n++
	}
	return nil
}

func sortAddresses(list []address.Address) {
	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i][:], list[j][:]) < 0
	})
}

// Package game implements the economy and combat state machine of the grid
// wargame: stack lifecycle, adjacency-checked combat, time-scaled bounties
// and the admin controls over the shared vault.
//
// Every instruction runs inside a single Store transaction. A failed
// instruction leaves no trace: no record writes, no token movement and no
// events.
package game

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/HouseOfHufflepuff/kill/internal/address"
)

// Engine executes instructions against a Store one at a time.
type Engine struct {
	store  Store
	clock  Clock
	logger *log.Logger

	mu     sync.Mutex // serializes instructions
	subsMu sync.RWMutex
	subs   []func(Event)
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(store Store, clock Clock, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Subscribe registers fn to receive every event after its instruction commits.
func (e *Engine) Subscribe(fn func(Event)) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.subs = append(e.subs, fn)
}

// Now returns the current slot.
func (e *Engine) Now() uint64 {
	return e.clock.Now()
}

// instruction carries the state of one executing instruction.
type instruction struct {
	ctx    context.Context
	tx     Tx
	slot   uint64
	events []Event
}

// exec runs fn in a write transaction and publishes its events on commit.
func (e *Engine) exec(ctx context.Context, op string, signer address.Address, fn func(in *instruction) error) error {
	e.mu.Lock()
	slot := e.clock.Now()
	var events []Event
	err := e.store.Update(ctx, func(tx Tx) error {
		in := &instruction{ctx: ctx, tx: tx, slot: slot}
		if err := fn(in); err != nil {
			return err
		}
		events = in.events
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		e.logger.Debug("instruction rejected", "op", op, "signer", signer.Short(), "slot", slot, "code", CodeOf(err), "err", err)
		return err
	}
	e.logger.Debug("instruction committed", "op", op, "signer", signer.Short(), "slot", slot, "events", len(events))

	e.subsMu.RLock()
	subs := e.subs
	e.subsMu.RUnlock()
	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
	return nil
}

// view runs fn in a read-only transaction.
func (e *Engine) view(ctx context.Context, fn func(in *instruction) error) error {
	slot := e.clock.Now()
	return e.store.View(ctx, func(tx Tx) error {
		return fn(&instruction{ctx: ctx, tx: tx, slot: slot})
	})
}

func (in *instruction) config() (*EconomyConfig, error) {
	data, err := in.tx.Load(in.ctx, address.Config())
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	var cfg EconomyConfig
	if err := cfg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// activeConfig loads the config and rejects gameplay while paused.
func (in *instruction) activeConfig() (*EconomyConfig, error) {
	cfg, err := in.config()
	if err != nil {
		return nil, err
	}
	if cfg.Paused {
		return nil, ErrPaused
	}
	return cfg, nil
}

// adminConfig loads the config and checks that signer is its admin.
func (in *instruction) adminConfig(signer address.Address) (*EconomyConfig, error) {
	cfg, err := in.config()
	if err != nil {
		return nil, err
	}
	if cfg.Admin != signer {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

func (in *instruction) saveConfig(cfg *EconomyConfig) error {
	data, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}
	return in.tx.Save(in.ctx, address.Config(), data)
}

// stack loads the record at (owner, cell). A missing record comes back empty
// with exists == false.
func (in *instruction) stack(owner address.Address, cell uint16) (s *AgentStack, exists bool, err error) {
	data, err := in.tx.Load(in.ctx, address.Stack(owner, cell))
	if errors.Is(err, ErrAccountNotFound) {
		return &AgentStack{Owner: owner, CellID: cell}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s = &AgentStack{}
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// putStack writes a stack at its key. New records go through the directory's
// create-once path.
func (in *instruction) putStack(owner address.Address, cell uint16, s *AgentStack, exists bool) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	addr := address.Stack(owner, cell)
	if exists {
		return in.tx.Save(in.ctx, addr, data)
	}
	return in.tx.Create(in.ctx, addr, address.NamespaceStack, data)
}

func (in *instruction) emit(ev Event) error {
	ev.Slot = in.slot
	if err := in.tx.Record(in.ctx, &ev); err != nil {
		return err
	}
	in.events = append(in.events, ev)
	return nil
}

package game

import (
	"bytes"
	"context"
	"sort"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
)

// Config returns the economy config.
func (e *Engine) Config(ctx context.Context) (*EconomyConfig, error) {
	var cfg *EconomyConfig
	err := e.view(ctx, func(in *instruction) error {
		var err error
		cfg, err = in.config()
		return err
	})
	return cfg, err
}

// Stack returns the stack at (owner, cell). A cell the owner never occupied
// comes back as an empty stack.
func (e *Engine) Stack(ctx context.Context, owner address.Address, cell uint16) (*AgentStack, error) {
	if !core.ValidCell(cell) {
		return nil, ErrInvalidCell
	}
	var s *AgentStack
	err := e.view(ctx, func(in *instruction) error {
		var err error
		s, _, err = in.stack(owner, cell)
		return err
	})
	return s, err
}

// Stacks returns every occupied stack ordered by cell, then owner.
func (e *Engine) Stacks(ctx context.Context) ([]AgentStack, error) {
	var out []AgentStack
	err := e.view(ctx, func(in *instruction) error {
		var err error
		out, err = in.occupied()
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CellID != out[j].CellID {
			return out[i].CellID < out[j].CellID
		}
		return bytes.Compare(out[i].Owner[:], out[j].Owner[:]) < 0
	})
	return out, nil
}

// PendingBounty returns the bounty for the stack at (owner, cell) at the
// current slot.
func (e *Engine) PendingBounty(ctx context.Context, owner address.Address, cell uint16) (uint64, error) {
	s, err := e.Stack(ctx, owner, cell)
	if err != nil {
		return 0, err
	}
	return PendingBounty(s, e.clock.Now()), nil
}

// RipeStack is an occupied stack with its current bounty.
type RipeStack struct {
	AgentStack
	Bounty uint64 `json:"bounty"`
}

// RipeStacks returns up to limit occupied stacks, richest bounty first.
// A limit of zero or less returns all of them.
func (e *Engine) RipeStacks(ctx context.Context, limit int) ([]RipeStack, error) {
	var out []RipeStack
	err := e.view(ctx, func(in *instruction) error {
		stacks, err := in.occupied()
		if err != nil {
			return err
		}
		out = ripen(stacks, in.slot)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Targets returns the enemy stacks adjacent to cell that owner could attack,
// richest bounty first.
func (e *Engine) Targets(ctx context.Context, owner address.Address, cell uint16) ([]RipeStack, error) {
	if !core.ValidCell(cell) {
		return nil, ErrInvalidCell
	}
	near := make(map[uint16]bool)
	for _, n := range core.Neighbors(cell) {
		near[n] = true
	}

	var out []RipeStack
	err := e.view(ctx, func(in *instruction) error {
		stacks, err := in.occupied()
		if err != nil {
			return err
		}
		var enemies []AgentStack
		for _, s := range stacks {
			if near[s.CellID] && s.Owner != owner {
				enemies = append(enemies, s)
			}
		}
		out = ripen(enemies, in.slot)
		return nil
	})
	return out, err
}

func (in *instruction) occupied() ([]AgentStack, error) {
	var out []AgentStack
	err := in.tx.Scan(in.ctx, address.NamespaceStack, func(_ address.Address, data []byte) error {
		var s AgentStack
		if err := s.UnmarshalBinary(data); err != nil {
			return err
		}
		if !s.Empty() {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

func ripen(stacks []AgentStack, slot uint64) []RipeStack {
	out := make([]RipeStack, 0, len(stacks))
	for i := range stacks {
		out = append(out, RipeStack{AgentStack: stacks[i], Bounty: PendingBounty(&stacks[i], slot)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Bounty != b.Bounty {
			return a.Bounty > b.Bounty
		}
		if a.CellID != b.CellID {
			return a.CellID < b.CellID
		}
		return bytes.Compare(a.Owner[:], b.Owner[:]) < 0
	})
	return out
}

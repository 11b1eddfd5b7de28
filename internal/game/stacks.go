package game

import (
	"context"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
)

// Spawn pays SpawnCost into the vault and adds units and reapers to the
// signer's stack at cell. Reinforcing an occupied stack keeps its spawn slot.
func (e *Engine) Spawn(ctx context.Context, signer address.Address, cell uint16, units, reapers uint64) (*AgentStack, error) {
	var out AgentStack
	err := e.exec(ctx, "spawn", signer, func(in *instruction) error {
		cfg, err := in.activeConfig()
		if err != nil {
			return err
		}
		if !core.ValidCell(cell) {
			return ErrInvalidCell
		}
		if units == 0 && reapers == 0 {
			return ErrEmptyAttacker
		}

		if err := in.tx.Transfer(ctx, address.TokenAccount(signer, cfg.TokenMint), cfg.Vault, signer, SpawnCost); err != nil {
			return err
		}

		stack, exists, err := in.stack(signer, cell)
		if err != nil {
			return err
		}
		if err := stack.merge(signer, cell, units, reapers, in.slot); err != nil {
			return err
		}
		if err := in.putStack(signer, cell, stack, exists); err != nil {
			return err
		}

		out = *stack
		return in.emit(Event{
			Kind: EventSpawn,
			Spawn: &SpawnEvent{
				Agent:   signer,
				CellID:  cell,
				Units:   stack.Units,
				Reapers: stack.Reapers,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MoveResult reports both legs of a move.
type MoveResult struct {
	Source      AgentStack `json:"source"`
	Destination AgentStack `json:"destination"`
	Units       uint64     `json:"units"`
	Reapers     uint64     `json:"reapers"`
}

// Move pays MoveCost and relocates the whole stack at from to the adjacent
// cell to, merging with whatever the signer already holds there.
func (e *Engine) Move(ctx context.Context, signer address.Address, from, to uint16) (*MoveResult, error) {
	var out MoveResult
	err := e.exec(ctx, "move", signer, func(in *instruction) error {
		cfg, err := in.activeConfig()
		if err != nil {
			return err
		}
		if !core.ValidCell(from) || !core.ValidCell(to) {
			return ErrInvalidCell
		}
		if !core.IsAdjacent(from, to) {
			return ErrNotAdjacent
		}

		src, srcExists, err := in.stack(signer, from)
		if err != nil {
			return err
		}
		if !srcExists || src.Empty() {
			return ErrEmptyAttacker
		}
		// The key already binds the owner; a mismatch means a foreign record.
		if src.Owner != signer {
			return ErrUnauthorized
		}

		if err := in.tx.Transfer(ctx, address.TokenAccount(signer, cfg.TokenMint), cfg.Vault, signer, MoveCost); err != nil {
			return err
		}

		units, reapers := src.Units, src.Reapers
		src.clear()
		if err := in.putStack(signer, from, src, srcExists); err != nil {
			return err
		}

		dst, dstExists, err := in.stack(signer, to)
		if err != nil {
			return err
		}
		if err := dst.merge(signer, to, units, reapers, in.slot); err != nil {
			return err
		}
		if err := in.putStack(signer, to, dst, dstExists); err != nil {
			return err
		}

		out = MoveResult{Source: *src, Destination: *dst, Units: units, Reapers: reapers}
		return in.emit(Event{
			Kind: EventMove,
			Move: &MoveEvent{
				Agent:   signer,
				From:    from,
				To:      to,
				Units:   units,
				Reapers: reapers,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

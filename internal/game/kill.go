package game

import (
	"context"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
)

// KillResult is what an attack did. On a loss only Won is meaningful and the
// attacker's stack has been cleared.
type KillResult struct {
	Won              bool   `json:"won"`
	Bounty           uint64 `json:"bounty"`
	Burned           uint64 `json:"burned"`
	Payout           uint64 `json:"payout"`
	SurvivingUnits   uint64 `json:"surviving_units"`
	SurvivingReapers uint64 `json:"surviving_reapers"`
	Slot             uint64 `json:"slot"`
}

// Kill attacks defender's stack at defCell from the signer's stack at
// atkCell. A win pays the defender's pending bounty, minus the burn, out of
// the vault and leaves the attacker with its survivors. A loss clears the
// attacker and emits nothing.
func (e *Engine) Kill(ctx context.Context, signer, defender address.Address, atkCell, defCell uint16) (*KillResult, error) {
	var out KillResult
	err := e.exec(ctx, "kill", signer, func(in *instruction) error {
		cfg, err := in.activeConfig()
		if err != nil {
			return err
		}
		if !core.ValidCell(atkCell) || !core.ValidCell(defCell) {
			return ErrInvalidCell
		}
		if !core.IsAdjacent(atkCell, defCell) {
			return ErrNotAdjacent
		}

		atk, atkExists, err := in.stack(signer, atkCell)
		if err != nil {
			return err
		}
		if !atkExists || atk.Empty() {
			return ErrEmptyAttacker
		}
		// The key already binds the owner; a mismatch means a foreign record.
		if atk.Owner != signer {
			return ErrUnauthorized
		}

		def, defExists, err := in.stack(defender, defCell)
		if err != nil {
			return err
		}
		if !defExists || def.Empty() {
			return ErrEmptyDefender
		}
		if def.Owner == signer {
			return ErrSelfAttack
		}

		out.Slot = in.slot
		outcome := ResolveCombat(def.Units, atk.Units, def.Reapers, atk.Reapers)
		if !outcome.AttackerWon {
			atk.clear()
			return in.putStack(signer, atkCell, atk, true)
		}

		bounty := PendingBounty(def, in.slot)
		burn, payout := SplitBounty(bounty)
		authority := address.Config()

		if payout > 0 {
			if err := in.tx.Transfer(ctx, cfg.Vault, address.TokenAccount(signer, cfg.TokenMint), authority, payout); err != nil {
				return err
			}
		}
		if burn > 0 {
			if err := in.tx.Burn(ctx, cfg.TokenMint, cfg.Vault, authority, burn); err != nil {
				return err
			}
		}

		def.clear()
		if err := in.putStack(defender, defCell, def, true); err != nil {
			return err
		}

		atk.Units = outcome.SurvivingUnits
		atk.Reapers = outcome.SurvivingReapers
		atk.KillSlot = in.slot
		if err := in.putStack(signer, atkCell, atk, true); err != nil {
			return err
		}

		cfg.TotalKills = core.SatAdd(cfg.TotalKills, 1)
		if err := in.saveConfig(cfg); err != nil {
			return err
		}

		out = KillResult{
			Won:              true,
			Bounty:           bounty,
			Burned:           burn,
			Payout:           payout,
			SurvivingUnits:   outcome.SurvivingUnits,
			SurvivingReapers: outcome.SurvivingReapers,
			Slot:             in.slot,
		}
		return in.emit(Event{
			Kind: EventKill,
			Kill: &KillEvent{
				Attacker:         signer,
				Defender:         defender,
				AttackerCell:     atkCell,
				DefenderCell:     defCell,
				Bounty:           bounty,
				Burned:           burn,
				SurvivingUnits:   outcome.SurvivingUnits,
				SurvivingReapers: outcome.SurvivingReapers,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if !out.Won {
		e.logger.Debug("attack repelled", "attacker", signer.Short(), "defender", defender.Short(), "cell", defCell)
	}
	return &out, nil
}

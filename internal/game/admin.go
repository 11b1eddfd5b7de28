package game

import (
	"context"
	"errors"

	"github.com/HouseOfHufflepuff/kill/internal/address"
)

// Initialize creates the economy config and its vault for mint, making
// signer the admin. It succeeds once per deployment.
func (e *Engine) Initialize(ctx context.Context, signer, mint address.Address) (*EconomyConfig, error) {
	cfgAddr := address.Config()
	cfg := &EconomyConfig{
		TokenMint: mint,
		Vault:     address.Vault(cfgAddr),
		Admin:     signer,
	}

	err := e.exec(ctx, "initialize", signer, func(in *instruction) error {
		data, err := cfg.MarshalBinary()
		if err != nil {
			return err
		}
		if err := in.tx.Create(ctx, cfgAddr, address.NamespaceConfig, data); err != nil {
			if errors.Is(err, ErrAccountExists) {
				return ErrAlreadyInitialized
			}
			return err
		}
		return in.tx.OpenTokenAccount(ctx, cfg.Vault, mint, cfgAddr)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("economy initialized", "admin", signer.Short(), "mint", mint.Short(), "vault", cfg.Vault.Short())
	return cfg, nil
}

// SetPaused sets the gameplay pause flag. Admin only; allowed while paused.
func (e *Engine) SetPaused(ctx context.Context, signer address.Address, paused bool) error {
	err := e.exec(ctx, "set_paused", signer, func(in *instruction) error {
		cfg, err := in.adminConfig(signer)
		if err != nil {
			return err
		}
		cfg.Paused = paused
		return in.saveConfig(cfg)
	})
	if err != nil {
		return err
	}

	e.logger.Info("pause flag set", "paused", paused)
	return nil
}

// Withdraw drains amount from the vault into the dest token account.
// Admin only; the ledger enforces the vault balance.
func (e *Engine) Withdraw(ctx context.Context, signer address.Address, amount uint64, dest address.Address) error {
	err := e.exec(ctx, "withdraw", signer, func(in *instruction) error {
		cfg, err := in.adminConfig(signer)
		if err != nil {
			return err
		}
		return in.tx.Transfer(ctx, cfg.Vault, dest, address.Config(), amount)
	})
	if err != nil {
		return err
	}

	e.logger.Info("vault withdrawal", "amount", amount, "dest", dest.Short())
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/clock"
	"github.com/HouseOfHufflepuff/kill/internal/config"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
	"github.com/HouseOfHufflepuff/kill/internal/storage"
)

// app bundles what every command needs: configuration, the logger, the
// store and an engine bound to the configured clock.
type app struct {
	cfg    config.Config
	logger *log.Logger
	store  *storage.Store
	clock  game.Clock
	engine *game.Engine
	term   tui.Terminal
}

// fatal prints an error in the usual format and exits.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fatal("%v", err)
	}
	if flagDBPath != "" {
		cfg.Storage.Path = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg
}

// newLogger builds the stderr logger described by cfg.
func newLogger(cfg config.Config) *log.Logger {
	level, err := cfg.Log.ParseLevel()
	if err != nil {
		fatal("%v", err)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: cfg.Log.Timestamps,
		Prefix:          "kill",
		Level:           level,
	})
}

// newClock returns a clock pinned by --slot, or the wall clock from config.
func newClock(cfg config.Config) game.Clock {
	if flagSlot >= 0 {
		return clock.NewManual(uint64(flagSlot))
	}
	genesis, err := cfg.Clock.GenesisTime()
	if err != nil {
		fatal("%v", err)
	}
	return clock.NewWall(genesis, cfg.Clock.SlotDuration())
}

// openApp loads configuration and opens the database.
func openApp() *app {
	cfg := loadConfig()
	logger := newLogger(cfg)

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fatal("opening game database: %v", err)
	}
	logger.Debug("opened store", "path", cfg.Storage.Path)

	clk := newClock(cfg)
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		clock:  clk,
		engine: game.NewEngine(store, clk, logger),
		term:   tui.DetectTerminal(os.Stdout),
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "err", err)
	}
}

// signer resolves --as, which every state-changing command requires.
func (a *app) signer(ctx context.Context) address.Address {
	if flagAs == "" {
		fatal("--as is required for this command")
	}
	return a.identity(ctx, flagAs)
}

// identity resolves a wallet name or hex address. Names are recorded so
// later listings can show them instead of hex.
func (a *app) identity(ctx context.Context, s string) address.Address {
	addr, err := address.Resolve(s)
	if err != nil {
		fatal("%v", err)
	}
	if _, perr := address.Parse(s); perr != nil {
		a.remember(ctx, addr, address.NamespaceWallet, strings.TrimSpace(s))
	}
	return addr
}

// mint resolves a mint symbol or hex address.
func (a *app) mint(ctx context.Context, s string) address.Address {
	if s == "" {
		fatal("--mint is required")
	}
	if addr, err := address.Parse(s); err == nil {
		return addr
	}
	addr := address.Mint(s)
	a.remember(ctx, addr, address.NamespaceMint, s)
	return addr
}

// gameMint returns the mint of the initialized economy.
func (a *app) gameMint(ctx context.Context) address.Address {
	cfg, err := a.engine.Config(ctx)
	if err != nil {
		fatal("%v", err)
	}
	return cfg.TokenMint
}

func (a *app) remember(ctx context.Context, addr address.Address, namespace, name string) {
	err := a.store.Exec(ctx, func(tx *storage.Tx) error {
		return tx.Create(ctx, addr, namespace, []byte(name))
	})
	if err != nil && !errors.Is(err, game.ErrAccountExists) {
		a.logger.Warn("recording name", "name", name, "err", err)
	}
}

// labels maps every recorded name, plus the economy's own accounts.
func (a *app) labels(ctx context.Context) tui.Labels {
	labels := tui.Labels{}
	err := a.store.View(ctx, func(tx game.Tx) error {
		for _, ns := range []string{address.NamespaceWallet, address.NamespaceMint} {
			err := tx.Scan(ctx, ns, func(addr address.Address, data []byte) error {
				labels[addr] = string(data)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("loading names", "err", err)
	}
	cfg := address.Config()
	labels[cfg] = "config"
	labels[address.Vault(cfg)] = "vault"
	return labels
}

// decimals returns a mint's decimals, falling back to the game default.
func (a *app) decimals(ctx context.Context, mint address.Address) uint8 {
	m, err := a.store.Mint(ctx, mint)
	if err != nil {
		return game.Decimals
	}
	return m.Decimals
}

// amount parses a decimal token amount for mint.
func (a *app) amount(ctx context.Context, s string, mint address.Address) uint64 {
	v, err := tui.ParseAmount(s, a.decimals(ctx, mint))
	if err != nil {
		fatal("%v", err)
	}
	return v
}

// cellArg parses a cell id argument.
func cellArg(s string) uint16 {
	id, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		fatal("invalid cell %q", s)
	}
	return uint16(id)
}

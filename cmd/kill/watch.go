package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
)

const recentEvents = 8

var flagRefresh time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the economy live",
	Long: `Open a full-screen, read-only view of the economy: status, the
richest bounties, recent events and the grid. It refreshes from the
database, so it follows commands run in other terminals.

Controls:
  left/right  Cycle the z layer shown (or all)
  up/down     Scroll the bounty table
  e           Switch between bounties and events
  r           Refresh now
  q           Quit

Examples:
  kill watch
  kill watch --refresh 250ms`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagRefresh, "refresh", time.Second, "Refresh interval")
	rootCmd.AddCommand(watchCmd)
}

// snapshotter reads spectator snapshots from the app's store.
type snapshotter struct {
	a *app
}

// Snapshot implements tui.Source.
func (s snapshotter) Snapshot(ctx context.Context) (tui.Snapshot, error) {
	a := s.a
	st, err := a.status(ctx)
	if err != nil {
		return tui.Snapshot{}, err
	}
	snap := tui.Snapshot{Status: st, Labels: a.labels(ctx)}

	if st.Config != nil {
		if snap.Stacks, err = a.engine.Stacks(ctx); err != nil {
			return tui.Snapshot{}, err
		}
		if snap.Ripe, err = a.engine.RipeStacks(ctx, 0); err != nil {
			return tui.Snapshot{}, err
		}
	}

	head, err := a.store.Head(ctx)
	if err != nil {
		return tui.Snapshot{}, err
	}
	var after uint64
	if head > recentEvents {
		after = head - recentEvents
	}
	if snap.Events, err = a.store.Events(ctx, after, recentEvents); err != nil {
		return tui.Snapshot{}, err
	}
	return snap, nil
}

// status gathers the economy summary. An uninitialized economy is not an
// error; the returned status simply has no config.
func (a *app) status(ctx context.Context) (tui.Status, error) {
	st := tui.Status{Slot: a.clock.Now()}
	cfg, err := a.engine.Config(ctx)
	if errors.Is(err, game.ErrNotInitialized) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.Config = cfg

	if st.Vault, err = a.store.Balance(ctx, cfg.Vault); err != nil {
		return st, err
	}
	if m, err := a.store.Mint(ctx, cfg.TokenMint); err == nil {
		st.Supply = m.Supply
	}
	stacks, err := a.engine.Stacks(ctx)
	if err != nil {
		return st, err
	}
	st.Stacks = len(stacks)
	return st, nil
}

func runWatch(_ *cobra.Command, _ []string) {
	a := openApp()
	defer a.Close()

	// Logging to stderr would tear the alternate screen.
	a.logger.SetOutput(io.Discard)
	if err := tui.RunWatch(snapshotter{a: a}, a.term.Theme(), flagRefresh); err != nil {
		a.Close()
		fatal("%v", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
)

var (
	flagJSON   bool
	flagOwner  string
	flagTop    int
	flagLayers []int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the economy configuration",
	Long: `Show whether the economy is initialized and running, its admin,
mint and vault, the vault balance and the number of occupied stacks.

Examples:
  kill status
  kill status --json`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

var stacksCmd = &cobra.Command{
	Use:   "stacks",
	Short: "List occupied stacks",
	Long: `List every occupied stack in cell order, optionally for one owner.

Examples:
  kill stacks
  kill stacks --owner alice`,
	Args: cobra.NoArgs,
	Run:  runStacks,
}

var ripeCmd = &cobra.Command{
	Use:   "ripe",
	Short: "List the richest bounties",
	Long: `List occupied stacks ordered by pending bounty, richest first.
Bounties grow with a stack's age, up to 20x after 648000 slots.

Examples:
  kill ripe --top 5`,
	Args: cobra.NoArgs,
	Run:  runRipe,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Draw the grid",
	Long: `Draw the 6x6x6 grid, one box per z layer. Occupied cells show the
unit count in the owner's color; '*' marks reapers and a red xN marks
a cell held by N owners.

Examples:
  kill board
  kill board --layer 0 --layer 1`,
	Args: cobra.NoArgs,
	Run:  runBoard,
}

func init() {
	statusCmd.Flags().BoolVar(&flagJSON, "json", false, "Print as JSON")
	stacksCmd.Flags().BoolVar(&flagJSON, "json", false, "Print as JSON")
	stacksCmd.Flags().StringVar(&flagOwner, "owner", "", "Only show stacks of this wallet")
	ripeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print as JSON")
	ripeCmd.Flags().IntVar(&flagTop, "top", 10, "Number of stacks to show (0 = all)")
	boardCmd.Flags().IntSliceVar(&flagLayers, "layer", nil, "Z layer to draw (repeatable, default all)")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encoding output: %v", err)
	}
}

func runStatus(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	st, err := a.status(ctx)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}

	if flagJSON {
		printJSON(st)
		return
	}
	fmt.Println(tui.StatusPanel(a.term.Theme(), st, a.labels(ctx)))
}

func runStacks(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	var owner address.Address
	if flagOwner != "" {
		owner = a.identity(ctx, flagOwner)
	}

	stacks, err := a.engine.Stacks(ctx)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}
	now := a.clock.Now()
	rows := make([]game.RipeStack, 0, len(stacks))
	for _, s := range stacks {
		if !owner.IsZero() && s.Owner != owner {
			continue
		}
		rows = append(rows, game.RipeStack{AgentStack: s, Bounty: game.PendingBounty(&s, now)})
	}

	if flagJSON {
		printJSON(rows)
		return
	}
	fmt.Println(tui.StacksTable(a.term.Theme(), rows, a.labels(ctx), now))
}

func runRipe(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	ripe, err := a.engine.RipeStacks(ctx, flagTop)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}

	if flagJSON {
		printJSON(ripe)
		return
	}
	fmt.Println(tui.StacksTable(a.term.Theme(), ripe, a.labels(ctx), a.clock.Now()))
}

func runBoard(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	for _, z := range flagLayers {
		if z < 0 || z >= core.GridSize {
			a.Close()
			fatal("layer %d out of range 0-%d", z, core.GridSize-1)
		}
	}

	stacks, err := a.engine.Stacks(ctx)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}

	scr := tui.DrawBoard(stacks, tui.BoardOptions{
		Layers: flagLayers,
		PerRow: a.term.LayersPerRow(),
		Labels: a.labels(ctx),
	})
	fmt.Println(tui.Render(scr, a.term.Styled))
	fmt.Printf("slot %d\n", a.clock.Now())
}

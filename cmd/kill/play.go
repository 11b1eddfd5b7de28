package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/core"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
)

var (
	flagUnits    uint64
	flagReapers  uint64
	flagDefender string
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <cell>",
	Short: "Spawn or reinforce a stack",
	Long: `Buy units and reapers on a cell. Every spawn costs the signer a flat
20 tokens, paid into the vault. Spawning onto an existing stack merges
into it and keeps its age.

Examples:
  kill spawn 0 --units 100 --as alice
  kill spawn 43 --units 10 --reapers 2 --as bob`,
	Args: cobra.ExactArgs(1),
	Run:  runSpawn,
}

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move a stack to an adjacent cell",
	Long: `Move the signer's whole stack to an adjacent cell for a flat fee of
100 tokens. The moved stack merges with any stack already held there.

Examples:
  kill move 0 1 --as alice`,
	Args: cobra.ExactArgs(2),
	Run:  runMove,
}

var attackCmd = &cobra.Command{
	Use:     "attack <attacker-cell> <defender-cell>",
	Aliases: []string{"kill"},
	Short:   "Attack an adjacent enemy stack",
	Long: `Attack the defender's stack on an adjacent cell with the signer's
stack. A win pays the defender's pending bounty from the vault, less
the burn. A loss wipes the attacker's stack.

Examples:
  kill attack 0 1 --defender bob --as alice`,
	Args: cobra.ExactArgs(2),
	Run:  runAttack,
}

var targetsCmd = &cobra.Command{
	Use:   "targets <cell>",
	Short: "List enemy stacks next to a cell",
	Long: `List the enemy stacks adjacent to a cell that the signer could attack,
richest bounty first.

Examples:
  kill targets 0 --as alice`,
	Args: cobra.ExactArgs(1),
	Run:  runTargets,
}

func init() {
	spawnCmd.Flags().Uint64Var(&flagUnits, "units", 0, "Units to buy")
	spawnCmd.Flags().Uint64Var(&flagReapers, "reapers", 0, "Reapers to buy")

	attackCmd.Flags().StringVar(&flagDefender, "defender", "", "Defender identity (required)")
	_ = attackCmd.MarkFlagRequired("defender")
}

func runSpawn(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	signer := a.signer(ctx)
	s, err := a.engine.Spawn(ctx, signer, cellArg(args[0]), flagUnits, flagReapers)
	if err != nil {
		a.Close()
		fatal("spawn failed: %v", err)
	}

	c := core.DecodeCell(s.CellID)
	fmt.Printf("Spawned on cell %d (%d,%d,%d): stack now %d units, %d reapers\n",
		s.CellID, c.X, c.Y, c.Z, s.Units, s.Reapers)
}

func runMove(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	signer := a.signer(ctx)
	res, err := a.engine.Move(ctx, signer, cellArg(args[0]), cellArg(args[1]))
	if err != nil {
		a.Close()
		fatal("move failed: %v", err)
	}

	fmt.Printf("Moved %d units, %d reapers from %d to %d\n",
		res.Units, res.Reapers, res.Source.CellID, res.Destination.CellID)
	fmt.Printf("Stack on %d: %d units, %d reapers\n",
		res.Destination.CellID, res.Destination.Units, res.Destination.Reapers)
}

func runAttack(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	signer := a.signer(ctx)
	defender := a.identity(ctx, flagDefender)
	atk, def := cellArg(args[0]), cellArg(args[1])

	res, err := a.engine.Kill(ctx, signer, defender, atk, def)
	if err != nil {
		a.Close()
		fatal("attack failed: %v", err)
	}

	if !res.Won {
		fmt.Printf("Attack from %d on %d failed: your stack was wiped out\n", atk, def)
		return
	}
	fmt.Printf("Victory at slot %d: bounty %s, burned %s, paid %s\n", res.Slot,
		tui.FormatAmount(res.Bounty, game.Decimals),
		tui.FormatAmount(res.Burned, game.Decimals),
		tui.FormatAmount(res.Payout, game.Decimals))
	fmt.Printf("Survivors on %d: %d units, %d reapers\n", atk, res.SurvivingUnits, res.SurvivingReapers)
}

func runTargets(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	signer := a.signer(ctx)
	targets, err := a.engine.Targets(ctx, signer, cellArg(args[0]))
	if err != nil {
		a.Close()
		fatal("%v", err)
	}

	fmt.Println(tui.StacksTable(a.term.Theme(), targets, a.labels(ctx), a.clock.Now()))
}

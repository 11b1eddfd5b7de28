package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
)

var (
	flagInitMint   string
	flagWithdrawTo string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the economy",
	Long: `Create the economy config and its vault for a token mint. The signer
becomes the admin. This succeeds once per database.

Examples:
  kill init --mint KILL --as admin`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause gameplay (admin)",
	Long: `Stop spawns, moves and attacks until unpaused. Admin only.

Examples:
  kill pause --as admin`,
	Args: cobra.NoArgs,
	Run:  func(_ *cobra.Command, _ []string) { runSetPaused(true) },
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume gameplay (admin)",
	Args:  cobra.NoArgs,
	Run:   func(_ *cobra.Command, _ []string) { runSetPaused(false) },
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Withdraw tokens from the vault (admin)",
	Long: `Transfer tokens from the vault to a wallet's token account. The
amount is in whole tokens and may carry decimals. Admin only.

Examples:
  kill withdraw 250 --to treasury --as admin
  kill withdraw 0.5 --to admin --as admin`,
	Args: cobra.ExactArgs(1),
	Run:  runWithdraw,
}

func init() {
	initCmd.Flags().StringVar(&flagInitMint, "mint", "", "Token mint symbol or address (required)")
	_ = initCmd.MarkFlagRequired("mint")

	withdrawCmd.Flags().StringVar(&flagWithdrawTo, "to", "", "Receiving wallet (default: the signer)")
}

func runInit(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	signer := a.signer(ctx)
	mint := a.mint(ctx, flagInitMint)
	cfg, err := a.engine.Initialize(ctx, signer, mint)
	if err != nil {
		a.Close()
		fatal("initialize failed: %v", err)
	}

	labels := a.labels(ctx)
	fmt.Println("Economy initialized")
	fmt.Printf("  admin: %s\n", tui.Identity(cfg.Admin, labels))
	fmt.Printf("  mint:  %s\n", tui.Identity(cfg.TokenMint, labels))
	fmt.Printf("  vault: %s\n", cfg.Vault)
}

func runSetPaused(paused bool) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	if err := a.engine.SetPaused(ctx, a.signer(ctx), paused); err != nil {
		a.Close()
		fatal("%v", err)
	}
	if paused {
		fmt.Println("Gameplay paused")
	} else {
		fmt.Println("Gameplay resumed")
	}
}

func runWithdraw(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	signer := a.signer(ctx)
	owner := signer
	if flagWithdrawTo != "" {
		owner = a.identity(ctx, flagWithdrawTo)
	}
	mint := a.gameMint(ctx)
	amount := a.amount(ctx, args[0], mint)
	dest := address.TokenAccount(owner, mint)

	if err := a.engine.Withdraw(ctx, signer, amount, dest); err != nil {
		a.Close()
		fatal("withdraw failed: %v", err)
	}
	fmt.Printf("Withdrew %s to %s\n", tui.FormatAmount(amount, a.decimals(ctx, mint)), a.labels(ctx).Name(owner))
}

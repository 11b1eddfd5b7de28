package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
	"github.com/HouseOfHufflepuff/kill/internal/storage"
)

var (
	flagSymbol    string
	flagDecimals  uint8
	flagTokenMint string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage mints and balances",
	Long: `Create token mints, fund wallets and inspect balances.

The signer of create-mint becomes the mint authority, and only that
authority can fund wallets from it.`,
}

var createMintCmd = &cobra.Command{
	Use:   "create-mint",
	Short: "Create a token mint",
	Long: `Create a mint identified by its symbol.

Examples:
  kill token create-mint --symbol KILL --as treasury`,
	Args: cobra.NoArgs,
	Run:  runCreateMint,
}

var fundCmd = &cobra.Command{
	Use:   "fund <wallet> <amount>",
	Short: "Mint tokens into a wallet",
	Long: `Mint tokens into a wallet's token account, opening it if needed.
Defaults to the economy's mint once initialized.

Examples:
  kill token fund alice 1000 --as treasury
  kill token fund bob 2.5 --mint KILL --as treasury`,
	Args: cobra.ExactArgs(2),
	Run:  runFund,
}

var balanceCmd = &cobra.Command{
	Use:   "balance [wallet]",
	Short: "Show token balances",
	Long: `Show the token accounts of one wallet, or of everyone.

Examples:
  kill token balance
  kill token balance alice`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBalance,
}

func init() {
	createMintCmd.Flags().StringVar(&flagSymbol, "symbol", "", "Mint symbol (required)")
	createMintCmd.Flags().Uint8Var(&flagDecimals, "decimals", game.Decimals, "Decimal places")
	_ = createMintCmd.MarkFlagRequired("symbol")

	fundCmd.Flags().StringVar(&flagTokenMint, "mint", "", "Mint symbol or address (default: the economy's mint)")
	balanceCmd.Flags().BoolVar(&flagJSON, "json", false, "Print as JSON")

	tokenCmd.AddCommand(createMintCmd)
	tokenCmd.AddCommand(fundCmd)
	tokenCmd.AddCommand(balanceCmd)
}

func runCreateMint(_ *cobra.Command, _ []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	authority := a.signer(ctx)
	mint := a.mint(ctx, flagSymbol)
	if err := a.store.CreateMint(ctx, mint, authority, flagDecimals); err != nil {
		a.Close()
		fatal("create mint failed: %v", err)
	}
	fmt.Printf("Created mint %s (%s), %d decimals\n", flagSymbol, mint, flagDecimals)
}

func runFund(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	authority := a.signer(ctx)
	owner := a.identity(ctx, args[0])
	var mint address.Address
	if flagTokenMint != "" {
		mint = a.mint(ctx, flagTokenMint)
	} else {
		mint = a.gameMint(ctx)
	}
	amount := a.amount(ctx, args[1], mint)

	acct, err := a.store.Fund(ctx, mint, authority, owner, amount)
	if err != nil {
		a.Close()
		fatal("fund failed: %v", err)
	}
	balance, err := a.store.Balance(ctx, acct)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}
	decimals := a.decimals(ctx, mint)
	fmt.Printf("Funded %s with %s, balance %s\n", args[0],
		tui.FormatAmount(amount, decimals), tui.FormatAmount(balance, decimals))
}

func runBalance(_ *cobra.Command, args []string) {
	ctx := context.Background()
	a := openApp()
	defer a.Close()

	var owner address.Address
	if len(args) == 1 {
		owner = a.identity(ctx, args[0])
	}

	accounts, err := a.store.TokenAccounts(ctx)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}
	shown := accounts[:0]
	for _, ta := range accounts {
		if owner.IsZero() || ta.Owner == owner {
			shown = append(shown, ta)
		}
	}

	if flagJSON {
		printJSON(shown)
		return
	}
	fmt.Println(tui.BalancesTable(a.term.Theme(), shown, a.labels(ctx), mintDecimals(ctx, a, shown)))
}

// mintDecimals returns the decimals shared by the listed accounts' mints.
// Mixed mints fall back to the game default.
func mintDecimals(ctx context.Context, a *app, accounts []storage.TokenAccount) uint8 {
	if len(accounts) == 0 {
		return game.Decimals
	}
	first := accounts[0].Mint
	for _, ta := range accounts[1:] {
		if ta.Mint != first {
			return game.Decimals
		}
	}
	return a.decimals(ctx, first)
}

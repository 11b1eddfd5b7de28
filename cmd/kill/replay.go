package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
	"github.com/HouseOfHufflepuff/kill/internal/script"
	"github.com/HouseOfHufflepuff/kill/internal/storage"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Replay a scenario script",
	Long: `Run a YAML scenario against a fresh in-memory economy and print what
happened. Scenarios are validated against a JSON schema before they run.
A step whose outcome differs from its expect_error fails the replay.

The database is not touched. The digest line identifies the event
stream, so two replays of the same script print the same digest.

Examples:
  kill replay internal/script/testdata/ambush.yaml
  kill replay ambush.yaml --json`,
	Args: cobra.ExactArgs(1),
	Run:  runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the full report as JSON")
}

func runReplay(_ *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)

	sc, err := script.Load(args[0])
	if err != nil {
		fatal("%v", err)
	}

	rep, runErr := script.Run(context.Background(), sc, logger)
	if rep == nil {
		fatal("%v", runErr)
	}

	if flagJSON {
		printJSON(rep)
	} else {
		printReport(sc, rep)
	}
	if runErr != nil {
		fatal("%v", runErr)
	}
}

func printReport(sc *script.Scenario, rep *script.Report) {
	theme := tui.DetectTerminal(os.Stdout).Theme()
	mint := address.Mint(sc.Mint)

	labels := tui.Labels{mint: sc.Mint, script.Treasury: "treasury"}
	for _, acct := range sc.Accounts {
		labels[address.Named(acct.Name)] = acct.Name
	}
	for _, st := range rep.Steps {
		if st.As != "" {
			if a, err := address.Resolve(st.As); err == nil {
				if _, known := labels[a]; !known {
					labels[a] = st.As
				}
			}
		}
	}

	fmt.Println(theme.Title.Render("Scenario " + rep.Name))
	for _, st := range rep.Steps {
		outcome := "ok"
		if st.Code != "" {
			outcome = string(st.Code)
		}
		line := fmt.Sprintf("%3d  slot %-8d %-10s %-8s %s", st.Index, st.Slot, st.Op, st.As, outcome)
		if st.Detail != "" {
			line += "  " + st.Detail
		}
		fmt.Println(line)
	}
	fmt.Println()

	fmt.Println(tui.EventsTable(theme, rep.Events, labels))

	scr := tui.DrawBoard(rep.Stacks, tui.BoardOptions{Labels: labels})
	fmt.Println(tui.Render(scr, theme.Styled))

	accounts := make([]storage.TokenAccount, 0, len(rep.Balances))
	for _, b := range rep.Balances {
		accounts = append(accounts, storage.TokenAccount{
			Address: b.Account,
			Mint:    mint,
			Owner:   address.Named(b.Name),
			Amount:  b.Amount,
		})
	}
	fmt.Println(tui.BalancesTable(theme, accounts, labels, game.Decimals))

	fmt.Printf("vault  %s\n", tui.FormatAmount(rep.Vault, game.Decimals))
	fmt.Printf("digest %s\n", rep.Digest)
}

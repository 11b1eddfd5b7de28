// kill is the command-line client for the KILL grid wargame economy.
//
// Usage:
//
//	kill init --mint KILL          - Create the economy config and vault (admin)
//	kill spawn <cell>              - Buy units and reapers on a cell
//	kill move <from> <to>          - Move a whole stack to an adjacent cell
//	kill attack <atk> <def>        - Attack an adjacent enemy stack
//	kill status | stacks | ripe    - Inspect the economy
//	kill board                     - Draw the 6x6x6 grid
//	kill watch                     - Live read-only view of the economy
//	kill serve                     - Serve the read-only event feed
//	kill replay <script>           - Replay a scenario script in memory
//
// Global flags:
//
//	--config <path>    - Configuration file (default: ~/.kill/kill.yaml)
//	--db <path>        - Database path (default: ~/.kill/kill.db)
//	--as <identity>    - Signer, a wallet name or hex address
//	--slot <n>         - Pin the clock to a fixed slot
//	--log-level <lvl>  - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagAs       string
	flagSlot     int64
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kill",
	Short: "KILL - a grid wargame economy",
	Long: `KILL is a 6x6x6 grid wargame played with tokens.

Players spawn stacks of units and reapers on cells, move them between
adjacent cells and attack neighbouring enemy stacks. A defeated stack
pays a bounty that grows with its age; part of every bounty is burned.

Available commands:
  init      - Initialize the economy (admin)
  spawn     - Spawn or reinforce a stack
  move      - Move a stack to an adjacent cell
  attack    - Attack an adjacent enemy stack
  pause     - Pause gameplay (admin)
  unpause   - Resume gameplay (admin)
  withdraw  - Withdraw tokens from the vault (admin)
  status    - Show the economy configuration
  stacks    - List occupied stacks
  ripe      - List the richest bounties
  targets   - List enemy stacks next to a cell
  board     - Draw the grid
  watch     - Watch the economy live
  token     - Manage mints and balances
  events    - List or export the event log
  serve     - Serve the event feed over HTTP and WebSocket
  replay    - Replay a scenario script

Examples:
  kill token create-mint --symbol KILL --as treasury
  kill token fund alice 1000 --as treasury
  kill init --mint KILL --as admin
  kill spawn 0 --units 100 --as alice
  kill attack 0 1 --defender bob --as alice
  kill board --layer 0`,
	SilenceUsage: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to game database (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&flagAs, "as", "", "Signer identity: wallet name or hex address")
	rootCmd.PersistentFlags().Int64Var(&flagSlot, "slot", -1, "Pin the clock to this slot (-1 = wall clock)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(attackCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stacksCmd)
	rootCmd.AddCommand(ripeCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/journal"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
)

var (
	flagAfter   uint64
	flagLimit   int
	flagExport  string
	flagArchive string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List or export the event log",
	Long: `List events recorded by successful spawns, moves and kills.

With --export the selected events are written to a zstd-compressed
JSON lines archive instead. With --archive an existing archive is
listed in place of the database.

Examples:
  kill events --after 100 --limit 20
  kill events --export ./kill-events.jsonl.zst
  kill events --archive ~/.kill/journal/feed-2026-01-01-00.jsonl.zst`,
	Args: cobra.NoArgs,
	Run:  runEvents,
}

func init() {
	eventsCmd.Flags().Uint64Var(&flagAfter, "after", 0, "Only events with a sequence number above this")
	eventsCmd.Flags().IntVar(&flagLimit, "limit", 50, "Maximum events to list (0 = all)")
	eventsCmd.Flags().StringVar(&flagExport, "export", "", "Write the events to this archive")
	eventsCmd.Flags().StringVar(&flagArchive, "archive", "", "Read events from this archive")
	eventsCmd.Flags().BoolVar(&flagJSON, "json", false, "Print as JSON")
	eventsCmd.MarkFlagsMutuallyExclusive("export", "archive")
}

func runEvents(_ *cobra.Command, _ []string) {
	ctx := context.Background()

	if flagArchive != "" {
		var events []game.Event
		err := journal.Read(flagArchive, func(ev game.Event) error {
			if ev.Seq > flagAfter && (flagLimit <= 0 || len(events) < flagLimit) {
				events = append(events, ev)
			}
			return nil
		})
		if err != nil {
			fatal("reading archive: %v", err)
		}
		printEvents(events, tui.Labels{}, tui.DetectTerminal(os.Stdout).Theme())
		return
	}

	a := openApp()
	defer a.Close()

	limit := flagLimit
	if flagExport != "" {
		limit = 0
	}
	events, err := a.store.Events(ctx, flagAfter, limit)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}

	if flagExport != "" {
		if err := journal.Export(flagExport, events); err != nil {
			a.Close()
			fatal("export failed: %v", err)
		}
		fmt.Printf("Exported %d events to %s\n", len(events), flagExport)
		return
	}
	printEvents(events, a.labels(ctx), a.term.Theme())
}

func printEvents(events []game.Event, labels tui.Labels, theme tui.Theme) {
	if flagJSON {
		printJSON(events)
		return
	}
	fmt.Println(tui.EventsTable(theme, events, labels))
}

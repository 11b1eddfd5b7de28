package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HouseOfHufflepuff/kill/internal/config"
	"github.com/HouseOfHufflepuff/kill/internal/feed"
	"github.com/HouseOfHufflepuff/kill/internal/journal"
	"github.com/HouseOfHufflepuff/kill/internal/platform/tui"
)

var (
	flagServeAddr   string
	flagAllowRemote bool
	flagJournal     bool
	flagSSH         bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the event feed over HTTP and WebSocket",
	Long: `Serve a read-only view of the economy. Other kill commands may keep
writing to the same database; the feed polls it for new events.

Endpoints:
  GET /state             - Slot, config and stacks by bounty
  GET /events?after=N    - Events after sequence N
  GET /ws?after=N        - WebSocket stream of events

Only loopback clients are accepted unless --allow-remote is set.
With --journal every new event is also appended to hourly archives
under journal.dir. With --ssh the live spectator view is also served
over SSH on serve.ssh_address; the host key is generated on first use.

Examples:
  kill serve
  kill serve --addr 127.0.0.1:9000 --journal
  kill serve --ssh                  # then: ssh -p 23666 localhost`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "Listen address (default: serve.address)")
	serveCmd.Flags().BoolVar(&flagAllowRemote, "allow-remote", false, "Accept non-loopback clients")
	serveCmd.Flags().BoolVar(&flagJournal, "journal", false, "Archive new events under journal.dir")
	serveCmd.Flags().BoolVar(&flagSSH, "ssh", false, "Also serve the spectator view over SSH")
}

func runServe(_ *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := openApp()
	defer a.Close()

	addr := a.cfg.Serve.Address
	if flagServeAddr != "" {
		addr = flagServeAddr
	}

	head, err := a.store.Head(ctx)
	if err != nil {
		a.Close()
		fatal("reading event log: %v", err)
	}

	opts := feed.Options{
		Poll:        a.cfg.Serve.PollInterval(),
		AllowRemote: a.cfg.Serve.AllowRemote || flagAllowRemote,
	}
	if flagJournal {
		dir, err := config.ExpandHome(a.cfg.Journal.Dir)
		if err != nil {
			a.Close()
			fatal("%v", err)
		}
		rot := journal.NewRotating(dir, "feed")
		defer func() {
			if err := rot.Close(); err != nil {
				a.logger.Warn("closing journal", "err", err)
			}
		}()
		opts.Sink = rot.Write
		a.logger.Info("journaling events", "dir", dir)
	}

	server := feed.NewServer(a.store, a.engine, a.logger, head, opts)

	if flagSSH {
		startSpectators(ctx, a)
	}

	fmt.Printf("Serving the KILL feed on http://%s (head %d)\n", addr, head)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.ListenAndServe(ctx, addr); err != nil {
		a.Close()
		fatal("server error: %v", err)
	}
}

// startSpectators serves the watch view over SSH until ctx is done.
func startSpectators(ctx context.Context, a *app) {
	if a.cfg.Serve.SSHAddress == "" {
		a.Close()
		fatal("serve.ssh_address is required for --ssh")
	}
	hostKey, err := config.ExpandHome(a.cfg.Serve.HostKey)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}
	sshCfg := tui.DefaultSSHServerConfig()
	sshCfg.Address = a.cfg.Serve.SSHAddress
	sshCfg.HostKeyPath = hostKey
	sshCfg.Refresh = a.cfg.Serve.PollInterval()

	spectators, err := tui.NewSSHServer(sshCfg, snapshotter{a: a}, a.logger)
	if err != nil {
		a.Close()
		fatal("%v", err)
	}
	fmt.Printf("Serving spectators over SSH on %s\n", sshCfg.Address)
	go func() {
		if err := spectators.ListenAndServe(ctx); err != nil {
			a.logger.Error("SSH spectator server failed", "err", err)
		}
	}()
}

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HouseOfHufflepuff/kill/internal/core"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// Spectator layout constants
const (
	allLayers    = -1
	bountyRows   = 8
	fetchTimeout = 5 * time.Second
)

// Snapshot is everything the spectator view shows at one moment.
type Snapshot struct {
	Status Status
	Stacks []game.AgentStack
	Ripe   []game.RipeStack
	Events []game.Event // most recent last
	Labels Labels
}

// Source produces snapshots for the spectator view.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

type snapshotMsg struct {
	snap Snapshot
	err  error
}

// WatchModel is the Bubble Tea model for the read-only spectator view. It
// polls its Source on every tick and never changes game state.
type WatchModel struct {
	src      Source
	theme    Theme
	keys     WatchKeyMap
	help     help.Model
	table    table.Model
	interval time.Duration

	snap       Snapshot
	loaded     bool
	err        error
	layer      int // allLayers or a z index
	showEvents bool
	width      int
	height     int
	quitting   bool
}

// NewWatchModel creates a spectator model refreshing every interval.
func NewWatchModel(src Source, theme Theme, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = time.Second
	}
	h := help.New()
	h.ShowAll = false

	m := WatchModel{
		src:      src,
		theme:    theme,
		keys:     DefaultWatchKeyMap(),
		help:     h,
		interval: interval,
		layer:    allLayers,
		width:    DefaultTerminal().Width,
		height:   DefaultTerminal().Height,
	}
	m.table = m.createTable()
	return m
}

// createTable builds the bounty table.
func (m *WatchModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Cell", Width: 5},
		{Title: "Owner", Width: 10},
		{Title: "Units", Width: 8},
		{Title: "Mult", Width: 5},
		{Title: "Bounty", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(bountyRows),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// updateTableRows refreshes the bounty table from the current snapshot.
func (m *WatchModel) updateTableRows() {
	now := m.snap.Status.Slot
	rows := make([]table.Row, 0, len(m.snap.Ripe))
	for _, s := range m.snap.Ripe {
		rows = append(rows, table.Row{
			strconv.Itoa(int(s.CellID)),
			m.snap.Labels.Name(s.Owner),
			Abbrev(s.Units),
			strconv.FormatUint(game.Multiplier(core.SatSub(now, s.SpawnSlot)), 10) + "x",
			FormatAmount(s.Bounty, game.Decimals),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.GotoTop()
	}
}

func (m WatchModel) fetch() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		snap, err := src.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

// Init loads the first snapshot and starts the refresh loop.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tickCmd(m.interval))
}

// Update handles messages for the spectator view.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.NextLayer):
			m.layer++
			if m.layer >= core.GridSize {
				m.layer = allLayers
			}
			return m, nil

		case key.Matches(msg, m.keys.PrevLayer):
			m.layer--
			if m.layer < allLayers {
				m.layer = core.GridSize - 1
			}
			return m, nil

		case key.Matches(msg, m.keys.Events):
			m.showEvents = !m.showEvents
			return m, nil

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetch()

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetch(), tickCmd(m.interval))

	case snapshotMsg:
		if msg.err != nil {
			// Keep showing the last good snapshot.
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.snap = msg.snap
		m.loaded = true
		m.updateTableRows()
		return m, nil
	}

	return m, nil
}

// Layer returns the z layer shown, or -1 when all layers are shown.
func (m WatchModel) Layer() int {
	return m.layer
}

// View renders the spectator view.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if !m.loaded {
		b.WriteString(m.theme.Muted.Render("loading..."))
		if m.err != nil {
			b.WriteString("\n" + m.theme.Alert.Render("refresh failed: "+m.err.Error()))
		}
		return b.String()
	}

	status := StatusPanel(m.theme, m.snap.Status, m.snap.Labels)
	var side string
	if m.showEvents {
		side = m.renderEvents()
	} else {
		side = m.theme.Title.Render("Richest bounties") + "\n" + m.table.View()
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, status, "  ", side))
	b.WriteString("\n\n")

	opts := BoardOptions{
		PerRow: Terminal{Width: m.width}.LayersPerRow(),
		Labels: m.snap.Labels,
	}
	if m.layer != allLayers {
		opts.Layers = []int{m.layer}
	}
	b.WriteString(Render(DrawBoard(m.snap.Stacks, opts), m.theme.Styled))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.theme.Alert.Render("refresh failed: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.theme.Muted.Render(m.help.View(m.keys)))
	return b.String()
}

func (m WatchModel) renderEvents() string {
	lines := []string{m.theme.Title.Render("Recent events")}
	if len(m.snap.Events) == 0 {
		lines = append(lines, m.theme.Muted.Render("no events"))
	}
	for i := len(m.snap.Events) - 1; i >= 0; i-- {
		ev := m.snap.Events[i]
		lines = append(lines, fmt.Sprintf("%6d  %s", ev.Slot, DescribeEvent(ev, m.snap.Labels)))
	}
	return strings.Join(lines, "\n")
}

// RunWatch runs the spectator view on the local terminal until the user quits.
func RunWatch(src Source, theme Theme, interval time.Duration) error {
	p := tea.NewProgram(
		NewWatchModel(src, theme, interval),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/storage"
)

// newTable builds a table with the theme's header and cell styles. Columns
// listed in numeric are right-aligned.
func newTable(theme Theme, headers []string, rows [][]string, numeric ...int) string {
	isNum := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		isNum[c] = true
	}

	border := lipgloss.RoundedBorder()
	if !theme.Styled {
		border = lipgloss.NormalBorder()
	}
	t := table.New().
		Border(border).
		BorderStyle(theme.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return theme.Header
			case isNum[col]:
				return theme.Number
			default:
				return theme.Cell
			}
		})
	return t.String()
}

// StacksTable lists stacks with their position and pending bounty.
func StacksTable(theme Theme, stacks []game.RipeStack, labels Labels, now uint64) string {
	if len(stacks) == 0 {
		return theme.Muted.Render("no stacks")
	}
	rows := make([][]string, 0, len(stacks))
	for _, s := range stacks {
		c := core.DecodeCell(s.CellID)
		rows = append(rows, []string{
			strconv.Itoa(int(s.CellID)),
			fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z),
			labels.Name(s.Owner),
			strconv.FormatUint(s.Units, 10),
			strconv.FormatUint(s.Reapers, 10),
			strconv.FormatUint(core.SatSub(now, s.SpawnSlot), 10),
			strconv.FormatUint(game.Multiplier(core.SatSub(now, s.SpawnSlot)), 10) + "x",
			FormatAmount(s.Bounty, game.Decimals),
		})
	}
	return newTable(theme,
		[]string{"CELL", "X,Y,Z", "OWNER", "UNITS", "REAPERS", "AGE", "MULT", "BOUNTY"},
		rows, 0, 3, 4, 5, 6, 7)
}

// BalancesTable lists token accounts.
func BalancesTable(theme Theme, accounts []storage.TokenAccount, labels Labels, decimals uint8) string {
	if len(accounts) == 0 {
		return theme.Muted.Render("no token accounts")
	}
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			labels.Name(a.Owner),
			a.Address.Short(),
			labels.Name(a.Mint),
			FormatAmount(a.Amount, decimals),
		})
	}
	return newTable(theme, []string{"OWNER", "ACCOUNT", "MINT", "BALANCE"}, rows, 3)
}

// EventsTable lists events with a one-line description.
func EventsTable(theme Theme, events []game.Event, labels Labels) string {
	if len(events) == 0 {
		return theme.Muted.Render("no events")
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			strconv.FormatUint(ev.Seq, 10),
			strconv.FormatUint(ev.Slot, 10),
			string(ev.Kind),
			DescribeEvent(ev, labels),
		})
	}
	return newTable(theme, []string{"SEQ", "SLOT", "KIND", "DETAIL"}, rows, 0, 1)
}

// DescribeEvent renders an event as a short sentence.
func DescribeEvent(ev game.Event, labels Labels) string {
	switch {
	case ev.Spawn != nil:
		e := ev.Spawn
		return fmt.Sprintf("%s spawned %d units %d reapers at %d", labels.Name(e.Agent), e.Units, e.Reapers, e.CellID)
	case ev.Move != nil:
		e := ev.Move
		return fmt.Sprintf("%s moved %d units %d reapers %d -> %d", labels.Name(e.Agent), e.Units, e.Reapers, e.From, e.To)
	case ev.Kill != nil:
		e := ev.Kill
		return fmt.Sprintf("%s killed %s at %d from %d, bounty %s (burned %s), %d units %d reapers survive",
			labels.Name(e.Attacker), labels.Name(e.Defender), e.DefenderCell, e.AttackerCell,
			FormatAmount(e.Bounty, game.Decimals), FormatAmount(e.Burned, game.Decimals),
			e.SurvivingUnits, e.SurvivingReapers)
	}
	return string(ev.Kind)
}

// Status is the data shown by StatusPanel.
type Status struct {
	Config *game.EconomyConfig `json:"config,omitempty"`
	Slot   uint64              `json:"slot"`
	Vault  uint64              `json:"vault"`
	Supply uint64              `json:"supply"`
	Stacks int                 `json:"stacks"`
}

// StatusPanel renders the economy configuration as a bordered key/value panel.
func StatusPanel(theme Theme, st Status, labels Labels) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render(label), theme.Value.Render(value))
	}

	lines := []string{theme.Title.Render("KILL economy"), ""}
	if st.Config == nil {
		lines = append(lines, theme.Alert.Render("not initialized"), row("slot", strconv.FormatUint(st.Slot, 10)))
		return theme.Panel.Render(strings.Join(lines, "\n"))
	}

	state := theme.Value.Render("running")
	if st.Config.Paused {
		state = theme.Alert.Render("PAUSED")
	}
	lines = append(lines,
		lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render("state"), state),
		row("slot", strconv.FormatUint(st.Slot, 10)),
		row("admin", labels.Name(st.Config.Admin)),
		row("mint", labels.Name(st.Config.TokenMint)),
		row("vault", st.Config.Vault.Short()),
		row("vault bal", FormatAmount(st.Vault, game.Decimals)),
		row("supply", FormatAmount(st.Supply, game.Decimals)),
		row("kills", strconv.FormatUint(st.Config.TotalKills, 10)),
		row("stacks", strconv.Itoa(st.Stacks)),
	)
	return theme.Panel.Render(strings.Join(lines, "\n"))
}

// Identity formats an address with its label when one is known.
func Identity(a address.Address, labels Labels) string {
	if n, ok := labels[a]; ok {
		return fmt.Sprintf("%s (%s)", n, a.Short())
	}
	return a.String()
}

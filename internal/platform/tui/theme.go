package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme contains the styles used by tables and panels.
type Theme struct {
	Styled bool

	// Table styles
	Border lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Number lipgloss.Style
	Muted  lipgloss.Style

	// Panel styles
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Alert lipgloss.Style
	Panel lipgloss.Style
}

// DefaultTheme returns the colored theme used on terminals.
func DefaultTheme() Theme {
	return Theme{
		Styled: true,

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1),
		Number: lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Padding(0, 1).Align(lipgloss.Right),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1),

		Title: lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12),
		Value: lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Alert: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
	}
}

// PlainTheme returns a theme without colors for pipes and files.
func PlainTheme() Theme {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return Theme{
		Border: lipgloss.NewStyle(),
		Header: cell,
		Cell:   cell,
		Number: cell.Align(lipgloss.Right),
		Muted:  cell,

		Title: lipgloss.NewStyle(),
		Label: lipgloss.NewStyle().Width(12),
		Value: lipgloss.NewStyle(),
		Alert: lipgloss.NewStyle(),
		Panel: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
	}
}

// ThemeFor picks DefaultTheme or PlainTheme.
func ThemeFor(styled bool) Theme {
	if styled {
		return DefaultTheme()
	}
	return PlainTheme()
}

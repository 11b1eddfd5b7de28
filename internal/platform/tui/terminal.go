package tui

import (
	"os"

	"golang.org/x/term"
)

// Terminal describes where output is going.
type Terminal struct {
	Width  int  // Screen width in characters
	Height int  // Screen height in characters
	Styled bool // Whether colors and rounded borders should be used
}

// DefaultTerminal is assumed when f is not a terminal.
func DefaultTerminal() Terminal {
	return Terminal{Width: 80, Height: 24}
}

// DetectTerminal inspects f. Output is styled only on a terminal and only
// when NO_COLOR is unset.
func DetectTerminal(f *os.File) Terminal {
	t := DefaultTerminal()
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return t
	}
	if w, h, err := term.GetSize(fd); err == nil {
		t.Width = w
		t.Height = h
	}
	t.Styled = os.Getenv("NO_COLOR") == ""
	return t
}

// Theme returns the theme matching the terminal.
func (t Terminal) Theme() Theme {
	return ThemeFor(t.Styled)
}

// LayersPerRow returns how many board layers fit side by side.
func (t Terminal) LayersPerRow() int {
	n := (t.Width + layerGap) / (layerWidth + layerGap)
	if n < 1 {
		return 1
	}
	if n > 6 {
		return 6
	}
	return n
}

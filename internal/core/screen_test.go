package core

import (
	"strings"
	"testing"
)

func TestNewScreen(t *testing.T) {
	s := NewScreen(80, 24)

	if s.Width() != 80 {
		t.Errorf("Width() = %d, expected 80", s.Width())
	}
	if s.Height() != 24 {
		t.Errorf("Height() = %d, expected 24", s.Height())
	}

	// Check that it's initialized with spaces
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			if s.Get(x, y) != ' ' {
				t.Fatalf("New screen should be filled with spaces, got %q at (%d, %d)", s.Get(x, y), x, y)
			}
		}
	}
}

func TestScreenSetGet(t *testing.T) {
	s := NewScreen(10, 10)

	s.SetColored(5, 5, 'X', ColorRed)
	if cell := s.GetCell(5, 5); cell.Rune != 'X' || cell.Color != ColorRed {
		t.Errorf("GetCell(5, 5) = %+v, expected red 'X'", cell)
	}

	// Set keeps the color
	s.Set(5, 5, 'Y')
	if cell := s.GetCell(5, 5); cell.Rune != 'Y' || cell.Color != ColorRed {
		t.Errorf("GetCell(5, 5) after Set = %+v, expected red 'Y'", cell)
	}

	// Out of bounds should be silent
	s.Set(-1, 0, 'A')
	s.Set(100, 0, 'A')
	s.SetColored(0, -1, 'A', ColorBlue)
	s.SetColored(0, 100, 'A', ColorBlue)

	if s.Get(-1, 0) != ' ' || s.Get(100, 0) != ' ' {
		t.Error("Out of bounds Get should return space")
	}
}

func TestScreenDrawTextClipped(t *testing.T) {
	s := NewScreen(5, 1)
	s.DrawText(2, 0, "hello")

	if got := s.Row(0); got != "  hel" {
		t.Errorf("Row(0) = %q, expected %q", got, "  hel")
	}
}

func TestScreenDrawBox(t *testing.T) {
	s := NewScreen(4, 3)
	s.DrawBox(NewRect(0, 0, 4, 3), ColorGray)

	expected := strings.Join([]string{
		"┌──┐",
		"│  │",
		"└──┘",
	}, "\n")
	if got := s.String(); got != expected {
		t.Errorf("String() =\n%s\nexpected\n%s", got, expected)
	}
	if s.GetCell(0, 0).Color != ColorGray {
		t.Error("box corner should carry the box color")
	}
}

func TestScreenClear(t *testing.T) {
	s := NewScreen(3, 3)
	s.DrawTextColored(0, 1, "abc", ColorGreen)
	s.Clear()

	for y := 0; y < 3; y++ {
		if s.Row(y) != "   " {
			t.Errorf("Row(%d) = %q after Clear", y, s.Row(y))
		}
	}
	if s.GetCell(1, 1).Color != ColorDefault {
		t.Error("Clear should reset colors")
	}
}

func TestOwnerColorStable(t *testing.T) {
	for b := 0; b < 256; b++ {
		c := OwnerColor(byte(b))
		if c == ColorRed || c == ColorDefault {
			t.Fatalf("OwnerColor(%d) = %d, reserved color", b, c)
		}
		if OwnerColor(byte(b)) != c {
			t.Fatalf("OwnerColor(%d) not stable", b)
		}
	}
}

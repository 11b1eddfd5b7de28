package core

// Color represents a foreground color for a screen cell.
// The platform layer maps these onto ANSI terminal colors.
type Color uint8

// Predefined colors.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorOrange
	ColorGray
)

// ownerPalette is the rotation used to tell stack owners apart on the board.
// Red is kept out of it so it stays reserved for contested cells.
var ownerPalette = []Color{
	ColorGreen,
	ColorYellow,
	ColorBlue,
	ColorMagenta,
	ColorCyan,
	ColorOrange,
	ColorBrightGreen,
	ColorBrightYellow,
	ColorBrightBlue,
	ColorBrightMagenta,
	ColorBrightCyan,
	ColorWhite,
}

// OwnerColor picks a stable palette color from the first byte of an owner key.
func OwnerColor(key byte) Color {
	return ownerPalette[int(key)%len(ownerPalette)]
}

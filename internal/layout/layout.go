// Package layout maps Linux input key codes to keyboard geometry.
package layout

import "strconv"

// Position locates a key on the heatmap grid.
type Position struct {
	Row   int
	Col   int
	Label string
}

// Key is a heatmap cell.
type Key struct {
	Code uint16
	Position
}

// Unknown is returned for codes outside the heatmap grid.
var Unknown = Position{Row: -1, Col: -1, Label: "?"}

// Known reports whether the position belongs to the heatmap grid.
func (p Position) Known() bool {
	return p.Row >= 0 && p.Col >= 0
}

// Standard QWERTY rows in Linux key codes (linux/input-event-codes.h).
var qwertyRows = [][]struct {
	code  uint16
	label string
}{
	{{2, "1"}, {3, "2"}, {4, "3"}, {5, "4"}, {6, "5"}, {7, "6"}, {8, "7"}, {9, "8"}, {10, "9"}, {11, "0"}, {12, "-"}, {13, "="}},
	{{16, "Q"}, {17, "W"}, {18, "E"}, {19, "R"}, {20, "T"}, {21, "Y"}, {22, "U"}, {23, "I"}, {24, "O"}, {25, "P"}, {26, "["}, {27, "]"}},
	{{30, "A"}, {31, "S"}, {32, "D"}, {33, "F"}, {34, "G"}, {35, "H"}, {36, "J"}, {37, "K"}, {38, "L"}, {39, ";"}, {40, "'"}},
	{{44, "Z"}, {45, "X"}, {46, "C"}, {47, "V"}, {48, "B"}, {49, "N"}, {50, "M"}, {51, ","}, {52, "."}, {53, "/"}},
	{{57, "SPACE"}},
}

var (
	positions = buildPositions()
	grid      = buildGrid()
)

func buildPositions() map[uint16]Position {
	out := make(map[uint16]Position)
	for r, row := range qwertyRows {
		for c, k := range row {
			out[k.code] = Position{Row: r, Col: c, Label: k.label}
		}
	}
	return out
}

func buildGrid() [][]Key {
	out := make([][]Key, len(qwertyRows))
	for r, row := range qwertyRows {
		out[r] = make([]Key, len(row))
		for c, k := range row {
			out[r][c] = Key{Code: k.code, Position: Position{Row: r, Col: c, Label: k.label}}
		}
	}
	return out
}

// PositionOf returns the grid position of a key code, or Unknown.
func PositionOf(code uint16) Position {
	if p, ok := positions[code]; ok {
		return p
	}
	return Unknown
}

// Rows returns the heatmap geometry in row order. The result is a copy.
func Rows() [][]Key {
	out := make([][]Key, len(grid))
	for i, row := range grid {
		out[i] = append([]Key(nil), row...)
	}
	return out
}

// Codes returns every key code on the heatmap grid.
func Codes() []uint16 {
	out := make([]uint16, 0, len(positions))
	for _, row := range grid {
		for _, k := range row {
			out = append(out, k.Code)
		}
	}
	return out
}

var names = map[uint16]string{
	1: "ESC", 14: "BACKSPACE", 15: "TAB", 28: "ENTER", 29: "LEFTCTRL",
	41: "`", 42: "LEFTSHIFT", 43: "\\", 54: "RIGHTSHIFT", 55: "KP*",
	56: "LEFTALT", 58: "CAPSLOCK", 69: "NUMLOCK", 70: "SCROLLLOCK",
	87: "F11", 88: "F12", 96: "KPENTER", 97: "RIGHTCTRL", 99: "SYSRQ",
	100: "RIGHTALT", 102: "HOME", 103: "UP", 104: "PAGEUP", 105: "LEFT",
	106: "RIGHT", 107: "END", 108: "DOWN", 109: "PAGEDOWN", 110: "INSERT",
	111: "DELETE", 113: "MUTE", 114: "VOLUMEDOWN", 115: "VOLUMEUP",
	119: "PAUSE", 125: "LEFTMETA", 126: "RIGHTMETA", 127: "COMPOSE",
}

// Name returns a display name for any key code.
func Name(code uint16) string {
	if p, ok := positions[code]; ok {
		return p.Label
	}
	if code >= 59 && code <= 68 {
		return "F" + strconv.Itoa(int(code)-58)
	}
	if n, ok := names[code]; ok {
		return n
	}
	return "KEY_" + strconv.Itoa(int(code))
}

// Key codes the demo generator needs beyond the grid.
const (
	CodeSpace     uint16 = 57
	CodeEnter     uint16 = 28
	CodeBackspace uint16 = 14
	CodeLeftShift uint16 = 42
)

// CodeForRune returns the key that types r on a US layout and whether shift is held.
func CodeForRune(r rune) (code uint16, shift bool, ok bool) {
	switch {
	case r == ' ':
		return CodeSpace, false, true
	case r == '\n':
		return CodeEnter, false, true
	case r >= 'a' && r <= 'z':
		r -= 'a' - 'A'
	case r >= 'A' && r <= 'Z':
		shift = true
	}
	if c, found := runeCodes[r]; found {
		return c, shift, true
	}
	if c, found := shiftedCodes[r]; found {
		return c, true, true
	}
	return 0, false, false
}

var runeCodes = buildRuneCodes()

func buildRuneCodes() map[rune]uint16 {
	out := make(map[rune]uint16)
	for _, row := range qwertyRows {
		for _, k := range row {
			if len(k.label) == 1 {
				out[rune(k.label[0])] = k.code
			}
		}
	}
	return out
}

var shiftedCodes = map[rune]uint16{
	'!': 2, '@': 3, '#': 4, '$': 5, '%': 6, '^': 7, '&': 8, '*': 9, '(': 10, ')': 11,
	'_': 12, '+': 13, '{': 26, '}': 27, ':': 39, '"': 40, '<': 51, '>': 52, '?': 53,
}

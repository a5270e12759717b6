package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// minKeyboardKeys separates keyboards from mice and power buttons, which
// advertise only a handful of key bits.
const minKeyboardKeys = 10

// Keyboard is an input device that looks like a keyboard.
type Keyboard struct {
	Name string
	Path string
	Phys string
	Keys int
}

type deviceBlock struct {
	name     string
	phys     string
	handlers []string
	ev       uint64
	keyBits  int
}

// parseDevices reads the /proc/bus/input/devices format and returns keyboards
// ordered by device path.
func parseDevices(r io.Reader) ([]Keyboard, error) {
	var out []Keyboard
	var cur deviceBlock
	flush := func() {
		if kb, ok := cur.keyboard(); ok {
			out = append(out, kb)
		}
		cur = deviceBlock{}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			cur.name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "P: Phys="):
			cur.phys = strings.TrimPrefix(line, "P: Phys=")
		case strings.HasPrefix(line, "H: Handlers="):
			cur.handlers = strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
		case strings.HasPrefix(line, "B: EV="):
			if v, err := strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64); err == nil {
				cur.ev = v
			}
		case strings.HasPrefix(line, "B: KEY="):
			cur.keyBits = countBits(strings.TrimPrefix(line, "B: KEY="))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	sort.Slice(out, func(i, j int) bool {
		return eventIndex(out[i].Path) < eventIndex(out[j].Path)
	})
	return out, nil
}

func (b deviceBlock) keyboard() (Keyboard, bool) {
	if b.ev&(1<<evKey) == 0 || b.keyBits <= minKeyboardKeys {
		return Keyboard{}, false
	}
	for _, h := range b.handlers {
		if strings.HasPrefix(h, "event") {
			return Keyboard{
				Name: b.name,
				Path: "/dev/input/" + h,
				Phys: b.phys,
				Keys: b.keyBits,
			}, true
		}
	}
	return Keyboard{}, false
}

// countBits counts set bits in a bitmap printed as space separated hex words.
func countBits(bitmap string) int {
	n := 0
	for _, word := range strings.Fields(bitmap) {
		v, err := strconv.ParseUint(word, 16, 64)
		if err != nil {
			continue
		}
		n += bits.OnesCount64(v)
	}
	return n
}

func eventIndex(path string) int {
	i := strings.LastIndex(path, "event")
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(path[i+len("event"):])
	if err != nil {
		return -1
	}
	return n
}

// ErrNoKeyboard is returned when discovery finds nothing that looks like a keyboard.
var ErrNoKeyboard = errors.New("no keyboard found")

// Choose returns the single detected keyboard. With several candidates it
// fails and names them so the user can pass one explicitly.
func Choose(kbs []Keyboard) (Keyboard, error) {
	switch len(kbs) {
	case 0:
		return Keyboard{}, ErrNoKeyboard
	case 1:
		return kbs[0], nil
	}
	names := make([]string, 0, len(kbs))
	for _, kb := range kbs {
		names = append(names, fmt.Sprintf("%s (%s)", kb.Path, kb.Name))
	}
	return Keyboard{}, fmt.Errorf("found %d keyboards, pick one with --device: %s", len(kbs), strings.Join(names, ", "))
}

// Package generator produces synthetic typing for the demo dashboard.
package generator

import (
	"math/rand"
	"time"
	"unicode"

	"github.com/verte-zerg/ctrlq/internal/input"
	"github.com/verte-zerg/ctrlq/internal/layout"
)

// Options shapes the generated typing.
type Options struct {
	WPM      float64
	Jitter   float64
	CapsPct  float64
	PunctPct float64
	PunctSet []rune
	// PauseEvery inserts a Pause after that many words. Zero disables pauses.
	PauseEvery int
	Pause      time.Duration
}

// DefaultOptions types at a steady 60 WPM with an occasional coffee break.
func DefaultOptions() Options {
	return Options{
		WPM:        60,
		Jitter:     0.4,
		CapsPct:    0.1,
		PunctPct:   0.15,
		PunctSet:   []rune(".,?!"),
		PauseEvery: 40,
		Pause:      8 * time.Second,
	}
}

// Generator turns random words into keystrokes.
type Generator struct {
	rnd   *rand.Rand
	words []string
	opts  Options

	queue []uint16
	typed int
}

// New returns a Generator seeded with seed. A zero seed uses the current time.
func New(seed int64, words []string, opts Options) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.WPM <= 0 {
		opts.WPM = DefaultOptions().WPM
	}
	if len(words) == 0 {
		words = []string{"ctrlq"}
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), words: words, opts: opts}
}

// Word selects a word uniformly and applies caps/punctuation rules.
func (g *Generator) Word() string {
	word := g.words[g.rnd.Intn(len(g.words))]
	word = applyCaps(g.rnd, word, g.opts.CapsPct)
	return applyPunct(g.rnd, word, g.opts.PunctPct, g.opts.PunctSet)
}

// Next returns the next keystroke and the delay before it.
func (g *Generator) Next() input.Keystroke {
	delay := g.keyDelay()
	if len(g.queue) == 0 {
		g.typed++
		if g.opts.PauseEvery > 0 && g.typed%g.opts.PauseEvery == 0 {
			delay = g.opts.Pause
		}
		g.queue = g.keysFor(g.Word() + " ")
	}
	code := g.queue[0]
	g.queue = g.queue[1:]
	return input.Keystroke{Code: code, Delay: delay}
}

func (g *Generator) keysFor(text string) []uint16 {
	out := make([]uint16, 0, len(text)+2)
	for _, r := range text {
		code, shift, ok := layout.CodeForRune(r)
		if !ok {
			continue
		}
		if shift {
			out = append(out, layout.CodeLeftShift)
		}
		out = append(out, code)
	}
	return out
}

// keyDelay spaces keystrokes for the target speed, five keystrokes per word.
func (g *Generator) keyDelay() time.Duration {
	base := time.Duration(float64(time.Minute) / (g.opts.WPM * 5))
	if g.opts.Jitter <= 0 {
		return base
	}
	f := 1 + (g.rnd.Float64()*2-1)*g.opts.Jitter
	return time.Duration(float64(base) * f)
}

func applyCaps(rnd *rand.Rand, word string, capsPct float64) string {
	if capsPct <= 0 {
		return word
	}
	if rnd.Float64() > capsPct {
		return word
	}
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func applyPunct(rnd *rand.Rand, word string, punctPct float64, punctSet []rune) string {
	if punctPct <= 0 || len(punctSet) == 0 {
		return word
	}
	if rnd.Float64() > punctPct {
		return word
	}
	punct := punctSet[rnd.Intn(len(punctSet))]
	return word + string(punct)
}

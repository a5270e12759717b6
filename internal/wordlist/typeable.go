package wordlist

import "github.com/verte-zerg/ctrlq/internal/layout"

// Typeable reports whether every rune of word has a key on the layout, so the
// demo typist can turn it into key codes without dropping characters.
func Typeable(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if r == ' ' || r == '\n' {
			return false
		}
		if _, _, ok := layout.CodeForRune(r); !ok {
			return false
		}
	}
	return true
}

// Package normalize keeps free text inside the character range the register
// accepts.
package normalize

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	minSafe = 0x20
	maxSafe = 0x7F
)

// Normalizer substitutes or drops characters outside 0x20–0x7F.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	replacements map[rune]string
}

// New builds a Normalizer from a replacement table. Every replacement value
// must itself be inside the safe range, otherwise normalised output could
// still contain characters the register rejects.
func New(table map[rune]string) (*Normalizer, error) {
	r := make(map[rune]string, len(table))
	for from, to := range table {
		if !OutOfRange(from) {
			return nil, fmt.Errorf("replacement for %q: character is already in range", from)
		}
		if i := strings.IndexFunc(to, OutOfRange); i >= 0 {
			return nil, fmt.Errorf("replacement for %q: value %q contains out-of-range characters", from, to)
		}
		r[from] = to
	}
	return &Normalizer{replacements: r}, nil
}

// FromStrings adapts a config table keyed by single-character strings.
func FromStrings(table map[string]string) (*Normalizer, error) {
	r := make(map[rune]string, len(table))
	for k, v := range table {
		if utf8.RuneCountInString(k) != 1 {
			return nil, fmt.Errorf("replacement key %q must be a single character", k)
		}
		ch, _ := utf8.DecodeRuneInString(k)
		r[ch] = v
	}
	return New(r)
}

// OutOfRange reports whether r must not appear in register output.
func OutOfRange(r rune) bool {
	return r < minSafe || r > maxSafe
}

// Normalize is the nil-preserving form of String.
func (n *Normalizer) Normalize(s *string, maxLen int) *string {
	if s == nil {
		return nil
	}
	out := n.String(*s, maxLen)
	return &out
}

// String replaces each out-of-range character with its configured
// substitute, dropping those with none. If the substituted text would be
// longer than maxLen, substitutions are abandoned and every out-of-range
// character is stripped from the original instead.
func (n *Normalizer) String(s string, maxLen int) string {
	if strings.IndexFunc(s, OutOfRange) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !OutOfRange(r) {
			b.WriteRune(r)
			continue
		}
		if rep, ok := n.replacements[r]; ok {
			b.WriteString(rep)
		}
	}
	out := b.String()
	if utf8.RuneCountInString(out) <= maxLen {
		return out
	}
	return Strip(s)
}

// Strip removes every out-of-range character.
func Strip(s string) string {
	return strings.Map(func(r rune) rune {
		if OutOfRange(r) {
			return -1
		}
		return r
	}, s)
}

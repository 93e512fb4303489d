// Package chunk splits long responses into pieces that fit a transport's
// per-message size limit.
package chunk

import (
	"iter"
	"unicode/utf8"
)

// Split returns the consecutive segments of text, each at most limit
// characters long. Concatenating the segments yields text unchanged.
//
// Characters are counted in UTF-16 code units, the unit Telegram applies to
// its message limit: one per rune in the Basic Multilingual Plane, two for
// anything above it (most emoji). Runes are never split; a single rune wider
// than limit becomes a segment of its own.
//
// Empty text yields no segments. A non-positive limit yields text as a single
// segment. The returned sequence holds no state, so it can be ranged over any
// number of times with identical results.
func Split(text string, limit int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		if limit <= 0 {
			yield(text)
			return
		}
		rest := text
		for rest != "" {
			end := byteOffset(rest, limit)
			if !yield(rest[:end]) {
				return
			}
			rest = rest[end:]
		}
	}
}

// Collect materializes Split into a slice.
func Collect(text string, limit int) []string {
	var out []string
	for c := range Split(text, limit) {
		out = append(out, c)
	}
	return out
}

// byteOffset returns the byte index just past the longest prefix of s that
// fits in n UTF-16 code units, taking at least one rune.
func byteOffset(s string, n int) int {
	if len(s) <= n {
		// a rune never takes more UTF-16 units than UTF-8 bytes
		return len(s)
	}
	i, units := 0, 0
	for i < len(s) && units < n {
		r, size := utf8.DecodeRuneInString(s[i:])
		w := utf16Len(r)
		if i > 0 && units+w > n {
			break
		}
		units += w
		i += size
	}
	return i
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

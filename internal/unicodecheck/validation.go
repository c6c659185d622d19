// Package unicodecheck detects Unicode in request input that renders
// invisibly or misleadingly: zero-width characters, bidirectional controls,
// Hangul fillers, control characters, private use code points and stacked
// combining marks.
package unicodecheck

import (
	"slices"
	"strings"
	"unicode"
)

// Problem names the first kind of problematic character found in a string
type Problem string

const (
	None           Problem = ""
	ZeroWidth      Problem = "zero_width"
	Bidirectional  Problem = "bidirectional_control"
	HangulFiller   Problem = "hangul_filler"
	Control        Problem = "control_character"
	PrivateUse     Problem = "private_use"
	CombiningMarks Problem = "excessive_combining_marks"
)

// DefaultMaxCombiningMarks is the run length of combining marks treated as
// "Zalgo" text
const DefaultMaxCombiningMarks = 3

var zeroWidthChars = []rune{
	'\u200B', // zero width space
	'\u200C', // zero width non-joiner
	'\u200D', // zero width joiner
	'\u200E', // left-to-right mark
	'\u200F', // right-to-left mark
	'\uFEFF', // byte order mark
}

// Find scans s and reports the first problem. A run of maxCombining or more
// consecutive nonspacing marks counts as a problem; maxCombining <= 0 selects
// DefaultMaxCombiningMarks.
func Find(s string, maxCombining int) Problem {
	if maxCombining <= 0 {
		maxCombining = DefaultMaxCombiningMarks
	}

	consecutive := 0
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			consecutive++
			if consecutive >= maxCombining {
				return CombiningMarks
			}
			continue
		}
		consecutive = 0

		if p := classify(r); p != None {
			return p
		}
	}
	return None
}

// Contains reports whether s has any problem under the default limits
func Contains(s string) bool {
	return Find(s, DefaultMaxCombiningMarks) != None
}

func classify(r rune) Problem {
	switch {
	case slices.Contains(zeroWidthChars, r):
		return ZeroWidth
	case r >= '\u202A' && r <= '\u202E', r >= '\u2066' && r <= '\u2069':
		return Bidirectional
	case r == '\u3164', r == '\uFFA0':
		return HangulFiller
	case unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t':
		return Control
	case unicode.Is(unicode.Co, r), r >= 0xFDD0 && r <= 0xFDEF, r&0xFFFF >= 0xFFFE:
		return PrivateUse
	}
	return None
}

// SanitizeForLogging replaces control characters with [CTRL] and zero-width
// characters with [ZW] so rejected input can be logged safely
func SanitizeForLogging(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r':
			b.WriteString("[CTRL]")
		case slices.Contains(zeroWidthChars, r):
			b.WriteString("[ZW]")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

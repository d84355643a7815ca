package resolve

import (
	"fmt"
	"strconv"
	"strings"
)

// Pattern is a byte sequence with wildcard positions, written in the
// conventional scanner notation: hex byte pairs separated by spaces,
// with "??" matching any byte.
//
//	"4C 8D 05 ?? ?? ?? ?? 48 8B D0"
type Pattern struct {
	bytes []byte
	mask  []bool // true = position must match
}

// ParsePattern compiles the textual form.
func ParsePattern(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern")
	}

	p := Pattern{
		bytes: make([]byte, len(fields)),
		mask:  make([]bool, len(fields)),
	}
	for i, f := range fields {
		if f == "??" {
			continue
		}
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern byte %d (%q): %w", i, f, err)
		}
		p.bytes[i] = byte(v)
		p.mask[i] = true
	}
	return p, nil
}

// MustPattern compiles the textual form, panicking on a malformed
// pattern. For package-level pattern constants.
func MustPattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the pattern length in bytes.
func (p Pattern) Len() int { return len(p.bytes) }

// MatchAt reports whether the pattern matches buf at off.
func (p Pattern) MatchAt(buf []byte, off int) bool {
	if off < 0 || off+len(p.bytes) > len(buf) {
		return false
	}
	for i, b := range p.bytes {
		if p.mask[i] && buf[off+i] != b {
			return false
		}
	}
	return true
}

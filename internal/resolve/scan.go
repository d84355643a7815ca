package resolve

import (
	"fmt"

	"github.com/dwrance/storyhook/internal/mem"
)

// Scanner decodes addresses out of a host image: bounded pattern
// searches around an anchor, call/jump operand extraction, and
// trampoline chain following.
type Scanner struct {
	img mem.Image
}

// NewScanner creates a scanner over img.
func NewScanner(img mem.Image) *Scanner {
	return &Scanner{img: img}
}

// Image returns the scanned image.
func (s *Scanner) Image() mem.Image { return s.img }

// Find scans a window of bytes starting at anchor for the first match
// of pat, returning the match address. The window is clamped to the
// image.
func (s *Scanner) Find(anchor mem.Address, window int, pat Pattern) (mem.Address, error) {
	if anchor < s.img.Base() {
		return 0, fmt.Errorf("anchor %#x: %w", uint64(anchor), mem.ErrOutOfRange)
	}
	off := int(anchor - s.img.Base())
	if off >= s.img.Size() {
		return 0, fmt.Errorf("anchor %#x: %w", uint64(anchor), mem.ErrOutOfRange)
	}
	if off+window > s.img.Size() {
		window = s.img.Size() - off
	}

	buf := make([]byte, window)
	if err := s.img.ReadAt(anchor, buf); err != nil {
		return 0, err
	}
	for i := 0; i+pat.Len() <= len(buf); i++ {
		if pat.MatchAt(buf, i) {
			return anchor + mem.Address(i), nil
		}
	}
	return 0, ErrNotFound
}

// CallTarget decodes the destination of a near call (E8 rel32) at site.
func (s *Scanner) CallTarget(site mem.Address) (mem.Address, error) {
	var op [5]byte
	if err := s.img.ReadAt(site, op[:]); err != nil {
		return 0, err
	}
	if op[0] != 0xE8 {
		return 0, fmt.Errorf("%w: no call opcode at %#x", ErrNotFound, uint64(site))
	}
	rel := int32(uint32(op[1]) | uint32(op[2])<<8 | uint32(op[3])<<16 | uint32(op[4])<<24)
	return site + 5 + mem.Address(int64(rel)), nil
}

// JumpTarget decodes an unconditional jump at addr, if one is present.
// Near jumps (E9 rel32) resolve directly; indirect jumps through a
// pointer slot (FF 25 rip+disp32) resolve by reading the slot.
func (s *Scanner) JumpTarget(addr mem.Address) (mem.Address, bool) {
	var op [6]byte
	if err := s.img.ReadAt(addr, op[:]); err != nil {
		return 0, false
	}

	switch {
	case op[0] == 0xE9:
		rel := int32(uint32(op[1]) | uint32(op[2])<<8 | uint32(op[3])<<16 | uint32(op[4])<<24)
		return addr + 5 + mem.Address(int64(rel)), true

	case op[0] == 0xFF && op[1] == 0x25:
		disp := int32(uint32(op[2]) | uint32(op[3])<<8 | uint32(op[4])<<16 | uint32(op[5])<<24)
		slot := addr + 6 + mem.Address(int64(disp))
		target, err := mem.ReadU64(s.img, slot)
		if err != nil {
			return 0, false
		}
		return mem.Address(target), true

	default:
		return 0, false
	}
}

// FollowJumps walks a chain of unconditional jumps starting at addr and
// returns the true entry point, so a hook is never installed on top of
// another trampoline. The walk stops at the first address that is not a
// jump or leaves the image; a chain longer than maxHops is an error.
func (s *Scanner) FollowJumps(addr mem.Address, maxHops int) (mem.Address, error) {
	for hop := 0; hop < maxHops; hop++ {
		target, ok := s.JumpTarget(addr)
		if !ok {
			return addr, nil
		}
		if !mem.Contains(s.img, target, 1) {
			// The chain leaves the image (an import thunk); the last
			// in-image address is the best patch point.
			return addr, nil
		}
		addr = target
	}
	return 0, fmt.Errorf("%w: more than %d hops from %#x", ErrJumpChain, maxHops, uint64(addr))
}

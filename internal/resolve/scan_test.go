package resolve

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/dwrance/storyhook/internal/mem"
)

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("48 8B ?? 05")
	if err != nil {
		t.Fatalf("ParsePattern: %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("expected length 4, got %d", p.Len())
	}

	if !p.MatchAt([]byte{0x48, 0x8B, 0xFF, 0x05}, 0) {
		t.Error("pattern should match with wildcard byte")
	}
	if p.MatchAt([]byte{0x48, 0x8B, 0xFF, 0x06}, 0) {
		t.Error("pattern should not match on fixed-byte mismatch")
	}
	if p.MatchAt([]byte{0x48, 0x8B, 0xFF}, 0) {
		t.Error("pattern should not match past the buffer end")
	}
}

func TestParsePattern_Invalid(t *testing.T) {
	for _, s := range []string{"", "GG", "48 8B ZZ"} {
		if _, err := ParsePattern(s); err == nil {
			t.Errorf("ParsePattern(%q) should fail", s)
		}
	}
}

func TestScanner_Find(t *testing.T) {
	data := make([]byte, 256)
	copy(data[0x40:], []byte{0x4C, 0x8D, 0x05, 0x11, 0x22})
	img := mem.NewSnapshot(0x1000, data)
	s := NewScanner(img)

	addr, err := s.Find(0x1000, 256, MustPattern("4C 8D 05 ?? ??"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if addr != 0x1040 {
		t.Errorf("Find = %#x, want 0x1040", uint64(addr))
	}

	// A window that ends before the match must miss it.
	if _, err := s.Find(0x1000, 0x40, MustPattern("4C 8D 05 ?? ??")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for short window, got %v", err)
	}
}

func TestScanner_CallTarget(t *testing.T) {
	data := make([]byte, 64)
	// call rel32 at 0x10: E8 0B 00 00 00 -> target = 0x10 + 5 + 0x0B = 0x20
	data[0x10] = 0xE8
	binary.LittleEndian.PutUint32(data[0x11:], 0x0B)
	img := mem.NewSnapshot(0x0, data)
	s := NewScanner(img)

	target, err := s.CallTarget(0x10)
	if err != nil {
		t.Fatalf("CallTarget: %v", err)
	}
	if target != 0x20 {
		t.Errorf("CallTarget = %#x, want 0x20", uint64(target))
	}

	if _, err := s.CallTarget(0x00); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-call bytes, got %v", err)
	}
}

func TestScanner_CallTarget_NegativeDisplacement(t *testing.T) {
	data := make([]byte, 64)
	// call rel32 at 0x20 jumping back to 0x10: rel = 0x10 - (0x20+5) = -0x15
	data[0x20] = 0xE8
	rel := int32(-0x15)
	binary.LittleEndian.PutUint32(data[0x21:], uint32(rel))
	s := NewScanner(mem.NewSnapshot(0x0, data))

	target, err := s.CallTarget(0x20)
	if err != nil {
		t.Fatalf("CallTarget: %v", err)
	}
	if target != 0x10 {
		t.Errorf("CallTarget = %#x, want 0x10", uint64(target))
	}
}

func TestScanner_FollowJumps(t *testing.T) {
	data := make([]byte, 0x100)
	// 0x00: jmp rel32 -> 0x20
	data[0x00] = 0xE9
	binary.LittleEndian.PutUint32(data[0x01:], 0x1B)
	// 0x20: jmp [rip+disp32] with pointer slot at 0x40 -> 0x60
	data[0x20] = 0xFF
	data[0x21] = 0x25
	binary.LittleEndian.PutUint32(data[0x22:], 0x1A) // 0x20 + 6 + 0x1A = 0x40
	binary.LittleEndian.PutUint64(data[0x40:], 0x60)
	// 0x60: not a jump.
	data[0x60] = 0x55

	s := NewScanner(mem.NewSnapshot(0x0, data))

	addr, err := s.FollowJumps(0x00, 8)
	if err != nil {
		t.Fatalf("FollowJumps: %v", err)
	}
	if addr != 0x60 {
		t.Errorf("FollowJumps = %#x, want 0x60", uint64(addr))
	}

	// A non-jump start resolves to itself.
	addr, err = s.FollowJumps(0x60, 8)
	if err != nil {
		t.Fatalf("FollowJumps: %v", err)
	}
	if addr != 0x60 {
		t.Errorf("FollowJumps on plain code = %#x, want 0x60", uint64(addr))
	}
}

func TestScanner_FollowJumps_HopLimit(t *testing.T) {
	data := make([]byte, 0x20)
	// 0x00: jmp to itself.
	data[0x00] = 0xE9
	self := int32(-5)
	binary.LittleEndian.PutUint32(data[0x01:], uint32(self))
	s := NewScanner(mem.NewSnapshot(0x0, data))

	if _, err := s.FollowJumps(0x00, 4); !errors.Is(err, ErrJumpChain) {
		t.Errorf("expected ErrJumpChain, got %v", err)
	}
}

func TestScanner_FollowJumps_LeavesImage(t *testing.T) {
	data := make([]byte, 0x20)
	// 0x00: jmp far outside the image.
	data[0x00] = 0xE9
	binary.LittleEndian.PutUint32(data[0x01:], 0x1000)
	s := NewScanner(mem.NewSnapshot(0x0, data))

	addr, err := s.FollowJumps(0x00, 4)
	if err != nil {
		t.Fatalf("FollowJumps: %v", err)
	}
	if addr != 0x00 {
		t.Errorf("expected the last in-image address 0x0, got %#x", uint64(addr))
	}
}

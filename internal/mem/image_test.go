package mem

import (
	"errors"
	"testing"
)

func TestSnapshot_ReadWrite(t *testing.T) {
	img := NewSnapshot(0x1000, make([]byte, 64))

	if err := img.WriteAt(0x1010, []byte{0xDE, 0xAD}); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	buf := make([]byte, 2)
	if err := img.ReadAt(0x1010, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if buf[0] != 0xDE || buf[1] != 0xAD {
		t.Errorf("read back %x, want dead", buf)
	}
}

func TestSnapshot_OutOfRange(t *testing.T) {
	img := NewSnapshot(0x1000, make([]byte, 16))

	tests := []struct {
		name string
		addr Address
		n    int
	}{
		{"below base", 0xFFF, 1},
		{"past end", 0x1010, 1},
		{"straddles end", 0x100F, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := img.ReadAt(tt.addr, make([]byte, tt.n))
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("expected ErrOutOfRange, got %v", err)
			}
		})
	}
}

func TestReadU32U64(t *testing.T) {
	data := []byte{0x78, 0x56, 0x34, 0x12, 0xEF, 0xCD, 0xAB, 0x89}
	img := NewSnapshot(0x2000, data)

	u32, err := ReadU32(img, 0x2000)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if u32 != 0x12345678 {
		t.Errorf("ReadU32 = %#x, want 0x12345678", u32)
	}

	u64, err := ReadU64(img, 0x2000)
	if err != nil {
		t.Fatalf("ReadU64: %v", err)
	}
	if u64 != 0x89ABCDEF12345678 {
		t.Errorf("ReadU64 = %#x, want 0x89abcdef12345678", u64)
	}
}

func TestContains(t *testing.T) {
	img := NewSnapshot(0x1000, make([]byte, 16))

	if !Contains(img, 0x1000, 16) {
		t.Error("full image range should be contained")
	}
	if Contains(img, 0x1000, 17) {
		t.Error("range past the end should not be contained")
	}
	if Contains(img, 0xFF0, 8) {
		t.Error("range below base should not be contained")
	}
}

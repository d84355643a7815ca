package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Address is an absolute location within a host image.
type Address uint64

// ErrOutOfRange is returned when an access falls outside the image.
var ErrOutOfRange = errors.New("address out of image range")

// Image is a readable, patchable view of the host module's memory.
type Image interface {
	// Base returns the image's load address.
	Base() Address
	// Size returns the image's extent in bytes.
	Size() int
	// ReadAt fills p from the image starting at addr.
	ReadAt(addr Address, p []byte) error
	// WriteAt stores p into the image starting at addr.
	WriteAt(addr Address, p []byte) error
}

// ReadU32 reads a little-endian 32-bit value.
func ReadU32(img Image, addr Address) (uint32, error) {
	var buf [4]byte
	if err := img.ReadAt(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadU64 reads a little-endian 64-bit value.
func ReadU64(img Image, addr Address) (uint64, error) {
	var buf [8]byte
	if err := img.ReadAt(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Contains reports whether [addr, addr+n) lies inside the image.
func Contains(img Image, addr Address, n int) bool {
	if addr < img.Base() {
		return false
	}
	off := uint64(addr - img.Base())
	return off+uint64(n) <= uint64(img.Size())
}

// Snapshot is an Image over a captured byte buffer.
type Snapshot struct {
	base Address
	data []byte
}

// NewSnapshot wraps data as an image loaded at base. The buffer is used
// directly, not copied.
func NewSnapshot(base Address, data []byte) *Snapshot {
	return &Snapshot{base: base, data: data}
}

// Base returns the image's load address.
func (s *Snapshot) Base() Address { return s.base }

// Size returns the image's extent in bytes.
func (s *Snapshot) Size() int { return len(s.data) }

// ReadAt fills p from the snapshot.
func (s *Snapshot) ReadAt(addr Address, p []byte) error {
	off, err := s.offset(addr, len(p))
	if err != nil {
		return err
	}
	copy(p, s.data[off:])
	return nil
}

// WriteAt stores p into the snapshot.
func (s *Snapshot) WriteAt(addr Address, p []byte) error {
	off, err := s.offset(addr, len(p))
	if err != nil {
		return err
	}
	copy(s.data[off:], p)
	return nil
}

func (s *Snapshot) offset(addr Address, n int) (int, error) {
	if !Contains(s, addr, n) {
		return 0, fmt.Errorf("%w: %#x+%d (image %#x..%#x)",
			ErrOutOfRange, uint64(addr), n, uint64(s.base), uint64(s.base)+uint64(len(s.data)))
	}
	return int(addr - s.base), nil
}

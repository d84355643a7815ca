//go:build unix

package mem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Live is an Image over the current process's mapped memory. Reads go
// straight through; writes temporarily mark the covered pages
// read/write/execute so patches can land on code pages.
//
// The caller is responsible for describing a range that is actually
// mapped; faulting on an unmapped address is not recoverable.
type Live struct {
	base     uintptr
	size     int
	pageSize int
}

// NewLive describes a mapped region of the current process.
func NewLive(base uintptr, size int) *Live {
	return &Live{base: base, size: size, pageSize: unix.Getpagesize()}
}

// Base returns the region's start address.
func (l *Live) Base() Address { return Address(l.base) }

// Size returns the region's extent in bytes.
func (l *Live) Size() int { return l.size }

// ReadAt copies live memory into p.
func (l *Live) ReadAt(addr Address, p []byte) error {
	if !Contains(l, addr, len(p)) {
		return fmt.Errorf("%w: %#x+%d", ErrOutOfRange, uint64(addr), len(p))
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(p))
	copy(p, src)
	return nil
}

// WriteAt stores p into live memory, unprotecting the covered pages for
// the duration of the store and restoring read/execute afterwards.
func (l *Live) WriteAt(addr Address, p []byte) error {
	if !Contains(l, addr, len(p)) {
		return fmt.Errorf("%w: %#x+%d", ErrOutOfRange, uint64(addr), len(p))
	}
	if len(p) == 0 {
		return nil
	}

	start := uintptr(addr) &^ uintptr(l.pageSize-1)
	end := (uintptr(addr) + uintptr(len(p)) + uintptr(l.pageSize-1)) &^ uintptr(l.pageSize-1)
	pages := unsafe.Slice((*byte)(unsafe.Pointer(start)), end-start)

	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("unprotect %#x: %w", start, err)
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(p))
	copy(dst, p)

	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("reprotect %#x: %w", start, err)
	}
	return nil
}

// Package memory provides byte-addressable backends that hold an emulated
// work-RAM image: an in-process buffer, a snapshot file on disk and the
// linear memory of a WebAssembly guest.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrOutOfBounds = errors.New("memory: access out of bounds")
	ErrClosed      = errors.New("memory: backend closed")
)

// Memory is a fixed-size, byte-addressable image
type Memory interface {
	// ReadAt fills p with the bytes starting at addr
	ReadAt(p []byte, addr uint32) error
	// WriteAt stores p starting at addr
	WriteAt(p []byte, addr uint32) error
	// Size returns the number of addressable bytes
	Size() uint32
}

func checkBounds(addr uint32, n int, size uint32) error {
	if uint64(addr)+uint64(n) > uint64(size) {
		return fmt.Errorf("%w: [%#x,%#x) exceeds size %#x", ErrOutOfBounds, addr, uint64(addr)+uint64(n), size)
	}
	return nil
}

// Buffer is an in-process memory image
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

// NewBuffer creates a zeroed buffer of size bytes
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// BufferFrom creates a buffer holding a copy of data
func BufferFrom(data []byte) *Buffer {
	return &Buffer{data: bytes.Clone(data)}
}

func (b *Buffer) ReadAt(p []byte, addr uint32) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := checkBounds(addr, len(p), uint32(len(b.data))); err != nil {
		return err
	}
	copy(p, b.data[addr:])
	return nil
}

func (b *Buffer) WriteAt(p []byte, addr uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := checkBounds(addr, len(p), uint32(len(b.data))); err != nil {
		return err
	}
	copy(b.data[addr:], p)
	return nil
}

func (b *Buffer) Size() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint32(len(b.data))
}

// Bytes returns a copy of the whole image
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bytes.Clone(b.data)
}

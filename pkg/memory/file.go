package memory

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// File is a memory image backed by a snapshot or save file. Writes go to
// the file in place while an exclusive lock on "<path>.lock" is held, so
// concurrent savelayout processes never interleave a record write.
type File struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	lock   *flock.Flock
	size   uint32
	fsync  bool
	closed bool
}

// FileOption configures a File
type FileOption func(*File)

// WithSync makes every write fsync the file before releasing the lock
func WithSync() FileOption {
	return func(f *File) {
		f.fsync = true
	}
}

// OpenFile opens an existing image file for reading and writing
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat memory image: %w", err)
	}
	if info.Size() > math.MaxUint32 {
		f.Close()
		return nil, fmt.Errorf("memory image %s is larger than 4 GiB", path)
	}

	m := &File{
		path: path,
		f:    f,
		lock: flock.New(path + ".lock"),
		size: uint32(info.Size()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CreateFile creates (or truncates) a zero-filled image file of size bytes
func CreateFile(path string, size uint32, opts ...FileOption) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory image: %w", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size memory image: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close memory image: %w", err)
	}
	return OpenFile(path, opts...)
}

// Path returns the image file path
func (m *File) Path() string {
	return m.path
}

func (m *File) ReadAt(p []byte, addr uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if err := checkBounds(addr, len(p), m.size); err != nil {
		return err
	}
	if _, err := m.f.ReadAt(p, int64(addr)); err != nil {
		return fmt.Errorf("failed to read memory image: %w", err)
	}
	return nil
}

func (m *File) WriteAt(p []byte, addr uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if err := checkBounds(addr, len(p), m.size); err != nil {
		return err
	}

	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock memory image: %w", err)
	}
	defer m.lock.Unlock()

	if _, err := m.f.WriteAt(p, int64(addr)); err != nil {
		return fmt.Errorf("failed to write memory image: %w", err)
	}
	if m.fsync {
		if err := m.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync memory image: %w", err)
		}
	}
	return nil
}

func (m *File) Size() uint32 {
	return m.size
}

// Close closes the image file
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.f.Close()
}

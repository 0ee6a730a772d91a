// Package di provides dependency injection container
package di

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ssargent/savelayout/pkg/api" //nolint:depguard
	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/config"
	"github.com/ssargent/savelayout/pkg/dq3"
	"github.com/ssargent/savelayout/pkg/journal"
	"github.com/ssargent/savelayout/pkg/logging"
	"github.com/ssargent/savelayout/pkg/memmap"
	"github.com/ssargent/savelayout/pkg/memory"
)

// MemoryOpener opens the configured memory image
type MemoryOpener interface {
	// OpenMemory returns the image and a function that releases it
	OpenMemory(ctx context.Context, cfg config.Memory) (memory.Memory, func() error, error)
}

// JournalOpener opens the edit journal
type JournalOpener interface {
	OpenJournal(cfg config.Journal) (*journal.Journal, error)
}

// Container holds all the dependencies for the application
type Container struct {
	memoryOpener  MemoryOpener
	journalOpener JournalOpener
	serverFactory api.ServerFactory
	memoryMap     *memmap.Map
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		memoryOpener:  DefaultMemoryOpener{},
		journalOpener: DefaultJournalOpener{},
		serverFactory: api.NewServerFactory(),
		memoryMap:     dq3.Map(),
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// GetMemoryOpener returns the memory opener
func (c *Container) GetMemoryOpener() MemoryOpener {
	return c.memoryOpener
}

// GetJournalOpener returns the journal opener
func (c *Container) GetJournalOpener() JournalOpener {
	return c.journalOpener
}

// GetMap returns the memory map that sessions bind
func (c *Container) GetMap() *memmap.Map {
	return c.memoryMap
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetMemoryOpener allows overriding the memory opener (for testing)
func (c *Container) SetMemoryOpener(opener MemoryOpener) {
	c.memoryOpener = opener
}

// SetJournalOpener allows overriding the journal opener (for testing)
func (c *Container) SetJournalOpener(opener JournalOpener) {
	c.journalOpener = opener
}

// SetMap replaces the memory map, e.g. with one built from a label file
func (c *Container) SetMap(m *memmap.Map) {
	c.memoryMap = m
}

// Session is an opened memory image bound to the memory map
type Session struct {
	Accessor *memmap.Accessor
	// Journal is nil when the journal is disabled
	Journal *journal.Journal

	closers []func() error
}

// Close releases the journal and the memory image
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// History returns the journal as an api.History, or nil when disabled
func (s *Session) History() api.History {
	if s.Journal == nil {
		return nil
	}
	return s.Journal
}

// OpenSession opens the memory image and journal described by cfg
func (c *Container) OpenSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	logger := logging.Logger()

	mem, release, err := c.memoryOpener.OpenMemory(ctx, cfg.Memory)
	if err != nil {
		return nil, err
	}
	s := &Session{closers: []func() error{release}}

	var codecOpts []codec.Option
	if cfg.Codec.LenientStrings {
		codecOpts = append(codecOpts, codec.WithLenientStrings())
	}
	opts := []memmap.AccessorOption{
		memmap.WithCodec(codec.NewLayoutCodec(codecOpts...)),
		memmap.WithLogger(logger),
	}

	if cfg.Journal.Enabled {
		j, err := c.journalOpener.OpenJournal(cfg.Journal)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Journal = j
		s.closers = append(s.closers, j.Close)
		opts = append(opts, memmap.WithObserver(j))
	}

	s.Accessor, err = memmap.NewAccessor(c.memoryMap, mem, opts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Debug("session opened",
		zap.String("memory", cfg.Memory.Path),
		zap.String("backend", cfg.Memory.Backend),
		zap.Bool("journal", s.Journal != nil))
	return s, nil
}

// DefaultMemoryOpener opens snapshot files and wasm guests
type DefaultMemoryOpener struct{}

// OpenMemory implements MemoryOpener
func (DefaultMemoryOpener) OpenMemory(ctx context.Context, cfg config.Memory) (memory.Memory, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		f, err := memory.OpenFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil

	case config.BackendWasm:
		binary, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read wasm module: %w", err)
		}
		g, err := memory.LoadWasm(ctx, binary, cfg.Export, cfg.Offset, cfg.Size)
		if err != nil {
			return nil, nil, err
		}
		return g, func() error { return g.Close(context.Background()) }, nil
	}

	return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
}

// DefaultJournalOpener opens a pebble journal on disk
type DefaultJournalOpener struct{}

// OpenJournal implements JournalOpener
func (DefaultJournalOpener) OpenJournal(cfg config.Journal) (*journal.Journal, error) {
	var opts []journal.Option
	if cfg.Sync {
		opts = append(opts, journal.WithSync())
	}
	return journal.Open(cfg.Dir, opts...)
}

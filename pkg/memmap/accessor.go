package memmap

import (
	"bytes"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/logging"
	"github.com/ssargent/savelayout/pkg/memory"
)

// Observer is told about every region write after it lands in memory
type Observer interface {
	RegionWritten(region string, before, after []byte) error
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(region string, before, after []byte) error

func (f ObserverFunc) RegionWritten(region string, before, after []byte) error {
	return f(region, before, after)
}

// AccessorOption configures an Accessor
type AccessorOption func(*Accessor)

// WithCodec sets the codec used for records; the default is strict
func WithCodec(c *codec.LayoutCodec) AccessorOption {
	return func(a *Accessor) {
		a.codec = c
	}
}

// WithObserver adds an observer for region writes
func WithObserver(o Observer) AccessorOption {
	return func(a *Accessor) {
		a.observers = append(a.observers, o)
	}
}

// WithLogger sets the logger; the default is logging.Logger()
func WithLogger(l *zap.Logger) AccessorOption {
	return func(a *Accessor) {
		a.logger = l
	}
}

// Accessor reads and writes records of a Map inside a Memory.
// Writes are serialized so read-modify-write updates never interleave.
type Accessor struct {
	mu        sync.Mutex
	m         *Map
	mem       memory.Memory
	codec     *codec.LayoutCodec
	observers []Observer
	logger    *zap.Logger
}

// NewAccessor binds m to mem. Every region must fit inside mem.
func NewAccessor(m *Map, mem memory.Memory, opts ...AccessorOption) (*Accessor, error) {
	if _, hi := m.Extent(); hi > mem.Size() {
		return nil, fmt.Errorf("%w: map ends at %#x, memory holds %#x bytes", ErrRegionTooLarge, hi, mem.Size())
	}

	a := &Accessor{
		m:      m,
		mem:    mem,
		codec:  codec.NewLayoutCodec(),
		logger: logging.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Map returns the region map
func (a *Accessor) Map() *Map {
	return a.m
}

// Memory returns the backing memory
func (a *Accessor) Memory() memory.Memory {
	return a.mem
}

// Codec returns the codec used for records
func (a *Accessor) Codec() *codec.LayoutCodec {
	return a.codec
}

func (a *Accessor) region(name string) (Region, error) {
	r, ok := a.m.Lookup(name)
	if !ok {
		return Region{}, fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
	return r, nil
}

func (a *Accessor) readRaw(r Region) ([]byte, error) {
	buf := make([]byte, r.Size())
	if err := a.mem.ReadAt(buf, r.Base); err != nil {
		return nil, fmt.Errorf("failed to read region %s: %w", r.Name, err)
	}
	return buf, nil
}

// ReadRaw returns a copy of the region bytes
func (a *Accessor) ReadRaw(name string) ([]byte, error) {
	r, err := a.region(name)
	if err != nil {
		return nil, err
	}
	return a.readRaw(r)
}

// Read decodes the region
func (a *Accessor) Read(name string) (codec.Record, error) {
	r, err := a.region(name)
	if err != nil {
		return codec.Record{}, err
	}
	buf, err := a.readRaw(r)
	if err != nil {
		return codec.Record{}, err
	}
	return a.codec.Decode(r.Schema, buf)
}

// Write encodes rec over the current region bytes. Bytes that no field
// covers keep their contents.
func (a *Accessor) Write(name string, rec codec.Record) error {
	r, err := a.region(name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	before, err := a.readRaw(r)
	if err != nil {
		return err
	}
	after, err := a.codec.Patch(r.Schema, rec, before)
	if err != nil {
		return err
	}
	return a.commit(r, before, after)
}

// WriteRaw replaces the region bytes verbatim
func (a *Accessor) WriteRaw(name string, buf []byte) error {
	r, err := a.region(name)
	if err != nil {
		return err
	}
	if len(buf) != int(r.Size()) {
		return fmt.Errorf("region %s: %w", name,
			&codec.Error{Kind: codec.LengthMismatch, Schema: r.Schema.Name(),
				Detail: fmt.Sprintf("buffer is %d bytes, region holds %d", len(buf), r.Size())})
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	before, err := a.readRaw(r)
	if err != nil {
		return err
	}
	return a.commit(r, before, bytes.Clone(buf))
}

// Set changes one field and writes the region back
func (a *Accessor) Set(name, field string, v codec.Value) (codec.Record, error) {
	return a.Update(name, map[string]codec.Value{field: v})
}

// Update merges values into the decoded region and writes it back.
// Every key must name a field of the region's schema.
func (a *Accessor) Update(name string, values map[string]codec.Value) (codec.Record, error) {
	r, err := a.region(name)
	if err != nil {
		return codec.Record{}, err
	}
	for field := range values {
		if _, ok := r.Schema.Field(field); !ok {
			return codec.Record{}, &codec.Error{Kind: codec.UnknownField, Schema: r.Schema.Name(),
				Field: field, Detail: "no such field"}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	before, err := a.readRaw(r)
	if err != nil {
		return codec.Record{}, err
	}
	rec, err := a.codec.Decode(r.Schema, before)
	if err != nil {
		return codec.Record{}, err
	}
	for field, v := range values {
		rec = rec.With(field, v)
	}

	after, err := a.codec.Patch(r.Schema, rec, before)
	if err != nil {
		return codec.Record{}, err
	}
	if err := a.commit(r, before, after); err != nil {
		return codec.Record{}, err
	}
	return rec, nil
}

func (a *Accessor) commit(r Region, before, after []byte) error {
	if err := a.mem.WriteAt(after, r.Base); err != nil {
		return fmt.Errorf("failed to write region %s: %w", r.Name, err)
	}

	a.logger.Debug("region written",
		zap.String("region", r.Name),
		zap.Uint32("base", r.Base),
		zap.Bool("changed", !bytes.Equal(before, after)))

	for _, o := range a.observers {
		if err := o.RegionWritten(r.Name, before, after); err != nil {
			a.logger.Warn("write observer failed", zap.String("region", r.Name), zap.Error(err))
			return fmt.Errorf("region %s written but not recorded: %w", r.Name, err)
		}
	}
	return nil
}

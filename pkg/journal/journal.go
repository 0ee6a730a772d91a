// Package journal keeps the history of region writes in a pebble database
// so earlier states of a record can be listed and restored.
//
// Keys are "<region>/<ksuid>". KSUIDs sort by creation time, so a prefix
// scan in reverse yields the newest entries first. Values are the raw
// region bytes after the write.
package journal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/savelayout/pkg/logging"
)

const separator = '/'

var (
	ErrNotFound      = errors.New("journal: entry not found")
	ErrInvalidRegion = errors.New("journal: invalid region name")
)

// Entry is one journaled region state
type Entry struct {
	ID     ksuid.KSUID `json:"id"`
	Region string      `json:"region"`
	Time   time.Time   `json:"time"`
	Data   []byte      `json:"data"`
}

// Option configures a Journal
type Option func(*options)

type options struct {
	fs     vfs.FS
	sync   bool
	logger *zap.Logger
}

// WithFS opens the database on fs, e.g. vfs.NewMem() in tests
func WithFS(fs vfs.FS) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithSync makes every append durable before it returns
func WithSync() Option {
	return func(o *options) {
		o.sync = true
	}
}

// WithLogger sets the logger; the default is logging.Logger()
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Journal is a pebble-backed, append-only history of region states
type Journal struct {
	mu     sync.Mutex
	db     *pebble.DB
	wo     *pebble.WriteOptions
	logger *zap.Logger
}

// Open opens or creates a journal in dir
func Open(dir string, opts ...Option) (*Journal, error) {
	o := options{logger: logging.Logger()}
	for _, opt := range opts {
		opt(&o)
	}

	popts := &pebble.Options{}
	if o.fs != nil {
		popts.FS = o.fs
	}

	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	wo := pebble.NoSync
	if o.sync {
		wo = pebble.Sync
	}

	return &Journal{db: db, wo: wo, logger: o.logger}, nil
}

func validRegion(region string) error {
	if region == "" || strings.IndexByte(region, separator) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}
	return nil
}

func entryKey(region string, id ksuid.KSUID) []byte {
	return append([]byte(region+string(separator)), id.String()...)
}

// prefixBounds returns the iterator bounds covering every key of region
func prefixBounds(region string) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(region + string(separator)),
		UpperBound: []byte(region + string(separator+1)),
	}
}

func parseEntry(key, value []byte) (Entry, error) {
	i := bytes.LastIndexByte(key, separator)
	if i < 0 {
		return Entry{}, fmt.Errorf("journal: malformed key %q", key)
	}
	id, err := ksuid.Parse(string(key[i+1:]))
	if err != nil {
		return Entry{}, fmt.Errorf("journal: malformed key %q: %w", key, err)
	}
	return Entry{
		ID:     id,
		Region: string(key[:i]),
		Time:   id.Time(),
		Data:   bytes.Clone(value),
	}, nil
}

// Append stores buf as the newest state of region
func (j *Journal) Append(region string, buf []byte) (ksuid.KSUID, error) {
	if err := validRegion(region); err != nil {
		return ksuid.Nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	id := ksuid.New()
	last, err := j.latest(region)
	switch {
	case err == nil:
		// ids within one second are random; keep them ordered
		if ksuid.Compare(id, last.ID) <= 0 {
			id = last.ID.Next()
		}
	case !errors.Is(err, ErrNotFound):
		return ksuid.Nil, err
	}

	if err := j.db.Set(entryKey(region, id), buf, j.wo); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to append to journal: %w", err)
	}

	j.logger.Debug("journal append",
		zap.String("region", region),
		zap.Stringer("id", id),
		zap.Int("bytes", len(buf)))

	return id, nil
}

// Get returns one entry of region
func (j *Journal) Get(region string, id ksuid.KSUID) (Entry, error) {
	if err := validRegion(region); err != nil {
		return Entry{}, err
	}

	key := entryKey(region, id)
	value, closer, err := j.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, region, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read journal: %w", err)
	}
	defer closer.Close()

	return parseEntry(key, value)
}

// Latest returns the newest entry of region
func (j *Journal) Latest(region string) (Entry, error) {
	if err := validRegion(region); err != nil {
		return Entry{}, err
	}
	return j.latest(region)
}

func (j *Journal) latest(region string) (Entry, error) {
	entries, err := j.history(region, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%w: %s has no history", ErrNotFound, region)
	}
	return entries[0], nil
}

// History returns up to limit entries of region, newest first.
// A limit of zero or less returns every entry.
func (j *Journal) History(region string, limit int) ([]Entry, error) {
	if err := validRegion(region); err != nil {
		return nil, err
	}
	return j.history(region, limit)
}

func (j *Journal) history(region string, limit int) ([]Entry, error) {
	iter, err := j.db.NewIter(prefixBounds(region))
	if err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for valid := iter.Last(); valid; valid = iter.Prev() {
		e, err := parseEntry(iter.Key(), iter.Value())
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	return entries, nil
}

// RegionWritten journals an accessor write. The first write of a region
// also records the state it replaced so it can be restored.
func (j *Journal) RegionWritten(region string, before, after []byte) error {
	last, err := j.Latest(region)
	switch {
	case errors.Is(err, ErrNotFound):
		if _, err := j.Append(region, before); err != nil {
			return err
		}
		if bytes.Equal(before, after) {
			return nil
		}
	case err != nil:
		return err
	case bytes.Equal(last.Data, after):
		return nil
	}

	_, err = j.Append(region, after)
	return err
}

// Close flushes and closes the database
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

// Package memmap places record schemas at base addresses inside a memory
// image and reads and writes whole records through a codec.
package memmap

import (
	"errors"
	"fmt"

	"github.com/google/btree"

	"github.com/ssargent/savelayout/pkg/codec"
)

var (
	ErrUnknownRegion   = errors.New("memmap: unknown region")
	ErrDuplicateRegion = errors.New("memmap: duplicate region")
	ErrRegionOverlap   = errors.New("memmap: regions overlap")
	ErrInvalidRegion   = errors.New("memmap: invalid region")
	ErrRegionTooLarge  = errors.New("memmap: region exceeds memory size")
)

// Region is one record instance at a fixed base address
type Region struct {
	Name   string
	Base   uint32
	Schema *codec.Schema
}

// Size returns the record length in bytes
func (r Region) Size() uint32 {
	return uint32(r.Schema.Size())
}

// End returns the address one past the last byte of the region
func (r Region) End() uint32 {
	return r.Base + r.Size()
}

// Contains reports whether addr falls inside the region
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Base && addr < r.End()
}

func regionLess(a, b Region) bool {
	return a.Base < b.Base
}

// Map is an immutable, validated set of non-overlapping regions
type Map struct {
	byName map[string]Region
	byBase *btree.BTreeG[Region]
}

// NewMap validates regions and builds a map
func NewMap(regions ...Region) (*Map, error) {
	m := &Map{
		byName: make(map[string]Region, len(regions)),
		byBase: btree.NewG[Region](8, regionLess),
	}

	for _, r := range regions {
		if err := m.add(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustMap is like NewMap but panics on an invalid region set
func MustMap(regions ...Region) *Map {
	m, err := NewMap(regions...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Map) add(r Region) error {
	if r.Name == "" || r.Schema == nil {
		return fmt.Errorf("%w: region at %#x needs a name and a schema", ErrInvalidRegion, r.Base)
	}
	if uint64(r.Base)+uint64(r.Schema.Size()) > 1<<32 {
		return fmt.Errorf("%w: %s does not fit a 32-bit address space", ErrInvalidRegion, r.Name)
	}
	if _, dup := m.byName[r.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRegion, r.Name)
	}

	var clash *Region
	m.byBase.DescendLessOrEqual(r, func(prev Region) bool {
		if prev.End() > r.Base {
			clash = &prev
		}
		return false
	})
	if clash == nil {
		m.byBase.AscendGreaterOrEqual(r, func(next Region) bool {
			if next.Base < r.End() {
				clash = &next
			}
			return false
		})
	}
	if clash != nil {
		return fmt.Errorf("%w: %s [%#x,%#x) and %s [%#x,%#x)", ErrRegionOverlap,
			r.Name, r.Base, r.End(), clash.Name, clash.Base, clash.End())
	}

	m.byName[r.Name] = r
	m.byBase.ReplaceOrInsert(r)
	return nil
}

// Len returns the number of regions
func (m *Map) Len() int {
	return len(m.byName)
}

// Lookup finds a region by name
func (m *Map) Lookup(name string) (Region, bool) {
	r, ok := m.byName[name]
	return r, ok
}

// Containing finds the region that covers addr
func (m *Map) Containing(addr uint32) (Region, bool) {
	var found Region
	ok := false
	m.byBase.DescendLessOrEqual(Region{Base: addr}, func(r Region) bool {
		found, ok = r, r.Contains(addr)
		return false
	})
	return found, ok
}

// Regions returns every region ordered by base address
func (m *Map) Regions() []Region {
	out := make([]Region, 0, m.byBase.Len())
	m.byBase.Ascend(func(r Region) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Extent returns the lowest and one-past-highest mapped addresses
func (m *Map) Extent() (lo, hi uint32) {
	if first, ok := m.byBase.Min(); ok {
		lo = first.Base
	}
	if last, ok := m.byBase.Max(); ok {
		hi = last.End()
	}
	return lo, hi
}

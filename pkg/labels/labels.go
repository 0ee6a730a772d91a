// Package labels imports Mesen work-RAM label files (.mlb) and turns the
// labelled address ranges into memory-map regions with generated schemas.
//
// A label line has the form
//
//	SnesWorkRam:AAAA[-BBBB]:Name:Description
//
// Labels are grouped by name: Hero_* into Hero, Party_<n>_* into
// PartyMember_<n>, Gold and Bag_Items into Inventory and everything else
// into SystemData. Field types are guessed from the label name.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

// NameTerminator is the string terminator assumed for name labels
const NameTerminator = 0xAC

var (
	linePattern  = regexp.MustCompile(`^SnesWorkRam:([0-9A-Fa-f]{4})(?:-([0-9A-Fa-f]{4}))?:([^:]+):(.+)$`)
	partyPattern = regexp.MustCompile(`Party_(\d+)_`)
)

// Entry is one parsed label
type Entry struct {
	Line        int
	Start       uint32
	End         uint32 // inclusive
	Name        string
	Description string
}

// Size returns the number of labelled bytes
func (e Entry) Size() int {
	return int(e.End-e.Start) + 1
}

// Result is the outcome of an import
type Result struct {
	Entries  []Entry
	Regions  []memmap.Region
	Skipped  int      // non-blank lines that are not work-RAM labels
	Warnings []string // labels dropped while building schemas
}

// Map validates the imported regions as a memory map
func (r *Result) Map() (*memmap.Map, error) {
	return memmap.NewMap(r.Regions...)
}

// ParseFile imports the label file at path
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads labels from r and builds one region per group
func Parse(r io.Reader) (*Result, error) {
	res := &Result{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}

		e, ok := parseLine(text)
		if !ok {
			res.Skipped++
			continue
		}
		e.Line = line
		res.Entries = append(res.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	groups := make(map[string][]Entry)
	for _, e := range res.Entries {
		g := Group(e.Name)
		groups[g] = append(groups[g], e)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	for _, g := range names {
		region, warnings, err := buildRegion(g, groups[g])
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, warnings...)
		res.Regions = append(res.Regions, region)
	}

	sort.Slice(res.Regions, func(i, j int) bool {
		return res.Regions[i].Base < res.Regions[j].Base
	})

	return res, nil
}

func parseLine(text string) (Entry, bool) {
	m := linePattern.FindStringSubmatch(text)
	if m == nil {
		return Entry{}, false
	}

	start, _ := strconv.ParseUint(m[1], 16, 32)
	end := start
	if m[2] != "" {
		end, _ = strconv.ParseUint(m[2], 16, 32)
		if end < start {
			return Entry{}, false
		}
	}

	return Entry{
		Start:       uint32(start),
		End:         uint32(end),
		Name:        m[3],
		Description: strings.ReplaceAll(m[4], `\n`, " "),
	}, true
}

// Group returns the structure a label belongs to
func Group(name string) string {
	switch {
	case strings.Contains(name, "Hero_"):
		return "Hero"
	case strings.Contains(name, "Party_"):
		if m := partyPattern.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			return fmt.Sprintf("PartyMember_%d", n)
		}
		return "Party_Generic"
	case strings.Contains(name, "Gold"), strings.Contains(name, "Bag_Items"):
		return "Inventory"
	default:
		return "SystemData"
	}
}

// FieldName strips the group prefix from a label name
func FieldName(label string) string {
	if i := strings.Index(label, "Hero_"); i >= 0 {
		if rest := label[i+len("Hero_"):]; rest != "" {
			return rest
		}
	}
	if loc := partyPattern.FindStringIndex(label); loc != nil {
		if rest := label[loc[1]:]; rest != "" {
			return rest
		}
	}
	return label
}

func intField(name string, offset, size int) codec.FieldSpec {
	switch size {
	case 1:
		return codec.Uint8(name, offset)
	case 2:
		return codec.Uint16(name, offset)
	case 4:
		return codec.Uint32(name, offset)
	}
	return codec.ByteArray(name, offset, size)
}

// InferField guesses the field type of a label from its name and description.
// Name labels become terminated strings. Other labels of 1, 2 or 4 bytes
// become unsigned integers and wider ones byte arrays.
func InferField(name string, offset int, e Entry) codec.FieldSpec {
	lname := strings.ToLower(e.Name)
	ldesc := strings.ToLower(e.Description)
	size := e.Size()

	numeric := strings.Contains(lname, "level") || strings.Contains(ldesc, "level") ||
		strings.Contains(lname, "hp") || strings.Contains(lname, "mp") ||
		strings.Contains(lname, "xp") || strings.Contains(ldesc, "experience") ||
		strings.Contains(ldesc, "stat") || containsAny(lname, "strength", "agility", "stamina", "wisdom", "luck") ||
		strings.Contains(lname, "amount") || strings.Contains(ldesc, "number")

	f := intField(name, offset, size)
	if !numeric && strings.Contains(lname, "name") {
		f = codec.Text(name, offset, size, NameTerminator)
	}

	return f.Describe(e.Description)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func buildRegion(group string, entries []Entry) (memmap.Region, []string, error) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start < entries[j].Start
	})

	base := entries[0].Start
	end := entries[0].End
	for _, e := range entries {
		if e.End > end {
			end = e.End
		}
	}
	size := int(end-base) + 1

	var (
		fields   []codec.FieldSpec
		warnings []string
		taken    = make(map[string]bool)
		literal  = make(map[string]bool, len(entries))
		next     = 0
	)
	for _, e := range entries {
		literal[FieldName(e.Name)] = true
	}
	for _, e := range entries {
		offset := int(e.Start - base)
		if offset < next {
			warnings = append(warnings, fmt.Sprintf("line %d: %s overlaps an earlier label in %s, skipped", e.Line, e.Name, group))
			continue
		}

		name := uniqueName(FieldName(e.Name), taken, literal)
		taken[name] = true

		fields = append(fields, InferField(name, offset, e))
		next = offset + e.Size()
	}

	schema, err := codec.NewSchema(strings.ToLower(group), size, fields...)
	if err != nil {
		return memmap.Region{}, nil, fmt.Errorf("failed to build schema for %s: %w", group, err)
	}

	return memmap.Region{Name: group, Base: base, Schema: schema}, warnings, nil
}

// uniqueName suffixes a repeated name with _2, _3 and so on, skipping
// suffixes already taken or spelled out by another label in the group.
func uniqueName(name string, taken, literal map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !taken[candidate] && !literal[candidate] {
			return candidate
		}
	}
}

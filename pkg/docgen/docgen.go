// Package docgen renders memory-map regions as C headers, a Markdown data
// dictionary and JSON.
package docgen

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

// Format selects an output format
type Format string

const (
	FormatC        Format = "c"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatC, FormatMarkdown, FormatJSON:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "h", "header":
		return FormatC, nil
	}
	return "", fmt.Errorf("unknown format %q: must be c, md or json", s)
}

// FieldDoc describes one field for rendering
type FieldDoc struct {
	Name        string `json:"name"`
	Offset      int    `json:"offset"`
	Address     uint32 `json:"address"`
	Size        int    `json:"size"`
	Type        string `json:"type"`
	Mask        uint32 `json:"mask,omitempty"`
	Shift       uint   `json:"shift,omitempty"`
	Opaque      bool   `json:"opaque,omitempty"`
	Description string `json:"description,omitempty"`
}

// RegionDoc describes one region for rendering
type RegionDoc struct {
	Name     string         `json:"name"`
	Layout   string         `json:"layout"`
	Base     uint32         `json:"base_address"`
	Size     int            `json:"size"`
	Coverage float64        `json:"coverage"`
	Fields   []FieldDoc     `json:"fields"`
	Gaps     []codec.Extent `json:"gaps"`
}

// Describe builds the rendering model of a region. Fields are ordered by
// offset; sub-fields of one container by shift.
func Describe(r memmap.Region) RegionDoc {
	fields := r.Schema.Fields()
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Offset != fields[j].Offset {
			return fields[i].Offset < fields[j].Offset
		}
		return fields[i].Shift < fields[j].Shift
	})

	doc := RegionDoc{
		Name:     r.Name,
		Layout:   r.Schema.Name(),
		Base:     r.Base,
		Size:     r.Schema.Size(),
		Coverage: r.Schema.Coverage(),
		Gaps:     r.Schema.Gaps(),
		Fields:   make([]FieldDoc, 0, len(fields)),
	}
	if doc.Gaps == nil {
		doc.Gaps = []codec.Extent{}
	}

	for _, f := range fields {
		doc.Fields = append(doc.Fields, FieldDoc{
			Name:        f.Name,
			Offset:      f.Offset,
			Address:     r.Base + uint32(f.Offset),
			Size:        f.Width,
			Type:        f.TypeName(),
			Mask:        f.Mask,
			Shift:       f.Shift,
			Opaque:      f.Opaque,
			Description: f.Doc,
		})
	}
	return doc
}

// Render writes regions to w in format
func Render(w io.Writer, format Format, regions []memmap.Region) error {
	switch format {
	case FormatC:
		for i, r := range regions {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if err := CHeader(w, r); err != nil {
				return err
			}
		}
		return nil
	case FormatMarkdown:
		return Markdown(w, regions)
	case FormatJSON:
		return JSON(w, regions)
	}
	return fmt.Errorf("unknown format %q", format)
}

// JSON writes the region models as an indented JSON array
func JSON(w io.Writer, regions []memmap.Region) error {
	docs := make([]RegionDoc, 0, len(regions))
	for _, r := range regions {
		docs = append(docs, Describe(r))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Ident turns a name into a C identifier
func Ident(name string) string {
	id := unsafeIdent.ReplaceAllString(name, "_")
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "_" + id
	}
	return id
}

// HeaderName returns the file name of a region's C header
func HeaderName(r memmap.Region) string {
	return strings.ToLower(Ident(r.Name)) + ".h"
}

// WriteHeaders writes one C header per region into dir and returns the paths
func WriteHeaders(dir string, regions []memmap.Region) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create header directory: %w", err)
	}

	paths := make([]string, 0, len(regions))
	for _, r := range regions {
		path := filepath.Join(dir, HeaderName(r))
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create header: %w", err)
		}
		if err := CHeader(f, r); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to render %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	opaqueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
)

// colorEnabled reports whether w is a terminal
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) printer {
	return printer{w: w, color: colorEnabled(w)}
}

func (p printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputRegions displays the memory map
func (p printer) outputRegions(regions []memmap.Region) error {
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, p.style(headerStyle, "REGION\tLAYOUT\tBASE\tSIZE\tCOVERAGE"))
	for _, r := range regions {
		fmt.Fprintf(w, "%s\t%s\t$%04X\t%d\t%.1f%%\n",
			r.Name, r.Schema.Name(), r.Base, r.Size(), r.Schema.Coverage())
	}
	return w.Flush()
}

// outputRecord displays a decoded record in field order
func (p printer) outputRecord(r memmap.Region, rec codec.Record) error {
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, p.style(headerStyle, "ADDR\tOFFSET\tFIELD\tTYPE\tVALUE"))
	for _, f := range r.Schema.Fields() {
		v, ok := rec.Get(f.Name)
		if !ok {
			continue
		}
		line := fmt.Sprintf("$%04X\t+%02X\t%s\t%s\t%s",
			r.Base+uint32(f.Offset), f.Offset, f.Name, f.TypeName(), v)
		if f.Opaque {
			line = p.style(opaqueStyle, line)
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func (p printer) warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(warnStyle, fmt.Sprintf(format, args...)))
}

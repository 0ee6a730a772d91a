// Package tui is a terminal editor for the regions of a memory map.
package tui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	opaqueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateRegions modelState = iota
	stateFields
	stateEdit
)

type recordMsg struct {
	rec codec.Record
	err error
}

type writtenMsg struct {
	field string
	rec   codec.Record
	err   error
}

// Model browses regions, shows decoded fields and edits one field at a time.
// Edits are written through the accessor, so observers such as the journal
// see them.
type Model struct {
	accessor *memmap.Accessor
	regions  []memmap.Region

	state    modelState
	selected int
	fieldIdx int

	record codec.Record
	fields []codec.FieldSpec
	input  textinput.Model

	status string
	err    error
}

// New creates a model over every region of the accessor's map
func New(accessor *memmap.Accessor) *Model {
	return &Model{
		accessor: accessor,
		regions:  accessor.Map().Regions(),
		state:    stateRegions,
	}
}

// Run starts the editor on the alternate screen
func Run(accessor *memmap.Accessor) error {
	p := tea.NewProgram(New(accessor), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) region() memmap.Region {
	return m.regions[m.selected]
}

func (m *Model) loadRecord() tea.Msg {
	rec, err := m.accessor.Read(m.region().Name)
	return recordMsg{rec: rec, err: err}
}

func (m *Model) writeField(f codec.FieldSpec, text string) tea.Cmd {
	region := m.region().Name
	return func() tea.Msg {
		v, err := codec.ParseValue(f, text)
		if err != nil {
			return writtenMsg{field: f.Name, err: err}
		}
		rec, err := m.accessor.Set(region, f.Name, v)
		return writtenMsg{field: f.Name, rec: rec, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateEdit {
			return m.updateEdit(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			m.move(-1)

		case "down", "j":
			m.move(1)

		case "enter":
			switch m.state {
			case stateRegions:
				if len(m.regions) == 0 {
					return m, nil
				}
				m.status, m.err = "", nil
				return m, m.loadRecord
			case stateFields:
				if m.err == nil && len(m.fields) > 0 {
					return m, m.startEdit()
				}
			}

		case "r":
			if m.state == stateFields {
				return m, m.loadRecord
			}

		case "esc":
			if m.state == stateFields {
				m.state = stateRegions
				m.status, m.err = "", nil
			}
		}

	case recordMsg:
		m.state = stateFields
		m.fields = m.region().Schema.Fields()
		m.record, m.err = msg.rec, msg.err
		if m.fieldIdx >= len(m.fields) {
			m.fieldIdx = 0
		}

	case writtenMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.record = msg.rec
		m.err = nil
		m.status = fmt.Sprintf("%s.%s written", m.region().Name, msg.field)
	}

	return m, nil
}

func (m *Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateFields
		return m, nil
	case "enter":
		m.state = stateFields
		return m, m.writeField(m.fields[m.fieldIdx], m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) move(delta int) {
	switch m.state {
	case stateRegions:
		m.selected = clamp(m.selected+delta, len(m.regions))
	case stateFields:
		m.fieldIdx = clamp(m.fieldIdx+delta, len(m.fields))
	}
}

func clamp(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *Model) startEdit() tea.Cmd {
	f := m.fields[m.fieldIdx]

	ti := textinput.New()
	ti.Prompt = f.Name + ": "
	ti.Placeholder = f.TypeName()
	ti.Width = 70
	switch f.Kind {
	case codec.FieldBytes:
		ti.CharLimit = 3 * f.Width
	case codec.FieldString:
		ti.CharLimit = f.Width
	}
	if v, ok := m.record.Get(f.Name); ok {
		ti.SetValue(editText(v))
	}
	m.input = ti
	m.state = stateEdit
	m.status, m.err = "", nil
	return m.input.Focus()
}

// editText renders v the way ParseValue reads it back
func editText(v codec.Value) string {
	switch v.Kind() {
	case codec.FieldBytes:
		return hex.EncodeToString(v.Bytes())
	case codec.FieldString:
		return v.Text()
	}
	return v.String()
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("savelayout"))
	b.WriteString("\n\n")

	switch m.state {
	case stateRegions:
		b.WriteString("Select a region:\n\n")
		for i, r := range m.regions {
			line := fmt.Sprintf("%-16s %s  $%04X  %d bytes", r.Name, typeStyle.Render(r.Schema.Name()), r.Base, r.Size())
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateFields, stateEdit:
		r := m.region()
		fmt.Fprintf(&b, "%s  %s at $%04X\n\n", nameStyle.Render(r.Name), typeStyle.Render(r.Schema.Name()), r.Base)
		if m.err != nil && m.record.Len() == 0 {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("r reload • esc back • q quit"))
			return b.String()
		}
		for i, f := range m.fields {
			b.WriteString(m.fieldLine(i, f))
			b.WriteString("\n")
		}
		b.WriteString("\n")

		if m.state == stateEdit {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter write • esc cancel"))
			return b.String()
		}

		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		case m.status != "":
			b.WriteString(statusStyle.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit • r reload • esc back • q quit"))
	}

	return b.String()
}

func (m *Model) fieldLine(i int, f codec.FieldSpec) string {
	value := "-"
	if v, ok := m.record.Get(f.Name); ok {
		value = v.String()
	}
	line := fmt.Sprintf("+%02X  %-14s %-10s %s", f.Offset, f.Name, f.TypeName(), value)

	switch {
	case i == m.fieldIdx:
		return selectedStyle.Render("> " + line)
	case f.Opaque:
		return opaqueStyle.Render("  " + line)
	}
	return "  " + line
}

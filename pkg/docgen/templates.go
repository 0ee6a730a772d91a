package docgen

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

var funcs = template.FuncMap{
	"hex2": func(v int) string { return fmt.Sprintf("%02X", v) },
	"hex4": func(v uint32) string { return fmt.Sprintf("%04X", v) },
	"pct":  func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"cell": func(s string) string {
		return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
	},
	"anchor": func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
	},
}

var headerTmpl = template.Must(template.New("header").Funcs(funcs).Parse(`/* {{.Name}} Data Structure */
/* Generated by savelayout */
/* Base Address: ${{hex4 .Base}} */
/* Size: {{.Size}} bytes */

#ifndef {{.Macro}}_H
#define {{.Macro}}_H

#include <stdint.h>

#define {{.Macro}}_BASE_ADDR 0x{{hex4 .Base}}
#define {{.Macro}}_SIZE {{.Size}}

#pragma pack(push, 1)
typedef struct {
{{- range .Members}}
	{{.Decl}};{{if .Comment}} /* {{.Comment}} */{{end}}
{{- end}}
} {{.Type}};
#pragma pack(pop)

_Static_assert(sizeof({{.Type}}) == {{.Macro}}_SIZE, "{{.Type}} layout");

#endif /* {{.Macro}}_H */
`))

var markdownTmpl = template.Must(template.New("markdown").Funcs(funcs).Parse(`# Data Dictionary

| Region | Base | Size | Layout | Coverage |
|--------|------|------|--------|----------|
{{- range .}}
| [{{.Name}}](#{{anchor .Name}}) | ${{hex4 .Base}} | {{.Size}} | {{.Layout}} | {{pct .Coverage}} |
{{- end}}
{{range .}}
## {{.Name}}

Base address ` + "`${{hex4 .Base}}`" + `, {{.Size}} bytes, layout ` + "`{{.Layout}}`" + `, {{pct .Coverage}} documented.

| Offset | Address | Size | Type | Field | Description |
|--------|---------|------|------|-------|-------------|
{{- range .Fields}}
| 0x{{hex2 .Offset}} | ${{hex4 .Address}} | {{.Size}} | ` + "`{{.Type}}`" + ` | {{.Name}}{{if .Opaque}} (opaque){{end}} | {{cell .Description}} |
{{- end}}
{{if .Gaps}}
Undocumented gaps:
{{range .Gaps}}
- offset 0x{{hex2 .Offset}}, {{.Size}} bytes
{{- end}}
{{end}}
{{- end}}`))

// Markdown writes a data dictionary covering every region
func Markdown(w io.Writer, regions []memmap.Region) error {
	docs := make([]RegionDoc, 0, len(regions))
	for _, r := range regions {
		docs = append(docs, Describe(r))
	}
	return markdownTmpl.Execute(w, docs)
}

type cMember struct {
	Decl    string
	Comment string
}

type cHeader struct {
	Name    string
	Macro   string
	Type    string
	Base    uint32
	Size    int
	Members []cMember
}

// CHeader writes a packed C struct for the region
func CHeader(w io.Writer, r memmap.Region) error {
	ident := Ident(r.Name)
	h := cHeader{
		Name:    r.Name,
		Macro:   strings.ToUpper(ident),
		Type:    ident + "_t",
		Base:    r.Base,
		Size:    r.Schema.Size(),
		Members: cMembers(r.Schema),
	}
	return headerTmpl.Execute(w, h)
}

func cComment(s string) string {
	return strings.NewReplacer("*/", "* /", "\n", " ").Replace(s)
}

func cInt(width int, signed bool) string {
	if signed {
		return fmt.Sprintf("int%d_t", width*8)
	}
	return fmt.Sprintf("uint%d_t", width*8)
}

func gapMember(offset, size int) cMember {
	if size == 1 {
		return cMember{Decl: fmt.Sprintf("uint8_t reserved_%02X", offset), Comment: "undocumented"}
	}
	return cMember{Decl: fmt.Sprintf("uint8_t reserved_%02X[%d]", offset, size), Comment: "undocumented"}
}

// cMembers lays the schema out as struct members, filling gaps with
// reserved arrays and unused container bits with unnamed bit-fields.
func cMembers(s *codec.Schema) []cMember {
	fields := s.Fields()
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Offset != fields[j].Offset {
			return fields[i].Offset < fields[j].Offset
		}
		return fields[i].Shift < fields[j].Shift
	})

	var members []cMember
	pos := 0
	for i := 0; i < len(fields); {
		f := fields[i]
		if f.Offset > pos {
			members = append(members, gapMember(pos, f.Offset-pos))
		}

		if f.IsBitField() {
			ctype := cInt(f.Width, false)
			bit := 0
			for ; i < len(fields) && fields[i].Offset == f.Offset; i++ {
				sub := fields[i]
				if int(sub.Shift) > bit {
					members = append(members, cMember{Decl: fmt.Sprintf("%s : %d", ctype, int(sub.Shift)-bit)})
				}
				members = append(members, cMember{
					Decl:    fmt.Sprintf("%s %s : %d", cInt(sub.Width, sub.Signed), Ident(sub.Name), sub.BitWidth()),
					Comment: cComment(sub.Doc),
				})
				bit = int(sub.Shift) + sub.BitWidth()
			}
			if rest := f.Width*8 - bit; rest > 0 {
				members = append(members, cMember{Decl: fmt.Sprintf("%s : %d", ctype, rest)})
			}
			pos = f.End()
			continue
		}

		var decl string
		switch f.Kind {
		case codec.FieldInt:
			decl = fmt.Sprintf("%s %s", cInt(f.Width, f.Signed), Ident(f.Name))
		case codec.FieldString:
			decl = fmt.Sprintf("char %s[%d]", Ident(f.Name), f.Width)
		default:
			decl = fmt.Sprintf("uint8_t %s[%d]", Ident(f.Name), f.Width)
		}
		members = append(members, cMember{Decl: decl, Comment: cComment(f.Doc)})
		pos = f.End()
		i++
	}

	if pos < s.Size() {
		members = append(members, gapMember(pos, s.Size()-pos))
	}
	return members
}

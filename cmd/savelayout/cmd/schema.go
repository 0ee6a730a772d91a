package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/docgen"
	"github.com/ssargent/savelayout/pkg/memmap"
)

func newSchemaCmd() *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema [region|layout...]",
		Short: "Document record layouts as C headers, Markdown or JSON",
		Long: `Render the layout of the named regions, or of every region when none is
given. A layout name selects the first region using that layout.

Examples:
  savelayout schema Hero --format c
  savelayout schema companion --format md
  savelayout schema --out ./headers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")
			outDir, _ := cmd.Flags().GetString("out")

			regions, err := selectRegions(container.GetMap(), args)
			if err != nil {
				return err
			}

			if outDir != "" {
				paths, err := docgen.WriteHeaders(outDir, regions)
				if err != nil {
					return err
				}
				for _, path := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}

			format, err := docgen.ParseFormat(formatName)
			if err != nil {
				return err
			}
			return docgen.Render(cmd.OutOrStdout(), format, regions)
		},
	}
	schemaCmd.Flags().StringP("format", "f", "md", "Output format: c, md or json")
	schemaCmd.Flags().StringP("out", "o", "", "Write one C header per region into this directory")
	return schemaCmd
}

// selectRegions resolves region or layout names against m
func selectRegions(m *memmap.Map, names []string) ([]memmap.Region, error) {
	all := m.Regions()
	if len(names) == 0 {
		return all, nil
	}

	out := make([]memmap.Region, 0, len(names))
	for _, name := range names {
		if r, ok := m.Lookup(name); ok {
			out = append(out, r)
			continue
		}
		found := false
		for _, r := range all {
			if r.Schema.Name() == name {
				out = append(out, r)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", memmap.ErrUnknownRegion, name)
		}
	}
	return out, nil
}

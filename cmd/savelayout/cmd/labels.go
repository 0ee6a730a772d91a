package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/docgen"
	"github.com/ssargent/savelayout/pkg/labels"
)

func newLabelsCmd() *cobra.Command {
	labelsCmd := &cobra.Command{
		Use:   "labels <file.mlb>",
		Short: "Import a Mesen label file and document the regions it describes",
		Long: `Parse the work-RAM labels of a Mesen .mlb file, group them into regions
and render the generated layouts.

Examples:
  savelayout labels dq3.mlb
  savelayout labels dq3.mlb --format c
  savelayout labels dq3.mlb --out ./headers`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")
			outDir, _ := cmd.Flags().GetString("out")

			res, err := labels.ParseFile(args[0])
			if err != nil {
				return err
			}

			errOut := newPrinter(cmd.ErrOrStderr())
			for _, w := range res.Warnings {
				errOut.warn("warning: %s", w)
			}
			if _, err := res.Map(); err != nil {
				return fmt.Errorf("label file %s: %w", args[0], err)
			}
			fmt.Fprintf(errOut.w, "%d labels in %d regions, %d lines skipped\n",
				len(res.Entries), len(res.Regions), res.Skipped)

			if outDir != "" {
				paths, err := docgen.WriteHeaders(outDir, res.Regions)
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
			return docgen.Render(cmd.OutOrStdout(), format, res.Regions)
		},
	}
	labelsCmd.Flags().StringP("format", "f", "md", "Output format: c, md or json")
	labelsCmd.Flags().StringP("out", "o", "", "Write one C header per region into this directory")
	return labelsCmd
}

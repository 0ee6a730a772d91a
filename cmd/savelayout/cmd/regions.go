package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/docgen"
)

func newRegionsCmd() *cobra.Command {
	regionsCmd := &cobra.Command{
		Use:   "regions",
		Short: "List the regions of the memory map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			regions := container.GetMap().Regions()
			p := newPrinter(cmd.OutOrStdout())
			if asJSON {
				return docgen.JSON(p.w, regions)
			}
			return p.outputRegions(regions)
		},
	}
	regionsCmd.Flags().Bool("json", false, "Print the full region model as JSON")
	return regionsCmd
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/tui"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Browse and edit regions in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(s.Accessor)
		},
	}
}

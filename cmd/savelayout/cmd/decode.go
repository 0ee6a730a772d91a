package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode <region>",
		Short: "Decode a region of the memory image",
		Long: `Decode a region and print its fields in layout order.

Examples:
  savelayout decode Hero
  savelayout decode PartyMember_5 --json
  savelayout decode Inventory --raw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			raw, _ := cmd.Flags().GetBool("raw")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			p := newPrinter(cmd.OutOrStdout())
			if raw {
				buf, err := s.Accessor.ReadRaw(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(p.w, "% x\n", buf)
				return nil
			}

			rec, err := s.Accessor.Read(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return p.json(rec)
			}
			r, _ := s.Accessor.Map().Lookup(args[0])
			return p.outputRecord(r, rec)
		},
	}
	decodeCmd.Flags().Bool("json", false, "Print the record as JSON")
	decodeCmd.Flags().Bool("raw", false, "Print the region bytes in hex")
	return decodeCmd
}

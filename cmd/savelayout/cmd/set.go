package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <region> <field>=<value>...",
		Short: "Change fields of a region",
		Long: `Decode a region, replace the named fields and write it back. Bytes no
field covers keep their contents.

Integers accept 42, 0x2a or -3. Byte arrays are hex. Strings are taken as is.

Examples:
  savelayout set Hero HP=90 MP=30
  savelayout set PartyMember_2 Name=KAI
  savelayout set Inventory Items=0102030000`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			region, ok := s.Accessor.Map().Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", memmap.ErrUnknownRegion, args[0])
			}

			values, err := parseAssignments(region.Schema, args[1:])
			if err != nil {
				return err
			}

			rec, err := s.Accessor.Update(region.Name, values)
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout()).outputRecord(region, rec)
		},
	}
}

func parseAssignments(s *codec.Schema, args []string) (map[string]codec.Value, error) {
	values := make(map[string]codec.Value, len(args))
	for _, arg := range args {
		name, text, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected <field>=<value>, got %q", arg)
		}
		f, ok := s.Field(name)
		if !ok {
			return nil, &codec.Error{Kind: codec.UnknownField, Schema: s.Name(), Field: name, Detail: "no such field"}
		}
		v, err := codec.ParseValue(f, text)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

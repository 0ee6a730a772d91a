package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/di"
	"github.com/ssargent/savelayout/pkg/memmap"
)

var errJournalDisabled = errors.New("the journal is disabled in the configuration")

func openJournaled(cmd *cobra.Command) (*di.Session, error) {
	s, err := openSession(cmd)
	if err != nil {
		return nil, err
	}
	if s.Journal == nil {
		s.Close()
		return nil, errJournalDisabled
	}
	return s, nil
}

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history <region>",
		Short: "List journaled states of a region, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := openJournaled(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, ok := s.Accessor.Map().Lookup(args[0]); !ok {
				return fmt.Errorf("%w: %s", memmap.ErrUnknownRegion, args[0])
			}

			entries, err := s.Journal.History(args[0], limit)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			if len(entries) == 0 {
				fmt.Fprintf(p.w, "No history for %s\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, p.style(headerStyle, "ID\tTIME\tSIZE"))
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\n", e.ID, e.Time.Local().Format(time.RFC3339), len(e.Data))
			}
			return w.Flush()
		},
	}
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries, 0 for all")
	return historyCmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <region> <id>",
		Short: "Write a journaled state back over a region",
		Long: `Write the bytes of a journal entry back over the region. The restore is
itself journaled, so it can be undone the same way.

Example:
  savelayout history Hero
  savelayout restore Hero 2QnRbyNYhNqgWcpXLWEm5hAi2Kj`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ksuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[1], err)
			}

			s, err := openJournaled(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.Journal.Get(args[0], id)
			if err != nil {
				return err
			}
			if err := s.Accessor.WriteRaw(args[0], entry.Data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to %s (%s)\n",
				args[0], id, entry.Time.Local().Format(time.RFC3339))
			return nil
		},
	}
}

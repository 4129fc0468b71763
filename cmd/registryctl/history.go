package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"modelregistry/internal/ledger"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		format string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkFormat(format); err != nil {
				return err
			}
			switch ledger.Driver(a.cfg.Ledger.Driver) {
			case "", ledger.DriverNone:
				return a.usagef("history needs ledger.driver set to sqlite or postgres")
			}
			s, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			entries, err := s.ledger.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []ledger.Entry{}
			}
			return render(cmd.OutOrStdout(), format, entries, func(w io.Writer) error {
				return printHistory(w, entries)
			})
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 for all)")
	return cmd
}

func printHistory(w io.Writer, entries []ledger.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tVERSION\tOUTCOME\tMSE\tPREVIOUS")
	for _, e := range entries {
		prev := e.PreviousVersion
		if prev == "" {
			prev = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Version, e.Outcome, e.MSE, prev)
	}
	return tw.Flush()
}

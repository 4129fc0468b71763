package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"modelregistry/internal/registry"
)

func (a *app) statusCmd() *cobra.Command {
	var (
		format string
		check  bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the champion, backups, challengers and leftovers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkFormat(format); err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			st, err := s.reg.Status(cmd.Context())
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), format, st, func(w io.Writer) error {
				return printStatus(w, st)
			}); err != nil {
				return err
			}
			if check && !st.Healthy() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&check, "check", false, "exit non-zero unless a champion exists and there are no warnings")
	return cmd
}

func printStatus(w io.Writer, st registry.Status) error {
	var b strings.Builder
	fmt.Fprintf(&b, "driver: %s\n", st.Driver)
	if st.Champion != nil {
		fmt.Fprintf(&b, "champion: %s (mse %g)\n", st.Champion.Version, st.Champion.MSE)
	} else {
		b.WriteString("champion: none\n")
	}
	fmt.Fprintf(&b, "backups: %d\n", len(st.Backups))
	for _, v := range st.Backups {
		fmt.Fprintf(&b, "  %s\n", v)
	}
	fmt.Fprintf(&b, "challengers: %d\n", len(st.Challengers))
	for _, v := range st.Challengers {
		fmt.Fprintf(&b, "  %s\n", v)
	}
	for _, warn := range st.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", warn)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"modelregistry/internal/artifact"
	"modelregistry/internal/registry"
)

type championView struct {
	Version string            `json:"version" yaml:"version"`
	MSE     float64           `json:"mse" yaml:"mse"`
	Weights []artifact.Weight `json:"weights" yaml:"weights"`
}

func (a *app) championCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "champion",
		Short: "Print the champion's metadata and weights",
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

			meta, weights, err := s.reg.Champion(cmd.Context())
			if errors.Is(err, registry.ErrNoChampion) {
				return &exitError{code: 4, msg: "no champion model"}
			}
			if err != nil {
				return err
			}
			view := championView{Version: meta.Version, MSE: meta.MSE, Weights: weights.Entries()}
			return render(cmd.OutOrStdout(), format, view, func(w io.Writer) error {
				if _, err := fmt.Fprintf(w, "# version %s mse %g\n", meta.Version, meta.MSE); err != nil {
					return err
				}
				data, err := artifact.EncodeWeights(weights)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			})
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

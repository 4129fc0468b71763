package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"modelregistry/internal/artifact"
	"modelregistry/internal/registry"
)

func (a *app) submitCmd() *cobra.Command {
	var (
		weightsPath string
		metric      float64
		format      string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a weights CSV with its error metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkFormat(format); err != nil {
				return err
			}
			if weightsPath == "" {
				return a.usagef("--weights is required")
			}
			if !cmd.Flags().Changed("metric") {
				return a.usagef("--metric is required")
			}
			data, err := os.ReadFile(weightsPath)
			if err != nil {
				return eris.Wrapf(err, "read weights %s", weightsPath)
			}
			weights, err := artifact.DecodeWeights(data)
			if err != nil {
				return eris.Wrapf(err, "decode weights %s", weightsPath)
			}
			return a.submit(cmd, weights, metric, format)
		},
	}
	cmd.Flags().StringVar(&weightsPath, "weights", "", "weights CSV (feature,weight or parameter,value)")
	cmd.Flags().Float64Var(&metric, "metric", math.NaN(), "error metric of the candidate, lower is better")
	addFormatFlag(cmd, &format)
	return cmd
}

// submit hands a candidate to the registry and prints the result. A result
// with an outcome is printed even when err is set, since only a ledger failure
// can follow a durable write.
func (a *app) submit(cmd *cobra.Command, weights artifact.WeightSet, metric float64, format string) error {
	s, err := a.open(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res, err := s.reg.Submit(cmd.Context(), weights, metric)
	if res.Outcome != 0 {
		if rerr := render(cmd.OutOrStdout(), format, res, func(w io.Writer) error {
			return printResult(w, res)
		}); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

func printResult(w io.Writer, res registry.Result) error {
	_, err := fmt.Fprintf(w, "%s\nversion: %s\noutcome: %s\nmetric: %g\nchampion metric: %g\nstored as: %s\n",
		res.Message, res.Version, res.Outcome, res.Metric, res.ChampionMetric, res.Role)
	if err == nil && res.PreviousVersion != "" {
		_, err = fmt.Fprintf(w, "previous champion: %s\n", res.PreviousVersion)
	}
	return err
}

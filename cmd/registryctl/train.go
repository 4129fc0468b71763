package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modelregistry/internal/artifact"
	"modelregistry/internal/training"
)

const defaultTrendTarget = "value"

type trainFlags struct {
	dataDir         string
	features        []string
	target          string
	timestampColumn string
	output          string
	dryRun          bool
	format          string
}

func (a *app) trainCmd() *cobra.Command {
	var f trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a linear model on CSV data and submit it",
		Long: "Loads every *.csv under --data, fits ordinary least squares and submits the\n" +
			"weights with their in-sample MSE. Without --features the target is regressed\n" +
			"on the timestamp column.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkFormat(f.format); err != nil {
				return err
			}
			if f.dataDir == "" {
				return a.usagef("--data is required")
			}
			if len(f.features) > 0 && f.target == "" {
				return a.usagef("--target is required with --features")
			}
			return a.train(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.dataDir, "data", "", "directory of CSV files")
	cmd.Flags().StringSliceVar(&f.features, "features", nil, "feature columns (empty fits a time trend)")
	cmd.Flags().StringVar(&f.target, "target", "", "target column (default \"value\" for a time trend)")
	cmd.Flags().StringVar(&f.timestampColumn, "timestamp-column", training.DefaultTimestampColumn, "column used to order rows")
	cmd.Flags().StringVar(&f.output, "output", "", "also write the weights CSV to this file")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "fit and print the model without submitting")
	addFormatFlag(cmd, &f.format)
	return cmd
}

func (a *app) train(cmd *cobra.Command, f trainFlags) error {
	model, err := fitModel(f)
	if err != nil {
		return err
	}
	weights, err := model.Weights()
	if err != nil {
		return eris.Wrap(err, "build weights")
	}
	a.log.Info("model fitted",
		zap.Strings("features", model.Features),
		zap.Int("samples", model.Samples),
		zap.Float64("mse", model.MSE),
	)

	if f.output != "" {
		if err := writeWeights(f.output, weights, model.Dialect); err != nil {
			return err
		}
	}
	if f.dryRun {
		return render(cmd.OutOrStdout(), f.format, fittedModel{Samples: model.Samples, MSE: model.MSE, Weights: weights.Entries()}, func(w io.Writer) error {
			if _, err := fmt.Fprintf(w, "samples: %d\nmse: %g\n", model.Samples, model.MSE); err != nil {
				return err
			}
			data, err := artifact.EncodeWeightsDialect(weights, model.Dialect)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		})
	}
	return a.submit(cmd, weights, model.MSE, f.format)
}

type fittedModel struct {
	Samples int               `json:"samples" yaml:"samples"`
	MSE     float64           `json:"mse" yaml:"mse"`
	Weights []artifact.Weight `json:"weights" yaml:"weights"`
}

func fitModel(f trainFlags) (training.Model, error) {
	if len(f.features) == 0 {
		target := f.target
		if target == "" {
			target = defaultTrendTarget
		}
		ds, err := training.LoadDir(f.dataDir, training.LoadOptions{
			TimestampColumn: f.timestampColumn,
			Required:        []string{f.timestampColumn, target},
		})
		if err != nil {
			return training.Model{}, err
		}
		return training.FitTimeTrend(ds, f.timestampColumn, target)
	}

	required := append(append([]string(nil), f.features...), f.target)
	ds, err := training.LoadDir(f.dataDir, training.LoadOptions{
		TimestampColumn: f.timestampColumn,
		Required:        required,
	})
	if err != nil {
		return training.Model{}, err
	}
	return training.Fit(ds, f.features, f.target)
}

func writeWeights(path string, weights artifact.WeightSet, dialect artifact.Dialect) error {
	data, err := artifact.EncodeWeightsDialect(weights, dialect)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write weights %s", path)
	}
	return nil
}

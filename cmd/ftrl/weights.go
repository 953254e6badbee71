package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/plotting"
)

type weightsFlags struct {
	model    string
	output   string
	plotPath string
	bins     int
}

func newWeightsCommand(a *app) *cobra.Command {
	var fl weightsFlags

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Export the weights of a saved model as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			est, err := a.loadModel(fl.model)
			if err != nil {
				return err
			}
			defer est.Release()

			mw, err := est.ExportWeights()
			if err != nil {
				return err
			}
			data, err := mw.ToJSON()
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if fl.output == "" {
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return errors.Wrap(err, "write weights")
				}
			} else if err := os.WriteFile(fl.output, data, 0o644); err != nil {
				return errors.NewPersistenceError("weights", errors.KindWrite, fl.output, err)
			}

			if fl.plotPath != "" {
				w, _, err := est.Model().Weights()
				if err != nil {
					return err
				}
				p, err := plotting.WeightHistogram(w, fl.bins, "FTRL-Proximal weights")
				if err != nil {
					return err
				}
				return plotting.Save(p, fl.plotPath)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.model, "model", "m", "", "saved model")
	f.StringVarP(&fl.output, "output", "o", "", "write JSON here instead of stdout")
	f.StringVar(&fl.plotPath, "plot", "", "write a histogram of the non-zero weights to this image")
	f.IntVar(&fl.bins, "bins", 30, "histogram bins")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

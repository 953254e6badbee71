package main

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ftrl/pkg/dataset"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

type predictFlags struct {
	model  string
	data   string
	output string
	raw    bool
	labels bool
}

func newPredictCommand(a *app) *cobra.Command {
	var fl predictFlags

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a libsvm file with a saved model",
		Long: `Predict writes one value per input line: P(y=1) for classification models,
the predicted value for regression models. --raw prints the linear score instead,
--labels prints 0/1 decisions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPredict(cmd, fl)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.model, "model", "m", "", "saved model")
	f.StringVarP(&fl.data, "data", "d", "", "data in libsvm format (labels are ignored)")
	f.StringVarP(&fl.output, "output", "o", "", "write predictions here instead of stdout")
	f.BoolVar(&fl.raw, "raw", false, "print the linear score")
	f.BoolVar(&fl.labels, "labels", false, "print 0/1 labels (classification)")
	cmd.MarkFlagsMutuallyExclusive("raw", "labels")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (a *app) runPredict(cmd *cobra.Command, fl predictFlags) error {
	est, err := a.loadModel(fl.model)
	if err != nil {
		return err
	}
	defer est.Release()

	ds, err := dataset.Load(fl.data, a.datasetOptions(est.Model().NumFeatures())...)
	if err != nil {
		return err
	}

	var preds []float64
	switch {
	case fl.raw:
		preds, err = est.DecisionFunctionSparse(ds.X)
	case fl.labels:
		preds, err = est.PredictSparse(ds.X)
	default:
		preds, err = est.PredictProbaSparse(ds.X)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if fl.output != "" {
		f, err := os.Create(fl.output)
		if err != nil {
			return errors.NewPersistenceError("predict", errors.KindOpen, fl.output, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeValues(out, preds); err != nil {
		return err
	}
	a.logger.Info("predicted", log.PathKey, fl.data, log.PredsKey, len(preds))
	return nil
}

// writeValues prints one value per line with the shortest exact float64 form.
func writeValues(w io.Writer, values []float64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for _, v := range values {
		buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return errors.Wrap(err, "write predictions")
		}
	}
	return errors.Wrap(bw.Flush(), "write predictions")
}

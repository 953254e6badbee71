package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ftrl/linear/ftrl"
	"github.com/YuminosukeSato/ftrl/metrics"
	"github.com/YuminosukeSato/ftrl/pkg/dataset"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

// evalResult is one metric line.
type evalResult struct {
	name  string
	value float64
}

func newEvalCommand(a *app) *cobra.Command {
	var modelPath, dataPath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a saved model on labelled libsvm data",
		Long: `Eval prints AUC, log-loss and accuracy for classification models and
MSE, RMSE, MAE and R2 for regression models.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			est, err := a.loadModel(modelPath)
			if err != nil {
				return err
			}
			defer est.Release()

			ds, err := dataset.Load(dataPath, a.datasetOptions(est.Model().NumFeatures())...)
			if err != nil {
				return err
			}
			scores, err := est.PredictProbaSparse(ds.X)
			if err != nil {
				return err
			}

			results, err := evaluate(est.Model().Params().ModelType, ds.Y, scores)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "examples\t%d\n", len(scores))
			fields := []any{log.PathKey, dataPath, log.SamplesKey, len(scores)}
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%.6f\n", r.name, r.value)
				fields = append(fields, "metrics."+r.name, r.value)
			}
			a.logger.Info("evaluated", fields...)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&modelPath, "model", "m", "", "saved model")
	f.StringVarP(&dataPath, "data", "d", "", "labelled data in libsvm format")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// evaluate scores predictions against labels. scores are probabilities for
// classification and predicted values for regression.
func evaluate(mt ftrl.ModelType, labels []float32, scores []float64) ([]evalResult, error) {
	yTrue := metrics.Vec32(labels)
	yScore := metrics.Vec(scores)

	if mt == ftrl.Regression {
		mse, err := metrics.MSE(yTrue, yScore)
		if err != nil {
			return nil, err
		}
		rmse, err := metrics.RMSE(yTrue, yScore)
		if err != nil {
			return nil, err
		}
		mae, err := metrics.MAE(yTrue, yScore)
		if err != nil {
			return nil, err
		}
		r2, err := metrics.R2Score(yTrue, yScore)
		if err != nil {
			return nil, err
		}
		return []evalResult{{"mse", mse}, {"rmse", rmse}, {"mae", mae}, {"r2", r2}}, nil
	}

	auc, err := metrics.AUC(yTrue, yScore)
	if err != nil {
		return nil, err
	}
	ll, err := metrics.BinaryLogLoss(yTrue, yScore)
	if err != nil {
		return nil, err
	}
	acc, err := metrics.Accuracy(yTrue, metrics.Threshold(scores, 0.5))
	if err != nil {
		return nil, err
	}
	return []evalResult{{"auc", auc}, {"logloss", ll}, {"accuracy", acc}}, nil
}

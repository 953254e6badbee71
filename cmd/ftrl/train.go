package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ftrl/pkg/dataset"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
	"github.com/YuminosukeSato/ftrl/pkg/plotting"
	"github.com/YuminosukeSato/ftrl/pkg/telemetry"
	linear "github.com/YuminosukeSato/ftrl/sklearn/linear_model"
)

type trainFlags struct {
	data     string
	output   string
	init     string
	plotPath string
}

func newTrainCommand(a *app) *cobra.Command {
	var fl trainFlags

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on a libsvm file",
		Long: `Train runs the configured number of passes over --data and saves the model to --output.

With --init the saved model is loaded and training continues from its state;
its stored hyperparameters replace the configured ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTrain(cmd, fl)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&fl.data, "data", "d", "", "training data in libsvm format")
	f.StringVarP(&fl.output, "output", "o", "", "where to save the trained model")
	f.StringVar(&fl.init, "init", "", "continue training from this saved model")
	f.StringVar(&fl.plotPath, "plot", "", "write the per-pass loss curve to this image (png, svg, pdf)")
	f.Float32Var(&a.cfg.Model.Alpha, "alpha", a.cfg.Model.Alpha, "learning rate scale")
	f.Float32Var(&a.cfg.Model.Beta, "beta", a.cfg.Model.Beta, "learning rate smoothing")
	f.Float32Var(&a.cfg.Model.L1, "l1", a.cfg.Model.L1, "L1 regularization")
	f.Float32Var(&a.cfg.Model.L2, "l2", a.cfg.Model.L2, "L2 regularization")
	f.StringVar(&a.cfg.Model.ModelType, "model-type", a.cfg.Model.ModelType, "classification|regression")
	f.IntVarP(&a.cfg.Training.Passes, "passes", "p", a.cfg.Training.Passes, "passes over the data")
	f.BoolVar(&a.cfg.Training.Shuffle, "shuffle", a.cfg.Training.Shuffle, "shuffle the examples every pass")
	f.Int64Var(&a.cfg.Training.Seed, "seed", a.cfg.Training.Seed, "shuffle seed (< 0: from the clock)")
	f.StringVar(&a.cfg.Training.Concurrency, "concurrency", a.cfg.Training.Concurrency, "sequential|hogwild|sharded")
	f.StringVar(&a.cfg.Metrics.Listen, "metrics-listen", a.cfg.Metrics.Listen, "serve Prometheus metrics on this address while training")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) runTrain(cmd *cobra.Command, fl trainFlags) error {
	start := time.Now()
	collector := telemetry.NewCollector()
	stop, err := a.serveMetrics(collector)
	if err != nil {
		return err
	}
	defer stop()

	opts, err := a.estimatorOptions()
	if err != nil {
		return err
	}
	opts = append(opts, linear.WithObserver(collector))

	var (
		est *linear.FTRLProximal
		nf  int
	)
	if fl.init != "" {
		est, err = linear.LoadFTRLProximal(fl.init, append(opts, linear.WithWarmStart(true))...)
		if err != nil {
			return err
		}
		nf = est.Model().NumFeatures()
	}

	ds, err := dataset.Load(fl.data, a.datasetOptions(nf)...)
	if err != nil {
		return err
	}
	if ds.X.NumExamples == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s", fl.data)
	}
	if est == nil {
		est = linear.NewFTRLProximal(append(opts, linear.WithNumFeatures(ds.NumFeatures))...)
	}
	a.logger.Info("training",
		log.PathKey, fl.data,
		log.SamplesKey, ds.X.NumExamples,
		log.FeaturesKey, ds.NumFeatures,
		log.PassesKey, a.cfg.Training.Passes,
	)

	if err := est.FitSparse(ds.X, ds.Y); err != nil {
		return err
	}
	if err := collector.TrackModel("train", est.Model()); err != nil {
		return err
	}
	if err := est.Save(fl.output); err != nil {
		return err
	}

	if fl.plotPath != "" {
		p, err := plotting.LossCurve(est.LossHistory(), "FTRL-Proximal training loss")
		if err != nil {
			return err
		}
		if err := plotting.Save(p, fl.plotPath); err != nil {
			return err
		}
	}

	nz, err := est.Model().NonZeroWeights()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, loss := range est.LossHistory() {
		fmt.Fprintf(out, "pass %d\tloss %.6f\n", i+1, loss)
	}
	fmt.Fprintf(out, "saved %s\texamples %d\tfeatures %d\tnon_zero %d\telapsed %s\n",
		fl.output, ds.X.NumExamples, est.Model().NumFeatures(), nz, time.Since(start).Round(time.Millisecond))
	return nil
}

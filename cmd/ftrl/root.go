package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YuminosukeSato/ftrl/linear/ftrl"
	"github.com/YuminosukeSato/ftrl/pkg/dataset"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
	"github.com/YuminosukeSato/ftrl/pkg/telemetry"
	linear "github.com/YuminosukeSato/ftrl/sklearn/linear_model"
)

// app carries the state shared by all sub-commands of one invocation.
type app struct {
	configPath string
	cfg        Config
	logFile    io.Closer
	logger     log.Logger
}

// newRootCommand builds the command tree. Each call returns an independent tree.
func newRootCommand() *cobra.Command {
	a := &app{cfg: DefaultConfig()}

	root := &cobra.Command{
		Use:   "ftrl",
		Short: "Train and apply FTRL-Proximal models on libsvm data",
		Long: `ftrl trains sparse logistic or linear regression models with FTRL-Proximal.

Input files use the libsvm / svmlight text format. Models are stored in the
compact binary layout read by ftrl.Load.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&a.cfg.Logging.Level, "log-level", a.cfg.Logging.Level, "log level: debug|info|warn|error")
	pf.StringVar(&a.cfg.Logging.Format, "log-format", a.cfg.Logging.Format, "log format: json|console")
	pf.StringVar(&a.cfg.Logging.File, "log-file", a.cfg.Logging.File, "also write JSON logs to this rotated file")
	pf.BoolVar(&a.cfg.Data.ZeroBased, "zero-based", a.cfg.Data.ZeroBased, "feature indices in the data are 0-based")
	pf.BoolVar(&a.cfg.Data.Binary, "binary", a.cfg.Data.Binary, "ignore feature values, every listed feature is 1")
	pf.BoolVar(&a.cfg.Data.BinaryLabels, "binary-labels", a.cfg.Data.BinaryLabels, "map labels > 0 to 1 and the rest to 0")
	pf.IntVar(&a.cfg.Data.NumFeatures, "num-features", a.cfg.Data.NumFeatures, "feature dimension (0: inferred)")
	pf.IntVarP(&a.cfg.Training.Workers, "workers", "j", a.cfg.Training.Workers, "worker goroutines (0: GOMAXPROCS)")

	root.AddCommand(
		newTrainCommand(a),
		newPredictCommand(a),
		newWeightsCommand(a),
		newEvalCommand(a),
	)
	return root
}

// setup loads the config file, re-applies explicitly set flags on top of it
// and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return errors.Wrapf(err, "flag --%s", name)
		}
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	return a.setupLogging(cmd.ErrOrStderr())
}

func (a *app) setupLogging(stderr io.Writer) error {
	level, err := log.ParseLevel(a.cfg.Logging.Level)
	if err != nil {
		return err
	}

	out := stderr
	if lc := a.cfg.Logging; lc.File != "" {
		lj := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB, // megabytes
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays, // days
			Compress:   lc.Compress,
		}
		a.logFile = lj
		out = io.MultiWriter(stderr, lj)
	}
	if a.cfg.Logging.Format == "console" {
		log.SetProvider(log.NewConsoleProvider(out, level))
	} else {
		log.SetOutput(out)
		log.SetLevel(level)
	}
	a.logger = log.GetLoggerWithName("cli")
	return nil
}

func (a *app) close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

func (a *app) datasetOptions(numFeatures int) []dataset.Option {
	if numFeatures == 0 {
		numFeatures = a.cfg.Data.NumFeatures
	}
	return []dataset.Option{
		dataset.WithZeroBased(a.cfg.Data.ZeroBased),
		dataset.WithBinary(a.cfg.Data.Binary),
		dataset.WithBinaryLabels(a.cfg.Data.BinaryLabels),
		dataset.WithNumFeatures(numFeatures),
	}
}

// estimatorOptions maps the config onto the estimator.
func (a *app) estimatorOptions() ([]linear.FTRLOption, error) {
	params, err := a.cfg.Params()
	if err != nil {
		return nil, err
	}
	conc, err := ftrl.ParseConcurrency(a.cfg.Training.Concurrency)
	if err != nil {
		return nil, err
	}
	return []linear.FTRLOption{
		linear.WithAlpha(float64(params.Alpha)),
		linear.WithBeta(float64(params.Beta)),
		linear.WithL1(float64(params.L1)),
		linear.WithL2(float64(params.L2)),
		linear.WithModelType(params.ModelType),
		linear.WithNumPasses(a.cfg.Training.Passes),
		linear.WithShuffle(a.cfg.Training.Shuffle),
		linear.WithRandomState(a.cfg.Training.Seed),
		linear.WithNJobs(a.cfg.Training.Workers),
		linear.WithConcurrency(conc),
	}, nil
}

// loadModel restores a saved model for inference.
func (a *app) loadModel(path string) (*linear.FTRLProximal, error) {
	if path == "" {
		return nil, errors.NewValueError("ftrl", "--model is required")
	}
	return linear.LoadFTRLProximal(path, linear.WithNJobs(a.cfg.Training.Workers))
}

// serveMetrics exposes c on the configured listen address until the returned
// stop function is called. It is a no-op without an address.
func (a *app) serveMetrics(c *telemetry.Collector) (stop func(), err error) {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "metrics listen %s", addr)
	}

	path := a.cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String(), "path", path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

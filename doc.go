// Package ftrl is an FTRL-Proximal online learning library for Go, built for
// sparse, high-dimensional logistic and linear regression such as click-through
// rate prediction.
//
// Models learn one example at a time with per-feature adaptive learning rates
// and L1/L2 regularization. Data is held in compressed-sparse-row form and
// batches can be processed sequentially, Hogwild-style or in deterministic
// shards.
//
// # Installation
//
//	go get github.com/YuminosukeSato/ftrl
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/ftrl/core/sparse"
//	    "github.com/YuminosukeSato/ftrl/linear/ftrl"
//	)
//
//	func main() {
//	    b := sparse.NewBuilder(true)
//	    _ = b.AddRow([]int32{0, 2}, nil)
//	    _ = b.AddRow([]int32{1, 2}, nil)
//	    X, y := b.Build(), []float32{1, 0}
//
//	    m, err := ftrl.NewModel(ftrl.DefaultParams(), 3)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for pass := 0; pass < 10; pass++ {
//	        loss, err := m.FitBatch(X, y, ftrl.WithShuffle(true), ftrl.WithSeed(42))
//	        if err != nil {
//	            log.Fatal(err)
//	        }
//	        fmt.Println(pass, loss)
//	    }
//	    if err := m.Save("model.bin"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - linear/ftrl: update rule, model state, batch driver and persistence
//   - core/sparse: CSR matrices and sparse row views
//   - core/parallel: chunked worker fan-out
//   - core/model: estimator interfaces, state manager, weight export
//   - sklearn/linear_model: FTRLProximal, a scikit-learn style estimator over gonum matrices
//   - metrics: AUC, log-loss, accuracy, MSE, R²
//   - pkg/dataset: libsvm / svmlight reader
//   - pkg/telemetry: Prometheus metrics
//   - pkg/plotting: loss curves and weight histograms
//   - pkg/log, pkg/errors: structured logging and typed errors
//   - cmd/ftrl: command line trainer
//
// # scikit-learn Compatibility
//
//	est := linear_model.NewFTRLProximal(
//	    linear_model.WithAlpha(0.1),
//	    linear_model.WithL1(1),
//	    linear_model.WithNumPasses(5),
//	    linear_model.WithNJobs(-1), // use all CPU cores
//	    linear_model.WithConcurrency(ftrl.Sharded),
//	)
//
// # License
//
// Released under the MIT License.
package ftrl

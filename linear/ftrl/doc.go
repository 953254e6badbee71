// Package ftrl implements FTRL-Proximal (Follow-The-Regularized-Leader) online
// learning for sparse linear models, in logistic (classification) or linear
// (regression) form.
//
// For every feature the model keeps two accumulators, z and n, and derives the
// weight lazily from them, so the cost of one update is proportional to the
// number of active features of the example, not to the size of the feature
// space. L1 regularization zeroes weights whose |z| does not exceed l1.
//
//	m, err := ftrl.NewModel(ftrl.Params{Alpha: 0.1, Beta: 1}, numFeatures)
//	loss, err := m.FitBatch(X, y, ftrl.WithShuffle(true), ftrl.WithSeed(42))
//	scores, err := m.PredictBatch(X)
//
// # Concurrency
//
// A Model is owned by its caller. Fit, FitBatch, Save and Release must not run
// concurrently with each other. Inside one FitBatch call the driver can spread
// examples over several goroutines:
//
//   - Sequential (default): one goroutine; deterministic for a fixed seed.
//   - Hogwild: workers update the shared accumulators without locks. Each
//     accumulator is read and written with relaxed atomic word operations, so
//     no value is ever torn, but "read weight, then write accumulator" is not
//     atomic. Updates can be lost and a worker can use a weight another worker
//     has already superseded. This is accepted estimation noise, and results are
//     not reproducible even with a fixed seed.
//   - Sharded: each worker trains a private copy of the accumulators on its
//     chunk and the per-feature deltas are summed into the model after all
//     workers finish. Reproducible for a fixed seed and worker count, at the
//     cost of one model copy per worker.
//
// Prediction only refreshes the weight cache, which is a pure function of z and
// n, so PredictBatch may always run in parallel.
package ftrl

package linear_model

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ftrl/core/model"
	"github.com/YuminosukeSato/ftrl/core/sparse"
	"github.com/YuminosukeSato/ftrl/linear/ftrl"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

// separable returns rows alternating between feature 0 (label 1) and
// feature 1 (label 0), with an always-zero third column.
func separable(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X.Set(i, 0, 1)
			y.Set(i, 0, 1)
		} else {
			X.Set(i, 1, 1)
		}
	}
	return X, y
}

func linearData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(20, 1, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		x := float64(float32(i%5) / 5)
		X.Set(i, 0, x)
		y.Set(i, 0, 3*x+1)
	}
	return X, y
}

func TestFTRLProximal_Classification(t *testing.T) {
	X, y := separable(40)
	clf := NewFTRLProximal(WithAlpha(0.1), WithNumPasses(20), WithRandomState(1))

	require.NoError(t, clf.Fit(X, y))
	assert.True(t, clf.IsFitted())
	assert.Equal(t, 20, clf.NIterations())
	assert.Len(t, clf.LossHistory(), 20)
	assert.Equal(t, 3, clf.Model().NumFeatures(), "dense input keeps all-zero columns")

	acc, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	assert.Greater(t, proba.At(0, 1), 0.5)
	assert.Less(t, proba.At(1, 1), 0.5)

	scores, err := clf.DecisionFunction(X)
	require.NoError(t, err)
	assert.Greater(t, scores.At(0, 0), 0.0)
	assert.Less(t, scores.At(1, 0), 0.0)

	coef := clf.Coef()
	require.Len(t, coef, 3)
	assert.Greater(t, coef[0], 0.0)
	assert.Less(t, coef[1], 0.0)
	assert.Equal(t, 0.0, coef[2])

	first := clf.LossHistory()[0]
	assert.Less(t, clf.GetLoss(), first)
}

func TestFTRLProximal_Regression(t *testing.T) {
	X, y := linearData()
	reg := NewFTRLProximal(
		WithAlpha(0.5),
		WithModelType(ftrl.Regression),
		WithNumPasses(300),
		WithShuffle(false),
	)
	require.NoError(t, reg.Fit(X, y))

	r2, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.99)

	pred, err := reg.Predict(mat.NewDense(1, 1, []float64{0.5}))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, pred.At(0, 0), 0.05)

	_, err = reg.PredictProba(X)
	assert.Error(t, err)
}

func TestFTRLProximal_NotFitted(t *testing.T) {
	clf := NewFTRLProximal()
	X, _ := separable(2)

	_, err := clf.Predict(X)
	var nfe *errors.NotFittedError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "PredictProba", nfe.Method)

	_, err = clf.DecisionFunction(X)
	assert.True(t, errors.As(err, &nfe))
	assert.Error(t, clf.Save(filepath.Join(t.TempDir(), "m.bin")))
	_, err = clf.ExportWeights()
	assert.Error(t, err)
	assert.Empty(t, clf.GetWeightHash())
	assert.Nil(t, clf.Coef())
}

func TestFTRLProximal_InvalidInput(t *testing.T) {
	X, y := separable(4)

	tests := []struct {
		name string
		clf  *FTRLProximal
		X, y mat.Matrix
	}{
		{"zero alpha", NewFTRLProximal(WithAlpha(0)), X, y},
		{"negative l1", NewFTRLProximal(WithL1(-1)), X, y},
		{"zero passes", NewFTRLProximal(WithNumPasses(0)), X, y},
		{"label mismatch", NewFTRLProximal(), X, mat.NewDense(3, 1, nil)},
		{"label matrix not a column", NewFTRLProximal(), X, mat.NewDense(4, 2, nil)},
		{"label outside {0,1}", NewFTRLProximal(), X, mat.NewDense(4, 1, []float64{0, 1, 2, 1})},
		{"nil X", NewFTRLProximal(), nil, y},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.clf.Fit(tt.X, tt.y))
			assert.False(t, tt.clf.IsFitted())
		})
	}
}

func TestFTRLProximal_RejectedFitKeepsModel(t *testing.T) {
	b := sparse.NewBuilder(true)
	require.NoError(t, b.AddRow([]int32{0}, nil))
	require.NoError(t, b.AddRow([]int32{1}, nil))
	X := b.Build()

	clf := NewFTRLProximal(WithAlpha(0.5), WithNumPasses(3), WithRandomState(1))
	require.NoError(t, clf.FitSparse(X, []float32{1, 0}))
	before := clf.Coef()
	hash := clf.GetWeightHash()
	iters := clf.NIterations()

	tests := []struct {
		name string
		X    *sparse.CSR
		y    []float32
	}{
		{"label outside {0,1}", X, []float32{1, 7}},
		{"label count mismatch", X, []float32{1}},
		{"malformed CSR", &sparse.CSR{Columns: []int32{0}, Indptr: []int32{0, 2}, NumExamples: 1}, []float32{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, clf.FitSparse(tt.X, tt.y))
			assert.Error(t, clf.PartialFitSparse(tt.X, tt.y))

			assert.True(t, clf.IsFitted())
			assert.Equal(t, before, clf.Coef())
			assert.Equal(t, hash, clf.GetWeightHash())
			assert.Equal(t, iters, clf.NIterations())

			pred, err := clf.PredictSparse(X)
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 0}, pred)
		})
	}
}

func TestFTRLProximal_ReproducibleWithRandomState(t *testing.T) {
	X, y := separable(50)
	a := NewFTRLProximal(WithAlpha(0.1), WithNumPasses(5), WithRandomState(7))
	b := NewFTRLProximal(WithAlpha(0.1), WithNumPasses(5), WithRandomState(7))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.Coef(), b.Coef())
	assert.Equal(t, a.LossHistory(), b.LossHistory())
	assert.Equal(t, a.GetWeightHash(), b.GetWeightHash())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestFTRLProximal_PartialFitMatchesUnshuffledBatches(t *testing.T) {
	X, y := separable(10)
	Xs, labels, _, err := denseInput("test", X, y)
	require.NoError(t, err)

	clf := NewFTRLProximal(WithAlpha(0.1), WithNumFeatures(3))
	require.NoError(t, clf.PartialFit(X, y))
	require.NoError(t, clf.PartialFit(X, y))
	assert.Equal(t, 2, clf.NIterations())

	ref, err := ftrl.NewModel(ftrl.Params{Alpha: 0.1, Beta: 1}, 3)
	require.NoError(t, err)
	for k := 0; k < 2; k++ {
		_, err := ref.FitBatch(Xs, labels)
		require.NoError(t, err)
	}
	w, b, err := ref.Weights()
	require.NoError(t, err)

	coef := clf.Coef()
	for i := range w {
		assert.Equal(t, float64(w[i]), coef[i])
	}
	assert.Equal(t, float64(b), clf.Intercept())
}

func TestFTRLProximal_WarmStart(t *testing.T) {
	X, y := separable(20)

	cold := NewFTRLProximal(WithAlpha(0.1), WithRandomState(3))
	require.NoError(t, cold.Fit(X, y))
	require.NoError(t, cold.Fit(X, y))
	assert.Equal(t, 1, cold.NIterations())

	warm := NewFTRLProximal(WithAlpha(0.1), WithRandomState(3), WithWarmStart(true))
	assert.True(t, warm.IsWarmStart())
	require.NoError(t, warm.Fit(X, y))
	require.NoError(t, warm.Fit(X, y))
	assert.Equal(t, 2, warm.NIterations())
	assert.Len(t, warm.LossHistory(), 2)

	warm.SetWarmStart(false)
	assert.False(t, warm.IsWarmStart())
}

func TestFTRLProximal_SparseAndParallel(t *testing.T) {
	b := sparse.NewBuilder(true)
	var y []float32
	for i := 0; i < 400; i++ {
		if i%2 == 0 {
			require.NoError(t, b.AddRow([]int32{int32(i % 10)}, nil))
			y = append(y, 1)
		} else {
			require.NoError(t, b.AddRow([]int32{int32(10 + i%10)}, nil))
			y = append(y, 0)
		}
	}
	X := b.Build()

	for _, mode := range []ftrl.Concurrency{ftrl.Sequential, ftrl.Hogwild, ftrl.Sharded} {
		t.Run(mode.String(), func(t *testing.T) {
			clf := NewFTRLProximal(
				WithAlpha(0.1), WithNumPasses(5), WithRandomState(11),
				WithNJobs(4), WithConcurrency(mode),
			)
			require.NoError(t, clf.FitSparse(X, y))
			pred, err := clf.PredictSparse(X)
			require.NoError(t, err)
			for i, p := range pred {
				assert.Equal(t, float64(y[i]), p, "row %d", i)
			}
		})
	}
}

func TestFTRLProximal_SaveLoad(t *testing.T) {
	X, y := separable(30)
	clf := NewFTRLProximal(WithAlpha(0.2), WithL2(0.5), WithNumPasses(3), WithRandomState(5))
	require.NoError(t, clf.Fit(X, y))

	path := filepath.Join(t.TempDir(), "ftrl.bin")
	require.NoError(t, clf.Save(path))

	loaded, err := LoadFTRLProximal(path)
	require.NoError(t, err)
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, clf.Coef(), loaded.Coef())
	assert.Equal(t, clf.Intercept(), loaded.Intercept())
	assert.Equal(t, 0.5, loaded.GetParams()["l2"])

	want, err := clf.DecisionFunction(X)
	require.NoError(t, err)
	got, err := loaded.DecisionFunction(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	_, err = LoadFTRLProximal(filepath.Join(t.TempDir(), "missing.bin"))
	assert.True(t, errors.IsPersistenceKind(err, errors.KindOpen))
}

func TestFTRLProximal_ConcurrentLoadAndPredict(t *testing.T) {
	X, y := separable(30)
	clf := NewFTRLProximal(WithAlpha(0.2), WithNumPasses(3), WithRandomState(5))
	require.NoError(t, clf.Fit(X, y))
	path := filepath.Join(t.TempDir(), "ftrl.bin")
	require.NoError(t, clf.Save(path))
	want, err := clf.Predict(X)
	require.NoError(t, err)

	// 回帰として作った推定器でも Load 後は保存されたモデル種別で予測する
	est := NewFTRLProximal(WithModelType(ftrl.Regression))
	require.NoError(t, est.Load(path))

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			errs <- est.Load(path)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			got, err := est.Predict(X)
			if err == nil && !mat.Equal(want, got) {
				err = errors.New("prediction changed across Load")
			}
			errs <- err
			_, err = est.PredictProba(X)
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	acc, err := est.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestFTRLProximal_ExportWeights(t *testing.T) {
	X, y := separable(20)
	clf := NewFTRLProximal(WithAlpha(0.1), WithNumPasses(2), WithRandomState(2))
	require.NoError(t, clf.Fit(X, y))

	mw, err := clf.ExportWeights()
	require.NoError(t, err)
	require.NoError(t, mw.Validate())
	assert.Equal(t, "FTRLProximal", mw.ModelType)
	assert.Equal(t, 2, mw.Metadata["non_zero"])
	assert.Equal(t, "classification", mw.Hyperparameters["model_type"])

	data, err := json.Marshal(mw)
	require.NoError(t, err)
	var back model.ModelWeights
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, clf.GetWeightHash(), back.Checksum())
}

func TestFTRLProximal_FitStream(t *testing.T) {
	X, y := separable(10)
	Xs, labels, _, err := denseInput("test", X, y)
	require.NoError(t, err)

	clf := NewFTRLProximal(WithAlpha(0.1), WithNumFeatures(3))
	ch := make(chan *model.Batch, 4)
	for i := 0; i < 3; i++ {
		ch <- &model.Batch{X: Xs, Y: labels}
	}
	ch <- nil
	close(ch)

	require.NoError(t, clf.FitStream(context.Background(), ch))
	assert.Equal(t, 3, clf.NIterations())
	assert.Equal(t, int64(30), clf.state.SamplesSeen())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := make(chan *model.Batch)
	assert.ErrorIs(t, clf.FitStream(ctx, blocked), context.Canceled)

	bad := make(chan *model.Batch, 1)
	bad <- &model.Batch{X: Xs, Y: labels[:2]}
	close(bad)
	assert.Error(t, clf.FitStream(context.Background(), bad))
}

func TestFTRLProximal_PredictStream(t *testing.T) {
	X, y := separable(10)
	clf := NewFTRLProximal(WithAlpha(0.1), WithNumPasses(10), WithRandomState(1))
	require.NoError(t, clf.Fit(X, y))

	in := make(chan *sparse.CSR, 2)
	in <- sparse.FromDense(X)
	in <- &sparse.CSR{Indptr: []int32{0, 1}, Columns: []int32{99}, NumExamples: 1}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var results [][]float64
	for pred := range clf.PredictStream(ctx, in) {
		results = append(results, pred)
	}
	require.Len(t, results, 1, "the out-of-range batch is skipped")
	assert.Equal(t, []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 0}, results[0])
}

func TestFTRLProximal_Release(t *testing.T) {
	X, y := separable(4)
	clf := NewFTRLProximal()
	require.NoError(t, clf.Fit(X, y))
	clf.Release()
	assert.False(t, clf.IsFitted())
	assert.Nil(t, clf.Model())
	_, err := clf.Predict(X)
	assert.Error(t, err)
}

func TestFTRLProximal_Logging(t *testing.T) {
	prov, tl := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetProvider(prov)
	t.Cleanup(func() { log.SetProvider(log.NewZerologProvider(io.Discard, log.LevelInfo)) })

	X, y := separable(6)
	clf := NewFTRLProximal(WithNumPasses(2), WithRandomState(1))
	require.NoError(t, clf.Fit(X, y))

	assert.True(t, tl.ContainsMessage("fit completed"))
	assert.True(t, tl.ContainsMessage("pass completed"))
	assert.True(t, tl.ContainsField(log.EstimatorIDKey, clf.ID()))
	assert.True(t, tl.ContainsField(log.ModelNameKey, "FTRLProximal"))
}

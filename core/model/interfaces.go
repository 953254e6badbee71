package model

import (
	"github.com/YuminosukeSato/ftrl/core/sparse"
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習と予測の両方ができるモデル
type Estimator interface {
	Fitter
	Predictor
	IsFitted() bool
}

// SparseEstimator は CSR 行列を直接受け取るモデルのインターフェース
type SparseEstimator interface {
	// FitSparse はラベル y で CSR 行列 X を学習する
	FitSparse(X *sparse.CSR, y []float32) error
	// PredictSparse は各行の予測値を返す
	PredictSparse(X *sparse.CSR) ([]float64, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// IncrementalEstimator はオンライン学習（逐次学習）可能なモデルのインターフェース
// scikit-learnのpartial_fit APIと互換性を持つ
type IncrementalEstimator interface {
	Estimator

	// PartialFit はミニバッチで学習済みの状態から 1 パスだけ学習を続ける
	PartialFit(X, y mat.Matrix) error

	// NIterations は実行された学習パス数を返す
	NIterations() int

	// IsWarmStart が true の場合、Fit は既存の状態から学習を継続する
	IsWarmStart() bool

	// SetWarmStart はウォームスタートの有効/無効を設定
	SetWarmStart(warmStart bool)
}

// OnlineMetrics はオンライン学習中のメトリクスを追跡するインターフェース
type OnlineMetrics interface {
	// GetLoss は直近のパスの平均損失を返す
	GetLoss() float64

	// GetLossHistory はパスごとの平均損失の履歴を返す
	GetLossHistory() []float64

	// GetConverged は直近のパスで損失が増加しなかったかを返す
	GetConverged() bool
}

// Classifier combines interfaces for binary classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns [P(y=0), P(y=1)] for every row.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// DecisionFunction returns the raw linear score of every row.
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	Save(path string) error
	Load(path string) error
}

// WeightExporter は重みをエクスポート可能なモデルのインターフェース
type WeightExporter interface {
	ExportWeights() (*ModelWeights, error)
	GetWeightHash() string
}

package model

import (
	"context"

	"github.com/YuminosukeSato/ftrl/core/sparse"
)

// Batch represents a data batch for streaming learning.
type Batch struct {
	X *sparse.CSR // 特徴量
	Y []float32   // ラベル、X.NumExamples 個
}

// StreamingEstimator provides channel-based streaming learning interface.
type StreamingEstimator interface {
	// FitStream trains on every batch received from dataChan, one pass each.
	// Continues until the context is canceled or the channel is closed.
	FitStream(ctx context.Context, dataChan <-chan *Batch) error

	// PredictStream performs predictions on an input stream.
	// The output channel is closed when the input channel is closed or the
	// context is canceled.
	PredictStream(ctx context.Context, inputChan <-chan *sparse.CSR) <-chan []float64
}

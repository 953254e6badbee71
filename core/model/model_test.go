package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("FTRLProximal", "Predict")
	var nfe *errors.NotFittedError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "Predict", nfe.Method)

	s.SetNumFeatures(10)
	s.RecordPass(100)
	s.RecordPass(50)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("FTRLProximal", "Predict"))
	assert.Equal(t, 10, s.NumFeatures())
	assert.Equal(t, int64(150), s.SamplesSeen())
	assert.Equal(t, 2, s.NIterations())

	snapshot := s.GetState()
	s.Reset()
	assert.False(t, s.IsFitted())
	assert.Zero(t, s.NIterations())

	s.SetState(snapshot)
	assert.True(t, s.IsFitted())
	assert.Equal(t, int64(150), s.SamplesSeen())
}

func TestModelWeights(t *testing.T) {
	mw := &ModelWeights{
		ModelType:       "FTRLProximal",
		Version:         "1.0.0",
		Coefficients:    []float64{0, 0.5, 0, -1.25},
		Intercept:       0.1,
		Hyperparameters: map[string]interface{}{"alpha": 0.1},
		Metadata:        map[string]interface{}{"samples_seen": 3},
		IsFitted:        true,
	}
	require.NoError(t, mw.Validate())
	assert.Equal(t, 2, mw.NonZero())

	data, err := mw.ToJSON()
	require.NoError(t, err)
	var back ModelWeights
	require.NoError(t, back.FromJSON(data))
	assert.Equal(t, mw.Coefficients, back.Coefficients)
	assert.Equal(t, mw.Checksum(), back.Checksum())

	clone := mw.Clone()
	clone.Coefficients[0] = 9
	clone.Hyperparameters["alpha"] = 2.0
	assert.Equal(t, 0.0, mw.Coefficients[0])
	assert.Equal(t, 0.1, mw.Hyperparameters["alpha"])
	assert.NotEqual(t, mw.Checksum(), clone.Checksum())

	assert.Error(t, (&ModelWeights{Version: "1"}).Validate())
	assert.Error(t, (&ModelWeights{ModelType: "x", Version: "1", Coefficients: []float64{1}}).Validate())
	assert.Error(t, back.FromJSON([]byte("{")))
}

package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeatureIndexError(t *testing.T) {
	err := NewFeatureIndexError("FitBatch", 5, 5, 2)

	assert.Contains(t, err.Error(), "feature index out of range")
	assert.Contains(t, err.Error(), "row 2 has index 5")

	var fie *FeatureIndexError
	require.True(t, As(err, &fie))
	assert.Equal(t, 5, fie.Index)
	assert.Equal(t, 5, fie.NumFeatures)

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	assert.True(t, strings.Contains(formatted, "errors_test.go"), "stack trace should point at the caller")
}

func TestNewCSRStructureError(t *testing.T) {
	err := NewCSRStructureError("Validate", "indptr[%d]=%d is smaller than indptr[%d]=%d", 2, 1, 1, 3)
	assert.Equal(t, "ftrl: Validate: malformed CSR matrix: indptr[2]=1 is smaller than indptr[1]=3", err.Error())

	var cse *CSRStructureError
	assert.True(t, As(err, &cse))
}

func TestNewInvalidLabelError(t *testing.T) {
	err := NewInvalidLabelError("Fit", 0.5, 3)
	assert.Equal(t, "ftrl: Fit: invalid label 0.5 at row 3", err.Error())
}

func TestPersistenceError(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := NewPersistenceError("Load", KindRead, "/tmp/model.bin", cause)

	assert.Equal(t, `ftrl: Load: read failed for "/tmp/model.bin": unexpected EOF`, err.Error())
	assert.True(t, IsPersistenceKind(err, KindRead))
	assert.False(t, IsPersistenceKind(err, KindOpen))
	assert.True(t, Is(err, cause))

	wrapped := Wrap(err, "restoring checkpoint")
	assert.True(t, IsPersistenceKind(wrapped, KindRead))
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("FitBatch", 3, 2, 0)
	assert.Equal(t, "ftrl: FitBatch: dimension mismatch on axis 0 (rows). Expected 3, got 2", err.Error())
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("FTRLProximal", "Predict")
	assert.Equal(t, "ftrl: FTRLProximal: this model is not fitted yet. Call Fit() before using Predict()", err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("alpha", "must be positive", float32(0))
	var ve *ValidationError
	require.True(t, As(err, &ve))
	assert.Equal(t, "alpha", ve.ParamName)
}

func TestErrModelReleased(t *testing.T) {
	err := Wrap(ErrModelReleased, "Fit")
	assert.True(t, Is(err, ErrModelReleased))
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, CheckScalar("loss", 0.3, 1))
	assert.Error(t, CheckScalar("loss", math.NaN(), 1))
	assert.Error(t, CheckScalar("loss", math.Inf(1), 1))

	err := CheckNumericalStability("weights", []float64{1, 2, math.Inf(-1), 4, 5, 6, 7}, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at iteration 9")
	assert.Contains(t, err.Error(), "...")
}

func TestWarn_UsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })

	warningMutex.Lock()
	saved := zerologWarnFunc
	zerologWarnFunc = nil
	warningMutex.Unlock()
	t.Cleanup(func() { SetZerologWarnFunc(saved) })

	Warn(NewConvergenceWarning("FTRLProximal", 10, ""))
	require.Len(t, got, 1)
	assert.Equal(t, "FTRLProximal failed to converge after 10 iterations", got[0].Error())
}

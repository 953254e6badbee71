package ftrl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

func TestParams_Validate(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"regression", Params{Alpha: 0.1, Beta: 0, L1: 1, L2: 1, ModelType: Regression}, false},
		{"zero alpha", Params{Alpha: 0, Beta: 1}, true},
		{"negative alpha", Params{Alpha: -1, Beta: 1}, true},
		{"negative beta", Params{Alpha: 1, Beta: -0.1}, true},
		{"negative l1", Params{Alpha: 1, L1: -1}, true},
		{"negative l2", Params{Alpha: 1, L2: -1}, true},
		{"nan alpha", Params{Alpha: nan}, true},
		{"inf l2", Params{Alpha: 1, L2: inf}, true},
		{"unknown model type", Params{Alpha: 1, ModelType: 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestParseModelType(t *testing.T) {
	mt, err := ParseModelType("Regression")
	require.NoError(t, err)
	assert.Equal(t, Regression, mt)

	mt, err = ParseModelType(" classification ")
	require.NoError(t, err)
	assert.Equal(t, Classification, mt)

	_, err = ParseModelType("ranking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed classification, regression")

	var fromText ModelType
	require.NoError(t, fromText.UnmarshalText([]byte("regression")))
	assert.Equal(t, Regression, fromText)
	b, err := Classification.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "classification", string(b))
}

package plotting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestLossCurve_PNG(t *testing.T) {
	p, err := LossCurve([]float64{0.72, 0.61, 0.55, 0.53}, "training loss")
	require.NoError(t, err)
	assert.Equal(t, "training loss", p.Title.Text)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p, "png"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestLossCurve_Empty(t *testing.T) {
	_, err := LossCurve(nil, "x")
	assert.Error(t, err)
}

func TestWeightHistogram(t *testing.T) {
	p, err := WeightHistogram([]float32{0, -1.4, 0.3, 0.3, 0, 2}, 0, "weights")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p, "svg"))
	assert.Contains(t, buf.String(), "<svg")

	_, err = WeightHistogram([]float32{0, 0}, 10, "weights")
	assert.Error(t, err)
}

func TestWrite_UnknownFormat(t *testing.T) {
	p, err := LossCurve([]float64{1}, "x")
	require.NoError(t, err)
	assert.Error(t, Write(&bytes.Buffer{}, p, "bmp"))
}

func TestSave(t *testing.T) {
	p, err := LossCurve([]float64{0.5, 0.4}, "loss")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "loss.png")
	require.NoError(t, Save(p, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	assert.Error(t, Save(p, filepath.Join(t.TempDir(), "missing", "loss.png")))
}

// Package dataset reads sparse training data in the libsvm / svmlight text
// format into the CSR layout the FTRL engine consumes.
//
// Each line holds a label followed by index:value pairs:
//
//	1 3:1 10:0.5 # trailing comments are ignored
//	0 qid:7 1:1 2:1
//
// Indices are 1-based unless WithZeroBased is given. qid tokens are skipped.
package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/ftrl/core/sparse"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

const maxLineBytes = 64 << 20

// Dataset is a parsed file.
type Dataset struct {
	X           *sparse.CSR
	Y           []float32
	NumFeatures int
}

type options struct {
	zeroBased    bool
	binary       bool
	binaryLabels bool
	numFeatures  int
}

// Option configures the reader.
type Option func(*options)

// WithZeroBased treats feature indices as already 0-based.
func WithZeroBased(zeroBased bool) Option {
	return func(o *options) { o.zeroBased = zeroBased }
}

// WithBinary drops feature values; every listed feature counts as 1.
func WithBinary(binary bool) Option {
	return func(o *options) { o.binary = binary }
}

// WithBinaryLabels maps labels > 0 to 1 and everything else to 0,
// so {-1, +1} files can feed a classification model.
func WithBinaryLabels(on bool) Option {
	return func(o *options) { o.binaryLabels = on }
}

// WithNumFeatures fixes the feature dimension. Indices at or above n are an error.
// Zero means the dimension is inferred as max index + 1.
func WithNumFeatures(n int) Option {
	return func(o *options) { o.numFeatures = n }
}

// Load reads a libsvm file from disk.
func Load(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewPersistenceError("dataset.Load", errors.KindOpen, path, err)
	}
	defer f.Close()

	ds, err := Read(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: %s", path)
	}
	return ds, nil
}

// Read parses libsvm text from r.
func Read(r io.Reader, opts ...Option) (*Dataset, error) {
	const op = "dataset.Read"
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.numFeatures < 0 {
		return nil, errors.NewValidationError("num_features", "must be >= 0", cfg.numFeatures)
	}

	b := sparse.NewBuilder(cfg.binary)
	labels := make([]float32, 0, 1024)
	maxIndex := int32(-1)

	var (
		indices []int32
		values  []float32
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNr := 0
	for sc.Scan() {
		lineNr++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		label, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, errors.Wrapf(errors.NewValueError(op, "invalid label "+strconv.Quote(fields[0])),
				"line %d", lineNr)
		}
		if cfg.binaryLabels {
			if label > 0 {
				label = 1
			} else {
				label = 0
			}
		}

		indices = indices[:0]
		values = values[:0]
		for _, tok := range fields[1:] {
			key, val, ok := strings.Cut(tok, ":")
			if !ok {
				return nil, errors.Wrapf(errors.NewValueError(op, "token "+strconv.Quote(tok)+" is not index:value"),
					"line %d", lineNr)
			}
			if key == "qid" {
				continue
			}
			idx, err := strconv.ParseInt(key, 10, 32)
			if err != nil {
				return nil, errors.Wrapf(errors.NewValueError(op, "invalid feature index "+strconv.Quote(key)),
					"line %d", lineNr)
			}
			if !cfg.zeroBased {
				idx--
			}
			if idx < 0 {
				return nil, errors.Wrapf(errors.NewFeatureIndexError(op, int(idx), cfg.numFeatures, len(labels)),
					"line %d", lineNr)
			}
			if cfg.numFeatures > 0 && int(idx) >= cfg.numFeatures {
				return nil, errors.Wrapf(errors.NewFeatureIndexError(op, int(idx), cfg.numFeatures, len(labels)),
					"line %d", lineNr)
			}
			v, err := strconv.ParseFloat(val, 32)
			if err != nil {
				return nil, errors.Wrapf(errors.NewValueError(op, "invalid feature value "+strconv.Quote(val)),
					"line %d", lineNr)
			}
			indices = append(indices, int32(idx))
			values = append(values, float32(v))
			if int32(idx) > maxIndex {
				maxIndex = int32(idx)
			}
		}

		if err := b.AddRow(indices, values); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNr)
		}
		labels = append(labels, float32(label))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewPersistenceError(op, errors.KindRead, "", err)
	}

	nf := cfg.numFeatures
	if nf == 0 {
		nf = int(maxIndex) + 1
	}
	return &Dataset{X: b.Build(), Y: labels, NumFeatures: nf}, nil
}

package ftrl

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

// On-disk layout, little-endian, no header magic or version:
//
//	int32      num_features
//	float32[]  n, z, w          (num_features each)
//	float32    n_intercept, z_intercept, w_intercept
//	float32    alpha, beta, l1, l2
//	int32      model_type
const (
	headerSize  = 4
	trailerSize = 3*4 + 4*4 + 4
)

// EncodedSize is the number of bytes a model with numFeatures features occupies on disk.
func EncodedSize(numFeatures int) int64 {
	return headerSize + 3*4*int64(numFeatures) + trailerSize
}

// readChunk bounds allocation while reading vectors from an untrusted stream.
const readChunk = 1 << 16

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo encodes the model to w in the on-disk layout.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	if err := m.checkAlive("WriteTo"); err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}
	le := binary.LittleEndian
	if err := binary.Write(cw, le, int32(m.numFeatures)); err != nil {
		return cw.n, err
	}
	for _, v := range []vector{m.n, m.z, m.w} {
		if err := binary.Write(cw, le, v.floats()); err != nil {
			return cw.n, err
		}
	}
	if err := binary.Write(cw, le, m.bias.floats()); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, le, m.params); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadModel decodes a model from r. Short input is a KindRead error; a negative
// feature count or invalid parameters are KindFormat errors. Bytes after the
// model are left unread.
func ReadModel(r io.Reader) (*Model, error) {
	return readModel("ReadModel", "", r)
}

func readModel(op, path string, r io.Reader) (*Model, error) {
	le := binary.LittleEndian
	var nf int32
	if err := binary.Read(r, le, &nf); err != nil {
		return nil, errors.NewPersistenceError(op, errors.KindRead, path, err)
	}
	if nf < 0 {
		return nil, errors.NewPersistenceError(op, errors.KindFormat, path,
			errors.Newf("negative num_features %d", nf))
	}

	s := State{NumFeatures: int(nf)}
	for _, dst := range []*[]float32{&s.N, &s.Z, &s.W} {
		v, err := readFloats(r, int(nf))
		if err != nil {
			return nil, errors.NewPersistenceError(op, errors.KindRead, path, err)
		}
		*dst = v
	}
	var bias [3]float32
	if err := binary.Read(r, le, &bias); err != nil {
		return nil, errors.NewPersistenceError(op, errors.KindRead, path, err)
	}
	s.NIntercept, s.ZIntercept, s.WIntercept = bias[0], bias[1], bias[2]
	if err := binary.Read(r, le, &s.Params); err != nil {
		return nil, errors.NewPersistenceError(op, errors.KindRead, path, err)
	}

	m, err := NewModelFromState(s)
	if err != nil {
		return nil, errors.NewPersistenceError(op, errors.KindFormat, path, err)
	}
	return m, nil
}

func readFloats(r io.Reader, count int) ([]float32, error) {
	out := make([]float32, 0, min(count, readChunk))
	buf := make([]float32, min(count, readChunk))
	for len(out) < count {
		chunk := buf[:min(count-len(out), len(buf))]
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Save writes the model to path. The bytes go to a temporary file in the same
// directory which is renamed over path once complete, so a failed save never
// leaves a truncated model behind.
func (m *Model) Save(path string) (err error) {
	const op = "Save"
	if err := m.checkAlive(op); err != nil {
		return err
	}
	start := time.Now()

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewPersistenceError(op, errors.KindOpen, path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if _, err = m.WriteTo(bw); err != nil {
		return errors.NewPersistenceError(op, errors.KindWrite, path, err)
	}
	if err = bw.Flush(); err != nil {
		return errors.NewPersistenceError(op, errors.KindWrite, path, err)
	}
	if err = f.Chmod(0o644); err != nil {
		return errors.NewPersistenceError(op, errors.KindWrite, path, err)
	}
	if err = f.Sync(); err != nil {
		return errors.NewPersistenceError(op, errors.KindWrite, path, err)
	}
	if err = f.Close(); err != nil {
		return errors.NewPersistenceError(op, errors.KindWrite, path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return errors.NewPersistenceError(op, errors.KindWrite, path, err)
	}

	log.GetLoggerWithName("ftrl").Debug("model saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, path,
		log.FeaturesKey, m.numFeatures,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Load reads a model written by Save. The file must contain exactly one model.
// On any error no model is returned.
func Load(path string) (*Model, error) {
	const op = "Load"
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewPersistenceError(op, errors.KindOpen, path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	m, err := readModel(op, path, br)
	if err != nil {
		return nil, err
	}
	if _, err := br.ReadByte(); err != io.EOF {
		if err == nil {
			err = errors.New("trailing data after model")
		}
		return nil, errors.NewPersistenceError(op, errors.KindFormat, path, err)
	}

	log.GetLoggerWithName("ftrl").Debug("model loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.FeaturesKey, m.numFeatures,
	)
	return m, nil
}

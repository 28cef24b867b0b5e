package params

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// GGUF Constants
const (
	GGUFMagic     = 0x46554747 // "GGUF" in little-endian
	GGUFVersion   = 3
	GGUFAlignment = 32
)

// GGUF Value Types
type GGUFType uint32

const (
	GGUFTypeUint8   GGUFType = 0
	GGUFTypeInt8    GGUFType = 1
	GGUFTypeUint16  GGUFType = 2
	GGUFTypeInt16   GGUFType = 3
	GGUFTypeUint32  GGUFType = 4
	GGUFTypeInt32   GGUFType = 5
	GGUFTypeFloat32 GGUFType = 6
	GGUFTypeBool    GGUFType = 7
	GGUFTypeString  GGUFType = 8
	GGUFTypeArray   GGUFType = 9
	GGUFTypeUint64  GGUFType = 10
	GGUFTypeInt64   GGUFType = 11
	GGUFTypeFloat64 GGUFType = 12
)

// GGML tensor types for the data types parameters can be encoded to.
const (
	GGMLTypeF32  uint32 = 0
	GGMLTypeF16  uint32 = 1
	GGMLTypeBF16 uint32 = 30
)

// GGMLType is the tensor type dt is stored as.
func (t DType) GGMLType() uint32 {
	switch t {
	case F16:
		return GGMLTypeF16
	case BF16:
		return GGMLTypeBF16
	default:
		return GGMLTypeF32
	}
}

// KV is one metadata entry. Value must be a string, bool, uint32, int32,
// uint64, float32, float64 or []int32.
type KV struct {
	Key   string
	Value any
}

// Tensor is one named parameter. Shape is in row-major order, outermost
// dimension first.
type Tensor struct {
	Name   string
	Shape  []int
	Values []float64
}

// GGUFWriter helps writing GGUF files
type GGUFWriter struct {
	w io.Writer
	n int64
}

func NewGGUFWriter(w io.Writer) *GGUFWriter {
	return &GGUFWriter{w: w}
}

func (gw *GGUFWriter) Write(p []byte) (int, error) {
	n, err := gw.w.Write(p)
	gw.n += int64(n)
	return n, err
}

func (gw *GGUFWriter) put(v any) error {
	return binary.Write(gw, binary.LittleEndian, v)
}

func (gw *GGUFWriter) WriteHeader(kvCount, tensorCount uint64) error {
	for _, v := range []any{uint32(GGUFMagic), uint32(GGUFVersion), tensorCount, kvCount} {
		if err := gw.put(v); err != nil {
			return err
		}
	}
	return nil
}

func (gw *GGUFWriter) WriteString(s string) error {
	if err := gw.put(uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(gw, s)
	return err
}

func (gw *GGUFWriter) WriteKV(kv KV) error {
	if err := gw.WriteString(kv.Key); err != nil {
		return err
	}

	switch v := kv.Value.(type) {
	case string:
		if err := gw.put(uint32(GGUFTypeString)); err != nil {
			return err
		}
		return gw.WriteString(v)
	case bool:
		var b uint8
		if v {
			b = 1
		}
		return gw.putTyped(GGUFTypeBool, b)
	case uint32:
		return gw.putTyped(GGUFTypeUint32, v)
	case int32:
		return gw.putTyped(GGUFTypeInt32, v)
	case uint64:
		return gw.putTyped(GGUFTypeUint64, v)
	case float32:
		return gw.putTyped(GGUFTypeFloat32, v)
	case float64:
		return gw.putTyped(GGUFTypeFloat64, v)
	case []int32:
		for _, x := range []any{uint32(GGUFTypeArray), uint32(GGUFTypeInt32), uint64(len(v)), v} {
			if err := gw.put(x); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("unsupported GGUF value for %s: %T", kv.Key, kv.Value)
	}
}

func (gw *GGUFWriter) putTyped(t GGUFType, v any) error {
	if err := gw.put(uint32(t)); err != nil {
		return err
	}
	return gw.put(v)
}

func (gw *GGUFWriter) WriteTensorInfo(name string, shape []int, ggmlType uint32, offset uint64) error {
	if err := gw.WriteString(name); err != nil {
		return err
	}
	if err := gw.put(uint32(len(shape))); err != nil {
		return err
	}
	// GGUF dimensions are in reverse order (last dimension first)
	for i := len(shape) - 1; i >= 0; i-- {
		if err := gw.put(uint64(shape[i])); err != nil {
			return err
		}
	}
	if err := gw.put(ggmlType); err != nil {
		return err
	}
	return gw.put(offset)
}

// Pad writes zeros up to the next multiple of GGUFAlignment.
func (gw *GGUFWriter) Pad() error {
	if r := gw.n % GGUFAlignment; r != 0 {
		_, err := gw.Write(make([]byte, GGUFAlignment-r))
		return err
	}
	return nil
}

func align(n uint64) uint64 {
	return (n + GGUFAlignment - 1) / GGUFAlignment * GGUFAlignment
}

// WriteGGUF writes a complete GGUF file holding kvs and tensors, with tensor
// data encoded as dt.
func WriteGGUF(w io.Writer, kvs []KV, tensors []Tensor, dt DType) error {
	gw := NewGGUFWriter(w)
	if err := gw.WriteHeader(uint64(len(kvs)), uint64(len(tensors))); err != nil {
		return err
	}
	for _, kv := range kvs {
		if err := gw.WriteKV(kv); err != nil {
			return err
		}
	}

	var offset uint64
	for _, t := range tensors {
		if err := gw.WriteTensorInfo(t.Name, t.Shape, dt.GGMLType(), offset); err != nil {
			return errors.Wrap(err, t.Name)
		}
		offset = align(offset + uint64(len(t.Values)*dt.Size()))
	}

	for _, t := range tensors {
		if err := gw.Pad(); err != nil {
			return err
		}
		if _, err := gw.Write(Encode(t.Values, dt)); err != nil {
			return errors.Wrap(err, t.Name)
		}
	}
	return nil
}

package params

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	bfloat16 "github.com/d4l3k/go-bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/FlavioCFOliveira/convshape/internal/layer"
)

// DType is the storage type parameters are encoded to.
type DType int

const (
	F32 DType = iota
	F16
	BF16
)

func (t DType) String() string {
	switch t {
	case F32:
		return "F32"
	case F16:
		return "F16"
	case BF16:
		return "BF16"
	default:
		return fmt.Sprintf("DType(%d)", int(t))
	}
}

// Size is the number of bytes per value.
func (t DType) Size() int {
	if t == F32 {
		return 4
	}
	return 2
}

// ParseDType parses "f32", "f16" or "bf16", ignoring case.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(s) {
	case "", "f32", "float32":
		return F32, nil
	case "f16", "float16":
		return F16, nil
	case "bf16", "bfloat16":
		return BF16, nil
	}
	return 0, errors.Errorf("unknown data type: %s", s)
}

// Bytes is the encoded size of every parameter in t.
func Bytes(t layer.ParamTable, dt DType) int {
	return t.NumParams() * dt.Size()
}

// Encode converts values to little endian dt.
func Encode(values []float64, dt DType) []byte {
	switch dt {
	case F16:
		b := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(b[2*i:], float16.Fromfloat32(float32(v)).Bits())
		}
		return b
	case BF16:
		f32s := make([]float32, len(values))
		for i, v := range values {
			f32s[i] = float32(v)
		}
		return bfloat16.EncodeFloat32(f32s)
	default:
		b := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(float32(v)))
		}
		return b
	}
}

// Decode converts little endian dt bytes back to values.
func Decode(b []byte, dt DType) ([]float64, error) {
	if len(b)%dt.Size() != 0 {
		return nil, errors.Errorf("%d bytes is not a whole number of %s values", len(b), dt)
	}

	var f32s []float32
	switch dt {
	case F16:
		f32s = make([]float32, len(b)/2)
		for i := range f32s {
			f32s[i] = float16.Frombits(binary.LittleEndian.Uint16(b[2*i:])).Float32()
		}
	case BF16:
		f32s = bfloat16.DecodeFloat32(b)
	default:
		f32s = make([]float32, len(b)/4)
		for i := range f32s {
			f32s[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
	}

	values := make([]float64, len(f32s))
	for i, f := range f32s {
		values[i] = float64(f)
	}
	return values, nil
}

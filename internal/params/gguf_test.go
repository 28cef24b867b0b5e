package params

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGGUF(t *testing.T) {
	kvs := []KV{{Key: "general.architecture", Value: "convshape"}}
	tensors := []Tensor{
		{Name: "blk.0.bias", Shape: []int{3}, Values: []float64{1, 2, 3}},
		{Name: "blk.0.weight", Shape: []int{3, 2}, Values: []float64{-1, -2, -3, 4, 5, 6}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGGUF(&buf, kvs, tensors, F32))
	b := buf.Bytes()
	require.Len(t, b, 248)

	le := binary.LittleEndian
	assert.Equal(t, uint32(GGUFMagic), le.Uint32(b[0:]))
	assert.Equal(t, uint32(GGUFVersion), le.Uint32(b[4:]))
	assert.Equal(t, uint64(2), le.Uint64(b[8:]))
	assert.Equal(t, uint64(1), le.Uint64(b[16:]))
	assert.Equal(t, "general.architecture", string(b[32:52]))

	// second tensor info: name, rank, dims innermost first, type, offset
	info := b[115:]
	assert.Equal(t, "blk.0.weight", string(info[8:20]))
	assert.Equal(t, uint32(2), le.Uint32(info[20:]))
	assert.Equal(t, uint64(2), le.Uint64(info[24:]))
	assert.Equal(t, uint64(3), le.Uint64(info[32:]))
	assert.Equal(t, GGMLTypeF32, le.Uint32(info[40:]))
	assert.Equal(t, uint64(32), le.Uint64(info[44:]))

	bias, err := Decode(b[192:204], F32)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, bias)
	assert.Equal(t, make([]byte, 20), b[204:224])

	weight, err := Decode(b[224:], F32)
	require.NoError(t, err)
	assert.Equal(t, tensors[1].Values, weight)
}

func TestWriteGGUFDTypes(t *testing.T) {
	tensors := []Tensor{{Name: "w", Shape: []int{4}, Values: []float64{0.5, 1, -2, 8}}}

	for _, dt := range []DType{F16, BF16} {
		var buf bytes.Buffer
		require.NoError(t, WriteGGUF(&buf, nil, tensors, dt))
		b := buf.Bytes()

		// header 24, info 8+1+4+8+4+8 = 57, data at 64
		require.Len(t, b, 64+8)
		assert.Equal(t, dt.GGMLType(), binary.LittleEndian.Uint32(b[24+8+1+4+8:]))

		got, err := Decode(b[64:], dt)
		require.NoError(t, err)
		assert.Equal(t, tensors[0].Values, got)
	}
}

func TestWriteKV(t *testing.T) {
	var buf bytes.Buffer
	gw := NewGGUFWriter(&buf)

	require.NoError(t, gw.WriteKV(KV{Key: "k", Value: []int32{3, 3}}))
	// key, array type, element type, count, elements
	assert.Equal(t, 8+1+4+4+8+8, buf.Len())

	require.NoError(t, gw.WriteKV(KV{Key: "b", Value: true}))
	assert.Equal(t, 33+8+1+4+1, buf.Len())

	require.Error(t, gw.WriteKV(KV{Key: "x", Value: []string{"a"}}))
}

package net

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/convshape/internal/inputs"
	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/weightinit"
)

// encoderDecoder builds conv(3->8, s2) -> deconv(8->4, s2) -> deconv(4->1, same).
func encoderDecoder(t *testing.T, in inputs.InputType) *Stack {
	t.Helper()
	conv, err := layer.NewConv2D(layer.ConvConfig{
		Name: "enc", NOut: 8, KernelSize: []int{4, 4}, Stride: []int{2, 2}, Padding: []int{1, 1},
		Activation: "relu", WeightInit: weightinit.Spec{Name: "relu"},
	})
	require.NoError(t, err)
	up, err := layer.NewDeconv2D(layer.ConvConfig{
		Name: "up", NOut: 4, KernelSize: []int{4, 4}, Stride: []int{2, 2}, Padding: []int{1, 1},
	})
	require.NoError(t, err)
	head, err := layer.NewDeconv2D(layer.ConvConfig{
		Name: "head", NOut: 1, KernelSize: []int{3, 3}, Mode: layer.Same, NoBias: true,
	})
	require.NoError(t, err)
	return NewStack(in, conv, up, head)
}

func TestResolve(t *testing.T) {
	s := encoderDecoder(t, inputs.Convolutional(32, 32, 3))
	resolved, err := s.Resolve()
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	assert.Equal(t, inputs.Convolutional(16, 16, 8), resolved[0].Out)
	assert.Equal(t, inputs.Convolutional(32, 32, 4), resolved[1].Out)
	assert.Equal(t, inputs.Convolutional(32, 32, 1), resolved[2].Out)

	// nIn is inferred from the previous layer
	assert.Equal(t, 3, resolved[0].Layer.NIn())
	assert.Equal(t, 8, resolved[1].Layer.NIn())
	assert.Equal(t, 4, resolved[2].Layer.NIn())
	// the configured layers are untouched
	assert.Equal(t, 0, s.Layers()[1].NIn())

	assert.Equal(t, map[string][]int{"W": {4, 8, 4, 4}, "b": {4}}, resolved[1].Params.Map())
	assert.Equal(t, map[string][]int{"W": {1, 4, 3, 3}}, resolved[2].Params.Map())

	assert.Equal(t, 0, resolved[0].Offset)
	assert.Equal(t, 8+8*3*16, resolved[1].Offset)
	assert.Equal(t, 8+8*3*16+4+4*8*16, resolved[2].Offset)

	n, err := s.NumParams()
	require.NoError(t, err)
	assert.Equal(t, 8+8*3*16+4+4*8*16+4*9, n)

	out, err := s.OutputType()
	require.NoError(t, err)
	assert.Equal(t, inputs.Convolutional(32, 32, 1), out)
}

func TestResolveFlatInput(t *testing.T) {
	s := encoderDecoder(t, inputs.ConvolutionalFlat(8, 8, 3))
	out, err := s.OutputType()
	require.NoError(t, err)
	assert.Equal(t, inputs.Convolutional(8, 8, 1), out)
}

func TestResolveErrors(t *testing.T) {
	s := encoderDecoder(t, inputs.FeedForward(10))
	_, err := s.Resolve()
	require.ErrorIs(t, err, layer.ErrInvalidInput)

	d, err := layer.NewDeconv2D(layer.ConvConfig{NIn: 5, NOut: 2})
	require.NoError(t, err)
	_, err = NewStack(inputs.Convolutional(4, 4, 3), d).Resolve()
	require.ErrorIs(t, err, layer.ErrInvalidInput)
	assert.Contains(t, err.Error(), "nIn is 5 but the input has 3 channels")

	// the first layer has nothing to infer nOut from
	d, err = layer.NewDeconv2D(layer.ConvConfig{NIn: 3})
	require.NoError(t, err)
	_, err = NewStack(inputs.Convolutional(4, 4, 3), d).Resolve()
	require.ErrorIs(t, err, layer.ErrInvalidConfig)
}

func TestEmptyStack(t *testing.T) {
	s := NewStack(inputs.Convolutional(4, 4, 3))
	out, err := s.OutputType()
	require.NoError(t, err)
	assert.Equal(t, inputs.Convolutional(4, 4, 3), out)

	n, err := s.NumParams()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInitParams(t *testing.T) {
	s := encoderDecoder(t, inputs.Convolutional(32, 32, 3))
	flat, views, err := s.InitParams(context.Background(), 42, true)
	require.NoError(t, err)
	require.Len(t, views, 3)

	n, err := s.NumParams()
	require.NoError(t, err)
	assert.Len(t, flat, n)

	// default bias init is 0, weights are random
	assert.Equal(t, 0.0, floats.Sum(views[0].Get(layer.BiasKey)))
	assert.NotZero(t, floats.Norm(views[1].Get(layer.WeightKey), 2))
	assert.Nil(t, views[2].Bias())

	// views share the flat buffer
	views[2].Weights().Set(0, 0, 123)
	assert.Equal(t, 123.0, flat[n-36])

	again, _, err := s.InitParams(context.Background(), 42, true)
	require.NoError(t, err)
	flat[n-36] = again[n-36]
	assert.Equal(t, again, flat)

	other, _, err := s.InitParams(context.Background(), 43, true)
	require.NoError(t, err)
	assert.NotEqual(t, again, other)

	zeros, _, err := s.InitParams(context.Background(), 42, false)
	require.NoError(t, err)
	assert.Zero(t, floats.Norm(zeros, 1))
}

func TestInitParamsCanceled(t *testing.T) {
	s := encoderDecoder(t, inputs.Convolutional(32, 32, 3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.InitParams(ctx, 1, true)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encoderDecoder(t, inputs.Convolutional(32, 32, 3)).Summary(&buf))

	out := buf.String()
	assert.Contains(t, out, "enc (Convolution2D)")
	assert.Contains(t, out, "up (Deconvolution2D)")
	assert.Contains(t, out, "[4, 32, 32]")
	assert.Contains(t, out, "Total params: 944")
}

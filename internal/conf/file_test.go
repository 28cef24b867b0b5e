package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/convshape/internal/inputs"
	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/weightinit"
)

func TestLoad(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "autoencoder.json"))
	require.NoError(t, err)

	resolved, err := s.Resolve()
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	assert.Equal(t, inputs.Convolutional(14, 14, 16), resolved[0].Out)
	assert.Equal(t, inputs.Convolutional(28, 28, 1), resolved[1].Out)

	dec, ok := resolved[1].Layer.(layer.Deconv2D)
	require.True(t, ok)
	assert.Equal(t, layer.Strict, dec.Mode())
	assert.Equal(t, layer.NoWorkspace, dec.Cudnn().Mode)
	assert.Equal(t, "sigmoid", dec.Activation().Name())
	assert.Equal(t, map[string][]int{"W": {1, 16, 2, 2}, "b": {1}}, resolved[1].Params.Map())
}

func TestDecode(t *testing.T) {
	doc := `{
		"input": {"type": "cnn_flat", "height": 4, "width": 4, "channels": 2},
		"layers": [{"type": "Deconvolution2D", "n_out": 3, "kernel_size": [2, 2], "convolution_mode": "Same",
			"weight_init": {"name": "constant", "value": 0.5}}]
	}`
	f, err := Decode(strings.NewReader(doc), JSON)
	require.NoError(t, err)

	assert.Equal(t, "cnn_flat", f.Input.Type)
	require.Len(t, f.Layers, 1)
	assert.Equal(t, []int{2, 2}, f.Layers[0].KernelSize)
	assert.Equal(t, layer.Same, f.Layers[0].Mode)
	assert.Equal(t, weightinit.Spec{Name: "constant", Value: 0.5}, f.Layers[0].WeightInit)

	s, err := f.Stack()
	require.NoError(t, err)
	out, err := s.OutputType()
	require.NoError(t, err)
	assert.Equal(t, inputs.Convolutional(4, 4, 3), out)
}

func TestDecodeDefaultWeightInit(t *testing.T) {
	t.Setenv("CONVSHAPE_WEIGHT_INIT", "lecun_normal")
	LoadConfig()
	t.Cleanup(LoadConfig)

	f, err := Decode(strings.NewReader(`{"input": {"type": "cnn", "height": 2, "width": 2, "channels": 1},
		"layers": [{"type": "deconv2d", "n_out": 1}]}`), JSON)
	require.NoError(t, err)
	l, err := f.Layers[0].Layer()
	require.NoError(t, err)
	assert.Equal(t, "lecun_normal", l.WeightInit().Name())
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":    `{"input": {"type": "cnn"}, "layers": [{"type": "deconv2d", "n_out": 1, "kernal_size": [2, 2]}]}`,
		"bad mode":       `{"input": {"type": "cnn"}, "layers": [{"type": "deconv2d", "convolution_mode": "valid"}]}`,
		"bad cudnn mode": `{"input": {"type": "cnn"}, "layers": [{"type": "deconv2d", "cudnn": {"mode": "fastest"}}]}`,
		"wrong type":     `{"input": {"type": "cnn"}, "layers": [{"type": "deconv2d", "n_out": "many"}]}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc), JSON)
			require.ErrorIs(t, err, layer.ErrInvalidConfig)
		})
	}

	_, err := Decode(strings.NewReader("{"), JSON)
	require.Error(t, err)
}

func TestStackErrors(t *testing.T) {
	cases := map[string]File{
		"input type": {Input: Input{Type: "video"}},
		"layer type": {Input: Input{Type: "cnn"}, Layers: []LayerSpec{{Type: "dense"}}},
		"layer config": {Input: Input{Type: "cnn"}, Layers: []LayerSpec{
			{Type: "deconv2d", ConvConfig: layer.ConvConfig{NOut: 1, Stride: []int{0, 1}}},
		}},
	}

	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Stack()
			require.ErrorIs(t, err, layer.ErrInvalidConfig)
		})
	}
}

func TestInputType(t *testing.T) {
	cases := map[string]struct {
		in     Input
		expect inputs.InputType
	}{
		"cnn":  {Input{Type: "CNN", Height: 3, Width: 4, Channels: 5}, inputs.Convolutional(3, 4, 5)},
		"flat": {Input{Type: "convolutional_flat", Height: 3, Width: 4, Channels: 5}, inputs.ConvolutionalFlat(3, 4, 5)},
		"ff":   {Input{Type: "ff", Size: 10}, inputs.FeedForward(10)},
		"rnn":  {Input{Type: "recurrent", Size: 10, Length: 7}, inputs.Recurrent(10, 7)},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := tt.in.InputType()
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	fh, err := os.Open(filepath.Join("testdata", "autoencoder.json"))
	require.NoError(t, err)
	defer fh.Close()

	f, err := Decode(fh, JSON)
	require.NoError(t, err)

	for _, format := range []Format{JSON, CBOR} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, f, format))

		got, err := Decode(&buf, format)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestLoadCBOR(t *testing.T) {
	b, err := cbor.Marshal(map[string]any{
		"input": map[string]any{"type": "cnn", "height": 5, "width": 5, "channels": 2},
		"layers": []any{
			map[string]any{"type": "deconv2d", "n_out": 4, "kernel_size": []int{3, 3}, "stride": []int{2, 2}, "convolution_mode": "truncate"},
		},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stack.cbor")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	assert.Equal(t, CBOR, FormatFromPath(path))

	s, err := Load(path)
	require.NoError(t, err)
	out, err := s.OutputType()
	require.NoError(t, err)
	assert.Equal(t, inputs.Convolutional(11, 11, 4), out)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

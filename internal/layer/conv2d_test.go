package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/convshape/internal/inputs"
)

func TestConv2DOutputType(t *testing.T) {
	cases := map[string]struct {
		cfg  ConvConfig
		in   inputs.InputType
		want inputs.InputType
	}{
		"valid 3x3":   {ConvConfig{NIn: 3, NOut: 8, KernelSize: []int{3, 3}}, inputs.Convolutional(10, 10, 3), inputs.Convolutional(8, 8, 8)},
		"padded":      {ConvConfig{NIn: 1, NOut: 4, KernelSize: []int{3, 3}, Padding: []int{1, 1}}, inputs.Convolutional(8, 8, 1), inputs.Convolutional(8, 8, 4)},
		"truncated":   {ConvConfig{NIn: 1, NOut: 2, KernelSize: []int{3, 3}, Stride: []int{2, 2}}, inputs.Convolutional(10, 10, 1), inputs.Convolutional(4, 4, 2)},
		"dilated":     {ConvConfig{NIn: 1, NOut: 1, KernelSize: []int{3, 3}, Dilation: []int{2, 2}}, inputs.Convolutional(9, 9, 1), inputs.Convolutional(5, 5, 1)},
		"same":        {ConvConfig{NIn: 1, NOut: 1, KernelSize: []int{3, 3}, Stride: []int{2, 3}, Mode: Same}, inputs.Convolutional(11, 11, 1), inputs.Convolutional(6, 4, 1)},
		"strict even": {ConvConfig{NIn: 1, NOut: 1, KernelSize: []int{2, 2}, Stride: []int{2, 2}, Mode: Strict}, inputs.Convolutional(8, 8, 1), inputs.Convolutional(4, 4, 1)},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := NewConv2D(tt.cfg)
			require.NoError(t, err)
			got, err := c.OutputType(0, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConv2DErrors(t *testing.T) {
	strict, err := NewConv2D(ConvConfig{NIn: 1, NOut: 1, KernelSize: []int{3, 3}, Stride: []int{2, 2}, Mode: Strict})
	require.NoError(t, err)
	_, err = strict.OutputType(1, inputs.Convolutional(10, 10, 1))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "non-integer output size")

	small, err := NewConv2D(ConvConfig{NIn: 1, NOut: 1, KernelSize: []int{5, 5}})
	require.NoError(t, err)
	_, err = small.OutputType(1, inputs.Convolutional(3, 3, 1))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = small.OutputType(1, inputs.FeedForward(9))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewConv2D(ConvConfig{Stride: []int{1}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConv2DSamePadding(t *testing.T) {
	c, err := NewConv2D(ConvConfig{NIn: 1, NOut: 1, KernelSize: []int{3, 4}, Stride: []int{1, 2}, Mode: Same})
	require.NoError(t, err)

	// height: out=10, total=(10-1)*1+3-10=2; width: out=5, total=(5-1)*2+4-10=2
	assert.Equal(t, [2]Pad{{Begin: 1, End: 1}, {Begin: 1, End: 1}}, c.SamePadding(inputs.Convolutional(10, 10, 1)))
	// width: out=6, total=(6-1)*2+4-11=3
	assert.Equal(t, Pad{Begin: 1, End: 2}, c.SamePadding(inputs.Convolutional(10, 11, 1))[1])
}

// TestConvDeconvRoundTrip checks that a deconvolution undoes the spatial
// change of the matching convolution.
func TestConvDeconvRoundTrip(t *testing.T) {
	cfg := ConvConfig{NIn: 3, NOut: 6, KernelSize: []int{4, 4}, Stride: []int{2, 2}, Padding: []int{1, 1}, Mode: Strict}
	c, err := NewConv2D(cfg)
	require.NoError(t, err)

	cfg.NIn, cfg.NOut = 6, 3
	d, err := NewDeconv2D(cfg)
	require.NoError(t, err)

	in := inputs.Convolutional(16, 32, 3)
	mid, err := c.OutputType(0, in)
	require.NoError(t, err)
	assert.Equal(t, inputs.Convolutional(8, 16, 6), mid)

	out, err := d.OutputType(1, mid)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestConv2DParamTable(t *testing.T) {
	c, err := NewConv2D(ConvConfig{NIn: 2, NOut: 4, KernelSize: []int{3, 3}})
	require.NoError(t, err)
	table, err := c.ParamTable()
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"W": {4, 2, 3, 3}, "b": {4}}, table.Map())
	assert.Equal(t, "Convolution2D", c.Kind())
	assert.Equal(t, 18.0, c.FanIn())
	assert.Equal(t, 36.0, c.FanOut())
}

package layer

import (
	"github.com/FlavioCFOliveira/convshape/internal/inputs"
)

// Conv2D is a 2D convolution layer.
// nIn is the number of input channels, nOut the number of output feature maps.
type Conv2D struct {
	convBase
}

// NewConv2D validates cfg and returns the layer.
func NewConv2D(cfg ConvConfig) (Conv2D, error) {
	b, err := newConvBase("Convolution2D", cfg)
	if err != nil {
		return Conv2D{}, err
	}
	return Conv2D{convBase: b}, nil
}

func (c Conv2D) WithNIn(n int) Layer {
	c.nIn = n
	return c
}

func (Conv2D) Expects() inputs.Type { return inputs.CNN }

// OutputType resolves the output of the layer for a CNN input.
//
// Along each spatial axis, with effective kernel k' = d*(k-1)+1:
//
//	Truncate: out = floor((in + 2p - k') / s) + 1
//	Strict:   as Truncate, and (in + 2p - k') must be divisible by s
//	Same:     out = ceil(in / s)
func (c Conv2D) OutputType(layerIndex int, in inputs.InputType) (inputs.InputType, error) {
	if err := c.assertNInNOut(layerIndex); err != nil {
		return inputs.InputType{}, err
	}
	if in.Type != inputs.CNN {
		return inputs.InputType{}, c.inputErrorf(layerIndex, "expected CNN input, got %v", in)
	}
	if in.Height <= 0 || in.Width <= 0 {
		return inputs.InputType{}, c.inputErrorf(layerIndex, "input spatial size must be positive, got %v", in)
	}

	h, err := c.outputSize(layerIndex, 0, in.Height)
	if err != nil {
		return inputs.InputType{}, err
	}
	w, err := c.outputSize(layerIndex, 1, in.Width)
	if err != nil {
		return inputs.InputType{}, err
	}
	return inputs.Convolutional(h, w, c.nOut), nil
}

func (c Conv2D) outputSize(layerIndex, axis, in int) (int, error) {
	s := c.stride[axis]
	if c.mode == Same {
		return (in + s - 1) / s, nil
	}

	field := [2]string{"height", "width"}[axis]
	k := effectiveKernel(c.kernel[axis], c.dilation[axis])
	span := in + 2*c.padding[axis] - k
	if span < 0 {
		return 0, c.inputErrorf(layerIndex,
			"input %s %d with padding %d is smaller than the effective kernel %d", field, in, c.padding[axis], k)
	}
	if c.mode == Strict && span%s != 0 {
		return 0, c.configErrorf(layerIndex, "stride",
			"non-integer output size for %s: (input %d + 2*padding %d - kernel %d) / stride %d + 1 = %.2f",
			field, in, c.padding[axis], k, s, float64(span)/float64(s)+1)
	}
	return span/s + 1, nil
}

// SamePadding returns the padding per axis (height, width) that Same mode
// applies to in. When the total is odd the extra row or column goes to the end.
func (c Conv2D) SamePadding(in inputs.InputType) [2]Pad {
	var pads [2]Pad
	for axis, size := range [2]int{in.Height, in.Width} {
		s := c.stride[axis]
		out := (size + s - 1) / s
		total := max(0, (out-1)*s+effectiveKernel(c.kernel[axis], c.dilation[axis])-size)
		pads[axis] = Pad{Begin: total / 2, End: total - total/2}
	}
	return pads
}

// ParamTable returns W with shape [nOut, nIn, kH, kW] and, when bias is
// enabled, b with shape [nOut].
func (c Conv2D) ParamTable() (ParamTable, error) {
	return c.paramTable(-1)
}

func (c Conv2D) FanIn() float64 {
	return float64(c.nIn * c.kernel[0] * c.kernel[1])
}

func (c Conv2D) FanOut() float64 {
	return float64(c.nOut * c.kernel[0] * c.kernel[1])
}

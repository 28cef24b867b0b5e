package layer

import (
	"math"

	"github.com/FlavioCFOliveira/convshape/internal/inputs"
)

// Deconv2D is a 2D deconvolution (transposed convolution) layer.
// nIn is the number of input channels, nOut the number of filters.
type Deconv2D struct {
	convBase
}

// NewDeconv2D validates cfg and returns the layer.
func NewDeconv2D(cfg ConvConfig) (Deconv2D, error) {
	b, err := newConvBase("Deconvolution2D", cfg)
	if err != nil {
		return Deconv2D{}, err
	}
	return Deconv2D{convBase: b}, nil
}

func (d Deconv2D) WithNIn(n int) Layer {
	d.nIn = n
	return d
}

func (Deconv2D) Expects() inputs.Type { return inputs.CNN }

// OutputType resolves the output of the layer for a CNN input.
//
// Along each spatial axis, with effective kernel k' = d*(k-1)+1:
//
//	Truncate, Strict: out = s*(in-1) + k' - 2p
//	Same:             out = s*in
func (d Deconv2D) OutputType(layerIndex int, in inputs.InputType) (inputs.InputType, error) {
	if err := d.assertNInNOut(layerIndex); err != nil {
		return inputs.InputType{}, err
	}
	if in.Type != inputs.CNN {
		return inputs.InputType{}, d.inputErrorf(layerIndex, "expected CNN input, got %v", in)
	}
	if in.Height <= 0 || in.Width <= 0 {
		return inputs.InputType{}, d.inputErrorf(layerIndex, "input spatial size must be positive, got %v", in)
	}
	if d.mode == Same && d.dilation != [2]int{1, 1} {
		return inputs.InputType{}, d.configErrorf(layerIndex, "dilation",
			"Same mode requires dilation [1 1] for deconvolution, got %v", d.dilation)
	}

	h, err := d.outputSize(layerIndex, 0, in.Height)
	if err != nil {
		return inputs.InputType{}, err
	}
	w, err := d.outputSize(layerIndex, 1, in.Width)
	if err != nil {
		return inputs.InputType{}, err
	}
	return inputs.Convolutional(h, w, d.nOut), nil
}

func (d Deconv2D) outputSize(layerIndex, axis, in int) (int, error) {
	s := d.stride[axis]
	field := [2]string{"height", "width"}[axis]
	if d.mode == Same {
		out, ok := mulAdd(s, in, 0)
		if !ok {
			return 0, d.inputErrorf(layerIndex, "output %s overflows: stride=%d, input=%d", field, s, in)
		}
		return out, nil
	}

	k, ok := mulAdd(d.dilation[axis], d.kernel[axis]-1, 1)
	full, ok2 := mulAdd(s, in-1, k)
	if !ok || !ok2 {
		return 0, d.inputErrorf(layerIndex, "output %s overflows: stride=%d, input=%d, kernel=%d, dilation=%d",
			field, s, in, d.kernel[axis], d.dilation[axis])
	}
	// full and p are non-negative, so the second subtraction only wraps
	// for a huge p that already exceeds full
	p := d.padding[axis]
	out := full - p
	if out >= 0 || p <= math.MaxInt/4 {
		out -= p
	}
	if out > 0 {
		return out, nil
	}

	if d.mode == Strict {
		return 0, d.configErrorf(layerIndex, "padding",
			"non-integer output size for %s: stride=%d, input=%d, kernel=%d, dilation=%d, padding=%d gives %d",
			field, s, in, d.kernel[axis], d.dilation[axis], p, out)
	}
	return 0, d.configErrorf(layerIndex, "padding",
		"invalid output %s %d: padding %d is too large for kernel %d and stride %d",
		field, out, p, d.kernel[axis], s)
}

// SamePadding returns the padding per axis (height, width) that Same mode
// implies. The total is k' - s; when the stride exceeds the effective
// kernel the shortfall is reported as output padding.
func (d Deconv2D) SamePadding() [2]Pad {
	var pads [2]Pad
	for axis := range pads {
		total := effectiveKernel(d.kernel[axis], d.dilation[axis]) - d.stride[axis]
		if total < 0 {
			pads[axis] = Pad{Output: -total}
			continue
		}
		pads[axis] = Pad{Begin: total / 2, End: total - total/2}
	}
	return pads
}

// ParamTable returns W with shape [nOut, nIn, kH, kW] and, when bias is
// enabled, b with shape [nOut].
func (d Deconv2D) ParamTable() (ParamTable, error) {
	return d.paramTable(-1)
}

// FanIn is nIn*kH*kW.
func (d Deconv2D) FanIn() float64 {
	return float64(d.nIn * d.kernel[0] * d.kernel[1])
}

// FanOut is nOut*kH*kW.
func (d Deconv2D) FanOut() float64 {
	return float64(d.nOut * d.kernel[0] * d.kernel[1])
}

package layer

import (
	"math"

	"github.com/FlavioCFOliveira/convshape/internal/activations"
	"github.com/FlavioCFOliveira/convshape/internal/weightinit"
)

// ConvConfig is the user-facing configuration of a 2D convolution-family layer.
// Slice fields are optional; when set they must hold exactly two values
// (rows, columns).
type ConvConfig struct {
	Name string `mapstructure:"name" json:"name,omitempty"`

	// NIn is the input channel count. It may be left 0 and filled in by
	// shape inference from the previous layer.
	NIn int `mapstructure:"n_in" json:"n_in,omitempty"`
	// NOut is the number of filters.
	NOut int `mapstructure:"n_out" json:"n_out"`

	KernelSize []int           `mapstructure:"kernel_size" json:"kernel_size,omitempty"`
	Stride     []int           `mapstructure:"stride" json:"stride,omitempty"`
	Padding    []int           `mapstructure:"padding" json:"padding,omitempty"`
	Dilation   []int           `mapstructure:"dilation" json:"dilation,omitempty"`
	Mode       ConvolutionMode `mapstructure:"convolution_mode" json:"convolution_mode"`

	NoBias     bool            `mapstructure:"no_bias" json:"no_bias,omitempty"`
	BiasInit   float64         `mapstructure:"bias_init" json:"bias_init,omitempty"`
	Activation string          `mapstructure:"activation" json:"activation,omitempty"`
	WeightInit weightinit.Spec `mapstructure:"weight_init" json:"weight_init"`

	Cudnn CudnnConfig `mapstructure:"cudnn" json:"cudnn"`
}

var (
	defaultKernel   = [2]int{5, 5}
	defaultStride   = [2]int{1, 1}
	defaultPadding  = [2]int{0, 0}
	defaultDilation = [2]int{1, 1}
)

// convBase is the validated, immutable form of ConvConfig shared by the
// convolution layers. Fixed size arrays keep copies independent.
type convBase struct {
	kind string
	name string

	nIn, nOut int

	kernel   [2]int
	stride   [2]int
	padding  [2]int
	dilation [2]int
	mode     ConvolutionMode

	hasBias    bool
	biasInit   float64
	activation activations.Activation
	weightInit weightinit.Strategy
	cudnn      CudnnConfig
}

func newConvBase(kind string, cfg ConvConfig) (convBase, error) {
	b := convBase{
		kind:     kind,
		name:     cfg.Name,
		nIn:      cfg.NIn,
		nOut:     cfg.NOut,
		mode:     cfg.Mode,
		hasBias:  !cfg.NoBias,
		biasInit: cfg.BiasInit,
		cudnn:    cfg.Cudnn,
	}

	var err error
	if b.kernel, err = b.pair("kernel_size", "Kernel size should be rows x columns (a 2d array)", cfg.KernelSize, defaultKernel, 1); err != nil {
		return convBase{}, err
	}
	if b.stride, err = b.pair("stride", "Stride should include stride for rows and columns (a 2d array)", cfg.Stride, defaultStride, 1); err != nil {
		return convBase{}, err
	}
	if b.padding, err = b.pair("padding", "Padding should include padding for rows and columns (a 2d array)", cfg.Padding, defaultPadding, 0); err != nil {
		return convBase{}, err
	}
	if b.dilation, err = b.pair("dilation", "Dilation should include dilation for rows and columns (a 2d array)", cfg.Dilation, defaultDilation, 1); err != nil {
		return convBase{}, err
	}

	switch b.mode {
	case Truncate, Same, Strict:
	default:
		return convBase{}, b.configErrorf(-1, "convolution_mode", "unknown convolution mode %v", b.mode)
	}

	if cfg.NIn < 0 {
		return convBase{}, b.configErrorf(-1, "n_in", "nIn must be >= 0, got %d", cfg.NIn)
	}
	if cfg.NOut < 0 {
		return convBase{}, b.configErrorf(-1, "n_out", "nOut must be >= 0, got %d", cfg.NOut)
	}

	if b.activation, err = activations.Parse(cfg.Activation); err != nil {
		return convBase{}, b.configErrorf(-1, "activation", "%v", err)
	}
	if b.weightInit, err = weightinit.New(cfg.WeightInit); err != nil {
		return convBase{}, b.configErrorf(-1, "weight_init", "%v", err)
	}
	if err := b.cudnn.validate(b); err != nil {
		return convBase{}, err
	}

	return b, nil
}

// pair validates a rows x columns setting. A nil slice takes the default.
func (b convBase) pair(field, msg string, v []int, def [2]int, lo int) ([2]int, error) {
	if v == nil {
		return def, nil
	}
	if len(v) != 2 {
		return [2]int{}, b.configErrorf(-1, field, "%s, got %v", msg, v)
	}
	for _, x := range v {
		if x < lo {
			return [2]int{}, b.configErrorf(-1, field, "values must be >= %d, got %v", lo, v)
		}
	}
	return [2]int{v[0], v[1]}, nil
}

// assertNInNOut fails when either channel count is still unset.
func (b convBase) assertNInNOut(index int) error {
	if b.nIn <= 0 {
		return b.configErrorf(index, "n_in", "nIn must be set (> 0), got %d", b.nIn)
	}
	if b.nOut <= 0 {
		return b.configErrorf(index, "n_out", "nOut must be set (> 0), got %d", b.nOut)
	}
	return nil
}

func (b convBase) Kind() string                       { return b.kind }
func (b convBase) Name() string                       { return b.name }
func (b convBase) NIn() int                           { return b.nIn }
func (b convBase) NOut() int                          { return b.nOut }
func (b convBase) KernelSize() [2]int                 { return b.kernel }
func (b convBase) Stride() [2]int                     { return b.stride }
func (b convBase) Padding() [2]int                    { return b.padding }
func (b convBase) Dilation() [2]int                   { return b.dilation }
func (b convBase) Mode() ConvolutionMode              { return b.mode }
func (b convBase) HasBias() bool                      { return b.hasBias }
func (b convBase) BiasInit() float64                  { return b.biasInit }
func (b convBase) Activation() activations.Activation { return b.activation }
func (b convBase) WeightInit() weightinit.Strategy    { return b.weightInit }
func (b convBase) Cudnn() CudnnConfig                 { return b.cudnn }

// effectiveKernel is the footprint of a dilated kernel along one axis.
func effectiveKernel(k, d int) int {
	return d*(k-1) + 1
}

// mulAdd returns a*b + c for non-negative operands, and false when the
// result does not fit in an int.
func mulAdd(a, b, c int) (int, bool) {
	if b != 0 && a > (math.MaxInt-c)/b {
		return 0, false
	}
	return a*b + c, true
}

// weightShape is [nOut, nIn, kH, kW].
func (b convBase) weightShape() []int {
	return []int{b.nOut, b.nIn, b.kernel[0], b.kernel[1]}
}

func (b convBase) paramTable(index int) (ParamTable, error) {
	if err := b.assertNInNOut(index); err != nil {
		return nil, err
	}
	var t ParamTable
	if b.hasBias {
		t = append(t, Param{Name: BiasKey, Shape: []int{b.nOut}})
	}
	return append(t, Param{Name: WeightKey, Shape: b.weightShape()}), nil
}

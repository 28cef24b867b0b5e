package convshape

import (
	"github.com/FlavioCFOliveira/convshape/internal/activations"
	"github.com/FlavioCFOliveira/convshape/internal/conf"
	"github.com/FlavioCFOliveira/convshape/internal/inputs"
	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/net"
	"github.com/FlavioCFOliveira/convshape/internal/params"
	"github.com/FlavioCFOliveira/convshape/internal/weightinit"
)

// Re-export common types and functions for easier access
type (
	Layer           = layer.Layer
	ConvConfig      = layer.ConvConfig
	Deconv2D        = layer.Deconv2D
	Conv2D          = layer.Conv2D
	ConvolutionMode = layer.ConvolutionMode
	ConfigError     = layer.ConfigError
	ParamTable      = layer.ParamTable
	Param           = layer.Param
	Pad             = layer.Pad
	CudnnConfig     = layer.CudnnConfig
	InputType       = inputs.InputType
	WeightInit      = weightinit.Spec
	Activation      = activations.Activation
	Stack           = net.Stack
	Resolved        = net.Resolved
	Views           = params.Views
	DType           = params.DType
)

// Convolution modes
const (
	Truncate = layer.Truncate
	Same     = layer.Same
	Strict   = layer.Strict
)

// Parameter keys
const (
	WeightKey = layer.WeightKey
	BiasKey   = layer.BiasKey
)

// Parameter data types
const (
	F32  = params.F32
	F16  = params.F16
	BF16 = params.BF16
)

// Errors
var (
	ErrInvalidConfig = layer.ErrInvalidConfig
	ErrInvalidInput  = layer.ErrInvalidInput
)

// Layers
func NewDeconv2D(cfg ConvConfig) (Deconv2D, error) {
	return layer.NewDeconv2D(cfg)
}

func NewConv2D(cfg ConvConfig) (Conv2D, error) {
	return layer.NewConv2D(cfg)
}

// Input types
func Convolutional(height, width, channels int) InputType {
	return inputs.Convolutional(height, width, channels)
}

func ConvolutionalFlat(height, width, channels int) InputType {
	return inputs.ConvolutionalFlat(height, width, channels)
}

func FeedForward(size int) InputType {
	return inputs.FeedForward(size)
}

func Recurrent(size, length int) InputType {
	return inputs.Recurrent(size, length)
}

// Stacks
func NewStack(in InputType, layers ...Layer) *Stack {
	return net.NewStack(in, layers...)
}

// Load reads a JSON or CBOR layer file.
func Load(path string) (*Stack, error) {
	return conf.Load(path)
}

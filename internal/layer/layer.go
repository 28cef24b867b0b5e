// Package layer provides the configuration of 2D convolution-family layers
// and resolves their output shapes and parameter layouts.
//
// Layers are immutable values. Every query is a pure function of the layer
// and its arguments, so a layer may be shared across goroutines.
package layer

import (
	"github.com/FlavioCFOliveira/convshape/internal/activations"
	"github.com/FlavioCFOliveira/convshape/internal/inputs"
	"github.com/FlavioCFOliveira/convshape/internal/weightinit"
)

// Layer is a validated layer configuration.
type Layer interface {
	// Kind names the layer type, e.g. "Deconvolution2D".
	Kind() string
	Name() string

	NIn() int
	NOut() int
	// WithNIn returns a copy of the layer with its input channel count set.
	WithNIn(n int) Layer

	// Expects is the input type tag the layer consumes.
	Expects() inputs.Type
	// OutputType resolves the output produced for in. layerIndex is only
	// used in error messages and may be -1.
	OutputType(layerIndex int, in inputs.InputType) (inputs.InputType, error)
	// ParamTable lists the parameters an initializer must allocate.
	ParamTable() (ParamTable, error)

	FanIn() float64
	FanOut() float64
	WeightInit() weightinit.Strategy
	BiasInit() float64
	Activation() activations.Activation
}

var (
	_ Layer = Deconv2D{}
	_ Layer = Conv2D{}
)

// Pad is the padding applied to one spatial axis. Output is extra padding
// appended to the end of a deconvolution output.
type Pad struct {
	Begin, End, Output int
}

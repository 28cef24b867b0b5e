// Package activations provides the named activation functions a layer
// configuration can refer to.
//
// Layers only resolve shapes, so here an activation is mostly its name. The
// Activate and Derivative math is kept for code that evaluates a layer
// downstream of the resolved configuration.
package activations

import (
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrUnknown is returned by Parse for names that do not match any activation.
var ErrUnknown = errors.New("unknown activation")

// Activation is an activation function with derivative.
type Activation interface {
	// Name is the configuration name of the activation
	Name() string

	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64
}

// Identity passes its input through unchanged.
type Identity struct{}

func (Identity) Name() string                 { return "identity" }
func (Identity) Activate(x float64) float64   { return x }
func (Identity) Derivative(x float64) float64 { return 1 }

// ReLU activation function.
type ReLU struct{}

func (ReLU) Name() string { return "relu" }

// Activate computes max(0, x)
func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// ReLU6 is ReLU capped at 6.
type ReLU6 struct{}

func (ReLU6) Name() string { return "relu6" }

func (ReLU6) Activate(x float64) float64 {
	return math.Min(math.Max(x, 0), 6)
}

func (ReLU6) Derivative(x float64) float64 {
	if x > 0 && x < 6 {
		return 1
	}
	return 0
}

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) LeakyReLU {
	return LeakyReLU{Alpha: alpha}
}

func (LeakyReLU) Name() string { return "leakyrelu" }

// Activate computes x if x > 0, else alpha*x
func (l LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

// ELU is the exponential linear unit.
type ELU struct {
	Alpha float64
}

func (ELU) Name() string { return "elu" }

// Activate computes x if x > 0, else alpha*(exp(x)-1)
func (e ELU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return e.Alpha * (math.Exp(x) - 1)
}

func (e ELU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return e.Alpha * math.Exp(x)
}

// Sigmoid activation function.
type Sigmoid struct{}

// sigmoid computes the sigmoid function
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (Sigmoid) Name() string { return "sigmoid" }

// Activate computes sigmoid(x)
func (Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// HardSigmoid is the piecewise linear approximation min(1, max(0, 0.2x+0.5)).
type HardSigmoid struct{}

func (HardSigmoid) Name() string { return "hardsigmoid" }

func (HardSigmoid) Activate(x float64) float64 {
	return math.Min(1, math.Max(0, 0.2*x+0.5))
}

func (HardSigmoid) Derivative(x float64) float64 {
	if y := 0.2*x + 0.5; y > 0 && y < 1 {
		return 0.2
	}
	return 0
}

// Tanh activation function.
type Tanh struct{}

func (Tanh) Name() string { return "tanh" }

// Activate computes tanh(x)
func (Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// HardTanh clips its input to [-1, 1].
type HardTanh struct{}

func (HardTanh) Name() string { return "hardtanh" }

func (HardTanh) Activate(x float64) float64 {
	return math.Min(1, math.Max(-1, x))
}

func (HardTanh) Derivative(x float64) float64 {
	if x > -1 && x < 1 {
		return 1
	}
	return 0
}

// Softplus computes log(1 + exp(x)).
type Softplus struct{}

func (Softplus) Name() string { return "softplus" }

func (Softplus) Activate(x float64) float64 {
	// log1p(exp(x)) overflows for large x
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

func (Softplus) Derivative(x float64) float64 {
	return sigmoid(x)
}

// Softsign computes x / (1 + |x|).
type Softsign struct{}

func (Softsign) Name() string { return "softsign" }

func (Softsign) Activate(x float64) float64 {
	return x / (1 + math.Abs(x))
}

func (Softsign) Derivative(x float64) float64 {
	d := 1 + math.Abs(x)
	return 1 / (d * d)
}

// Softmax normalizes a vector of logits to probabilities. Use Vector for the
// full function. Activate and Derivative treat x as a single logit against a
// zero reference, the two-class case, which reduces to sigmoid.
type Softmax struct{}

func (Softmax) Name() string { return "softmax" }

func (Softmax) Activate(x float64) float64 {
	return sigmoid(x)
}

func (Softmax) Derivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

// Vector writes softmax(x) to dst, which must have the length of x, and
// returns dst. The maximum logit is subtracted first so exp cannot overflow.
func (Softmax) Vector(dst, x []float64) []float64 {
	if len(dst) != len(x) {
		panic("activations: softmax length mismatch")
	}
	if len(x) == 0 {
		return dst
	}
	copy(dst, x)
	floats.AddConst(-floats.Max(x), dst)
	for i, v := range dst {
		dst[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(dst), dst)
	return dst
}

var registry = map[string]Activation{
	"identity":    Identity{},
	"linear":      Identity{},
	"relu":        ReLU{},
	"relu6":       ReLU6{},
	"leakyrelu":   NewLeakyReLU(0.01),
	"elu":         ELU{Alpha: 1},
	"sigmoid":     Sigmoid{},
	"hardsigmoid": HardSigmoid{},
	"tanh":        Tanh{},
	"hardtanh":    HardTanh{},
	"softplus":    Softplus{},
	"softsign":    Softsign{},
	"softmax":     Softmax{},
}

// Parse returns the activation registered under name. Matching ignores case,
// underscores and dashes, so "LEAKY_RELU" and "leakyrelu" are equivalent.
// An empty name yields Identity.
func Parse(name string) (Activation, error) {
	if name == "" {
		return Identity{}, nil
	}
	key := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	if a, ok := registry[key]; ok {
		return a, nil
	}
	return nil, errors.Wrapf(ErrUnknown, "%q", name)
}

// Names lists the accepted activation names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

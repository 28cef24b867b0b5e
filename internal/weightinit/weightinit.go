// Package weightinit provides the named weight initialization strategies a
// layer configuration can select.
//
// A strategy fills a parameter view in place from the layer's fan-in and
// fan-out. Random strategies draw from gonum distributions backed by the
// caller's source, so a fixed seed gives a fixed initialization.
package weightinit

import (
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrUnknown is returned for names that do not match any strategy.
	ErrUnknown = errors.New("unknown weight init")
	// ErrInvalid is returned for a known strategy with unusable settings.
	ErrInvalid = errors.New("invalid weight init")
)

// Strategy initializes a parameter view.
type Strategy interface {
	Name() string
	Init(fanIn, fanOut float64, values []float64, src rand.Source)
}

// Spec selects a strategy by name. Value is used by "constant", Mean and Std
// by "distribution".
type Spec struct {
	Name  string  `mapstructure:"name" json:"name"`
	Value float64 `mapstructure:"value" json:"value,omitempty"`
	Mean  float64 `mapstructure:"mean" json:"mean,omitempty"`
	Std   float64 `mapstructure:"std" json:"std,omitempty"`
}

// UnmarshalText lets a bare name stand in for a full Spec.
func (s *Spec) UnmarshalText(text []byte) error {
	*s = Spec{Name: string(text)}
	return nil
}

// Constant fills every value with V.
type Constant struct {
	name string
	V    float64
}

func (c Constant) Name() string { return c.name }

func (c Constant) Init(_, _ float64, values []float64, _ rand.Source) {
	for i := range values {
		values[i] = c.V
	}
}

// Normal draws from N(0, variance(fanIn, fanOut)).
type Normal struct {
	name     string
	variance func(fanIn, fanOut float64) float64
}

func (n Normal) Name() string { return n.name }

func (n Normal) Init(fanIn, fanOut float64, values []float64, src rand.Source) {
	fill(distuv.Normal{Mu: 0, Sigma: math.Sqrt(n.variance(fanIn, fanOut)), Src: src}, values)
}

// Uniform draws from U(-bound, bound).
type Uniform struct {
	name  string
	bound func(fanIn, fanOut float64) float64
}

func (u Uniform) Name() string { return u.name }

func (u Uniform) Init(fanIn, fanOut float64, values []float64, src rand.Source) {
	a := u.bound(fanIn, fanOut)
	fill(distuv.Uniform{Min: -a, Max: a, Src: src}, values)
}

// Distribution draws from N(Mean, Std²) regardless of fan-in and fan-out.
type Distribution struct {
	Mean, Std float64
}

func (Distribution) Name() string { return "distribution" }

func (d Distribution) Init(_, _ float64, values []float64, src rand.Source) {
	fill(distuv.Normal{Mu: d.Mean, Sigma: d.Std, Src: src}, values)
}

func fill(dist distuv.Rander, values []float64) {
	for i := range values {
		values[i] = dist.Rand()
	}
}

var registry = map[string]func(Spec) (Strategy, error){
	"zero": func(Spec) (Strategy, error) { return Constant{name: "zero"}, nil },
	"ones": func(Spec) (Strategy, error) { return Constant{name: "ones", V: 1}, nil },
	"constant": func(s Spec) (Strategy, error) {
		return Constant{name: "constant", V: s.Value}, nil
	},
	"uniform": func(Spec) (Strategy, error) {
		return Uniform{name: "uniform", bound: func(in, _ float64) float64 { return 1 / math.Sqrt(in) }}, nil
	},
	"xavier": func(Spec) (Strategy, error) {
		return Normal{name: "xavier", variance: func(in, out float64) float64 { return 2 / (in + out) }}, nil
	},
	"xavier_uniform": func(Spec) (Strategy, error) {
		return Uniform{name: "xavier_uniform", bound: func(in, out float64) float64 { return math.Sqrt(6 / (in + out)) }}, nil
	},
	"relu": func(Spec) (Strategy, error) {
		return Normal{name: "relu", variance: func(in, _ float64) float64 { return 2 / in }}, nil
	},
	"relu_uniform": func(Spec) (Strategy, error) {
		return Uniform{name: "relu_uniform", bound: func(in, _ float64) float64 { return math.Sqrt(6 / in) }}, nil
	},
	"lecun_normal": func(Spec) (Strategy, error) {
		return Normal{name: "lecun_normal", variance: func(in, _ float64) float64 { return 1 / in }}, nil
	},
	"distribution": func(s Spec) (Strategy, error) {
		if !(s.Std > 0) {
			return nil, errors.Wrapf(ErrInvalid, "distribution std must be > 0, got %v", s.Std)
		}
		return Distribution{Mean: s.Mean, Std: s.Std}, nil
	},
}

// New returns the strategy selected by spec. Names ignore case and treat
// dashes as underscores. An empty name selects "xavier".
func New(spec Spec) (Strategy, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(spec.Name)), "-", "_")
	if name == "" {
		name = "xavier"
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "%q", spec.Name)
	}
	return ctor(spec)
}

// Parse returns the strategy registered under name with default settings.
func Parse(name string) (Strategy, error) {
	return New(Spec{Name: name})
}

// Names lists the accepted strategy names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Package params allocates and initializes the parameters described by a
// layer's ParamTable.
//
// All parameters of a layer live in one flat view, laid out in table order
// (bias first, then weights). The named views returned by Init share that
// storage, as do the gonum matrices built on top of them.
package params

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/convshape/internal/layer"
)

// ErrViewSize is returned when the flat view does not match the table.
var ErrViewSize = errors.New("parameter view size mismatch")

// Views holds named slices into a layer's flat parameter view.
type Views struct {
	table  layer.ParamTable
	values map[string][]float64
}

// Init carves view into the parameters of l. When initialize is set, weights
// are filled by the layer's weight init strategy using src and the bias by
// its bias init constant; otherwise view is left as is, which is how a
// previously saved parameter buffer is attached.
func Init(l layer.Layer, view []float64, initialize bool, src rand.Source) (Views, error) {
	table, err := l.ParamTable()
	if err != nil {
		return Views{}, err
	}
	if n := table.NumParams(); len(view) != n {
		return Views{}, errors.Wrapf(ErrViewSize, "%s %q: expected %d values, got %d", l.Kind(), l.Name(), n, len(view))
	}

	v := Views{table: table, values: make(map[string][]float64, len(table))}
	off := 0
	for _, p := range table {
		n := p.Size()
		v.values[p.Name] = view[off : off+n : off+n]
		off += n
	}

	if initialize {
		if b, ok := v.values[layer.BiasKey]; ok {
			for i := range b {
				b[i] = l.BiasInit()
			}
		}
		l.WeightInit().Init(l.FanIn(), l.FanOut(), v.values[layer.WeightKey], src)
	}
	return v, nil
}

// Table returns the table the views were built from.
func (v Views) Table() layer.ParamTable {
	return v.table
}

// Get returns the view for name, or nil.
func (v Views) Get(name string) []float64 {
	return v.values[name]
}

// Weights returns W as a [nOut, nIn*kH*kW] matrix sharing the view's storage.
func (v Views) Weights() *mat.Dense {
	shape, ok := v.table.Shape(layer.WeightKey)
	if !ok {
		return nil
	}
	cols := 1
	for _, d := range shape[1:] {
		cols *= d
	}
	return mat.NewDense(shape[0], cols, v.values[layer.WeightKey])
}

// Bias returns b as a vector sharing the view's storage, or nil without bias.
func (v Views) Bias() *mat.VecDense {
	b, ok := v.values[layer.BiasKey]
	if !ok {
		return nil
	}
	return mat.NewVecDense(len(b), b)
}

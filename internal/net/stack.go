// Package net wires layer configurations into a stack and runs the shape
// inference pass over it.
package net

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/FlavioCFOliveira/convshape/internal/inputs"
	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/logutil"
	"github.com/FlavioCFOliveira/convshape/internal/params"
)

// Stack is an ordered list of layers fed by a single input type.
type Stack struct {
	input  inputs.InputType
	layers []layer.Layer
}

// NewStack creates a stack. Layers with nIn unset get it from the previous
// layer's output when the stack is resolved.
func NewStack(in inputs.InputType, layers ...layer.Layer) *Stack {
	return &Stack{input: in, layers: layers}
}

// Input returns the stack's input type.
func (s *Stack) Input() inputs.InputType {
	return s.input
}

// Layers returns the layers as configured, before nIn inference.
func (s *Stack) Layers() []layer.Layer {
	return s.layers
}

// Resolved is one layer after shape inference.
type Resolved struct {
	Index  int
	Layer  layer.Layer
	In     inputs.InputType
	Out    inputs.InputType
	Params layer.ParamTable
	// Offset of the layer's parameters in the stack's flat buffer
	Offset int
}

// Resolve walks the layers in order, inferring unset input channel counts
// and resolving every output type and parameter table.
func (s *Stack) Resolve() ([]Resolved, error) {
	cur := s.input
	offset := 0
	resolved := make([]Resolved, 0, len(s.layers))

	for i, l := range s.layers {
		if l.Expects() == inputs.CNN && cur.Type == inputs.CNNFlat {
			slog.Debug("reshaping flat input for convolution", "layer", i, "input", cur)
			cur = cur.Unflatten()
		}

		if cur.Type != l.Expects() {
			return nil, &layer.ConfigError{
				Kind: l.Kind(), Layer: l.Name(), Index: i,
				Msg: fmt.Sprintf("expected %v input, got %v", l.Expects(), cur),
				Err: layer.ErrInvalidInput,
			}
		}

		if cur.Type == inputs.CNN {
			switch {
			case l.NIn() <= 0:
				slog.Debug("inferred nIn", "layer", i, "name", l.Name(), "nIn", cur.Channels)
				l = l.WithNIn(cur.Channels)
			case l.NIn() != cur.Channels:
				return nil, &layer.ConfigError{
					Kind: l.Kind(), Layer: l.Name(), Index: i, Field: "n_in",
					Msg: fmt.Sprintf("nIn is %d but the input has %d channels", l.NIn(), cur.Channels),
					Err: layer.ErrInvalidInput,
				}
			}
		}

		out, err := l.OutputType(i, cur)
		if err != nil {
			return nil, err
		}
		table, err := l.ParamTable()
		if err != nil {
			return nil, err
		}

		logutil.Trace("resolved layer", "layer", i, "in", cur, "out", out, "params", table.NumParams())
		resolved = append(resolved, Resolved{Index: i, Layer: l, In: cur, Out: out, Params: table, Offset: offset})
		offset += table.NumParams()
		cur = out
	}

	return resolved, nil
}

// OutputType is the type produced by the last layer.
func (s *Stack) OutputType() (inputs.InputType, error) {
	resolved, err := s.Resolve()
	if err != nil {
		return inputs.InputType{}, err
	}
	if len(resolved) == 0 {
		return s.input, nil
	}
	return resolved[len(resolved)-1].Out, nil
}

// NumParams is the total parameter count of all layers.
func (s *Stack) NumParams() (int, error) {
	resolved, err := s.Resolve()
	if err != nil {
		return 0, err
	}
	return numParams(resolved), nil
}

func numParams(resolved []Resolved) int {
	if len(resolved) == 0 {
		return 0
	}
	last := resolved[len(resolved)-1]
	return last.Offset + last.Params.NumParams()
}

// InitParams allocates one flat buffer for the whole stack and builds every
// layer's views over its slice of it. Layers are initialized concurrently;
// layer i draws from a source seeded with seed+i, so the result does not
// depend on scheduling.
func (s *Stack) InitParams(ctx context.Context, seed uint64, initialize bool) ([]float64, []params.Views, error) {
	resolved, err := s.Resolve()
	if err != nil {
		return nil, nil, err
	}

	flat := make([]float64, numParams(resolved))
	views := make([]params.Views, len(resolved))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range resolved {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := r.Params.NumParams()
			v, err := params.Init(r.Layer, flat[r.Offset:r.Offset+n], initialize, rand.NewSource(seed+uint64(i)))
			if err != nil {
				return err
			}
			views[i] = v
			slog.Debug("initialized layer parameters", "layer", i, "name", r.Layer.Name(), "params", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return flat, views, nil
}

// Summary writes a per-layer table of types, shapes and parameter counts.
func (s *Stack) Summary(w io.Writer) error {
	resolved, err := s.Resolve()
	if err != nil {
		return err
	}

	var data [][]string
	for _, r := range resolved {
		name := r.Layer.Name()
		if name == "" {
			name = fmt.Sprintf("layer%d", r.Index)
		}
		data = append(data, []string{
			fmt.Sprint(r.Index),
			fmt.Sprintf("%s (%s)", name, r.Layer.Kind()),
			FormatShape(r.In.Shape()),
			FormatShape(r.Out.Shape()),
			fmt.Sprint(r.Params.NumParams()),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "LAYER (TYPE)", "INPUT", "OUTPUT", "PARAMS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	_, err = fmt.Fprintf(w, "Total params: %d\n", numParams(resolved))
	return err
}

// FormatShape renders a shape as "[a, b, c]".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

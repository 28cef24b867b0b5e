package net

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/params"
)

type convLayer interface {
	KernelSize() [2]int
	Stride() [2]int
	Padding() [2]int
	Dilation() [2]int
	Mode() layer.ConvolutionMode
}

func pair(v [2]int) []int32 {
	return []int32{int32(v[0]), int32(v[1])}
}

// WriteGGUF writes the parameters in views, one per resolved layer, as a
// GGUF file. Layer i's tensors are named "blk.i.weight" and "blk.i.bias" and
// its configuration is stored under "convshape.blk.i.*".
func (s *Stack) WriteGGUF(w io.Writer, views []params.Views, dt params.DType) error {
	resolved, err := s.Resolve()
	if err != nil {
		return err
	}
	if len(views) != len(resolved) {
		return errors.Errorf("expected parameter views for %d layers, got %d", len(resolved), len(views))
	}

	kvs := []params.KV{
		{Key: "general.architecture", Value: "convshape"},
		{Key: "convshape.input", Value: s.input.String()},
		{Key: "convshape.block_count", Value: uint32(len(resolved))},
	}

	var tensors []params.Tensor
	for i, r := range resolved {
		prefix := fmt.Sprintf("convshape.blk.%d.", i)
		kvs = append(kvs,
			params.KV{Key: prefix + "kind", Value: r.Layer.Kind()},
			params.KV{Key: prefix + "name", Value: r.Layer.Name()},
			params.KV{Key: prefix + "n_in", Value: uint32(r.Layer.NIn())},
			params.KV{Key: prefix + "n_out", Value: uint32(r.Layer.NOut())},
			params.KV{Key: prefix + "activation", Value: r.Layer.Activation().Name()},
		)
		if c, ok := r.Layer.(convLayer); ok {
			kvs = append(kvs,
				params.KV{Key: prefix + "kernel_size", Value: pair(c.KernelSize())},
				params.KV{Key: prefix + "stride", Value: pair(c.Stride())},
				params.KV{Key: prefix + "padding", Value: pair(c.Padding())},
				params.KV{Key: prefix + "dilation", Value: pair(c.Dilation())},
				params.KV{Key: prefix + "convolution_mode", Value: c.Mode().String()},
			)
		}

		for _, p := range r.Params {
			name := "weight"
			if p.Name == layer.BiasKey {
				name = "bias"
			}
			values := views[i].Get(p.Name)
			if len(values) != p.Size() {
				return errors.Wrapf(params.ErrViewSize, "layer %d parameter %s: expected %d values, got %d", i, p.Name, p.Size(), len(values))
			}
			tensors = append(tensors, params.Tensor{
				Name:   fmt.Sprintf("blk.%d.%s", i, name),
				Shape:  p.Shape,
				Values: values,
			})
		}
	}

	return params.WriteGGUF(w, kvs, tensors, dt)
}

package conf

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/convshape/internal/inputs"
	"github.com/FlavioCFOliveira/convshape/internal/layer"
	"github.com/FlavioCFOliveira/convshape/internal/net"
)

// Format is the encoding of a layer file.
type Format int

const (
	JSON Format = iota
	CBOR
)

// FormatFromPath picks the format from the file extension: ".cbor" is CBOR,
// anything else JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return CBOR
	}
	return JSON
}

// File is the document a layer stack is decoded from.
type File struct {
	Input  Input       `mapstructure:"input" json:"input"`
	Layers []LayerSpec `mapstructure:"layers" json:"layers"`
}

// Input describes the stack input. Type is one of "cnn", "cnn_flat", "ff" or "rnn".
type Input struct {
	Type     string `mapstructure:"type" json:"type"`
	Height   int    `mapstructure:"height" json:"height,omitempty"`
	Width    int    `mapstructure:"width" json:"width,omitempty"`
	Channels int    `mapstructure:"channels" json:"channels,omitempty"`
	Size     int    `mapstructure:"size" json:"size,omitempty"`
	Length   int    `mapstructure:"length" json:"length,omitempty"`
}

// LayerSpec is one layer entry. Type is "deconv2d" or "conv2d".
type LayerSpec struct {
	Type             string `mapstructure:"type" json:"type"`
	layer.ConvConfig `mapstructure:",squash"`
}

// InputType converts the input description.
func (in Input) InputType() (inputs.InputType, error) {
	switch strings.ToLower(strings.ReplaceAll(in.Type, "_", "")) {
	case "cnn", "convolutional":
		return inputs.Convolutional(in.Height, in.Width, in.Channels), nil
	case "cnnflat", "convolutionalflat":
		return inputs.ConvolutionalFlat(in.Height, in.Width, in.Channels), nil
	case "ff", "feedforward":
		return inputs.FeedForward(in.Size), nil
	case "rnn", "recurrent":
		return inputs.Recurrent(in.Size, in.Length), nil
	}
	return inputs.InputType{}, errors.Wrapf(layer.ErrInvalidConfig, "unknown input type %q", in.Type)
}

// Layer builds the validated layer. An empty weight init name falls back to
// the CONVSHAPE_WEIGHT_INIT setting.
func (s LayerSpec) Layer() (layer.Layer, error) {
	cfg := s.ConvConfig
	if cfg.WeightInit.Name == "" {
		cfg.WeightInit.Name = WeightInit
	}

	switch strings.ToLower(s.Type) {
	case "deconv2d", "deconvolution2d":
		return layer.NewDeconv2D(cfg)
	case "conv2d", "convolution2d":
		return layer.NewConv2D(cfg)
	}
	return nil, errors.Wrapf(layer.ErrInvalidConfig, "unknown layer type %q", s.Type)
}

// Stack builds the layer stack the file describes.
func (f File) Stack() (*net.Stack, error) {
	in, err := f.Input.InputType()
	if err != nil {
		return nil, err
	}

	layers := make([]layer.Layer, len(f.Layers))
	for i, spec := range f.Layers {
		if layers[i], err = spec.Layer(); err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
	}
	return net.NewStack(in, layers...), nil
}

// Decode reads a layer file. The document is first decoded to a generic map
// and then mapped onto File, so JSON and CBOR share key names and enum
// spellings. Unknown keys are rejected.
func Decode(r io.Reader, format Format) (File, error) {
	var raw map[string]any
	switch format {
	case CBOR:
		dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
		if err != nil {
			return File{}, err
		}
		if err := dm.NewDecoder(r).Decode(&raw); err != nil {
			return File{}, errors.Wrap(err, "decode cbor")
		}
	default:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return File{}, errors.Wrap(err, "decode json")
		}
	}

	var f File
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.TextUnmarshallerHookFunc(),
		ErrorUnused: true,
		Result:      &f,
	})
	if err != nil {
		return File{}, err
	}
	if err := d.Decode(raw); err != nil {
		return File{}, errors.Wrapf(layer.ErrInvalidConfig, "%v", err)
	}
	return f, nil
}

// Encode writes f in the given format. CBOR keys follow the json tags.
func Encode(w io.Writer, f File, format Format) error {
	if format == CBOR {
		return cbor.NewEncoder(w).Encode(f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// Load reads and builds the layer stack in path.
func Load(path string) (*net.Stack, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Decode(fh, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	s, err := f.Stack()
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

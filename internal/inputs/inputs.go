// Package inputs describes the shape of the activations flowing between layers.
package inputs

import "fmt"

// Type tags the kind of activation a layer consumes or produces.
type Type int

const (
	// FF is a flat feature vector per example.
	FF Type = iota
	// RNN is a feature vector per time step.
	RNN
	// CNN is a [channels, height, width] image per example.
	CNN
	// CNNFlat is a CNN activation flattened into a feature vector.
	CNNFlat
)

func (t Type) String() string {
	switch t {
	case FF:
		return "FF"
	case RNN:
		return "RNN"
	case CNN:
		return "CNN"
	case CNNFlat:
		return "CNNFlat"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// InputType is the shape tag attached to a layer input or output.
// Only the fields relevant to Type are set.
type InputType struct {
	Type Type

	// FF and RNN
	Size int
	// RNN time steps, 0 when variable
	Length int

	// CNN and CNNFlat
	Channels int
	Height   int
	Width    int
}

// FeedForward returns a flat input of the given size.
func FeedForward(size int) InputType {
	return InputType{Type: FF, Size: size}
}

// Recurrent returns a time series input. length may be 0 for variable length series.
func Recurrent(size, length int) InputType {
	return InputType{Type: RNN, Size: size, Length: length}
}

// Convolutional returns an image input with the given height, width and channel count.
func Convolutional(height, width, channels int) InputType {
	return InputType{Type: CNN, Channels: channels, Height: height, Width: width}
}

// ConvolutionalFlat returns an image input that arrives flattened to a vector.
func ConvolutionalFlat(height, width, channels int) InputType {
	return InputType{Type: CNNFlat, Channels: channels, Height: height, Width: width}
}

// Unflatten converts a CNNFlat type to the equivalent CNN type.
// Any other type is returned unchanged.
func (t InputType) Unflatten() InputType {
	if t.Type != CNNFlat {
		return t
	}
	return Convolutional(t.Height, t.Width, t.Channels)
}

// Shape returns the per-example shape: [C, H, W] for CNN, [C*H*W] for CNNFlat,
// [Size] for FF and [Size, Length] for RNN.
func (t InputType) Shape() []int {
	switch t.Type {
	case CNN:
		return []int{t.Channels, t.Height, t.Width}
	case CNNFlat:
		return []int{t.Channels * t.Height * t.Width}
	case RNN:
		return []int{t.Size, t.Length}
	default:
		return []int{t.Size}
	}
}

// ElementsPerExample returns the number of values a single example occupies.
// Variable length RNN inputs count one time step.
func (t InputType) ElementsPerExample() int {
	switch t.Type {
	case CNN, CNNFlat:
		return t.Channels * t.Height * t.Width
	case RNN:
		if t.Length > 0 {
			return t.Size * t.Length
		}
		return t.Size
	default:
		return t.Size
	}
}

func (t InputType) String() string {
	switch t.Type {
	case CNN:
		return fmt.Sprintf("InputTypeConvolutional(h=%d,w=%d,c=%d)", t.Height, t.Width, t.Channels)
	case CNNFlat:
		return fmt.Sprintf("InputTypeConvolutionalFlat(h=%d,w=%d,c=%d)", t.Height, t.Width, t.Channels)
	case RNN:
		return fmt.Sprintf("InputTypeRecurrent(%d,timeSeriesLength=%d)", t.Size, t.Length)
	default:
		return fmt.Sprintf("InputTypeFeedForward(%d)", t.Size)
	}
}

package layer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig marks a malformed layer configuration.
	ErrInvalidConfig = errors.New("invalid layer configuration")
	// ErrInvalidInput marks an input type the layer cannot consume.
	ErrInvalidInput = errors.New("invalid layer input")
)

// ConfigError reports a rejected layer configuration or input type.
// It unwraps to ErrInvalidConfig or ErrInvalidInput.
type ConfigError struct {
	Kind  string // layer kind, e.g. "Deconvolution2D"
	Layer string // layer name, may be empty
	Index int    // layer index, -1 when not known
	Field string // offending field, may be empty
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind)
	var ctx []string
	if e.Layer != "" {
		ctx = append(ctx, fmt.Sprintf("name=%q", e.Layer))
	}
	if e.Index >= 0 {
		ctx = append(ctx, fmt.Sprintf("index=%d", e.Index))
	}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if len(ctx) > 0 {
		b.WriteString(" (" + strings.Join(ctx, ", ") + ")")
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (b convBase) configErrorf(index int, field, format string, args ...any) error {
	return &ConfigError{Kind: b.kind, Layer: b.name, Index: index, Field: field, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidConfig}
}

func (b convBase) inputErrorf(index int, format string, args ...any) error {
	return &ConfigError{Kind: b.kind, Layer: b.name, Index: index, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidInput}
}

package layer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ConvolutionMode governs how padding and output size are derived.
type ConvolutionMode int

const (
	// Truncate uses the configured padding and drops any remainder.
	Truncate ConvolutionMode = iota
	// Same derives padding so the spatial size scales exactly with stride.
	Same
	// Strict uses the configured padding and rejects non-integer output sizes.
	Strict
)

func (m ConvolutionMode) String() string {
	switch m {
	case Truncate:
		return "Truncate"
	case Same:
		return "Same"
	case Strict:
		return "Strict"
	default:
		return fmt.Sprintf("ConvolutionMode(%d)", int(m))
	}
}

// ParseConvolutionMode parses a mode name, ignoring case.
func ParseConvolutionMode(s string) (ConvolutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "truncate":
		return Truncate, nil
	case "same":
		return Same, nil
	case "strict":
		return Strict, nil
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "unknown convolution mode %q", s)
}

func (m ConvolutionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ConvolutionMode) UnmarshalText(text []byte) error {
	v, err := ParseConvolutionMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

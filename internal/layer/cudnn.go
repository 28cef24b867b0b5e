package layer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// AlgoMode selects how a GPU backend picks its convolution algorithms.
type AlgoMode int

const (
	// PreferFastest lets the backend pick the fastest algorithm.
	PreferFastest AlgoMode = iota
	// NoWorkspace restricts the backend to algorithms without scratch memory.
	NoWorkspace
	// UserSpecified uses the algorithms named in CudnnConfig.
	UserSpecified
)

func (m AlgoMode) String() string {
	switch m {
	case PreferFastest:
		return "PreferFastest"
	case NoWorkspace:
		return "NoWorkspace"
	case UserSpecified:
		return "UserSpecified"
	default:
		return fmt.Sprintf("AlgoMode(%d)", int(m))
	}
}

func (m AlgoMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *AlgoMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.ReplaceAll(string(text), "_", "")) {
	case "", "preferfastest":
		*m = PreferFastest
	case "noworkspace":
		*m = NoWorkspace
	case "userspecified":
		*m = UserSpecified
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown cudnn algo mode %q", text)
	}
	return nil
}

var (
	fwdAlgos = []string{
		"implicit_gemm", "implicit_precomp_gemm", "gemm", "direct",
		"fft", "fft_tiling", "winograd", "winograd_nonfused",
	}
	bwdFilterAlgos = []string{
		"algo_0", "algo_1", "fft", "algo_3", "winograd", "winograd_nonfused", "fft_tiling",
	}
	bwdDataAlgos = []string{
		"algo_0", "algo_1", "fft", "fft_tiling", "winograd", "winograd_nonfused",
	}
)

// CudnnConfig carries the GPU algorithm preferences of a convolution layer.
// The values are validated here and otherwise passed through untouched.
type CudnnConfig struct {
	Mode      AlgoMode `mapstructure:"mode" json:"mode"`
	Fwd       string   `mapstructure:"fwd" json:"fwd,omitempty"`
	BwdFilter string   `mapstructure:"bwd_filter" json:"bwd_filter,omitempty"`
	BwdData   string   `mapstructure:"bwd_data" json:"bwd_data,omitempty"`
}

func (c CudnnConfig) validate(b convBase) error {
	check := func(field, v string, allowed []string) error {
		if v == "" {
			if c.Mode == UserSpecified {
				return b.configErrorf(-1, field, "algorithm must be set when cudnn mode is UserSpecified")
			}
			return nil
		}
		if !slices.Contains(allowed, strings.ToLower(v)) {
			return b.configErrorf(-1, field, "unknown algorithm %q, expected one of %v", v, allowed)
		}
		return nil
	}

	if err := check("cudnn.fwd", c.Fwd, fwdAlgos); err != nil {
		return err
	}
	if err := check("cudnn.bwd_filter", c.BwdFilter, bwdFilterAlgos); err != nil {
		return err
	}
	return check("cudnn.bwd_data", c.BwdData, bwdDataAlgos)
}

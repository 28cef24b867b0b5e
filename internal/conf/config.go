// Package conf loads layer stacks from files and settings from the environment.
package conf

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via CONVSHAPE_DEBUG in the environment
	Debug bool
	// Set via CONVSHAPE_SEED in the environment
	Seed uint64
	// Set via CONVSHAPE_WEIGHT_INIT in the environment
	WeightInit string
	// Set via CONVSHAPE_DTYPE in the environment
	DType string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"CONVSHAPE_DEBUG":       {"CONVSHAPE_DEBUG", Debug, "Show additional debug information (e.g. CONVSHAPE_DEBUG=1)"},
		"CONVSHAPE_SEED":        {"CONVSHAPE_SEED", Seed, "Seed for random parameter initialization (default 42)"},
		"CONVSHAPE_WEIGHT_INIT": {"CONVSHAPE_WEIGHT_INIT", WeightInit, "Weight init used when a layer does not name one (default \"xavier\")"},
		"CONVSHAPE_DTYPE":       {"CONVSHAPE_DTYPE", DType, "Data type for encoded parameters: f32, f16 or bf16 (default \"f32\")"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

// LoadConfig reads the environment into the package variables.
func LoadConfig() {
	Debug = false
	if debug := clean("CONVSHAPE_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	Seed = 42
	if seed := clean("CONVSHAPE_SEED"); seed != "" {
		s, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			slog.Error("invalid setting, ignoring", "CONVSHAPE_SEED", seed, "error", err)
		} else {
			Seed = s
		}
	}

	WeightInit = clean("CONVSHAPE_WEIGHT_INIT")
	if WeightInit == "" {
		WeightInit = "xavier"
	}

	DType = strings.ToLower(clean("CONVSHAPE_DTYPE"))
	if DType == "" {
		DType = "f32"
	}
}

package runner

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Configuration keys. Each is bound to the flag of the same name and to the
// environment variable TILED_<KEY> with dashes replaced by underscores.
const (
	KeyInput         = "input"
	KeyOutput        = "output"
	KeyAxes          = "axes"
	KeyTransform     = "transform"
	KeyParam         = "param"
	KeyTiles         = "tiles"
	KeyBlockMultiple = "block-multiple"
	KeyOverlap       = "overlap"
	KeyMeta          = "meta"
	KeyWorkers       = "workers"
	KeyMaxTiles      = "max-tiles"
	KeyMaxElements   = "max-elements"
	KeyChunks        = "chunks"
	KeyCompressor    = "compressor"
)

// Auto marks BlockMultiple and Overlap as taken from the model metadata.
const Auto = -1

// Config describes one prediction run.
type Config struct {
	Input     string
	Output    string
	Axes      string   // Axis string of the input; empty uses the file's axes or the default for its rank.
	Transform string   // Registry name.
	Params    []string // key=value transform parameters.

	Tiles         int
	BlockMultiple int // Auto: model metadata, else 1.
	Overlap       int // Auto: model metadata, else 0.
	Meta          string

	Workers     int
	MaxTiles    int // Retries with doubled tiles stop beyond this; <= Tiles disables retry.
	MaxElements int // Element budget per tile; 0 is unlimited.

	Chunks     []int
	Compressor string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Transform:     "identity",
		Tiles:         1,
		BlockMultiple: Auto,
		Overlap:       Auto,
		Workers:       1,
		MaxTiles:      64,
	}
}

// SetDefaults registers the DefaultConfig values with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyTransform, d.Transform)
	v.SetDefault(KeyTiles, d.Tiles)
	v.SetDefault(KeyBlockMultiple, d.BlockMultiple)
	v.SetDefault(KeyOverlap, d.Overlap)
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyMaxTiles, d.MaxTiles)
}

// FromViper reads a Config from v.
func FromViper(v *viper.Viper) Config {
	return Config{
		Input:         v.GetString(KeyInput),
		Output:        v.GetString(KeyOutput),
		Axes:          v.GetString(KeyAxes),
		Transform:     v.GetString(KeyTransform),
		Params:        v.GetStringSlice(KeyParam),
		Tiles:         v.GetInt(KeyTiles),
		BlockMultiple: v.GetInt(KeyBlockMultiple),
		Overlap:       v.GetInt(KeyOverlap),
		Meta:          v.GetString(KeyMeta),
		Workers:       v.GetInt(KeyWorkers),
		MaxTiles:      v.GetInt(KeyMaxTiles),
		MaxElements:   v.GetInt(KeyMaxElements),
		Chunks:        v.GetIntSlice(KeyChunks),
		Compressor:    v.GetString(KeyCompressor),
	}
}

// Validate checks the values that do not depend on the input.
func (c Config) Validate() error {
	switch {
	case c.Input == "":
		return errors.New("no input given")
	case c.Transform == "":
		return errors.New("no transform given")
	case c.Tiles < 1:
		return errors.Errorf("tiles must be at least 1, got %d", c.Tiles)
	case c.BlockMultiple != Auto && c.BlockMultiple < 1:
		return errors.Errorf("block multiple must be at least 1, got %d", c.BlockMultiple)
	case c.Overlap != Auto && c.Overlap < 0:
		return errors.Errorf("overlap must not be negative, got %d", c.Overlap)
	case c.Workers < 1:
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.MaxElements < 0:
		return errors.Errorf("max elements must not be negative, got %d", c.MaxElements)
	}
	return nil
}

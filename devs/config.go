package devs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RunConfig is the file-backed counterpart to the functional Options:
// worker count, block sizing, terminal time and wall-clock budget
// for operators who prefer a config file over Go call sites. It governs
// run parameters only, not the model tree itself (the project's model
// description format remains an external collaborator, spec.md §1).
type RunConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	BlockSize    int           `mapstructure:"block_size" yaml:"block_size"`
	TerminalTime float64       `mapstructure:"terminal_time" yaml:"terminal_time"`
	MaxWallClock time.Duration `mapstructure:"max_wall_clock" yaml:"max_wall_clock"`
}

// LoadRunConfig reads a YAML run-configuration file at path via viper and
// returns the Options it implies, grounded on niceyeti-tabular's viper
// config loading convention.
func LoadRunConfig(path string) ([]Option, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("workers", 0)
	v.SetDefault("block_size", DefaultBlockSize)
	v.SetDefault("terminal_time", float64(PosInf))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("devs: loading run config %q: %w", path, err)
	}

	var rc RunConfig
	if err := v.Unmarshal(&rc); err != nil {
		return nil, fmt.Errorf("devs: parsing run config %q: %w", path, err)
	}

	opts := []Option{
		WithWorkerPool(rc.Workers, rc.BlockSize),
		WithTerminalTime(Time(rc.TerminalTime)),
	}
	if rc.MaxWallClock > 0 {
		opts = append(opts, WithMaxWallClock(rc.MaxWallClock))
	}
	return opts, nil
}

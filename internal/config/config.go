// Package config is the app-wide settings struct unmarshalled from Viper,
// covering everything spec.md §6 says a configuration source must provide.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PrimerConfig names the fixed 5'/3' primers bracketing the randomized
// region, and the matcher tolerances applied against them.
type PrimerConfig struct {
	Primer5   string `mapstructure:"primer5"`
	Primer3   string `mapstructure:"primer3"`
	Tolerance int    `mapstructure:"tolerance"`

	MaxLeading  int `mapstructure:"max-leading"`
	MaxTrailing int `mapstructure:"max-trailing"`

	MinRandomized int `mapstructure:"min-randomized"`
	MaxRandomized int `mapstructure:"max-randomized"`

	MinMeanQuality float64 `mapstructure:"min-mean-quality"`
}

// CycleConfig describes one selection cycle's input files and optional
// demultiplexing barcodes.
type CycleConfig struct {
	Round   int    `mapstructure:"round"`
	Name    string `mapstructure:"name"`
	Forward string `mapstructure:"forward"`
	Reverse string `mapstructure:"reverse"`

	Barcode5 string `mapstructure:"barcode5"`
	Barcode3 string `mapstructure:"barcode3"`

	IsControl bool `mapstructure:"is-control"`
	IsCounter bool `mapstructure:"is-counter"`
	IsPerFile bool `mapstructure:"is-per-file"`
}

// StitchConfig controls the paired-end overlap stitcher.
type StitchConfig struct {
	MinOverlap      int     `mapstructure:"min-overlap"`
	MaxMismatchRate float64 `mapstructure:"max-mismatch-rate"`
}

// BloomConfig sizes the pool's and each cycle's Bloom filters.
type BloomConfig struct {
	Capacity uint64  `mapstructure:"capacity"`
	FPRate   float64 `mapstructure:"fp-rate"`
}

// CapRConfig controls the structural profiler.
type CapRConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	TemperatureC        float64 `mapstructure:"temperature-c"`
	MaxSpan             int     `mapstructure:"max-span"`
	MaxInteriorUnpaired int     `mapstructure:"max-interior-unpaired"`
}

// Config is the root-level settings struct, unmarshalled in full from a
// Viper source at process startup and passed explicitly into constructors
// thereafter (spec.md §9: no process-wide singleton).
type Config struct {
	ProjectPath string `mapstructure:"project-path"`
	MaxThreads  int    `mapstructure:"max-threads"`
	Kind        string `mapstructure:"kind"` // "fasta" or "fastq"

	Primer PrimerConfig  `mapstructure:"primer"`
	Cycles []CycleConfig `mapstructure:"cycles"`
	Stitch StitchConfig  `mapstructure:"stitch"`
	Bloom  BloomConfig   `mapstructure:"bloom"`
	CapR   CapRConfig    `mapstructure:"capr"`
}

// Load reads path (any format Viper supports: yaml, json, toml) and
// unmarshals it into a Config, applying defaults for unset fields.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("max-threads", 0) // 0 means "detect logical CPUs"
	v.SetDefault("kind", "fastq")
	v.SetDefault("bloom.capacity", uint64(1_000_000))
	v.SetDefault("bloom.fp-rate", 0.01)
	v.SetDefault("stitch.min-overlap", 10)
	v.SetDefault("stitch.max-mismatch-rate", 0.1)
	v.SetDefault("capr.temperature-c", 37.0)
	v.SetDefault("capr.max-span", 60)
	v.SetDefault("capr.max-interior-unpaired", 30)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode into struct: %w", err)
	}
	return c, nil
}

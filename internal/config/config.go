package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the environment variable prefix used by Load.
const EnvPrefix = "QSIM"

// MaxSupportedQubits bounds MaxQubits; 2^40 amplitudes is already 16 TiB.
const MaxSupportedQubits = 40

// Config validation errors
var (
	ErrInvalidTolerance        = errors.New("classical_tolerance must be positive")
	ErrInvalidCollapseTol      = errors.New("collapse_tolerance must be positive")
	ErrInvalidImaginaryTol     = errors.New("imaginary_tolerance must be positive")
	ErrInvalidMaxQubits        = errors.New("max_qubits must be between 1 and 40")
	ErrInvalidWorkers          = errors.New("workers must be positive")
	ErrInvalidParallelMinQubit = errors.New("parallel_min_qubits must be non-negative")
	ErrInvalidLogFormat        = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel         = errors.New("log_level must be debug, info, warn, or error")
)

// Config holds simulator configuration
type Config struct {
	Seed               uint64  `envconfig:"SEED" default:"0"` // 0 means derive from the clock
	ClassicalTolerance float64 `envconfig:"CLASSICAL_TOLERANCE" default:"1e-10"`
	CollapseTolerance  float64 `envconfig:"COLLAPSE_TOLERANCE" default:"1e-12"`
	ImaginaryTolerance float64 `envconfig:"IMAGINARY_TOLERANCE" default:"1e-9"`
	MaxQubits          int     `envconfig:"MAX_QUBITS" default:"30"`
	GateFusion         bool    `envconfig:"GATE_FUSION" default:"false"`
	Workers            int     `envconfig:"WORKERS" default:"1"`
	ParallelMinQubits  int     `envconfig:"PARALLEL_MIN_QUBITS" default:"14"`
	LogLevel           string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat          string  `envconfig:"LOG_FORMAT" default:"json"`
}

// Default returns the configuration envconfig would produce with no variables set.
func Default() Config {
	return Config{
		ClassicalTolerance: 1e-10,
		CollapseTolerance:  1e-12,
		ImaginaryTolerance: 1e-9,
		MaxQubits:          30,
		Workers:            1,
		ParallelMinQubits:  14,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads optional dotenv files and then the QSIM_* environment.
// Missing dotenv files are skipped; variables already set win over file values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func Validate(cfg *Config) error {
	if cfg.ClassicalTolerance <= 0 {
		return ErrInvalidTolerance
	}
	if cfg.CollapseTolerance <= 0 {
		return ErrInvalidCollapseTol
	}
	if cfg.ImaginaryTolerance <= 0 {
		return ErrInvalidImaginaryTol
	}
	if cfg.MaxQubits <= 0 || cfg.MaxQubits > MaxSupportedQubits {
		return ErrInvalidMaxQubits
	}
	if cfg.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if cfg.ParallelMinQubits < 0 {
		return ErrInvalidParallelMinQubit
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return nil
}

// ResolveSeed returns the configured seed, or a clock-derived one when unset.
func (c Config) ResolveSeed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(time.Now().UnixNano())
}

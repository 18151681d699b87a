package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies default values with a clean environment
func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SEED", "CLASSICAL_TOLERANCE", "MAX_QUBITS", "GATE_FUSION", "WORKERS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(EnvPrefix+"_"+k, "")
		_ = os.Unsetenv(EnvPrefix + "_" + k) //nolint:errcheck
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestLoadEnvVars verifies environment variable parsing
func TestLoadEnvVars(t *testing.T) {
	t.Setenv("QSIM_SEED", "42")
	t.Setenv("QSIM_MAX_QUBITS", "12")
	t.Setenv("QSIM_GATE_FUSION", "true")
	t.Setenv("QSIM_WORKERS", "4")
	t.Setenv("QSIM_CLASSICAL_TOLERANCE", "1e-8")
	t.Setenv("QSIM_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 12, cfg.MaxQubits)
	assert.True(t, cfg.GateFusion)
	assert.Equal(t, 4, cfg.Workers)
	assert.InDelta(t, 1e-8, cfg.ClassicalTolerance, 1e-20)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(42), cfg.ResolveSeed())
}

// TestLoadDotenv verifies values from a dotenv file and that the environment wins
func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QSIM_MAX_QUBITS=8\nQSIM_WORKERS=3\n"), 0o600))

	t.Setenv("QSIM_WORKERS", "2")
	t.Cleanup(func() { _ = os.Unsetenv("QSIM_MAX_QUBITS") })

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxQubits)
	assert.Equal(t, 2, cfg.Workers)
}

// TestLoadRejectsInvalid verifies validation runs after parsing
func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("QSIM_LOG_FORMAT", "xml")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidLogFormat)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"tolerance", func(c *Config) { c.ClassicalTolerance = 0 }, ErrInvalidTolerance},
		{"collapse tolerance", func(c *Config) { c.CollapseTolerance = -1 }, ErrInvalidCollapseTol},
		{"imaginary tolerance", func(c *Config) { c.ImaginaryTolerance = 0 }, ErrInvalidImaginaryTol},
		{"max qubits zero", func(c *Config) { c.MaxQubits = 0 }, ErrInvalidMaxQubits},
		{"max qubits huge", func(c *Config) { c.MaxQubits = 64 }, ErrInvalidMaxQubits},
		{"workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"parallel", func(c *Config) { c.ParallelMinQubits = -1 }, ErrInvalidParallelMinQubit},
		{"log format", func(c *Config) { c.LogFormat = "text" }, ErrInvalidLogFormat},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveSeedFromClock(t *testing.T) {
	cfg := Default()
	assert.NotZero(t, cfg.ResolveSeed())
}

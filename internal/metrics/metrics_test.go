package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsInitialization(t *testing.T) {
	assert.NotNil(t, OperationsTotal)
	assert.NotNil(t, OperationDurationSeconds)
	assert.NotNil(t, LiveQubits)
	assert.NotNil(t, StateVectorBytes)
	assert.NotNil(t, MeasurementOutcomesTotal)
	assert.NotNil(t, FusedBatchSize)
	assert.NotNil(t, GateApplicationsTotal)
	assert.NotNil(t, AmplitudePoolOperations)
	assert.NotNil(t, BitmapPoolOperations)
	assert.NotNil(t, ClassicalBits)
	assert.NotNil(t, LogEntriesTotal)
	assert.NotNil(t, LogErrorsTotal)
}

func TestMetricsRegistered(t *testing.T) {
	OperationsTotal.WithLabelValues("flush", "ok").Inc()
	OperationDurationSeconds.WithLabelValues("flush").Observe(1e-6)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, name := range []string{
		"qsim_operations_total",
		"qsim_operation_duration_seconds",
		"qsim_live_qubits",
		"qsim_state_vector_bytes",
		"qsim_classical_bits",
		"qsim_log_errors_total",
	} {
		assert.True(t, names[name], name)
	}
}

func TestGaugeArithmetic(t *testing.T) {
	before := testutil.ToFloat64(ClassicalBits)
	ClassicalBits.Add(3)
	ClassicalBits.Dec()
	assert.Equal(t, before+2, testutil.ToFloat64(ClassicalBits))
	ClassicalBits.Sub(2)
	assert.Equal(t, before, testutil.ToFloat64(ClassicalBits))
}

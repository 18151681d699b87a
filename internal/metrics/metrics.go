package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts processed simulator operations by kind and outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsim_operations_total",
			Help: "The total number of simulator operations processed",
		},
		[]string{"kind", "status"},
	)

	// OperationDurationSeconds measures the latency of simulator operations
	OperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qsim_operation_duration_seconds",
			Help:    "Duration of simulator operations",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		},
		[]string{"kind"},
	)

	// LiveQubits tracks the number of allocated qubits across simulators
	LiveQubits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qsim_live_qubits",
			Help: "Number of currently allocated qubits",
		},
	)

	// StateVectorBytes tracks the memory held by live amplitude vectors
	StateVectorBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qsim_state_vector_bytes",
			Help: "Bytes held by live amplitude vectors",
		},
	)

	// MeasurementOutcomesTotal counts measured qubit outcomes
	MeasurementOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsim_measurement_outcomes_total",
			Help: "Total number of measured qubit outcomes by value",
		},
		[]string{"value"},
	)

	// FusedBatchSize observes how many queued gates a flush applied
	FusedBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qsim_fused_batch_size",
			Help:    "Number of fused gates applied per flush",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)

	// GateApplicationsTotal counts kernel invocations by path
	GateApplicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsim_gate_applications_total",
			Help: "Total number of gate kernel applications by kernel path",
		},
		[]string{"path"},
	)

	// AmplitudePoolOperations counts amplitude buffer pool traffic
	AmplitudePoolOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsim_amplitude_pool_operations_total",
			Help: "Total number of amplitude buffer pool operations",
		},
		[]string{"op"},
	)

	// BitmapPoolOperations counts classical register bitmap pool traffic
	BitmapPoolOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsim_bitmap_pool_operations_total",
			Help: "Total number of classical register bitmap pool operations",
		},
		[]string{"op"},
	)

	// ClassicalBits tracks the number of allocated bits across classical simulators
	ClassicalBits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qsim_classical_bits",
			Help: "Number of currently allocated classical simulator bits",
		},
	)

	// LogEntriesTotal counts log entries by level
	LogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsim_log_entries_total",
			Help: "Total number of log entries by level",
		},
		[]string{"level"},
	)

	// LogErrorsTotal counts error-level log entries specifically
	LogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qsim_log_errors_total",
			Help: "Total number of error log entries",
		},
	)
)

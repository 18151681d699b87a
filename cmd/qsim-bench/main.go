package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/23skdu/qsim/internal/classical"
	"github.com/23skdu/qsim/internal/config"
	"github.com/23skdu/qsim/internal/export"
	"github.com/23skdu/qsim/internal/logging"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/23skdu/qsim/internal/simulator"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	qubits      = flag.Int("qubits", 16, "Number of qubits")
	depth       = flag.Int("depth", 20, "Layers in the random circuit")
	repeat      = flag.Int("repeat", 3, "Runs per circuit")
	workers     = flag.Int("workers", 0, "Gate workers (0 keeps QSIM_WORKERS)")
	fusion      = flag.Bool("fusion", false, "Enable gate fusion")
	seed        = flag.Uint64("seed", 0, "Sampling and circuit seed (0 keeps QSIM_SEED)")
	envFile     = flag.String("env", ".env", "Optional dotenv file")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address and keep running (e.g. 0.0.0.0:9090)")
	threshold   = flag.Float64("export-threshold", 1e-6, "Probability below which exported rows are dropped")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg)

	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			logger.Info().Str("address", *metricsAddr).Msg("Starting metrics server")
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
	}

	fmt.Printf("Starting benchmark:\n")
	fmt.Printf("  Qubits:  %d\n", *qubits)
	fmt.Printf("  Depth:   %d\n", *depth)
	fmt.Printf("  Repeat:  %d\n", *repeat)
	fmt.Printf("  Workers: %d\n", cfg.Workers)
	fmt.Printf("  Fusion:  %t\n", cfg.GateFusion)
	fmt.Printf("  Seed:    %d\n", cfg.Seed)

	ctx := context.Background()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("benchmark failed")
		os.Exit(1)
	}

	if *metricsAddr != "" {
		select {}
	}
}

func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			if *workers > 0 {
				cfg.Workers = *workers
			}
		case "fusion":
			cfg.GateFusion = *fusion
		case "seed":
			cfg.Seed = *seed
		}
	})
	if cfg.MaxQubits < *qubits {
		cfg.MaxQubits = *qubits
	}
	cfg.Seed = cfg.ResolveSeed()
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1))
	var ghz, layered latency

	for i := 0; i < *repeat; i++ {
		if err := timeCircuit(ctx, cfg, logger, "ghz", ghzCircuit(*qubits), &ghz, checkGHZ); err != nil {
			return err
		}
		if err := timeCircuit(ctx, cfg, logger, "layered", layeredCircuit(r, *qubits, *depth), &layered, exportSnapshot); err != nil {
			return err
		}
	}

	if err := runClassicalAdder(ctx, logger); err != nil {
		return err
	}

	printResults("GHZ", &ghz)
	printResults("Layered", &layered)
	return nil
}

// timeCircuit runs circuit on a fresh simulator, inspects the final state and
// then measures and releases every qubit.
func timeCircuit(ctx context.Context, cfg config.Config, logger zerolog.Logger, name string, circuit []ops.Op,
	l *latency, inspect func(*simulator.Simulator) error,
) error {
	registry := ops.NewRegistry()
	sim, err := simulator.New(cfg, simulator.WithLogger(logger), simulator.WithResultSink(registry))
	if err != nil {
		return err
	}
	defer sim.Close()

	start := time.Now()
	if err := sim.Receive(ctx, circuit); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	l.Record(time.Since(start))

	if err := inspect(sim); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sim.Receive(ctx, measureAndRelease(*qubits)); err != nil {
		return fmt.Errorf("%s: release: %w", name, err)
	}
	logger.Debug().Str("circuit", name).Int("results", registry.Len()).Msg("circuit finished")
	return nil
}

func checkGHZ(sim *simulator.Simulator) error {
	zeros := make([]bool, *qubits)
	p, err := sim.Probability(zeros, ids(*qubits))
	if err != nil {
		return err
	}
	fmt.Printf("GHZ P(0...0) = %.6f\n", p)
	return nil
}

func exportSnapshot(sim *simulator.Simulator) error {
	snap, err := sim.DebugSnapshot()
	if err != nil {
		return err
	}
	rec, err := export.ToRecord(memory.NewGoAllocator(), snap, *threshold)
	if err != nil {
		return err
	}
	defer rec.Release()
	fmt.Printf("Layered state: %d of %d amplitudes above %g\n", rec.NumRows(), len(snap.Amplitudes), *threshold)
	return nil
}

func runClassicalAdder(ctx context.Context, logger zerolog.Logger) error {
	const width = 8
	registry := ops.NewRegistry()
	sim := classical.New(classical.WithResultSink(registry), classical.WithLogger(logger))
	defer sim.Close()

	if err := sim.Receive(ctx, adderCircuit(width, 200, 77)); err != nil {
		return fmt.Errorf("classical adder: %w", err)
	}
	sum, err := sim.ReadRegister(ids(width))
	if err != nil {
		return err
	}
	fmt.Printf("Classical (200 + 77) mod 256 = %d\n", sum)
	return nil
}

// Latency tracking
type latency struct {
	total time.Duration
	count int
	max   time.Duration
}

func (l *latency) Record(d time.Duration) {
	l.total += d
	l.count++
	if d > l.max {
		l.max = d
	}
}

func (l *latency) Avg() time.Duration {
	if l.count == 0 {
		return 0
	}
	return l.total / time.Duration(l.count)
}

func printResults(name string, l *latency) {
	fmt.Printf("\n--- %s ---\n", name)
	fmt.Printf("Runs:        %d\n", l.count)
	fmt.Printf("Avg Latency: %v\n", l.Avg())
	fmt.Printf("Max Latency: %v\n", l.max)
}

// Package export converts state snapshots to and from Arrow records.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/23skdu/qsim/internal/config"
	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/state"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const (
	numQubitsKey   = "qsim.num_qubits"
	qubitKeyPrefix = "qsim.qubit."
)

// Column order of exported records.
const (
	ColIndex = iota
	ColReal
	ColImag
	ColProbability
)

func schema(snap state.Snapshot) *arrow.Schema {
	keys := []string{numQubitsKey}
	values := []string{strconv.Itoa(snap.NumQubits())}
	for id, pos := range snap.Positions {
		keys = append(keys, qubitKeyPrefix+strconv.Itoa(id))
		values = append(values, strconv.Itoa(pos))
	}
	md := arrow.NewMetadata(keys, values)
	return arrow.NewSchema([]arrow.Field{
		{Name: "index", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "real", Type: arrow.PrimitiveTypes.Float64},
		{Name: "imag", Type: arrow.PrimitiveTypes.Float64},
		{Name: "probability", Type: arrow.PrimitiveTypes.Float64},
	}, &md)
}

// ToRecord builds one row per basis index whose probability is at least
// threshold; a threshold of 0 keeps every row. Qubit positions travel as
// schema metadata. The caller must Release the record.
func ToRecord(mem memory.Allocator, snap state.Snapshot, threshold float64) (arrow.Record, error) {
	if len(snap.Amplitudes) != 1<<snap.NumQubits() {
		return nil, qerrors.NewInvalidArgumentError("export",
			fmt.Sprintf("%d amplitudes for %d qubits", len(snap.Amplitudes), snap.NumQubits()))
	}
	if threshold < 0 {
		return nil, qerrors.NewInvalidArgumentError("export", "threshold must be non-negative")
	}

	b := array.NewRecordBuilder(mem, schema(snap))
	defer b.Release()

	idx := b.Field(ColIndex).(*array.Uint64Builder)
	re := b.Field(ColReal).(*array.Float64Builder)
	im := b.Field(ColImag).(*array.Float64Builder)
	prob := b.Field(ColProbability).(*array.Float64Builder)
	for i, a := range snap.Amplitudes {
		p := state.Abs2(a)
		if threshold > 0 && p < threshold {
			continue
		}
		idx.Append(uint64(i))
		re.Append(real(a))
		im.Append(imag(a))
		prob.Append(p)
	}
	return b.NewRecord(), nil
}

// ToSnapshot rebuilds a snapshot from a record produced by ToRecord. Rows
// dropped by the threshold come back as zero amplitudes.
func ToSnapshot(rec arrow.Record) (state.Snapshot, error) {
	md := rec.Schema().Metadata()
	at := md.FindKey(numQubitsKey)
	if at < 0 {
		return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", "record has no qubit count")
	}
	n, err := strconv.Atoi(md.Values()[at])
	if err != nil || n < 0 || n > config.MaxSupportedQubits {
		return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", fmt.Sprintf("bad qubit count %q", md.Values()[at]))
	}

	positions := make(map[int]int, n)
	taken := make(map[int]bool, n)
	for i, key := range md.Keys() {
		if !strings.HasPrefix(key, qubitKeyPrefix) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(key, qubitKeyPrefix))
		if err != nil {
			return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", fmt.Sprintf("bad qubit key %q", key))
		}
		pos, err := strconv.Atoi(md.Values()[i])
		if err != nil || pos < 0 || pos >= n || taken[pos] {
			return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", fmt.Sprintf("bad position for qubit %d", id))
		}
		positions[id] = pos
		taken[pos] = true
	}
	if len(positions) != n {
		return state.Snapshot{}, qerrors.NewIncompleteRegisterError("import", len(positions), n)
	}

	if rec.NumCols() != 4 {
		return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", fmt.Sprintf("expected 4 columns, got %d", rec.NumCols()))
	}
	idx, ok1 := rec.Column(ColIndex).(*array.Uint64)
	re, ok2 := rec.Column(ColReal).(*array.Float64)
	im, ok3 := rec.Column(ColImag).(*array.Float64)
	if !ok1 || !ok2 || !ok3 {
		return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", "unexpected column types")
	}

	amps := make([]complex128, 1<<n)
	for row := 0; row < int(rec.NumRows()); row++ {
		i := idx.Value(row)
		if i >= uint64(len(amps)) {
			return state.Snapshot{}, qerrors.NewInvalidArgumentError("import", fmt.Sprintf("index %d out of range", i))
		}
		amps[i] = complex(re.Value(row), im.Value(row))
	}
	return state.Snapshot{Positions: positions, Amplitudes: amps}, nil
}

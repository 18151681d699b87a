// Package ops defines the operation stream consumed by the simulator backends
// and the collaborator interfaces they report through.
package ops

import (
	"fmt"

	"github.com/23skdu/qsim/internal/emulate"
	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/operator"
)

// Kind tags the variant carried by an Op.
type Kind uint8

const (
	KindAllocate Kind = iota + 1
	KindDeallocate
	KindUnitary
	KindMeasure
	KindFunction
	KindTimeEvolution
	KindFlush
)

var kindNames = map[Kind]string{
	KindAllocate:      "allocate",
	KindDeallocate:    "deallocate",
	KindUnitary:       "unitary",
	KindMeasure:       "measure",
	KindFunction:      "function",
	KindTimeEvolution: "time_evolution",
	KindFlush:         "flush",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Op is one command in the stream. Which fields are meaningful depends on Kind:
//
//	Allocate, Deallocate: Qubits[0][0]
//	Unitary:              Matrix on Qubits[0], Controls
//	Measure:              Qubits[0], optional LogicalIDs of the same length
//	Function:             Func over the registers Qubits, Controls
//	TimeEvolution:        Operator over Qubits[0] for Time, Controls
//	Flush:                nothing
type Op struct {
	Kind       Kind
	Qubits     [][]int
	Controls   []int
	Matrix     kernel.Matrix
	Func       emulate.Func
	Operator   operator.Operator
	Time       float64
	LogicalIDs []int
}

// Allocate adds qubit id.
func Allocate(id int) Op {
	return Op{Kind: KindAllocate, Qubits: [][]int{{id}}}
}

// Deallocate removes qubit id, which must hold a classical value.
func Deallocate(id int) Op {
	return Op{Kind: KindDeallocate, Qubits: [][]int{{id}}}
}

// Unitary applies m to targets on the subspace where every control is 1.
func Unitary(m kernel.Matrix, targets []int, controls ...int) Op {
	return Op{Kind: KindUnitary, Matrix: m, Qubits: [][]int{targets}, Controls: controls}
}

// Measure measures ids in the computational basis.
func Measure(ids ...int) Op {
	return Op{Kind: KindMeasure, Qubits: [][]int{ids}}
}

// MeasureAs measures ids and reports each result under the matching logical id.
func MeasureAs(ids, logical []int) Op {
	return Op{Kind: KindMeasure, Qubits: [][]int{ids}, LogicalIDs: logical}
}

// Function applies a reversible classical function to registers.
func Function(f emulate.Func, registers [][]int, controls ...int) Op {
	return Op{Kind: KindFunction, Func: f, Qubits: registers, Controls: controls}
}

// TimeEvolution evolves ids under op for time t.
func TimeEvolution(op operator.Operator, t float64, ids []int, controls ...int) Op {
	return Op{Kind: KindTimeEvolution, Operator: op, Time: t, Qubits: [][]int{ids}, Controls: controls}
}

// Flush forces pending work to run.
func Flush() Op {
	return Op{Kind: KindFlush}
}

// Targets returns the first qubit list, or nil.
func (o Op) Targets() []int {
	if len(o.Qubits) == 0 {
		return nil
	}
	return o.Qubits[0]
}

// Qubit returns the single id of an allocate or deallocate.
func (o Op) Qubit() (int, bool) {
	t := o.Targets()
	if len(t) != 1 {
		return 0, false
	}
	return t[0], true
}

// ReportID returns the id a measurement of Targets()[i] is reported under.
func (o Op) ReportID(i int) int {
	if i < len(o.LogicalIDs) {
		return o.LogicalIDs[i]
	}
	return o.Targets()[i]
}

func (o Op) String() string {
	switch o.Kind {
	case KindUnitary:
		return fmt.Sprintf("%s(%dx%d) %v ctrl=%v", o.Kind, o.Matrix.Dim(), o.Matrix.Dim(), o.Targets(), o.Controls)
	case KindFlush:
		return o.Kind.String()
	default:
		return fmt.Sprintf("%s %v ctrl=%v", o.Kind, o.Qubits, o.Controls)
	}
}

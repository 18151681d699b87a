package kernel

import (
	"math"
	"math/cmplx"
)

var invSqrt2 = complex(1/math.Sqrt2, 0)

// Identity returns the 2^k x 2^k identity.
func Identity(k int) Matrix {
	n := 1 << k
	data := make([]complex128, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return Matrix{dim: n, data: data}
}

// H returns the Hadamard gate.
func H() Matrix {
	return Matrix{dim: 2, data: []complex128{invSqrt2, invSqrt2, invSqrt2, -invSqrt2}}
}

// X returns the Pauli-X (NOT) gate.
func X() Matrix { return Matrix{dim: 2, data: []complex128{0, 1, 1, 0}} }

// Y returns the Pauli-Y gate.
func Y() Matrix { return Matrix{dim: 2, data: []complex128{0, -1i, 1i, 0}} }

// Z returns the Pauli-Z gate.
func Z() Matrix { return Matrix{dim: 2, data: []complex128{1, 0, 0, -1}} }

// S returns the quarter-turn phase gate diag(1, i).
func S() Matrix { return Phase(math.Pi / 2) }

// Sdg returns the inverse of S.
func Sdg() Matrix { return Phase(-math.Pi / 2) }

// T returns the eighth-turn phase gate diag(1, e^{iπ/4}).
func T() Matrix { return Phase(math.Pi / 4) }

// Tdg returns the inverse of T.
func Tdg() Matrix { return Phase(-math.Pi / 4) }

// Phase returns diag(1, e^{iθ}).
func Phase(theta float64) Matrix {
	return Matrix{dim: 2, data: []complex128{1, 0, 0, cmplx.Exp(complex(0, theta))}}
}

// Rx returns exp(-iθX/2).
func Rx(theta float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return Matrix{dim: 2, data: []complex128{c, s, s, c}}
}

// Ry returns exp(-iθY/2).
func Ry(theta float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return Matrix{dim: 2, data: []complex128{c, -s, s, c}}
}

// Rz returns exp(-iθZ/2).
func Rz(theta float64) Matrix {
	return Matrix{dim: 2, data: []complex128{
		cmplx.Exp(complex(0, -theta/2)), 0,
		0, cmplx.Exp(complex(0, theta/2)),
	}}
}

// Swap exchanges two qubits.
func Swap() Matrix {
	return Matrix{dim: 4, data: []complex128{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}}
}

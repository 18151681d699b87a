package kernel

import (
	"fmt"
	"math/cmplx"

	qerrors "github.com/23skdu/qsim/internal/errors"
)

// MaxTargets is the largest number of target qubits a dense gate may act on.
const MaxTargets = 5

// Matrix is a dense square 2^k x 2^k complex matrix stored row-major.
type Matrix struct {
	dim  int
	data []complex128
}

// NewMatrix validates rows and copies them into a Matrix.
func NewMatrix(rows [][]complex128) (Matrix, error) {
	dim := len(rows)
	if dim == 0 || dim&(dim-1) != 0 || dim > 1<<MaxTargets {
		return Matrix{}, qerrors.NewGateSizeError("new_matrix", dim, log2(dim))
	}
	data := make([]complex128, 0, dim*dim)
	for r, row := range rows {
		if len(row) != dim {
			return Matrix{}, qerrors.NewGateSizeError("new_matrix", dim, log2(dim)).
				WithContext("row", r).
				WithContext("columns", len(row))
		}
		data = append(data, row...)
	}
	return Matrix{dim: dim, data: data}, nil
}

// MustMatrix is NewMatrix for literals known to be well formed.
func MustMatrix(rows [][]complex128) Matrix {
	m, err := NewMatrix(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// Dim returns the number of rows (and columns).
func (m Matrix) Dim() int { return m.dim }

// Qubits returns k for a 2^k x 2^k matrix.
func (m Matrix) Qubits() int { return log2(m.dim) }

// At returns element (r, c).
func (m Matrix) At(r, c int) complex128 { return m.data[r*m.dim+c] }

// Rows returns a copy of the matrix as nested slices.
func (m Matrix) Rows() [][]complex128 {
	rows := make([][]complex128, m.dim)
	for r := range rows {
		rows[r] = append([]complex128(nil), m.data[r*m.dim:(r+1)*m.dim]...)
	}
	return rows
}

// IsZero reports whether m is the zero value (no dimension).
func (m Matrix) IsZero() bool { return m.dim == 0 }

// Mul returns a·b. Both operands must have the same dimension.
func Mul(a, b Matrix) (Matrix, error) {
	if a.dim != b.dim {
		return Matrix{}, qerrors.NewInvalidArgumentError("mul", fmt.Sprintf("dimension mismatch %d vs %d", a.dim, b.dim))
	}
	n := a.dim
	out := make([]complex128, n*n)
	for r := 0; r < n; r++ {
		for k := 0; k < n; k++ {
			ark := a.data[r*n+k]
			if ark == 0 {
				continue
			}
			for c := 0; c < n; c++ {
				out[r*n+c] += ark * b.data[k*n+c]
			}
		}
	}
	return Matrix{dim: n, data: out}, nil
}

// Kron returns the Kronecker product a⊗b. In the qubit convention used by Apply,
// b acts on the lower-indexed targets.
func Kron(a, b Matrix) (Matrix, error) {
	n := a.dim * b.dim
	if n > 1<<MaxTargets {
		return Matrix{}, qerrors.NewGateSizeError("kron", n, log2(n))
	}
	out := make([]complex128, n*n)
	for ar := 0; ar < a.dim; ar++ {
		for ac := 0; ac < a.dim; ac++ {
			av := a.data[ar*a.dim+ac]
			for br := 0; br < b.dim; br++ {
				for bc := 0; bc < b.dim; bc++ {
					out[(ar*b.dim+br)*n+ac*b.dim+bc] = av * b.data[br*b.dim+bc]
				}
			}
		}
	}
	return Matrix{dim: n, data: out}, nil
}

// Dagger returns the conjugate transpose.
func (m Matrix) Dagger() Matrix {
	n := m.dim
	out := make([]complex128, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			out[c*n+r] = cmplx.Conj(m.data[r*n+c])
		}
	}
	return Matrix{dim: n, data: out}
}

// IsUnitary reports whether m·m† is the identity within tol.
func (m Matrix) IsUnitary(tol float64) bool {
	if m.dim == 0 {
		return false
	}
	p, err := Mul(m, m.Dagger())
	if err != nil {
		return false
	}
	for r := 0; r < m.dim; r++ {
		for c := 0; c < m.dim; c++ {
			want := complex128(0)
			if r == c {
				want = 1
			}
			if cmplx.Abs(p.data[r*m.dim+c]-want) > tol {
				return false
			}
		}
	}
	return true
}

// ApproxEqual reports whether m and o have the same dimension and every entry
// differs by at most tol.
func (m Matrix) ApproxEqual(o Matrix, tol float64) bool {
	if m.dim != o.dim {
		return false
	}
	for i, v := range m.data {
		if cmplx.Abs(v-o.data[i]) > tol {
			return false
		}
	}
	return true
}

func log2(n int) int {
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}

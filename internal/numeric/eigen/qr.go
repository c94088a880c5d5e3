package eigen

import (
	"fmt"
	"math"
	"sort"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// QRParams configures the shifted QR eigenvalue iteration.
type QRParams struct {
	// Tol is the off-diagonal deflation tolerance, relative to the
	// neighboring diagonal entries. Defaults to 1e-12.
	Tol float64

	// MaxIter bounds the total number of QR sweeps. Defaults to
	// 100·n for an n×n matrix.
	MaxIter int

	// Interrupt, when non-nil, is polled once per sweep; a non-nil
	// error aborts the iteration with that error.
	Interrupt func() error
}

func (p QRParams) withDefaults(n int) QRParams {
	if p.Tol <= 0 {
		p.Tol = 1e-12
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 100 * n
	}
	return p
}

// QREigen computes all eigenvalues of the symmetric matrix a by
// Householder reduction to tridiagonal form followed by shifted QR
// iteration with deflation. Eigenvalues are returned in descending
// order. The input must be symmetric within tolerance.
func QREigen(a mat.Matrix, p QRParams) ([]float64, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("eigen: matrix must be square: %w", numeric.ErrDimensionMismatch)
	}
	n := r
	p = p.withDefaults(n)

	if err := checkSymmetric(a, p.Tol); err != nil {
		return nil, err
	}

	h := mat.NewDense(n, n, nil)
	h.Copy(a)
	hessenberg(h)

	// Shifted QR with deflation: work on the leading active block and
	// peel converged eigenvalues off its bottom-right corner.
	eigs := make([]float64, 0, n)
	m := n
	for iter := 0; m > 0; iter++ {
		if m == 1 {
			eigs = append(eigs, h.At(0, 0))
			break
		}
		if off := math.Abs(h.At(m-1, m-2)); off <= p.Tol*(math.Abs(h.At(m-2, m-2))+math.Abs(h.At(m-1, m-1))) {
			eigs = append(eigs, h.At(m-1, m-1))
			m--
			continue
		}
		if iter >= p.MaxIter {
			return nil, fmt.Errorf("eigen: QR iteration: %w", numeric.ErrMaxIterations)
		}
		if p.Interrupt != nil {
			if err := p.Interrupt(); err != nil {
				return nil, fmt.Errorf("eigen: QR iteration interrupted: %w", err)
			}
		}

		sigma := wilkinsonShift(
			h.At(m-2, m-2), h.At(m-2, m-1),
			h.At(m-1, m-2), h.At(m-1, m-1),
		)

		block := h.Slice(0, m, 0, m).(*mat.Dense)
		for i := 0; i < m; i++ {
			block.Set(i, i, block.At(i, i)-sigma)
		}

		var qr mat.QR
		qr.Factorize(block)
		var q, rr mat.Dense
		qr.QTo(&q)
		qr.RTo(&rr)

		block.Mul(&rr, &q)
		for i := 0; i < m; i++ {
			block.Set(i, i, block.At(i, i)+sigma)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(eigs)))
	return eigs, nil
}

// checkSymmetric verifies max |a_ij - a_ji| ≤ tol·(1 + max|a_ij|).
func checkSymmetric(a mat.Matrix, tol float64) error {
	n, _ := a.Dims()
	scale := 0.0
	asym := 0.0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			scale = math.Max(scale, math.Abs(a.At(i, j)))
			asym = math.Max(asym, math.Abs(a.At(i, j)-a.At(j, i)))
		}
	}
	if asym > tol*(1+scale) {
		return fmt.Errorf("eigen: matrix is not symmetric (asymmetry %.3g): %w",
			asym, numeric.ErrInvalidParameter)
	}
	return nil
}

// hessenberg reduces h in place to upper Hessenberg form by Householder
// similarity transforms. For symmetric input the result is tridiagonal.
func hessenberg(h *mat.Dense) {
	n, _ := h.Dims()
	for k := 0; k < n-2; k++ {
		// Householder vector annihilating h[k+2:, k].
		alpha := 0.0
		for i := k + 1; i < n; i++ {
			alpha += h.At(i, k) * h.At(i, k)
		}
		alpha = math.Sqrt(alpha)
		if alpha == 0 {
			continue
		}
		if h.At(k+1, k) > 0 {
			alpha = -alpha
		}

		v := make([]float64, n)
		v[k+1] = h.At(k+1, k) - alpha
		for i := k + 2; i < n; i++ {
			v[i] = h.At(i, k)
		}
		vnorm := 0.0
		for i := k + 1; i < n; i++ {
			vnorm += v[i] * v[i]
		}
		if vnorm == 0 {
			continue
		}

		// H ← (I - 2vvᵀ/vᵀv)·H: rows k+1..n-1.
		for j := 0; j < n; j++ {
			dot := 0.0
			for i := k + 1; i < n; i++ {
				dot += v[i] * h.At(i, j)
			}
			coeff := 2 * dot / vnorm
			for i := k + 1; i < n; i++ {
				h.Set(i, j, h.At(i, j)-coeff*v[i])
			}
		}
		// H ← H·(I - 2vvᵀ/vᵀv): columns k+1..n-1.
		for i := 0; i < n; i++ {
			dot := 0.0
			for j := k + 1; j < n; j++ {
				dot += h.At(i, j) * v[j]
			}
			coeff := 2 * dot / vnorm
			for j := k + 1; j < n; j++ {
				h.Set(i, j, h.At(i, j)-coeff*v[j])
			}
		}
	}
}

// wilkinsonShift returns the eigenvalue of the trailing 2×2 block
// [[a, b], [c, d]] closest to d. For the symmetric case b == c and the
// shift is real; it keeps the iteration converging where the plain
// corner shift can stall.
func wilkinsonShift(a, b, c, d float64) float64 {
	delta := (a - d) / 2
	bc := b * c
	if delta == 0 && bc == 0 {
		return d
	}
	denom := math.Abs(delta) + math.Sqrt(delta*delta+bc)
	if denom == 0 {
		return d
	}
	sign := 1.0
	if delta < 0 {
		sign = -1
	}
	return d - sign*bc/denom
}

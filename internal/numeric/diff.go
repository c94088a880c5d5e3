package numeric

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Machine epsilon for float64.
const eps = 2.220446049250313e-16

// fdStep returns the forward-difference step for coordinate value xi,
// h = √ε·max(1,|xi|).
func fdStep(xi float64) float64 {
	return math.Sqrt(eps) * math.Max(1, math.Abs(xi))
}

// cdStep returns the central-difference step for coordinate value xi,
// h = ∛ε·max(1,|xi|).
func cdStep(xi float64) float64 {
	return math.Cbrt(eps) * math.Max(1, math.Abs(xi))
}

// cd2Step returns the step for central second differences,
// h = ε^¼·max(1,|xi|).
func cd2Step(xi float64) float64 {
	return math.Pow(eps, 0.25) * math.Max(1, math.Abs(xi))
}

// FDGradient approximates ∇f(x) by central differences, writing the
// result into dst. x is restored before returning.
func FDGradient(dst []float64, f func(x []float64) float64, x []float64) {
	if len(dst) != len(x) {
		panic("numeric: gradient destination length mismatch")
	}
	for i, xi := range x {
		h := cdStep(xi)
		x[i] = xi + h
		fp := f(x)
		x[i] = xi - h
		fm := f(x)
		x[i] = xi
		dst[i] = (fp - fm) / (2 * h)
	}
}

// FDJacobian approximates the Jacobian of F: Rⁿ → Rᵐ at x by forward
// differences, writing the m×n result into dst. F writes its value into
// the destination slice passed to it.
func FDJacobian(dst *mat.Dense, F func(dst, x []float64), x []float64) {
	m, n := dst.Dims()
	if n != len(x) {
		panic("numeric: jacobian destination dimension mismatch")
	}
	f0 := make([]float64, m)
	fi := make([]float64, m)
	F(f0, x)
	for j, xj := range x {
		h := fdStep(xj)
		x[j] = xj + h
		F(fi, x)
		x[j] = xj
		for i := 0; i < m; i++ {
			dst.Set(i, j, (fi[i]-f0[i])/h)
		}
	}
}

// FDHessian approximates the Hessian of f at x by central second
// differences, writing the symmetric result into dst. x is restored
// before returning.
func FDHessian(dst *mat.SymDense, f func(x []float64) float64, x []float64) {
	n := dst.SymmetricDim()
	if n != len(x) {
		panic("numeric: hessian destination dimension mismatch")
	}
	f0 := f(x)
	h := make([]float64, n)
	for i, xi := range x {
		h[i] = cd2Step(xi)
	}
	for i := 0; i < n; i++ {
		xi := x[i]

		x[i] = xi + h[i]
		fp := f(x)
		x[i] = xi - h[i]
		fm := f(x)
		x[i] = xi
		dst.SetSym(i, i, (fp-2*f0+fm)/(h[i]*h[i]))

		for j := i + 1; j < n; j++ {
			xj := x[j]
			x[i], x[j] = xi+h[i], xj+h[j]
			fpp := f(x)
			x[j] = xj - h[j]
			fpm := f(x)
			x[i] = xi - h[i]
			fmm := f(x)
			x[j] = xj + h[j]
			fmp := f(x)
			x[i], x[j] = xi, xj
			dst.SetSym(i, j, (fpp-fpm-fmp+fmm)/(4*h[i]*h[j]))
		}
	}
}

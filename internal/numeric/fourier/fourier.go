// Package fourier implements the discrete Fourier transform, a
// recursive radix-2 FFT, and trigonometric interpolation of periodic
// samples.
package fourier

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/nvalden/numlab-api/internal/numeric"
)

// DFT computes the discrete Fourier transform of x directly in O(N²):
//
//	X_j = Σ_k x_k·e^{-2πi·jk/N}.
func DFT(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for j := 0; j < n; j++ {
		var sum complex128
		for k := 0; k < n; k++ {
			angle := -2 * math.Pi * float64(j) * float64(k) / float64(n)
			sum += x[k] * cmplx.Exp(complex(0, angle))
		}
		out[j] = sum
	}
	return out
}

// IDFT inverts the transform, X_k → (1/N)·Σ_j X_j·e^{2πi·jk/N}.
func IDFT(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			angle := 2 * math.Pi * float64(j) * float64(k) / float64(n)
			sum += x[j] * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum / complex(float64(n), 0)
	}
	return out
}

// FFT computes the same transform as DFT by recursive radix-2
// decimation in time. The length must be a power of two.
func FFT(x []complex128) ([]complex128, error) {
	n := len(x)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("fourier: length %d is not a power of two: %w",
			n, numeric.ErrInvalidParameter)
	}
	out := make([]complex128, n)
	copy(out, x)
	fftInPlace(out)
	return out, nil
}

func fftInPlace(x []complex128) {
	n := len(x)
	if n == 1 {
		return
	}
	half := n / 2
	even := make([]complex128, half)
	odd := make([]complex128, half)
	for i := 0; i < half; i++ {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}
	fftInPlace(even)
	fftInPlace(odd)
	for j := 0; j < half; j++ {
		angle := -2 * math.Pi * float64(j) / float64(n)
		t := cmplx.Exp(complex(0, angle)) * odd[j]
		x[j] = even[j] + t
		x[j+half] = even[j] - t
	}
}

// IFFT inverts FFT using the conjugation identity
// IFFT(X) = conj(FFT(conj(X)))/N.
func IFFT(x []complex128) ([]complex128, error) {
	n := len(x)
	conj := make([]complex128, n)
	for i, v := range x {
		conj[i] = cmplx.Conj(v)
	}
	fwd, err := FFT(conj)
	if err != nil {
		return nil, err
	}
	for i, v := range fwd {
		fwd[i] = cmplx.Conj(v) / complex(float64(n), 0)
	}
	return fwd, nil
}

// Interpolant is a trigonometric polynomial fitted to uniform samples
// of a periodic function on [0, 2π).
type Interpolant struct {
	coeffs []complex128
}

// Interpolate fits the trigonometric interpolant through the samples
// y_k taken at the equispaced nodes x_k = 2πk/N. Coefficients are
// d_j = (1/N)·Σ_k y_k·e^{-ij·x_k}, computed with the FFT, so the
// sample count must be a power of two.
func Interpolate(y []float64) (*Interpolant, error) {
	n := len(y)
	cx := make([]complex128, n)
	for i, v := range y {
		cx[i] = complex(v, 0)
	}
	fwd, err := FFT(cx)
	if err != nil {
		return nil, err
	}
	for i, v := range fwd {
		fwd[i] = v / complex(float64(n), 0)
	}
	return &Interpolant{coeffs: fwd}, nil
}

// Eval evaluates the interpolant at x. Frequencies above N/2 are
// folded to their negative counterparts so that real samples produce a
// real-valued interpolant between the nodes.
func (p *Interpolant) Eval(x float64) float64 {
	n := len(p.coeffs)
	var sum complex128
	for j, d := range p.coeffs {
		freq := j
		if j > n/2 {
			freq = j - n
		}
		sum += d * cmplx.Exp(complex(0, float64(freq)*x))
	}
	return real(sum)
}

// Coeffs returns the interpolation coefficients d_0..d_{N-1}.
func (p *Interpolant) Coeffs() []complex128 {
	out := make([]complex128, len(p.coeffs))
	copy(out, p.coeffs)
	return out
}

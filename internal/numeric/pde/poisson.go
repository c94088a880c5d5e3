// Package pde solves the 2-D Poisson equation -Δu = f on a rectangle
// with Dirichlet boundary conditions, discretized by the standard
// five-point finite-difference stencil on a uniform grid.
package pde

import (
	"fmt"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// Problem describes the rectangle, grid resolution, source term, and
// boundary data of a Poisson problem.
type Problem struct {
	// X0, X1, Y0, Y1 are the rectangle corners, X0 < X1 and Y0 < Y1.
	X0, X1, Y0, Y1 float64

	// Nx and Ny are the numbers of interior grid points per axis.
	Nx, Ny int

	// Source is f in -Δu = f.
	Source func(x, y float64) float64

	// Boundary gives u on the rectangle edges. Nil means zero.
	Boundary func(x, y float64) float64
}

// Solution is the discrete solution on the interior grid, stored
// row-major with the x index varying fastest.
type Solution struct {
	Nx, Ny int
	Hx, Hy float64
	U      []float64
}

// At returns the solution at interior grid point (i, j), with i the x
// index in [0, Nx) and j the y index in [0, Ny).
func (s *Solution) At(i, j int) float64 {
	return s.U[j*s.Nx+i]
}

// Solve assembles the five-point system and solves it with a Cholesky
// factorization. The discrete operator
//
//	(2/hx² + 2/hy²)·u_ij - (u_{i±1,j})/hx² - (u_{i,j±1})/hy² = f_ij
//
// is symmetric positive definite, with known boundary values folded
// into the right-hand side.
func Solve(p Problem) (*Solution, error) {
	if p.Nx < 1 || p.Ny < 1 {
		return nil, fmt.Errorf("pde: grid needs at least one interior point per axis: %w",
			numeric.ErrInvalidParameter)
	}
	if p.X1 <= p.X0 || p.Y1 <= p.Y0 {
		return nil, fmt.Errorf("pde: degenerate rectangle: %w", numeric.ErrInvalidParameter)
	}
	if p.Source == nil {
		return nil, fmt.Errorf("pde: source term required: %w", numeric.ErrInvalidParameter)
	}

	hx := (p.X1 - p.X0) / float64(p.Nx+1)
	hy := (p.Y1 - p.Y0) / float64(p.Ny+1)
	cx, cy := 1/(hx*hx), 1/(hy*hy)

	bc := p.Boundary
	if bc == nil {
		bc = func(x, y float64) float64 { return 0 }
	}
	xOf := func(i int) float64 { return p.X0 + float64(i+1)*hx }
	yOf := func(j int) float64 { return p.Y0 + float64(j+1)*hy }

	n := p.Nx * p.Ny
	a := mat.NewSymDense(n, nil)
	b := make([]float64, n)

	for j := 0; j < p.Ny; j++ {
		for i := 0; i < p.Nx; i++ {
			row := j*p.Nx + i
			a.SetSym(row, row, 2*cx+2*cy)
			b[row] = p.Source(xOf(i), yOf(j))

			// x neighbors.
			if i > 0 {
				a.SetSym(row, row-1, -cx)
			} else {
				b[row] += cx * bc(p.X0, yOf(j))
			}
			if i < p.Nx-1 {
				a.SetSym(row, row+1, -cx)
			} else {
				b[row] += cx * bc(p.X1, yOf(j))
			}

			// y neighbors.
			if j > 0 {
				a.SetSym(row, row-p.Nx, -cy)
			} else {
				b[row] += cy * bc(xOf(i), p.Y0)
			}
			if j < p.Ny-1 {
				a.SetSym(row, row+p.Nx, -cy)
			} else {
				b[row] += cy * bc(xOf(i), p.Y1)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("pde: discrete Laplacian not positive definite: %w", numeric.ErrSingular)
	}
	u := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(u, mat.NewVecDense(n, b)); err != nil {
		return nil, fmt.Errorf("pde: solving linear system: %w", err)
	}

	out := make([]float64, n)
	copy(out, u.RawVector().Data)
	return &Solution{Nx: p.Nx, Ny: p.Ny, Hx: hx, Hy: hy, U: out}, nil
}

// MaxError compares the discrete solution against an exact solution on
// the interior grid and returns the maximum absolute difference.
func MaxError(p Problem, s *Solution, exact func(x, y float64) float64) float64 {
	worst := 0.0
	for j := 0; j < s.Ny; j++ {
		for i := 0; i < s.Nx; i++ {
			x := p.X0 + float64(i+1)*s.Hx
			y := p.Y0 + float64(j+1)*s.Hy
			d := s.At(i, j) - exact(x, y)
			if d < 0 {
				d = -d
			}
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

// Package numdiff estimates derivatives of black-box evaluators by central
// finite differences, producing the shapes the ipm solver consumes.
//
// The evaluators are probed at perturbed copies of x; the input slice is
// restored before every return, so callers may pass live buffers as long as
// no other goroutine reads them concurrently.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
package numdiff

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)
	quadEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/4)
)

// firstStep returns the absolute step h = ∛ε·sign(v)·max(1,|v|) used for
// first-order differences.
func firstStep(v float64) float64 {
	return math.Copysign(cubeEps, v) * math.Max(1, math.Abs(v))
}

// secondStep returns the absolute step h = ∜ε·max(1,|v|) used for
// second-order differences.
func secondStep(v float64) float64 {
	return quadEps * math.Max(1, math.Abs(v))
}

// Gradient estimates 𝜵𝒇(𝐱) with the central difference
//
//	∂𝒇/∂xᵢ ≈ (𝒇(𝐱+hᵢ𝐞ᵢ) - 𝒇(𝐱-hᵢ𝐞ᵢ)) / 2hᵢ
func Gradient(f func([]float64) float64, x []float64) []float64 {
	g := make([]float64, len(x))
	for i, v := range x {
		h := firstStep(v)
		x[i] = v - h
		f1 := f(x)
		x[i] = v + h
		f2 := f(x)
		x[i] = v
		g[i] = (f2 - f1) / (2 * h)
	}
	return g
}

// Jacobian estimates the m×n Jacobian of a vector evaluator 𝒄 : ℝⁿ → ℝᵐ
// column by column with central differences. The evaluator must return a
// fresh m-vector on every call.
func Jacobian(c func([]float64) []float64, m int, x []float64) *mat.Dense {
	n := len(x)
	jac := mat.NewDense(m, n, nil)
	c1 := make([]float64, m)
	for i, v := range x {
		h := firstStep(v)
		x[i] = v - h
		copy(c1, c(x))
		x[i] = v + h
		c2 := c(x)
		x[i] = v
		d := 1 / (2 * h)
		for j := 0; j < m; j++ {
			jac.Set(j, i, (c2[j]-c1[j])*d)
		}
	}
	return jac
}

// Hessian estimates the symmetric n×n matrix 𝜵²𝒇(𝐱). Diagonal entries use
// the three-point stencil
//
//	∂²𝒇/∂xᵢ² ≈ (𝒇(𝐱+hᵢ𝐞ᵢ) - 2𝒇(𝐱) + 𝒇(𝐱-hᵢ𝐞ᵢ)) / hᵢ²
//
// and off-diagonal entries the four-point stencil over the (i,j) plane.
// The result is symmetric by construction.
func Hessian(f func([]float64) float64, x []float64) *mat.SymDense {
	n := len(x)
	hess := mat.NewSymDense(n, nil)
	f0 := f(x)
	for i := 0; i < n; i++ {
		vi := x[i]
		hi := secondStep(vi)

		x[i] = vi + hi
		fp := f(x)
		x[i] = vi - hi
		fm := f(x)
		x[i] = vi
		hess.SetSym(i, i, (fp-2*f0+fm)/(hi*hi))

		for j := i + 1; j < n; j++ {
			vj := x[j]
			hj := secondStep(vj)

			x[i], x[j] = vi+hi, vj+hj
			fpp := f(x)
			x[i], x[j] = vi+hi, vj-hj
			fpm := f(x)
			x[i], x[j] = vi-hi, vj+hj
			fmp := f(x)
			x[i], x[j] = vi-hi, vj-hj
			fmm := f(x)
			x[i], x[j] = vi, vj

			hess.SetSym(i, j, (fpp-fpm-fmp+fmm)/(4*hi*hj))
		}
	}
	return hess
}

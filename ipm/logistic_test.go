// Copyright ©2025 The IPsolver Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// L1-regularized logistic regression ("Lasso") posed as an inequality
// constrained program: the coefficients are split into positive and negative
// parts so the penalty becomes linear and the constraints reduce to x ≥ 0.
// The Hessian of this formulation is intensely ill-conditioned, which is why
// the steepest descent mode is used here.
func TestLogisticRegression(t *testing.T) {
	const (
		features = 8
		samples  = 100
		noiseSD  = 0.25
		lambda   = 0.5
	)

	beta := []float64{0, 0, 2, -4, 0, 0, -1, 3}
	scale := []float64{10, 1, 1, 1, 1, 1, 1, 1}

	logit := func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(42)}

	// Inputs from a scaled standard normal, binary outputs from the true
	// regression with additive noise pushed through the logistic function.
	a := mat.NewDense(samples, features, nil)
	for i := 0; i < samples; i++ {
		for j := 0; j < features; j++ {
			a.Set(i, j, scale[j]*normal.Rand())
		}
	}
	y := make([]float64, samples)
	for i := 0; i < samples; i++ {
		acc := 0.0
		for j := 0; j < features; j++ {
			acc += a.At(i, j) * beta[j]
		}
		if normal.Rand() < logit(acc+noiseSD*normal.Rand()) {
			y[i] = 1
		}
	}

	// P = [A, -A] over the split coefficients.
	n := 2 * features
	p := mat.NewDense(samples, n, nil)
	for i := 0; i < samples; i++ {
		for j := 0; j < features; j++ {
			p.Set(i, j, a.At(i, j))
			p.Set(i, j+features, -a.At(i, j))
		}
	}

	response := func(x []float64) []float64 {
		u := make([]float64, samples)
		mat.NewVecDense(samples, u).MulVec(p, mat.NewVecDense(n, x))
		for i, v := range u {
			u[i] = logit(v)
		}
		return u
	}

	problem, err := (&FuncProblem{
		Objective: func(x []float64) float64 {
			u := response(x)
			f := 0.0
			for i, ui := range u {
				f -= y[i]*math.Log(ui) + (1-y[i])*math.Log(1-ui)
			}
			for _, xi := range x {
				f += lambda * xi
			}
			return f
		},
		Gradient: func(x []float64) []float64 {
			u := response(x)
			for i := range u {
				u[i] = y[i] - u[i]
			}
			g := make([]float64, n)
			mat.NewVecDense(n, g).MulVec(p.T(), mat.NewVecDense(samples, u))
			for i := range g {
				g[i] = -g[i] + lambda
			}
			return g
		},
		Constraints: func(x []float64) []float64 {
			c := make([]float64, n)
			for i, xi := range x {
				c[i] = -xi
			}
			return c
		},
		Jacobian: func(x, _ []float64) *mat.Dense {
			jac := mat.NewDense(n, n, nil)
			for i := 0; i < n; i++ {
				jac.Set(i, i, -1)
			}
			return jac
		},
		ConsHessian: func(x, _ []float64) *mat.Dense {
			return mat.NewDense(n, n, nil)
		},
	}).New()
	require.NoError(t, err)

	solver, err := (&Spec{Problem: problem, Descent: Steepest, Tolerance: 1e-4}).New()
	require.NoError(t, err)

	res, err := solver.Solve(ones(n))
	require.NoError(t, err)

	require.False(t, math.IsNaN(res.F) || math.IsInf(res.F, 0))
	for i, xi := range res.X {
		assert.False(t, math.IsNaN(xi), "coefficient %d is NaN", i)
		assert.GreaterOrEqual(t, xi, 0.0, "coefficient %d infeasible", i)
	}
	for i, zi := range res.Z {
		assert.Greater(t, zi, 0.0, "multiplier %d not positive", i)
	}
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

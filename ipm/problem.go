// Copyright ©2025 The IPsolver Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipm

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Problem supplies the evaluators of a convex program with inequality
// constraints only:
//
//	minimize 𝒇(𝐱) subject to 𝒄(𝐱) < 0
//
// where 𝒇 : ℝⁿ → ℝ is convex and 𝒄 : ℝⁿ → ℝᵐ is convex componentwise.
//
// All evaluators are expected to be pure and deterministic given their
// arguments. The solver never retains or mutates returned values beyond the
// current iteration.
type Problem interface {
	// Objective evaluates 𝒇(𝐱).
	Objective(x []float64) float64
	// ObjectiveGradient evaluates 𝜵𝒇(𝐱), an n-vector.
	ObjectiveGradient(x []float64) []float64
	// Constraints evaluates 𝒄(𝐱), an m-vector.
	Constraints(x []float64) []float64
	// ConstraintsJacobian evaluates the m×n matrix 𝐉(𝐱) of constraint
	// first derivatives. The multipliers z are passed along for problems
	// whose Jacobian representation depends on them.
	ConstraintsJacobian(x, z []float64) *mat.Dense
	// LagrangianHessian evaluates the n×n constraint-curvature term
	// 𝐖(𝐱,𝐳) = ∑ 𝐳ᵢ𝜵²𝒄ᵢ(𝐱), excluding the objective's own Hessian.
	LagrangianHessian(x, z []float64) *mat.Dense
}

// HessianProblem is a Problem that can also evaluate the exact objective
// Hessian. It is required only by the Newton descent mode; the capability is
// checked once when the solver is built, never per iteration.
type HessianProblem interface {
	Problem
	// ObjectiveHessian evaluates 𝜵²𝒇(𝐱), a symmetric n×n matrix.
	ObjectiveHessian(x []float64) *mat.SymDense
}

// FuncProblem adapts caller-supplied closures to the Problem interface.
// Hessian may be left nil when the Newton descent mode is not used.
type FuncProblem struct {
	Objective   func(x []float64) float64
	Gradient    func(x []float64) []float64
	Hessian     func(x []float64) *mat.SymDense
	Constraints func(x []float64) []float64
	Jacobian    func(x, z []float64) *mat.Dense
	ConsHessian func(x, z []float64) *mat.Dense
}

// New validates the closure set and returns it as a Problem.
// The result implements HessianProblem when the Hessian closure is present,
// so a FuncProblem built from five functions pairs with the BFGS and
// Steepest modes while one built from six also supports Newton.
func (p *FuncProblem) New() (Problem, error) {
	var err error
	switch {
	case p.Objective == nil:
		err = errors.New("ipm: objective function is required")
	case p.Gradient == nil:
		err = errors.New("ipm: objective gradient function is required")
	case p.Constraints == nil:
		err = errors.New("ipm: constraints function is required")
	case p.Jacobian == nil:
		err = errors.New("ipm: constraints jacobian function is required")
	case p.ConsHessian == nil:
		err = errors.New("ipm: lagrangian hessian function is required")
	}
	if err != nil {
		return nil, err
	}
	fp := funcProblem{*p}
	if p.Hessian == nil {
		return &fp, nil
	}
	return &funcHessProblem{fp}, nil
}

type funcProblem struct {
	p FuncProblem
}

func (f *funcProblem) Objective(x []float64) float64 { return f.p.Objective(x) }

func (f *funcProblem) ObjectiveGradient(x []float64) []float64 { return f.p.Gradient(x) }

func (f *funcProblem) Constraints(x []float64) []float64 { return f.p.Constraints(x) }

func (f *funcProblem) ConstraintsJacobian(x, z []float64) *mat.Dense {
	return f.p.Jacobian(x, z)
}

func (f *funcProblem) LagrangianHessian(x, z []float64) *mat.Dense {
	return f.p.ConsHessian(x, z)
}

type funcHessProblem struct {
	funcProblem
}

func (f *funcHessProblem) ObjectiveHessian(x []float64) *mat.SymDense {
	return f.p.Hessian(x)
}

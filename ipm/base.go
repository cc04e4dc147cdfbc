// Copyright ©2025 The IPsolver Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipm

import "errors"

const (
	zero = 0.0
	one  = 1.0
)

// Descent selects how the objective curvature matrix 𝐁 is produced on each
// iteration of the interior-point loop.
type Descent int

const (
	// DescentAuto picks Newton when the problem implements HessianProblem
	// and BFGS otherwise.
	DescentAuto Descent = iota
	// Newton recomputes 𝐁 from the exact objective Hessian every iteration.
	Newton
	// BFGS starts from the identity and applies rank-two secant updates.
	BFGS
	// Steepest keeps 𝐁 frozen at the identity for all iterations.
	// The search direction still solves the same perturbed KKT system,
	// which behaves quite differently from a plain gradient step.
	Steepest
)

func (d Descent) String() string {
	switch d {
	case DescentAuto:
		return "auto"
	case Newton:
		return "newton"
	case BFGS:
		return "bfgs"
	case Steepest:
		return "steepest"
	}
	return "unknown"
}

// Status reports how a Solve call terminated.
type Status int

const (
	// Converged the scaled KKT residual fell below the tolerance.
	Converged Status = iota
	// IterationLimit the iteration budget ran out before convergence.
	// The last iterate is still returned.
	IterationLimit
)

var (
	// ErrCurvature the BFGS secant condition 𝐲ᵀ𝐬 > 0 does not hold.
	// The update is undefined in that case, so the solve is aborted instead
	// of silently corrupting the curvature approximation.
	ErrCurvature = errors.New("ipm: bfgs update condition yᵀs > 0 not satisfied")
	// ErrSmallStep backtracking shrank the step to/below the alpha floor
	// without finding a feasible sufficiently-decreasing point.
	ErrSmallStep = errors.New("ipm: line search step size too small")
	// ErrSingular the perturbed KKT matrix could not be factorized.
	ErrSingular = errors.New("ipm: perturbed KKT system is singular")
)

// Copyright ©2025 The IPsolver Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipm

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params holds the algorithm constants of the interior-point method.
// Zero fields take their documented defaults; explicit values must be positive.
type Params struct {
	// Epsilon small constant avoiding division by zero near the constraint
	// boundary (default 1e-8).
	Epsilon float64
	// SigmaMax maximum value of the centering parameter σ (default 0.5).
	SigmaMax float64
	// EtaMax maximum value of the residual scale η (default 0.25).
	EtaMax float64
	// MuMin minimum value of the barrier parameter μ (default 1e-9).
	MuMin float64
	// AlphaMax initial/maximum line-search step (default 0.995).
	AlphaMax float64
	// AlphaMin smallest admissible line-search step (default 1e-6).
	AlphaMin float64
	// Beta backtracking factor, 0 < β < 1 (default 0.75).
	Beta float64
	// Tau sufficient-decrease factor of the Armijo condition (default 0.01).
	Tau float64
}

func defaultParams() Params {
	return Params{
		Epsilon:  1e-8,
		SigmaMax: 0.5,
		EtaMax:   0.25,
		MuMin:    1e-9,
		AlphaMax: 0.995,
		AlphaMin: 1e-6,
		Beta:     0.75,
		Tau:      0.01,
	}
}

// Spec specifies a problem and configuration for the interior-point solver.
type Spec struct {
	// Problem supplies the evaluators. Required.
	Problem Problem
	// Descent selects how the curvature matrix is produced each iteration.
	// The zero value resolves to Newton when Problem implements
	// HessianProblem and to BFGS otherwise.
	Descent Descent
	// Tolerance on the scaled KKT residual ‖𝐫₀‖/(n+m) (default 1e-6).
	Tolerance float64
	// MaxIterations caps the number of outer iterations (default 100).
	// Exhausting the budget is not an error: the last iterate is returned
	// with status IterationLimit.
	MaxIterations int
	// Params overrides the algorithm constants (nil for defaults).
	Params *Params
	// Log enables the per-iteration trace (nil for silence).
	Log *Logger
}

// New validates the configuration and builds a Solver.
// All configuration errors are reported here, before any solving work:
// a missing required evaluator or a negative numeric parameter never makes
// it into the iteration loop. The returned Solver is immutable; it may be
// reused for successive Solve calls but not concurrently.
func (s *Spec) New() (*Solver, error) {
	if s.Problem == nil {
		return nil, errors.New("ipm: problem must not be nil")
	}

	tol, maxIter := s.Tolerance, s.MaxIterations
	if tol == zero {
		tol = 1e-6
	}
	if maxIter == 0 {
		maxIter = 100
	}

	prm := defaultParams()
	if s.Params != nil {
		override := func(dst *float64, v float64) { // zero keeps the default
			if v != zero {
				*dst = v
			}
		}
		override(&prm.Epsilon, s.Params.Epsilon)
		override(&prm.SigmaMax, s.Params.SigmaMax)
		override(&prm.EtaMax, s.Params.EtaMax)
		override(&prm.MuMin, s.Params.MuMin)
		override(&prm.AlphaMax, s.Params.AlphaMax)
		override(&prm.AlphaMin, s.Params.AlphaMin)
		override(&prm.Beta, s.Params.Beta)
		override(&prm.Tau, s.Params.Tau)
	}

	descent := s.Descent
	hp, hasHess := s.Problem.(HessianProblem)
	if descent == DescentAuto {
		if hasHess {
			descent = Newton
		} else {
			descent = BFGS
		}
	}

	var err error
	switch {
	case descent != Newton && descent != BFGS && descent != Steepest:
		err = errors.New("ipm: unknown descent mode")
	case descent == Newton && !hasHess:
		err = errors.New("ipm: newton descent requires an objective hessian")
	case tol < zero:
		err = errors.New("ipm: tolerance must be positive")
	case maxIter < 0:
		err = errors.New("ipm: max iterations must be positive")
	case prm.Epsilon < zero || prm.SigmaMax < zero || prm.EtaMax < zero ||
		prm.MuMin < zero || prm.AlphaMax < zero || prm.AlphaMin < zero ||
		prm.Beta < zero || prm.Tau < zero:
		err = errors.New("ipm: algorithm constants must be positive")
	case prm.Beta >= one:
		err = errors.New("ipm: backtracking factor must be less than 1")
	}
	if err != nil {
		return nil, err
	}

	if descent != Newton {
		hp = nil
	}
	return &Solver{
		problem: s.Problem,
		hessian: hp,
		descent: descent,
		tol:     tol,
		maxIter: maxIter,
		prm:     prm,
		log:     s.Log,
	}, nil
}

// Solver solves convex programs with inequality constraints
//
//	minimize 𝒇(𝐱) subject to 𝒄(𝐱) < 0
//
// by a primal-dual interior-point method. The multipliers 𝐳 > 0 of the
// inequality constraints are iterated jointly with 𝐱, and each iteration
// solves a perturbation of the Karush-Kuhn-Tucker optimality conditions
//
//	𝜵𝒇(𝐱) + 𝐉(𝐱)ᵀ𝐳 = 0
//	𝒄(𝐱)∘𝐳 = -μ𝟏
//
// where the barrier parameter μ > 0 is driven toward zero as the duality gap
// -𝒄·𝐳 shrinks.
//
// # Direction
//
// Condensing the perturbed system onto the primal block gives the n×n solve
//
//	(𝐁 + 𝐖 - 𝐉ᵀ𝐒𝐉)𝐩ₓ = -(𝐠 - μ𝐉ᵀ(1/𝒄_ε))   with 𝐒 = diag(𝐳/𝒄_ε)
//
// where 𝒄_ε = 𝒄 - ε keeps the diagonal away from the boundary, 𝐖 is the
// constraint-curvature term and 𝐁 the objective curvature produced by the
// descent mode. The dual direction follows by back-substitution
//
//	𝐩_z = -(𝐳 + μ(1/𝒄_ε) + 𝐒𝐉𝐩ₓ)
//
// The condensed matrix is symmetric but need not be positive definite, so a
// Cholesky factorization is attempted first with a pivoted LU fallback.
//
// # Step
//
// The step starts from the largest α ≤ α_max keeping 𝐳 + α𝐩_z nonnegative,
// then backtracks on the merit function
//
//	ψ(𝐱,𝐳) = 𝒇 - 𝒄·𝐳 - μ∑log(𝒄²∘𝐳 + ε)
//
// until a trial point is feasible and satisfies the sufficient decrease
// ψ⁺ < ψ + τηα·dψ, where dψ is the directional derivative of ψ along
// (𝐩ₓ,𝐩_z) and η is derived from the current residual norm.
//
// # Reference
//
// Peter Carbonetto: "A primal-dual interior-point solver for convex programs
// with convex inequality constraints" (MATLAB implementation, 2008).
type Solver struct {
	problem Problem
	hessian HessianProblem // non-nil only for Newton
	descent Descent
	tol     float64
	maxIter int
	prm     Params
	log     *Logger
}

// Result contains the final state of a Solve call.
type Result struct {
	OK   bool      // Whether the solver converged.
	F    float64   // Final objective value.
	X, Z []float64 // Final primal and dual iterates.
	Summary
}

// Summary contains a summary of the solving process.
type Summary struct {
	Status  Status // How the solve terminated.
	NumIter int    // Number of outer iterations completed.
}

// Solve runs the interior-point iteration from the initial guess x0.
// The guess is not required to be strictly feasible, but every accepted
// iterate after the first step satisfies 𝒄(𝐱) ≤ 0 with 𝐳 > 0. On exhaustion
// of the iteration budget the last iterate is returned with OK unset; line
// search stagnation and a violated BFGS secant condition abort with an error.
func (s *Solver) Solve(x0 []float64) (*Result, error) {
	n := len(x0)
	if n == 0 {
		return nil, errors.New("ipm: initial guess must not be empty")
	}

	x := slices.Clone(x0)
	c := s.problem.Constraints(x)
	m := len(c)
	if m == 0 {
		return nil, errors.New("ipm: problem must have at least one constraint")
	}
	nv := float64(n + m)

	z := make([]float64, m)
	for i := range z {
		z[i] = one
	}
	b := identity(n)

	var (
		f     float64
		gOld  []float64
		px    = make([]float64, n)
		pz    = make([]float64, m)
		alpha float64
		ls    int
	)

	s.log.header()

	status := IterationLimit
	iter := 0
	for ; iter < s.maxIter; iter++ {

		f = s.problem.Objective(x)
		c = s.problem.Constraints(x)
		g := s.problem.ObjectiveGradient(x)
		jac := s.problem.ConstraintsJacobian(x, z)
		w := s.problem.LagrangianHessian(x, z)
		if s.descent == Newton {
			b.Copy(s.hessian.ObjectiveHessian(x))
		}

		// Unperturbed KKT residuals: 𝐫ₓ = 𝐠 + 𝐉ᵀ𝐳 and 𝐫_c = 𝒄∘𝐳.
		rx := make([]float64, n)
		mat.NewVecDense(n, rx).MulVec(jac.T(), mat.NewVecDense(m, z))
		floats.Add(rx, g)
		rc := make([]float64, m)
		for i, ci := range c {
			rc[i] = ci * z[i]
		}
		normRx := floats.Norm(rx, 2)
		normRc := floats.Norm(rc, 2)
		normR0 := math.Hypot(normRx, normRc)

		// Convergence-driving parameters for this iteration.
		eta := math.Min(s.prm.EtaMax, normR0/nv)
		sigma := math.Min(s.prm.SigmaMax, math.Sqrt(normR0/nv))
		gap := -floats.Dot(c, z)
		mu := math.Max(s.prm.MuMin, sigma*gap/float64(m))

		s.log.iter(iter, f, mu, sigma, normRx, normRc, alpha, ls)

		if normR0/nv < s.tol {
			status = Converged
			break
		}

		if s.descent == BFGS && iter > 0 {
			sk := make([]float64, n)
			yk := make([]float64, n)
			for i := range sk {
				sk[i] = alpha * px[i]
				yk[i] = g[i] - gOld[i]
			}
			if err := bfgsUpdate(b, sk, yk); err != nil {
				return nil, err
			}
		}

		// Assemble the perturbed KKT system.
		cInv := make([]float64, m) // 1/(𝒄-ε)
		sd := make([]float64, m)   // diagonal of 𝐒 = diag(𝐳/(𝒄-ε))
		for i, ci := range c {
			cInv[i] = one / (ci - s.prm.Epsilon)
			sd[i] = z[i] * cInv[i]
		}

		gb := make([]float64, n) // 𝐠_b = 𝐠 - μ𝐉ᵀ(1/𝒄_ε)
		mat.NewVecDense(n, gb).MulVec(jac.T(), mat.NewVecDense(m, cInv))
		for i := range gb {
			gb[i] = -(g[i] - mu*gb[i]) // negated right-hand side
		}

		var sj mat.Dense // 𝐒𝐉
		sj.Apply(func(i, _ int, v float64) float64 { return sd[i] * v }, jac)

		var h mat.Dense // 𝐇 = 𝐁 + 𝐖 - 𝐉ᵀ𝐒𝐉
		h.Mul(jac.T(), &sj)
		h.Sub(w, &h)
		h.Add(b, &h)

		if err := solveSym(&h, mat.NewVecDense(n, gb), mat.NewVecDense(n, px)); err != nil {
			return nil, err
		}

		// 𝐩_z = -(𝐳 + μ(1/𝒄_ε) + 𝐒𝐉𝐩ₓ)
		mat.NewVecDense(m, pz).MulVec(&sj, mat.NewVecDense(n, px))
		for i := range pz {
			pz[i] = -(z[i] + mu*cInv[i] + pz[i])
		}

		// Largest step keeping the multipliers nonnegative.
		ratio := one
		for i, p := range pz {
			if z[i]+p < zero {
				ratio = math.Min(ratio, z[i]/-p)
			}
		}
		alpha = s.prm.AlphaMax * ratio

		psi := s.merit(z, f, c, mu)
		dpsi := s.gradMerit(z, px, pz, g, c, jac, mu)

		// Backtracking line search: accept the first trial point that is
		// feasible and sufficiently decreases the merit function.
		ls = 0
		xNew := make([]float64, n)
		zNew := make([]float64, m)
		for {
			ls++
			for i := range xNew {
				xNew[i] = x[i] + alpha*px[i]
			}
			for i := range zNew {
				zNew[i] = z[i] + alpha*pz[i]
			}
			f = s.problem.Objective(xNew)
			c = s.problem.Constraints(xNew)
			psiNew := s.merit(zNew, f, c, mu)

			if feasible(c) && psiNew < psi+s.prm.Tau*eta*alpha*dpsi {
				copy(x, xNew)
				copy(z, zNew)
				gOld = g
				break
			}
			alpha *= s.prm.Beta
			if alpha <= s.prm.AlphaMin {
				return nil, ErrSmallStep
			}
		}
	}

	return &Result{
		OK: status == Converged,
		F:  f, X: x, Z: z,
		Summary: Summary{
			Status:  status,
			NumIter: iter,
		},
	}, nil
}

// merit evaluates ψ(𝐱,𝐳) = 𝒇 - 𝒄·𝐳 - μ∑log(𝒄²∘𝐳 + ε).
func (s *Solver) merit(z []float64, f float64, c []float64, mu float64) float64 {
	sum := zero
	for i, ci := range c {
		sum += math.Log(ci*ci*z[i] + s.prm.Epsilon)
	}
	return f - floats.Dot(c, z) - mu*sum
}

// gradMerit evaluates the directional derivative of the merit function along
// the search direction:
//
//	dψ = 𝐩ₓ·(𝐠 - 𝐉ᵀ𝐳 - 2μ𝐉ᵀ(1/(𝒄-ε))) - 𝐩_z·(𝒄 + μ(1/(𝐳+ε)))
func (s *Solver) gradMerit(z, px, pz, g, c []float64, jac *mat.Dense, mu float64) float64 {
	m, n := jac.Dims()
	eps := s.prm.Epsilon

	t := make([]float64, m) // 𝐳 + 2μ/(𝒄-ε)
	for i, ci := range c {
		t[i] = z[i] + 2*mu/(ci-eps)
	}
	jt := make([]float64, n)
	mat.NewVecDense(n, jt).MulVec(jac.T(), mat.NewVecDense(m, t))

	dx := zero
	for i, p := range px {
		dx += p * (g[i] - jt[i])
	}
	dz := zero
	for i, p := range pz {
		dz += p * (c[i] + mu/(z[i]+eps))
	}
	return dx - dz
}

// bfgsUpdate applies the rank-two secant update
//
//	𝐁 ← 𝐁 - (𝐁𝐬)(𝐁𝐬)ᵀ/(𝐬ᵀ𝐁𝐬) + 𝐲𝐲ᵀ/(𝐲ᵀ𝐬)
//
// in place, with 𝐬 the accepted step and 𝐲 the gradient change.
// The secant condition 𝐲ᵀ𝐬 > 0 must hold or the update is undefined.
func bfgsUpdate(b *mat.Dense, s, y []float64) error {
	sv, yv := mat.NewVecDense(len(s), s), mat.NewVecDense(len(y), y)
	ys := mat.Dot(yv, sv)
	if ys <= zero {
		return ErrCurvature
	}

	bs := mat.NewVecDense(len(s), nil)
	bs.MulVec(b, sv)
	sbs := mat.Dot(sv, bs)

	var u mat.Dense
	u.Outer(one/sbs, bs, bs)
	b.Sub(b, &u)
	u.Outer(one/ys, yv, yv)
	b.Add(b, &u)
	return nil
}

// solveSym solves 𝐇𝐱 = 𝐛 for a symmetric, possibly indefinite 𝐇.
// Cholesky is attempted on the symmetrized matrix first; when 𝐇 is not
// positive definite the solve falls back to a pivoted LU factorization.
func solveSym(h *mat.Dense, rhs, dst *mat.VecDense) error {
	n, _ := h.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(h.At(i, j)+h.At(j, i)))
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		return dropCondition(chol.SolveVecTo(dst, rhs))
	}

	var lu mat.LU
	lu.Factorize(h)
	if err := dropCondition(lu.SolveVecTo(dst, false, rhs)); err != nil {
		return ErrSingular
	}
	return nil
}

// dropCondition keeps finite Condition errors: the factorization is
// ill-conditioned but the solution is still usable.
func dropCondition(err error) error {
	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
		return nil
	}
	return err
}

func feasible(c []float64) bool {
	for _, ci := range c {
		if ci > zero || math.IsNaN(ci) {
			return false
		}
	}
	return true
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, one)
	}
	return d
}

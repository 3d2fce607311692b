package merton

import (
	"context"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/infrastructure"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
)

const (
	maxBacktracks = 30
	maxLogStep    = 2.0
	minDet        = 1e-300
)

// Solver inverts the Merton equations for asset value and asset volatility
type Solver struct {
	cfg     config.SolverConfig
	workers int
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewSolver creates a solver. workers <= 0 means one per CPU.
func NewSolver(cfg config.SolverConfig, workers int, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Solver {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{cfg: cfg, workers: workers, logger: logger, metrics: metrics}
}

// Validate moves a pending result to invalid_inputs when E, sigma_E or F is
// missing, non-positive or non-finite, or rf or T is missing or non-finite,
// or T is not positive. Otherwise the result moves to validating.
func Validate(r *Result, scale float64) {
	var reasons []string
	positive := func(name string, v float64, ok bool) {
		switch {
		case !ok:
			reasons = append(reasons, "missing_"+name)
		case !finite(v):
			reasons = append(reasons, "nonfinite_"+name)
		case v <= 0:
			reasons = append(reasons, "nonpositive_"+name)
		}
	}

	e, okE := value(r.E)
	positive("E", e, okE)
	sigma, okS := value(r.SigmaE)
	positive("sigma_E", sigma, okS)
	f, okF := r.Input.Barrier(scale)
	positive("F", f, okF)

	rf, okR := value(r.Rf)
	switch {
	case !okR:
		reasons = append(reasons, "missing_rf")
	case !finite(rf):
		reasons = append(reasons, "nonfinite_rf")
	}
	t, okT := value(r.T)
	positive("T", t, okT)

	r.Barrier = f
	if len(reasons) > 0 {
		r.Status = StatusInvalidInputs
		r.Reasons = reasons
		return
	}
	r.Status = StatusValidating
}

// Solve runs the state machine for one row
func (s *Solver) Solve(in Input) Result {
	r := newResult(in)
	Validate(&r, s.cfg.DebtScale)
	if r.Status != StatusValidating {
		return r
	}
	s.solve(&r)
	return r
}

// SolveAll solves every row in parallel. Results keep the input order.
func (s *Solver) SolveAll(ctx context.Context, inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Solve(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[Status]int)
	for _, r := range results {
		counts[r.Status]++
		s.metrics.RecordSolverStatus(ctx, string(r.Status))
	}
	s.logger.InfoContext(ctx, "Merton solve complete",
		"rows", len(results),
		"converged", counts[StatusConverged],
		"invalid_inputs", counts[StatusInvalidInputs],
		"no_convergence", counts[StatusNoConvergence])
	return results, nil
}

// system evaluates the scaled residuals and their Jacobian in (ln V, ln sigma_V)
type system struct {
	e, sigmaE, f, r, t float64
	disc               float64 // F e^{-rT}
}

type point struct {
	v, sigma           float64
	d1, d2             float64
	residPrice         float64
	residVol           float64
	g1, g2             float64
	j11, j12, j21, j22 float64
}

func (sys system) eval(lnV, lnSigma float64) point {
	v, sigma := math.Exp(lnV), math.Exp(lnSigma)
	sqrtT := math.Sqrt(sys.t)
	d1 := (math.Log(v/sys.f) + (sys.r+0.5*sigma*sigma)*sys.t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	nd1, nd2, pd1 := stats.NormCDF(d1), stats.NormCDF(d2), stats.NormPDF(d1)

	p := point{v: v, sigma: sigma, d1: d1, d2: d2}
	p.residPrice = v*nd1 - sys.disc*nd2 - sys.e
	p.residVol = (v/sys.e)*nd1*sigma - sys.sigmaE

	p.g1 = p.residPrice / sys.e
	p.g2 = p.residVol / sys.sigmaE

	// d(price)/dV = N(d1), d(price)/dsigma = V n(d1) sqrtT
	// d(sigma V N(d1))/dV = sigma N(d1) + n(d1)/sqrtT
	// d(sigma V N(d1))/dsigma = V N(d1) - V n(d1) d2
	scaleVol := 1 / (sys.sigmaE * sys.e)
	p.j11 = nd1 * v / sys.e
	p.j12 = v * pd1 * sqrtT * sigma / sys.e
	p.j21 = (sigma*nd1 + pd1/sqrtT) * v * scaleVol
	p.j22 = (v*nd1 - v*pd1*d2) * sigma * scaleVol
	return p
}

func (p point) norm() float64 {
	return p.g1*p.g1 + p.g2*p.g2
}

func (sys system) converged(p point, tol float64) bool {
	return math.Abs(p.residPrice) <= tol*sys.e && math.Abs(p.residVol) <= tol*sys.sigmaE
}

func (s *Solver) solve(r *Result) {
	sys := system{e: *r.E, sigmaE: *r.SigmaE, f: r.Barrier, r: *r.Rf, t: *r.T}
	sys.disc = sys.f * math.Exp(-sys.r*sys.t)

	v0 := sys.e + sys.disc
	sigma0 := sys.sigmaE * sys.e / v0
	x1, x2 := math.Log(v0), math.Log(sigma0)

	p := sys.eval(x1, x2)
	fail := func(reason string, iter int) {
		r.Status = StatusNoConvergence
		r.Iterations = iter
		r.ResidPrice, r.ResidVol = p.residPrice, p.residVol
		r.Reasons = append(r.Reasons, reason)
	}

	for iter := 0; iter <= s.cfg.MaxIterations; iter++ {
		if !finite(p.norm()) {
			fail("nonfinite_residual", iter)
			return
		}
		if sys.converged(p, s.cfg.Tolerance) {
			s.accept(r, sys, p, iter)
			return
		}
		if iter == s.cfg.MaxIterations {
			break
		}

		det := p.j11*p.j22 - p.j12*p.j21
		if math.Abs(det) < minDet || !finite(det) {
			fail("singular_jacobian", iter)
			return
		}
		dx1 := (-p.g1*p.j22 + p.g2*p.j12) / det
		dx2 := (-p.g2*p.j11 + p.g1*p.j21) / det
		if m := math.Max(math.Abs(dx1), math.Abs(dx2)); m > maxLogStep {
			dx1, dx2 = dx1*maxLogStep/m, dx2*maxLogStep/m
		}

		step := 1.0
		base := p.norm()
		next := sys.eval(x1+dx1, x2+dx2)
		for k := 0; k < maxBacktracks && !(finite(next.norm()) && next.norm() < (1-1e-4*step)*base); k++ {
			step *= 0.5
			next = sys.eval(x1+step*dx1, x2+step*dx2)
		}
		if !finite(next.norm()) || next.norm() >= base {
			fail("line_search_stalled", iter+1)
			return
		}
		x1, x2 = x1+step*dx1, x2+step*dx2
		p = next
	}
	fail("max_iterations", s.cfg.MaxIterations)
}

func (s *Solver) accept(r *Result, sys system, p point, iter int) {
	r.V, r.SigmaV = p.v, p.sigma
	r.D1, r.D2 = p.d1, p.d2
	r.DD = DistanceToDefault(p.v, p.sigma, sys.f, sys.r, sys.t)
	r.PD = stats.NormCDF(-r.DD)
	r.ResidPrice, r.ResidVol = p.residPrice, p.residVol
	r.Iterations = iter
	r.Status = StatusConverged
	if !(finite(r.V) && r.V > 0 && finite(r.SigmaV) && r.SigmaV > 0 && finite(r.DD)) {
		r.Status = StatusNoConvergence
		r.Reasons = append(r.Reasons, "degenerate_solution")
		r.DD, r.PD = math.NaN(), math.NaN()
	}
}

// DistanceToDefault is the market DD with the risk-free rate as drift:
// [ln(V/F) + (r - sigma^2/2)T] / (sigma sqrt(T))
func DistanceToDefault(v, sigma, f, r, t float64) float64 {
	return (math.Log(v/f) + (r-0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

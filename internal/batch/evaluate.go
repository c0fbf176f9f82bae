package batch

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"bern/internal/metrics"
	"bern/internal/niche"
	"bern/internal/site"
)

// Each evaluator has its own policy for communities without species:
// Possibility and PossibilityMatrix store NaN in the failing slot,
// MaxPossibility leaves the community out of the maximum, and
// CalculateOptima reports and skips it.
//
// Evaluator carries the worker count and logger shared by the batch
// functions. The zero value uses one worker per CPU and logs nowhere.
type Evaluator struct {
	Workers int
	Logger  *zap.Logger
}

func New(workers int, logger *zap.Logger) *Evaluator {
	return &Evaluator{Workers: workers, Logger: logger}
}

func (e *Evaluator) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Evaluator) workers() int {
	if e == nil {
		return 0
	}
	return e.Workers
}

// Possibility evaluates every community at s. A community that fails yields
// NaN in its slot.
func (e *Evaluator) Possibility(ctx context.Context, comms []*niche.Community, s site.Vector) ([]float64, error) {
	metrics.Evaluations.WithLabelValues("community").Add(float64(len(comms)))
	return Map(ctx, e.workers(), len(comms), func(i int) float64 {
		p, err := comms[i].Possibility(s)
		if err != nil {
			metrics.BatchFailures.WithLabelValues("possibility").Inc()
			return math.NaN()
		}
		return p
	})
}

// PossibilityMatrix evaluates every community at every site. The result is
// site-major: the value for community c at site s is at s*len(comms)+c.
// Failing communities yield NaN.
func (e *Evaluator) PossibilityMatrix(ctx context.Context, comms []*niche.Community, sites []site.Vector) ([]float64, error) {
	nc := len(comms)
	metrics.Evaluations.WithLabelValues("community").Add(float64(nc * len(sites)))
	return Map(ctx, e.workers(), nc*len(sites), func(i int) float64 {
		s, c := i/nc, i%nc
		p, err := comms[c].Possibility(sites[s])
		if err != nil {
			metrics.BatchFailures.WithLabelValues("possibility_matrix").Inc()
			return math.NaN()
		}
		return p
	})
}

// MaxPossibility is the highest possibility of any community at s, never
// below 0. Failing communities are skipped rather than counted as NaN.
func (e *Evaluator) MaxPossibility(ctx context.Context, comms []*niche.Community, s site.Vector) (float64, error) {
	metrics.Evaluations.WithLabelValues("community").Add(float64(len(comms)))
	type outcome struct {
		value float64
		ok    bool
	}
	results, err := Map(ctx, e.workers(), len(comms), func(i int) outcome {
		p, err := comms[i].Possibility(s)
		if err != nil {
			metrics.BatchFailures.WithLabelValues("max_possibility").Inc()
			return outcome{}
		}
		return outcome{value: p, ok: true}
	})
	if err != nil {
		return 0, err
	}

	best := 0.0
	for _, r := range results {
		if r.ok && best < r.value {
			best = r.value
		}
	}
	return best, nil
}

// OptimaReport summarizes a CalculateOptima run.
type OptimaReport struct {
	Computed int
	// Failed maps community ids to the error that skipped them.
	Failed   map[int]error
	Duration time.Duration
}

// CalculateOptima computes the optimum of every community, one community per
// task. Communities that fail are logged and listed in the report; the rest
// complete regardless. Passing the same community twice is not supported.
func (e *Evaluator) CalculateOptima(ctx context.Context, comms []*niche.Community) (OptimaReport, error) {
	started := time.Now()
	errs, err := Map(ctx, e.workers(), len(comms), func(i int) error {
		_, err := comms[i].Optimum()
		return err
	})
	if err != nil {
		return OptimaReport{}, err
	}

	report := OptimaReport{Failed: make(map[int]error)}
	log := e.logger()
	for i, err := range errs {
		if err == nil {
			report.Computed++
			continue
		}
		metrics.BatchFailures.WithLabelValues("calculate_optima").Inc()
		report.Failed[comms[i].ID] = err
		fields := []zap.Field{
			zap.Int("community", comms[i].ID),
			zap.String("name", comms[i].Name),
			zap.Error(err),
		}
		if errors.Is(err, niche.ErrNoSpecies) {
			log.Warn("optimum skipped", fields...)
		} else {
			log.Error("optimum failed", fields...)
		}
	}
	report.Duration = time.Since(started)
	log.Debug("optima calculated",
		zap.Int("computed", report.Computed),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

var defaultEvaluator = &Evaluator{}

// Possibility runs Evaluator.Possibility with default settings.
func Possibility(ctx context.Context, comms []*niche.Community, s site.Vector) ([]float64, error) {
	return defaultEvaluator.Possibility(ctx, comms, s)
}

// PossibilityMatrix runs Evaluator.PossibilityMatrix with default settings.
func PossibilityMatrix(ctx context.Context, comms []*niche.Community, sites []site.Vector) ([]float64, error) {
	return defaultEvaluator.PossibilityMatrix(ctx, comms, sites)
}

// MaxPossibility runs Evaluator.MaxPossibility with default settings.
func MaxPossibility(ctx context.Context, comms []*niche.Community, s site.Vector) (float64, error) {
	return defaultEvaluator.MaxPossibility(ctx, comms, s)
}

// CalculateOptima runs Evaluator.CalculateOptima with default settings.
func CalculateOptima(ctx context.Context, comms []*niche.Community) (OptimaReport, error) {
	return defaultEvaluator.CalculateOptima(ctx, comms)
}

package niche

import (
	"bern/internal/metrics"
	"bern/internal/site"
)

const (
	// initialStepFactor scales the accuracy vector for the first, coarsest
	// search stage. Each stage without improvement divides it by 10 until it
	// drops below 1.
	initialStepFactor = 1e10
	// converged is the value treated as the theoretical maximum.
	converged = 1 - 1e-12
)

// Objective is anything with a possibility surface over the site space.
type Objective interface {
	Possibility(s site.Vector) (float64, error)
}

// SearchResult is the located optimum and the number of objective
// evaluations spent on it.
type SearchResult struct {
	site.Possibility
	Evaluations int
}

// Search climbs the possibility surface from start. The surface is piecewise
// linear with kinks at the trapezoid corners, so instead of gradients it
// probes all 3^d neighbours (each dimension -1, 0 or +1 step) and moves to
// the best one that improves. When no neighbour improves the step shrinks
// tenfold; the search ends once the step falls below accuracy or the value
// reaches 1.
//
// The returned value is the one evaluated at the returned site on entry to
// the last iteration.
func Search(obj Objective, start, accuracy site.Vector) (SearchResult, error) {
	dims := len(start)
	combinations := 1
	powers := make([]int, dims)
	for d := 0; d < dims; d++ {
		powers[d] = combinations
		combinations *= 3
	}
	stay := (combinations - 1) / 2

	cur := start.Clone()
	curVal := 0.0
	evaluations := 0
	test := make(site.Vector, dims)

	for stepFactor := initialStepFactor; stepFactor >= 1; {
		var err error
		curVal, err = obj.Possibility(cur)
		evaluations++
		if err != nil {
			return SearchResult{}, err
		}
		if curVal > converged {
			break
		}

		best, bestVal := cur, curVal
		improved := false
		step := accuracy.Scale(stepFactor)
		for i := 0; i < combinations; i++ {
			if i == stay {
				continue
			}
			for d := 0; d < dims; d++ {
				dir := (i/powers[d])%3 - 1
				test[d] = cur[d] + float64(dir)*step[d]
			}
			testVal, err := obj.Possibility(test)
			evaluations++
			if err != nil {
				return SearchResult{}, err
			}
			if testVal > bestVal {
				best, bestVal = test.Clone(), testVal
				improved = true
			}
		}

		if improved {
			cur = best
		} else {
			stepFactor /= 10
		}
	}

	metrics.OptimumSearches.Inc()
	metrics.SearchEvaluations.Observe(float64(evaluations))
	return SearchResult{
		Possibility: site.Possibility{Site: cur, Value: curVal},
		Evaluations: evaluations,
	}, nil
}

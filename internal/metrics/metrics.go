package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	// Evaluations counts batch possibility evaluations by kind
	// ("community", "taxon").
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bern_possibility_evaluations_total",
		Help: "Total possibility evaluations requested through batch evaluators",
	}, []string{"kind"})

	// OptimumSearches counts completed optimum searches.
	OptimumSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bern_optimum_searches_total",
		Help: "Total community optimum searches run",
	})

	// SearchEvaluations observes how many objective evaluations one search
	// needed.
	SearchEvaluations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bern_optimum_search_evaluations",
		Help:    "Possibility evaluations per optimum search",
		Buckets: prometheus.ExponentialBuckets(8, 4, 10),
	})

	// BatchFailures counts communities a batch evaluator absorbed an error for.
	BatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bern_batch_failures_total",
		Help: "Total per-community failures absorbed by batch evaluators",
	}, []string{"evaluator"})
)

// Dump writes the bern_* metric families gathered from g in the prometheus
// text exposition format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "bern_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write %s: %w", family.GetName(), err)
		}
	}
	return nil
}

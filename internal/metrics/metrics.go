package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/hira/internal/drill"
)

// Result label values for RoundsTotal.
const (
	ResultCorrect       = "correct"
	ResultWrong         = "wrong"
	ResultFirstExposure = "first_exposure"
)

// Metrics holds the Prometheus metrics for one drill process.
type Metrics struct {
	registry *prometheus.Registry

	RoundsTotal       *prometheus.CounterVec
	TotalMastery      prometheus.Gauge
	SelectedPosition  prometheus.Histogram
	RedrawsTotal      prometheus.Counter
	ForcedSelections  prometheus.Counter
	RepositionedFront prometheus.Counter
}

// New creates metrics registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RoundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hira_rounds_total",
				Help: "Answered rounds by result",
			},
			[]string{"result"},
		),
		TotalMastery: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hira_total_mastery",
			Help: "Importance-weighted mastery over the whole deck, 0 to 1",
		}),
		SelectedPosition: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hira_selected_position",
			Help:    "Deck position of the selected card",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128
		}),
		RedrawsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hira_redraws_total",
			Help: "Draws rejected because they repeated the previous card",
		}),
		ForcedSelections: factory.NewCounter(prometheus.CounterOpts{
			Name: "hira_forced_selections_total",
			Help: "Selections that fell back to a uniform pick after too many redraws",
		}),
		RepositionedFront: factory.NewCounter(prometheus.CounterOpts{
			Name: "hira_moved_to_front_total",
			Help: "Cards moved to the front after a miss or first exposure",
		}),
	}
}

// ObserveRound implements drill.Recorder.
func (m *Metrics) ObserveRound(p drill.Prompt, fb drill.Feedback) {
	m.RoundsTotal.WithLabelValues(Result(fb)).Inc()
	m.TotalMastery.Set(fb.TotalMastery)
	m.SelectedPosition.Observe(float64(p.Position))
	m.RedrawsTotal.Add(float64(p.Redraws))
	if p.Forced {
		m.ForcedSelections.Inc()
	}
	if !fb.Correct {
		m.RepositionedFront.Inc()
	}
}

// Result maps a round to its RoundsTotal label.
func Result(fb drill.Feedback) string {
	switch {
	case fb.FirstExposure:
		return ResultFirstExposure
	case fb.Correct:
		return ResultCorrect
	default:
		return ResultWrong
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var _ drill.Recorder = (*Metrics)(nil)

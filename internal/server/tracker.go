package server

import (
	"sync"
	"time"

	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Tracker caps in-flight predictions and records prediction metrics.
type Tracker struct {
	maxConcurrency int
	currentCount   int
	mu             sync.Mutex

	// Metrics
	totalPredictions   prometheus.Counter
	activePredictions  prometheus.Gauge
	predictionDuration *prometheus.HistogramVec
	predictionOutcome  *prometheus.CounterVec
}

// NewTracker creates a tracker registered with the default registerer.
func NewTracker(maxConcurrency int) *Tracker {
	return NewTrackerWithRegistry(maxConcurrency, prometheus.DefaultRegisterer)
}

// NewTrackerWithRegistry creates a tracker with a custom registry. A nil
// registerer leaves the metrics unregistered.
func NewTrackerWithRegistry(maxConcurrency int, registerer prometheus.Registerer) *Tracker {
	t := &Tracker{
		maxConcurrency: maxConcurrency,

		totalPredictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindcare_predictions_total",
			Help: "Total number of predictions started",
		}),
		activePredictions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mindcare_predictions_active",
			Help: "Number of predictions currently in flight",
		}),
		predictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mindcare_prediction_duration_seconds",
			Help:    "Prediction duration in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"outcome"}),
		predictionOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindcare_prediction_outcome_total",
			Help: "Total predictions by outcome and predicted class",
		}, []string{"outcome", "class"}),
	}

	if registerer != nil {
		registerer.MustRegister(t.totalPredictions)
		registerer.MustRegister(t.activePredictions)
		registerer.MustRegister(t.predictionDuration)
		registerer.MustRegister(t.predictionOutcome)
	}

	return t
}

// Acquire reserves a prediction slot. It returns false when the tracker is
// at capacity.
func (t *Tracker) Acquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxConcurrency > 0 && t.currentCount >= t.maxConcurrency {
		return false
	}
	t.currentCount++

	t.totalPredictions.Inc()
	t.activePredictions.Inc()
	return true
}

// Release frees a slot taken by Acquire and records how the prediction went.
func (t *Tracker) Release(res predict.Result, elapsed time.Duration) {
	t.mu.Lock()
	if t.currentCount > 0 {
		t.currentCount--
	}
	t.mu.Unlock()

	outcome, class := outcomeFailure, "none"
	if res.Success {
		outcome, class = outcomeSuccess, res.Prediction.String()
	}

	t.activePredictions.Dec()
	t.predictionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	t.predictionOutcome.WithLabelValues(outcome, class).Inc()
}

// Active returns the number of predictions in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentCount
}

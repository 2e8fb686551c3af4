package exchange

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uniswap_v2",
		Name:      "events_handled_total",
		Help:      "Events handled, by kind",
	}, []string{"event"})

	HandlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uniswap_v2",
		Name:      "handler_errors_total",
		Help:      "Handler failures, by event kind and failure class (missing, error, panic)",
	}, []string{"event", "class"})

	HandlerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "uniswap_v2",
		Name:      "handler_duration_seconds",
		Help:      "Time spent in a handler, effects included",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event"})

	HeadBlockNumber = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "uniswap_v2",
		Name:      "head_block_number",
		Help:      "Last block whose deltas were flushed",
	})
)

func init() {
	prometheus.MustRegister(EventsHandled, HandlerErrors, HandlerDuration, HeadBlockNumber)
}

func observeEvent(kind string, start time.Time, err error) {
	EventsHandled.WithLabelValues(kind).Inc()
	HandlerDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		HandlerErrors.WithLabelValues(kind, errorClass(err)).Inc()
	}
}

func errorClass(err error) string {
	var panicErr *PanicError
	switch {
	case errors.As(err, &panicErr):
		return "panic"
	case errors.Is(err, ErrMissingPrerequisite):
		return "missing"
	default:
		return "error"
	}
}

package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeUploaded = "uploaded"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeDeleted  = "deleted"
	outcomeSkipped  = "skipped"
)

// Metrics exports asset lifecycle counters to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	uploads        *prometheus.CounterVec
	releases       *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
}

// NewMetrics registers the lifecycle collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plaza",
			Subsystem: "asset",
			Name:      "uploads_total",
			Help:      "Asset uploads by class and outcome (uploaded, rejected, failed).",
		}, []string{"class", "outcome"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plaza",
			Subsystem: "asset",
			Name:      "releases_total",
			Help:      "Best-effort asset releases by outcome (deleted, skipped, failed).",
		}, []string{"outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plaza",
			Subsystem: "asset",
			Name:      "remote_duration_seconds",
			Help:      "Latency of calls to the remote asset store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if err := register(reg, &m.uploads); err != nil {
		return nil, err
	}
	if err := register(reg, &m.releases); err != nil {
		return nil, err
	}
	if err := register(reg, &m.remoteDuration); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register lifecycle metric: %w", err)
	}
	return nil
}

func (m *Metrics) recordUpload(class string, outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) recordRelease(outcome string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRemote(op string, start time.Time) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

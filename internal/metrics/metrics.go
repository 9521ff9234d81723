// Package metrics exports secret store activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

const (
	cacheRequestsName = "gcpsecrets_cache_requests_total"
	remoteCallsName   = "gcpsecrets_remote_calls_total"
	remoteLatencyName = "gcpsecrets_remote_call_duration_seconds"
)

// Registry is both a Registerer and a Gatherer, as *prometheus.Registry is.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Recorder implements secretstore.Observer.
type Recorder struct {
	gatherer prometheus.Gatherer

	cacheRequests *prometheus.CounterVec
	remoteCalls   *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
}

var _ secretstore.Observer = (*Recorder)(nil)

// NewRecorder registers the secret store metrics on reg. A nil reg gets a
// fresh private registry.
func NewRecorder(reg Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: cacheRequestsName,
				Help: "Total number of secret store cache lookups",
			},
			[]string{"cache", "result"},
		),
		remoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: remoteCallsName,
				Help: "Total number of calls to the remote secret service",
			},
			[]string{"op", "status"},
		),
		remoteLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    remoteLatencyName,
				Help:    "Duration of calls to the remote secret service in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
	}
}

// CacheLookup records a hit or miss in the named cache.
func (r *Recorder) CacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(cache, result).Inc()
}

// RemoteCall records a completed remote call.
func (r *Recorder) RemoteCall(op string, elapsed time.Duration, err error) {
	r.remoteCalls.WithLabelValues(op, callStatus(err)).Inc()
	r.remoteLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case secretstore.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// Stats summarizes the counters for `get --stats`.
type Stats struct {
	CacheHits    map[string]int `json:"cache_hits"`
	CacheMisses  map[string]int `json:"cache_misses"`
	RemoteCalls  map[string]int `json:"remote_calls"`
	RemoteErrors int            `json:"remote_errors"`
}

// Stats reads the current counter values back from the registry.
func (r *Recorder) Stats() (Stats, error) {
	stats := Stats{
		CacheHits:   map[string]int{},
		CacheMisses: map[string]int{},
		RemoteCalls: map[string]int{},
	}

	families, err := r.gatherer.Gather()
	if err != nil {
		return stats, err
	}

	for _, family := range families {
		switch family.GetName() {
		case cacheRequestsName:
			for _, m := range family.GetMetric() {
				labels := map[string]string{}
				for _, lp := range m.GetLabel() {
					labels[lp.GetName()] = lp.GetValue()
				}
				n := int(m.GetCounter().GetValue())
				if labels["result"] == "hit" {
					stats.CacheHits[labels["cache"]] += n
				} else {
					stats.CacheMisses[labels["cache"]] += n
				}
			}
		case remoteCallsName:
			for _, m := range family.GetMetric() {
				labels := map[string]string{}
				for _, lp := range m.GetLabel() {
					labels[lp.GetName()] = lp.GetValue()
				}
				n := int(m.GetCounter().GetValue())
				stats.RemoteCalls[labels["op"]] += n
				if labels["status"] == "error" {
					stats.RemoteErrors += n
				}
			}
		}
	}
	return stats, nil
}

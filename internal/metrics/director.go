// Package metrics provides Prometheus metrics for the animation director and
// its display sinks.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "ticks_total",
		Help:      "Ticks fully processed and emitted",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "tick_duration_seconds",
		Help:      "Time spent spawning, advancing, blending and emitting one tick",
		Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
	})

	activeAnimations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "active_animations",
		Help:      "Animations currently held in spawn order, finished ones included",
	})

	scheduledAnimations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "scheduled_animations",
		Help:      "Animations registered in the schedule",
	})

	spawnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "spawned_total",
		Help:      "Animations spawned",
	})

	retiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "retired_total",
		Help:      "Finished animations folded into the strip state",
	})

	faultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "director",
		Name:      "faults_total",
		Help:      "Animation contract violations",
	}, []string{"policy"})

	sinkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "sink",
		Name:      "errors_total",
		Help:      "Display sink write failures",
	})

	// Local copy of the latest values for the JSON API.
	statsMu sync.RWMutex
	stats   DirectorStats
)

// DirectorStats holds current director counters.
type DirectorStats struct {
	Ticks      uint64        `json:"ticks"`
	Spawned    uint64        `json:"spawned"`
	Retired    uint64        `json:"retired"`
	Faults     uint64        `json:"faults"`
	SinkErrors uint64        `json:"sink_errors"`
	Active     int           `json:"active"`
	Scheduled  int           `json:"scheduled"`
	LastTick   time.Duration `json:"last_tick_ns"`
}

// ObserveTick records one emitted tick.
func ObserveTick(d time.Duration, active int) {
	ticksTotal.Inc()
	tickDuration.Observe(d.Seconds())
	activeAnimations.Set(float64(active))
	update(func(s *DirectorStats) {
		s.Ticks++
		s.Active = active
		s.LastTick = d
	})
}

// SetScheduled records the schedule length.
func SetScheduled(n int) {
	scheduledAnimations.Set(float64(n))
	update(func(s *DirectorStats) { s.Scheduled = n })
}

// AddSpawned counts spawned animations.
func AddSpawned(n int) {
	if n == 0 {
		return
	}
	spawnedTotal.Add(float64(n))
	update(func(s *DirectorStats) { s.Spawned += uint64(n) })
}

// AddRetired counts retired animations.
func AddRetired(n int) {
	if n == 0 {
		return
	}
	retiredTotal.Add(float64(n))
	update(func(s *DirectorStats) { s.Retired += uint64(n) })
}

// IncFault counts a contract violation under the given fault policy.
func IncFault(policy string) {
	faultsTotal.WithLabelValues(policy).Inc()
	update(func(s *DirectorStats) { s.Faults++ })
}

// IncSinkError counts a failed display write.
func IncSinkError() {
	sinkErrorsTotal.Inc()
	update(func(s *DirectorStats) { s.SinkErrors++ })
}

// Stats returns a copy of the current counters.
func Stats() DirectorStats {
	statsMu.RLock()
	defer statsMu.RUnlock()
	return stats
}

// Handler serves every promauto-registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}

func update(fn func(*DirectorStats)) {
	statsMu.Lock()
	defer statsMu.Unlock()
	fn(&stats)
}

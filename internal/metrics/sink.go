package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sinkWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "sink",
		Name:      "write_errors_total",
		Help:      "Write failures per display sink",
	}, []string{"sink"})

	opcConnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledsim",
		Subsystem: "opc",
		Name:      "connects_total",
		Help:      "Open Pixel Control connection attempts by result",
	}, []string{"result"})
)

// IncSinkWriteError counts a failed write on one sink of a fan-out.
func IncSinkWriteError(sink string) {
	sinkWriteErrors.WithLabelValues(sink).Inc()
}

// IncOPCConnect counts a connection attempt; ok reports whether it succeeded.
func IncOPCConnect(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	opcConnects.WithLabelValues(result).Inc()
}

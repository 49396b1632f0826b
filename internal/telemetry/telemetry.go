package telemetry

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgprobe_probes_total",
			Help: "The total number of probes by outcome",
		},
		[]string{"target", "status"},
	)
	ProbeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgprobe_probe_latency_seconds",
			Help:    "Latency of full probe rounds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"target"},
	)
	ConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgprobe_consecutive_failures",
			Help: "Failed probes in a row per target",
		},
		[]string{"target"},
	)
	LastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgprobe_last_success_timestamp_seconds",
			Help: "Unix time of the last successful probe per target",
		},
		[]string{"target"},
	)
)

func Init(addr string) {
	// Metrics
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeLatency)
	prometheus.MustRegister(ConsecutiveFailures)
	prometheus.MustRegister(LastSuccess)

	// Server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		slog.Info("Starting telemetry server", "address", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			slog.Error("Telemetry server failed", "error", err)
		}
	}()
}

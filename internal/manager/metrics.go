package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	engineLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Engine load attempts by result",
		},
		[]string{"result"},
	)

	engineUnloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "engine",
			Name:      "unloads_total",
			Help:      "Engine unloads by reason",
		},
		[]string{"reason"},
	)

	engineLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "loaded",
		Help:      "1 when an engine is loaded",
	})

	engineInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "engine",
		Name:      "inflight",
		Help:      "Generations currently pinning the engine",
	})
)

func init() {
	prometheus.MustRegister(engineLoadsTotal, engineUnloadsTotal, engineLoaded, engineInflight)
}

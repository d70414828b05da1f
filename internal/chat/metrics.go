package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generation",
			Name:      "sessions_total",
			Help:      "Generation sessions by terminal outcome",
		},
		[]string{"outcome"},
	)

	fragmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "generation",
		Name:      "fragments_total",
		Help:      "Text fragments forwarded to clients",
	})
)

func init() {
	prometheus.MustRegister(sessionsTotal, fragmentsTotal)
}

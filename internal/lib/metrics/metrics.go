package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastdo",
		Subsystem: "auth",
		Name:      "operations_total",
		Help:      "Session service operations by name and result.",
	}, []string{"operation", "result"})

	RefreshTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fastdo",
		Subsystem: "auth",
		Name:      "refresh_tokens_issued_total",
		Help:      "Refresh tokens persisted on login or rotation.",
	})

	RefreshTokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fastdo",
		Subsystem: "sweeper",
		Name:      "refresh_tokens_deleted_total",
		Help:      "Expired refresh tokens removed by the sweeper.",
	})

	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fastdo",
		Subsystem: "sweeper",
		Name:      "errors_total",
		Help:      "Failed sweeper runs.",
	})

	MailPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastdo",
		Subsystem: "mail",
		Name:      "publish_errors_total",
		Help:      "Mail messages that could not be handed to the broker.",
	}, []string{"purpose"})
)

// * Observe учитывает результат операции сервиса.
func Observe(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	AuthOperations.WithLabelValues(operation, result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics holds the Prometheus collectors of the service. They are
// registered with the default registry and exposed on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Rejection reasons used as the reason label of URLsRejectedTotal.
const (
	ReasonInvalid     = "invalid"
	ReasonUnsafe      = "unsafe"
	ReasonCheckFailed = "check_failed"
	ReasonUnreachable = "unreachable"
)

var (
	QRCodesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_codes_generated_total",
			Help: "Number of QR codes encoded and stored for new URLs.",
		})

	QRCodesRetrievedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_codes_retrieved_total",
			Help: "Number of QR codes served from the store.",
		})

	QRCodesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_codes_deleted_total",
			Help: "Number of QR code records deleted.",
		})

	URLsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "urls_rejected_total",
			Help: "Number of generate requests rejected by the validation pipeline.",
		}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		QRCodesGeneratedTotal,
		QRCodesRetrievedTotal,
		QRCodesDeletedTotal,
		URLsRejectedTotal,
	)
}

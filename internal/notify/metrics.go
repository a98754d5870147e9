package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surokha_notifications_total",
			Help: "Notification delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
	outboxProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surokha_outbox_jobs_total",
			Help: "Outbox jobs settled by the relay",
		},
		[]string{"result"},
	)
)

func recordDelivery(channel string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	deliveriesTotal.WithLabelValues(channel, outcome).Inc()
}

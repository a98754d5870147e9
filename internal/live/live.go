// Package live replaces reactive queries with explicit publish/subscribe.
// Writers publish on a topic after the row is committed; readers subscribe
// and re-render on each message.
package live

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// subscriberBuffer bounds how far a slow subscriber can lag before messages
// to it are dropped.
const subscriberBuffer = 16

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surokha_live_published_total",
			Help: "Messages published to live topics",
		},
		[]string{"broker"},
	)
	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surokha_live_dropped_total",
			Help: "Messages dropped because a subscriber buffer was full",
		},
		[]string{"broker"},
	)
	subscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surokha_live_subscribers",
			Help: "Currently open live subscriptions",
		},
		[]string{"broker"},
	)
)

type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Kind() string
	Close() error
}

// Subscription delivers payloads on C until Close is called or the
// subscribing context ends. C is closed afterwards.
type Subscription struct {
	C <-chan []byte

	once    sync.Once
	release func()
}

func (s *Subscription) Close() {
	s.once.Do(s.release)
}

// LocationTopic is the topic carrying newly appended locations for a report.
func LocationTopic(reportID uuid.UUID) string {
	return "report:" + reportID.String() + ":location"
}

// ReportTopic carries report document changes (status, audio).
func ReportTopic(reportID uuid.UUID) string {
	return "report:" + reportID.String()
}

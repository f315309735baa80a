package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "messaging",
		Name:      "messages_sent_total",
		Help:      "Messages appended to conversations.",
	})
	MessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "messaging",
		Name:      "messages_deleted_total",
		Help:      "Messages soft-deleted.",
	})
	ConversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "messaging",
		Name:      "conversations_created_total",
		Help:      "Conversations created for a new participant pair.",
	})
	Polls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "messaging",
		Subsystem: "client",
		Name:      "polls_total",
		Help:      "Silent message polls by outcome.",
	}, []string{"result"})
	ActiveConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "messaging",
		Name:      "active_conversations",
		Help:      "Conversations currently in the active state.",
	})
	OutstandingUnread = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "messaging",
		Name:      "outstanding_unread_messages",
		Help:      "Sum of unread counters across active conversations.",
	})
)

const (
	PollGrew      = "grew"
	PollUnchanged = "unchanged"
	PollFailed    = "failed"
	PollSkipped   = "skipped"
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

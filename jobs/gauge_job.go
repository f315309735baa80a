package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anjiri1684/agency_messaging/metrics"
	"github.com/anjiri1684/agency_messaging/services"
	"github.com/robfig/cron/v3"
)

// RecordMessagingGauges refreshes the active conversation and outstanding
// unread gauges.
func RecordMessagingGauges(conversations *services.ConversationService) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := conversations.Stats(ctx)
	if err != nil {
		log.Printf("Error collecting messaging stats: %v", err)
		return
	}

	metrics.ActiveConversations.Set(float64(stats.ActiveConversations))
	metrics.OutstandingUnread.Set(float64(stats.OutstandingUnread))
}

// Schedule registers the background jobs on c.
func Schedule(c *cron.Cron, schedule string, conversations *services.ConversationService) error {
	if _, err := c.AddFunc(schedule, func() { RecordMessagingGauges(conversations) }); err != nil {
		return fmt.Errorf("invalid gauge schedule %q: %w", schedule, err)
	}
	return nil
}

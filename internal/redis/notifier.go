package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/strandloc/booking-calendar/internal/calendar"
)

// PubSubNotifier publishes change notifications on a per loctician channel.
// Delivery is best-effort: publish failures are logged and swallowed so a
// Redis hiccup never fails the mutation that triggered the broadcast.
type PubSubNotifier struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewPubSubNotifier(client *redis.Client, log zerolog.Logger) *PubSubNotifier {
	return &PubSubNotifier{client: client, log: log}
}

// ChannelFor returns the pub/sub channel carrying one loctician's updates.
func ChannelFor(locticianID uuid.UUID) string {
	return fmt.Sprintf("calendar:updates:%s", locticianID.String())
}

func (n *PubSubNotifier) BroadcastToUser(ctx context.Context, locticianID uuid.UUID, msg calendar.ChangeNotification) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Error().Err(err).
			Str("loctician_id", locticianID.String()).
			Msg("encode change notification")
		return
	}

	if err := n.client.Publish(ctx, ChannelFor(locticianID), payload).Err(); err != nil {
		n.log.Warn().Err(err).
			Str("loctician_id", locticianID.String()).
			Str("action", msg.Action).
			Str("resource_type", msg.ResourceType).
			Msg("publish change notification failed")
	}
}

package stream

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/pkg/natsutil"
)

// Relay forwards run summaries published on subject to the hub
func (h *Hub) Relay(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, subject, func(ctx context.Context, summary contracts.RunSummary) {
		if err := h.Broadcast(summary); err != nil {
			h.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Failed to relay run summary")
			return
		}
		h.logger.WithFields(map[string]interface{}{
			"run_id":  summary.RunID,
			"clients": h.Clients(),
		}).Debug("Run summary relayed")
	})
}

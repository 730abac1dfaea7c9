package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Handler processes notification messages consumed from Kafka.
type Handler struct {
	sender Sender
	logger *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sender: sender,
		logger: logger.With(zap.String("component", "notifier")),
	}
}

// HandleEvent decodes a message and delivers it. Undecodable messages are
// logged and skipped so one bad record cannot stall the consumer.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var msg Message
	if err := json.Unmarshal(value, &msg); err != nil {
		h.logger.Error("notification_decode_failed", zap.ByteString("key", key), zap.Error(err))
		return nil
	}
	if msg.Recipient == "" || msg.Template == "" {
		h.logger.Warn("notification_incomplete", zap.String("id", msg.ID))
		return nil
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s for order %s: %w", msg.Template, msg.Order.Number, err)
	}
	h.logger.Info("notification_delivered",
		zap.String("id", msg.ID),
		zap.String("template", string(msg.Template)),
		zap.String("order_number", msg.Order.Number),
	)
	return nil
}

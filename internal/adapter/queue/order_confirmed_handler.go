package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aq2208/goshop-api/internal/adapter/mail"
	"github.com/aq2208/goshop-api/internal/usecase"
)

// OrderConfirmedHandler sends the confirmation email for a committed order.
// Intended to be used with the JSON adapter (queue.JSONHandler[OrderConfirmedMsg]).
type OrderConfirmedHandler struct {
	Mailer mail.Sender
	Log    *slog.Logger
}

func NewOrderConfirmedHandler(m mail.Sender, log *slog.Logger) *OrderConfirmedHandler {
	return &OrderConfirmedHandler{Mailer: m, Log: log}
}

func (h *OrderConfirmedHandler) HandleConfirmed(ctx context.Context, msg usecase.OrderConfirmedMsg) error {
	if msg.UserEmail == "" {
		// Nothing to deliver to; ack rather than requeue forever.
		h.Log.Warn("order confirmation without email, dropping", "order_id", msg.OrderID)
		return nil
	}

	subject := fmt.Sprintf("Order Confirmation - Order #%s", msg.OrderID)
	body := fmt.Sprintf(
		"Thank you for your order!\n\nOrder Number: %s\nTotal: $%d.%02d\nItems: %d\n\nYour order has been received and will be processed shortly.\n",
		msg.OrderID, msg.TotalCents/100, msg.TotalCents%100, msg.ItemCount,
	)

	if err := h.Mailer.Send(ctx, msg.UserEmail, subject, body); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", msg.OrderID, err)
	}
	h.Log.Info("order confirmation sent", "order_id", msg.OrderID, "to", msg.UserEmail)
	return nil
}

package kafka

import (
	"context"
	"fmt"
	"log/slog"

	domain "github.com/aq2208/goshop-api/internal/entity"
	"github.com/aq2208/goshop-api/internal/usecase"
)

// ShipmentStatusHandler applies fulfillment progress to orders. Transitions
// are guarded on the current status so a replayed or out-of-order event
// cannot move an order backwards.
type ShipmentStatusHandler struct {
	Repo usecase.OrderRepo
	Log  *slog.Logger
}

func NewShipmentStatusHandler(repo usecase.OrderRepo, log *slog.Logger) *ShipmentStatusHandler {
	return &ShipmentStatusHandler{Repo: repo, Log: log}
}

func (h *ShipmentStatusHandler) Handle(ctx context.Context, ev usecase.ShipmentStatusChangedMsg) error {
	var from, to domain.Status
	switch ev.Status {
	case "SHIPPED":
		from, to = domain.StatusConfirmed, domain.StatusShipped
	case "DELIVERED":
		from, to = domain.StatusShipped, domain.StatusDelivered
	default:
		return fmt.Errorf("unknown shipment status %q for order %s", ev.Status, ev.OrderID)
	}

	applied, err := h.Repo.UpdateStatusIf(ctx, ev.OrderID, string(from), string(to))
	if err != nil {
		return err
	}
	if !applied {
		// Already transitioned (duplicate delivery) or unknown order; either
		// way the event is spent.
		h.Log.Warn("shipment transition not applied",
			"order_id", ev.OrderID, "from", from, "to", to)
	}
	return nil
}

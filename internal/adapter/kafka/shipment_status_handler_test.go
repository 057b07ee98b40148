package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aq2208/goshop-api/internal/adapter/kafka"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrderRepo struct {
	byID map[string]*usecase.OrderRecord
}

func (r *stubOrderRepo) GetByID(_ context.Context, id string) (*usecase.OrderRecord, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, usecase.ErrOrderNotFound
	}
	return o, nil
}

func (r *stubOrderRepo) ListByUser(context.Context, string, int, int) (*usecase.OrderPage, error) {
	return nil, nil
}

func (r *stubOrderRepo) ListAll(context.Context, string, int, int) (*usecase.OrderPage, error) {
	return nil, nil
}

func (r *stubOrderRepo) UpdateStatusIf(_ context.Context, id, fromStatus, toStatus string) (bool, error) {
	o, ok := r.byID[id]
	if !ok || o.Status != fromStatus {
		return false, nil
	}
	o.Status = toStatus
	return true, nil
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestShipmentHandlerAppliesTransitions(t *testing.T) {
	repo := &stubOrderRepo{byID: map[string]*usecase.OrderRecord{
		"o1": {ID: "o1", Status: "CONFIRMED"},
	}}
	h := kafka.NewShipmentStatusHandler(repo, testLogger())

	err := h.Handle(context.Background(), usecase.ShipmentStatusChangedMsg{OrderID: "o1", Status: "SHIPPED"})
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", repo.byID["o1"].Status)

	err = h.Handle(context.Background(), usecase.ShipmentStatusChangedMsg{OrderID: "o1", Status: "DELIVERED"})
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", repo.byID["o1"].Status)
}

func TestShipmentHandlerDuplicateEventIsSpent(t *testing.T) {
	repo := &stubOrderRepo{byID: map[string]*usecase.OrderRecord{
		"o1": {ID: "o1", Status: "SHIPPED"},
	}}
	h := kafka.NewShipmentStatusHandler(repo, testLogger())

	// a replayed SHIPPED event no longer matches and must ack, not error
	err := h.Handle(context.Background(), usecase.ShipmentStatusChangedMsg{OrderID: "o1", Status: "SHIPPED"})
	assert.NoError(t, err)
	assert.Equal(t, "SHIPPED", repo.byID["o1"].Status)
}

func TestShipmentHandlerRejectsUnknownStatus(t *testing.T) {
	repo := &stubOrderRepo{byID: map[string]*usecase.OrderRecord{}}
	h := kafka.NewShipmentStatusHandler(repo, testLogger())

	err := h.Handle(context.Background(), usecase.ShipmentStatusChangedMsg{OrderID: "o1", Status: "TELEPORTED"})
	assert.Error(t, err)
}

package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aq2208/goshop-api/internal/adapter/queue"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	to, subject, body string
	calls             int
	err               error
}

func (s *stubSender) Send(_ context.Context, to, subject, body string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.to, s.subject, s.body = to, subject, body
	return nil
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHandleConfirmedSendsEmail(t *testing.T) {
	s := &stubSender{}
	h := queue.NewOrderConfirmedHandler(s, testLogger())

	err := h.HandleConfirmed(context.Background(), usecase.OrderConfirmedMsg{
		OrderID:    "o1",
		UserEmail:  "buyer@example.com",
		TotalCents: 2599,
		ItemCount:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", s.to)
	assert.Contains(t, s.subject, "o1")
	assert.Contains(t, s.body, "$25.99")
	assert.Contains(t, s.body, "Items: 3")
}

func TestHandleConfirmedMissingEmailAcks(t *testing.T) {
	s := &stubSender{}
	h := queue.NewOrderConfirmedHandler(s, testLogger())

	err := h.HandleConfirmed(context.Background(), usecase.OrderConfirmedMsg{OrderID: "o1"})
	assert.NoError(t, err)
	assert.Zero(t, s.calls)
}

func TestHandleConfirmedSendFailurePropagates(t *testing.T) {
	s := &stubSender{err: errors.New("smtp refused")}
	h := queue.NewOrderConfirmedHandler(s, testLogger())

	err := h.HandleConfirmed(context.Background(), usecase.OrderConfirmedMsg{
		OrderID:   "o1",
		UserEmail: "buyer@example.com",
	})
	assert.Error(t, err)
}

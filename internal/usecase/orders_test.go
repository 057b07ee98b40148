package usecase_test

import (
	"context"
	"testing"

	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock order repo ----

type fakeOrderRepo struct {
	byID map[string]*usecase.OrderRecord

	// statusIfApplied forces the guarded update to report a lost race.
	statusIfApplied bool
}

func newFakeOrderRepo(orders ...*usecase.OrderRecord) *fakeOrderRepo {
	r := &fakeOrderRepo{byID: map[string]*usecase.OrderRecord{}, statusIfApplied: true}
	for _, o := range orders {
		r.byID[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*usecase.OrderRecord, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, usecase.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID string, page, limit int) (*usecase.OrderPage, error) {
	var items []usecase.OrderRecord
	for _, o := range r.byID {
		if o.UserID == userID {
			items = append(items, *o)
		}
	}
	return &usecase.OrderPage{Items: items, Total: int64(len(items)), Page: page, Limit: limit}, nil
}

func (r *fakeOrderRepo) ListAll(_ context.Context, status string, page, limit int) (*usecase.OrderPage, error) {
	var items []usecase.OrderRecord
	for _, o := range r.byID {
		if status == "" || o.Status == status {
			items = append(items, *o)
		}
	}
	return &usecase.OrderPage{Items: items, Total: int64(len(items)), Page: page, Limit: limit}, nil
}

func (r *fakeOrderRepo) UpdateStatusIf(_ context.Context, id, fromStatus, toStatus string) (bool, error) {
	if !r.statusIfApplied {
		return false, nil
	}
	o, ok := r.byID[id]
	if !ok || o.Status != fromStatus {
		return false, nil
	}
	o.Status = toStatus
	return true, nil
}

// ---- tests ----

func TestOrdersGetByIDOwnership(t *testing.T) {
	repo := newFakeOrderRepo(&usecase.OrderRecord{ID: "o1", UserID: "u1", Status: "CONFIRMED"})
	uc := usecase.NewOrders(repo, discard())

	got, err := uc.GetByID(context.Background(), "o1", "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)

	_, err = uc.GetByID(context.Background(), "o1", "u2", false)
	assert.ErrorIs(t, err, usecase.ErrForbidden)

	// admins may read anyone's order
	_, err = uc.GetByID(context.Background(), "o1", "u2", true)
	assert.NoError(t, err)

	_, err = uc.GetByID(context.Background(), "ghost", "u1", false)
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)
}

func TestOrdersUpdateStatusTransitions(t *testing.T) {
	repo := newFakeOrderRepo(&usecase.OrderRecord{ID: "o1", UserID: "u1", Status: "CONFIRMED"})
	uc := usecase.NewOrders(repo, discard())

	got, err := uc.UpdateStatus(context.Background(), "o1", "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", got.Status)

	got, err = uc.UpdateStatus(context.Background(), "o1", "DELIVERED")
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", got.Status)

	// delivered is terminal
	_, err = uc.UpdateStatus(context.Background(), "o1", "CANCELLED")
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)

	_, err = uc.UpdateStatus(context.Background(), "o1", "LOST_IN_MAIL")
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
}

func TestOrdersUpdateStatusSkippingStates(t *testing.T) {
	repo := newFakeOrderRepo(&usecase.OrderRecord{ID: "o1", UserID: "u1", Status: "CONFIRMED"})
	uc := usecase.NewOrders(repo, discard())

	_, err := uc.UpdateStatus(context.Background(), "o1", "DELIVERED")
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
}

func TestOrdersUpdateStatusLostRace(t *testing.T) {
	repo := newFakeOrderRepo(&usecase.OrderRecord{ID: "o1", UserID: "u1", Status: "CONFIRMED"})
	repo.statusIfApplied = false
	uc := usecase.NewOrders(repo, discard())

	_, err := uc.UpdateStatus(context.Background(), "o1", "SHIPPED")
	assert.ErrorIs(t, err, usecase.ErrVersionConflict)
}

func TestOrdersListAllValidatesStatusFilter(t *testing.T) {
	uc := usecase.NewOrders(newFakeOrderRepo(), discard())

	_, err := uc.ListAll(context.Background(), "BOGUS", 1, 10)
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)

	_, err = uc.ListAll(context.Background(), "CONFIRMED", 1, 10)
	assert.NoError(t, err)
}

package usecase

import (
	"context"
	"log/slog"

	domain "github.com/aq2208/goshop-api/internal/entity"
)

// Orders is the read path plus the administrative status transitions. Orders
// are immutable after checkout except for the status column.
type Orders struct {
	repo OrderRepo
	log  *slog.Logger
}

func NewOrders(repo OrderRepo, log *slog.Logger) *Orders {
	return &Orders{repo: repo, log: log}
}

func (uc *Orders) GetByID(ctx context.Context, id, requesterID string, isAdmin bool) (*OrderRecord, error) {
	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && rec.UserID != requesterID {
		return nil, ErrForbidden
	}
	return rec, nil
}

func (uc *Orders) ListByUser(ctx context.Context, userID string, page, limit int) (*OrderPage, error) {
	return uc.repo.ListByUser(ctx, userID, normPage(page), normLimit(limit))
}

func (uc *Orders) ListAll(ctx context.Context, status string, page, limit int) (*OrderPage, error) {
	if status != "" && !domain.ValidStatus(status) {
		return nil, ErrInvalidTransition
	}
	return uc.repo.ListAll(ctx, status, normPage(page), normLimit(limit))
}

// UpdateStatus applies a guarded transition: the UPDATE is conditioned on the
// current status so two racing admins cannot double-apply a move.
func (uc *Orders) UpdateStatus(ctx context.Context, id, toStatus string) (*OrderRecord, error) {
	if !domain.ValidStatus(toStatus) {
		return nil, ErrInvalidTransition
	}
	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(domain.Status(rec.Status), domain.Status(toStatus)) {
		return nil, ErrInvalidTransition
	}

	ok, err := uc.repo.UpdateStatusIf(ctx, id, rec.Status, toStatus)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race with another transition.
		return nil, ErrVersionConflict
	}

	rec.Status = toStatus
	return rec, nil
}

func normPage(p int) int {
	if p < 1 {
		return 1
	}
	return p
}

func normLimit(l int) int {
	if l < 1 || l > 100 {
		return 10
	}
	return l
}

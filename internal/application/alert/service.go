package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medibox-api/internal/domain"
)

type Service interface {
	// List returns the user's alerts newest-first, after pruning everything
	// older than the retention window.
	List(ctx context.Context, userID string) ([]domain.Alert, error)
	MarkRead(ctx context.Context, alertID, userID string) (*domain.Alert, error)
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, alertID, userID string) error
}

type alertStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Alert, error)
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	MarkRead(ctx context.Context, alertID string) error
	MarkAllReadByUser(ctx context.Context, userID string) error
	Delete(ctx context.Context, alertID string) error
}

type service struct {
	repo      alertStore
	retention time.Duration
	now       func() time.Time
}

func NewService(repo alertStore, retention time.Duration) Service {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &service{repo: repo, retention: retention, now: time.Now}
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Alert, error) {
	alerts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-s.retention)
	kept := alerts[:0]
	for i := range alerts {
		if alerts[i].CreatedAt.After(cutoff) {
			kept = append(kept, alerts[i])
			continue
		}
		// Expired alerts are dropped from the result either way; a delete
		// failure just means the sweep retries on the next read.
		if err := s.repo.Delete(ctx, alerts[i].AlertID); err != nil {
			slog.Warn("retention sweep delete failed", "alert_id", alerts[i].AlertID, "err", err)
		}
	}
	return kept, nil
}

func (s *service) MarkRead(ctx context.Context, alertID, userID string) (*domain.Alert, error) {
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkRead(ctx, alertID); err != nil {
		return nil, err
	}
	a.IsRead = true
	return a, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllReadByUser(ctx, userID)
}

func (s *service) Delete(ctx context.Context, alertID, userID string) error {
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return s.repo.Delete(ctx, alertID)
}

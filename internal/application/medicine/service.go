package medicine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medibox-api/internal/domain"
	"github.com/medibox-api/internal/pkg/id"
)

// lowCountThreshold mirrors the dose engine: a medicine added or updated
// with a count in (0, 3] is already running low.
const lowCountThreshold = 3

type Service interface {
	Add(ctx context.Context, boxID, userID string, req domain.CreateMedicineRequest) (*domain.Medicine, error)
	List(ctx context.Context, boxID, userID string) ([]domain.Medicine, error)
	Get(ctx context.Context, boxID, medicineID, userID string) (*domain.Medicine, error)
	Update(ctx context.Context, boxID, medicineID, userID string, req domain.UpdateMedicineRequest) (*domain.Medicine, error)
	Delete(ctx context.Context, boxID, medicineID, userID string) error
}

type boxStore interface {
	Get(ctx context.Context, boxID string) (*domain.MedicineBox, error)
	SaveMedicines(ctx context.Context, boxID string, medicines []domain.Medicine) error
}

type alertStore interface {
	Put(ctx context.Context, a *domain.Alert) error
	DeleteByMedicine(ctx context.Context, medicineID string) error
}

type service struct {
	boxes  boxStore
	alerts alertStore
}

func NewService(boxes boxStore, alerts alertStore) Service {
	return &service{boxes: boxes, alerts: alerts}
}

func (s *service) Add(ctx context.Context, boxID, userID string, req domain.CreateMedicineRequest) (*domain.Medicine, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return nil, err
	}
	sched, err := domain.ParseSchedule(req.ScheduleTime)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	m := domain.Medicine{
		MedicineID:   id.New(),
		Name:         req.Name,
		TimesPerDay:  req.TimesPerDay,
		TotalCount:   req.TotalCount,
		CurrentCount: req.CurrentCount,
		Reminder:     req.Reminder,
		Schedule:     sched,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Medicines = append(b.Medicines, m)
	if err := s.boxes.SaveMedicines(ctx, boxID, b.Medicines); err != nil {
		return nil, err
	}
	s.stockAlert(ctx, b, &m, now)
	return &m, nil
}

func (s *service) List(ctx context.Context, boxID, userID string) ([]domain.Medicine, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return nil, err
	}
	if b.Medicines == nil {
		return []domain.Medicine{}, nil
	}
	return b.Medicines, nil
}

func (s *service) Get(ctx context.Context, boxID, medicineID, userID string) (*domain.Medicine, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return nil, err
	}
	m := b.Medicine(medicineID)
	if m == nil {
		return nil, fmt.Errorf("medicine %s: %w", medicineID, domain.ErrNotFound)
	}
	return m, nil
}

func (s *service) Update(ctx context.Context, boxID, medicineID, userID string, req domain.UpdateMedicineRequest) (*domain.Medicine, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return nil, err
	}
	m := b.Medicine(medicineID)
	if m == nil {
		return nil, fmt.Errorf("medicine %s: %w", medicineID, domain.ErrNotFound)
	}
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.TimesPerDay != nil {
		m.TimesPerDay = *req.TimesPerDay
	}
	if req.TotalCount != nil {
		m.TotalCount = *req.TotalCount
	}
	if req.CurrentCount != nil {
		m.CurrentCount = *req.CurrentCount
	}
	if req.Reminder != nil {
		m.Reminder = *req.Reminder
	}
	if req.ScheduleTime != nil {
		sched, err := domain.ParseSchedule(*req.ScheduleTime)
		if err != nil {
			return nil, err
		}
		m.Schedule = sched
	}
	now := time.Now().UTC()
	m.UpdatedAt = now
	if err := s.boxes.SaveMedicines(ctx, boxID, b.Medicines); err != nil {
		return nil, err
	}
	if req.CurrentCount != nil {
		s.stockAlert(ctx, b, m, now)
	}
	out := *m
	return &out, nil
}

func (s *service) Delete(ctx context.Context, boxID, medicineID, userID string) error {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return err
	}
	kept := b.Medicines[:0]
	found := false
	for _, m := range b.Medicines {
		if m.MedicineID == medicineID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return fmt.Errorf("medicine %s: %w", medicineID, domain.ErrNotFound)
	}
	if err := s.boxes.SaveMedicines(ctx, boxID, kept); err != nil {
		return err
	}
	if err := s.alerts.DeleteByMedicine(ctx, medicineID); err != nil {
		slog.Warn("alert cascade failed during medicine delete", "medicine_id", medicineID, "err", err)
	}
	return nil
}

// stockAlert records an immediate stock alert when a medicine enters with a
// count already at or below the low threshold. The periodic engine would
// catch it on the next tick; this surfaces it right away.
func (s *service) stockAlert(ctx context.Context, b *domain.MedicineBox, m *domain.Medicine, now time.Time) {
	a := &domain.Alert{
		AlertID:      id.New(),
		UserID:       b.UserID,
		MedicineID:   m.MedicineID,
		MedicineName: m.Name,
		BoxName:      b.Name,
		CreatedAt:    now,
	}
	switch {
	case m.CurrentCount == 0:
		a.Type = domain.AlertRefillNeeded
		a.Message = fmt.Sprintf("%s is out of stock, refill needed", m.Name)
	case m.CurrentCount <= lowCountThreshold:
		a.Type = domain.AlertLowCount
		a.Message = fmt.Sprintf("%s is running low: %d left", m.Name, m.CurrentCount)
	default:
		return
	}
	if err := s.alerts.Put(ctx, a); err != nil {
		slog.Warn("failed to record stock alert", "medicine_id", m.MedicineID, "err", err)
	}
}

func (s *service) owned(ctx context.Context, boxID, userID string) (*domain.MedicineBox, error) {
	b, err := s.boxes.Get(ctx, boxID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return b, nil
}

package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medibox-api/internal/domain"
	"github.com/medibox-api/internal/pkg/id"
)

// DedupPolicy selects how the low-stock check suppresses repeat low_count
// alerts. The two rules observed in the wild disagree, so the engine makes
// the choice explicit and testable.
type DedupPolicy string

const (
	// DedupUnreadOnly suppresses a new low_count alert only while an unread
	// one exists for the medicine; acknowledging it re-arms the alert.
	DedupUnreadOnly DedupPolicy = "unread-only"
	// DedupAnyExisting suppresses while any low_count alert for the medicine
	// remains, read or not.
	DedupAnyExisting DedupPolicy = "any-existing"
)

// ParseDedupPolicy maps a config string to a policy, defaulting to
// unread-only for anything unrecognized.
func ParseDedupPolicy(s string) DedupPolicy {
	if DedupPolicy(s) == DedupAnyExisting {
		return DedupAnyExisting
	}
	return DedupUnreadOnly
}

type boxStore interface {
	Scan(ctx context.Context) ([]domain.MedicineBox, error)
	SaveMedicines(ctx context.Context, boxID string, medicines []domain.Medicine) error
}

type alertStore interface {
	Scan(ctx context.Context) ([]domain.Alert, error)
	Put(ctx context.Context, a *domain.Alert) error
}

// lowCountThreshold is the dose count at or below which a dose deduction
// raises a low_count alert. Distinct from the days-of-supply threshold used
// by the periodic low-stock pass.
const lowCountThreshold = 3

// Config tunes the engine's thresholds and policies.
type Config struct {
	LowStockThresholdDays float64
	LowStockDedup         DedupPolicy
}

// Engine walks every medicine in every box against wall-clock time, deducts
// due doses and produces de-duplicated alerts. Both evaluation passes take
// the same mutex: the dose tick and the low-stock tick each read a full
// snapshot and write back, so the passes must serialize to keep the
// at-most-one-alert-per-key invariant.
type Engine struct {
	mu     sync.Mutex
	boxes  boxStore
	alerts alertStore
	cfg    Config
}

func NewEngine(boxes boxStore, alerts alertStore, cfg Config) *Engine {
	if cfg.LowStockThresholdDays <= 0 {
		cfg.LowStockThresholdDays = 3
	}
	if cfg.LowStockDedup == "" {
		cfg.LowStockDedup = DedupUnreadOnly
	}
	return &Engine{boxes: boxes, alerts: alerts, cfg: cfg}
}

// EvaluateDueDoses deducts one dose for every schedule token matching now's
// minute and emits the corresponding alerts. The composite dedupe key
// (medicine, kind, calendar day, token) makes the pass idempotent within a
// minute: running it twice never double-deducts or double-alerts.
func (e *Engine) EvaluateDueDoses(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	boxes, err := e.boxes.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load boxes: %w", err)
	}
	existing, err := e.alerts.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	seenKeys := make(map[string]bool, len(existing))
	unreadLow := make(map[string]bool)
	for i := range existing {
		a := &existing[i]
		if a.DedupeKey != "" {
			seenKeys[a.DedupeKey] = true
		}
		if a.Type == domain.AlertLowCount && !a.IsRead {
			unreadLow[a.MedicineID] = true
		}
	}

	var created []domain.Alert
	for bi := range boxes {
		b := &boxes[bi]
		changed := false
		for mi := range b.Medicines {
			med := &b.Medicines[mi]
			for _, token := range med.Schedule.Matches(now) {
				if med.CurrentCount <= 0 {
					continue
				}
				key := domain.DoseDedupeKey(med.MedicineID, domain.AlertMedicineTime, now, token)
				if seenKeys[key] {
					continue
				}
				med.CurrentCount--
				if med.CurrentCount < 0 {
					med.CurrentCount = 0
				}
				med.UpdatedAt = now
				changed = true

				a := e.newAlert(b, med, domain.AlertMedicineTime,
					fmt.Sprintf("Time to take %s (%s)", med.Name, token), key, now)
				if err := e.emit(ctx, a, &created); err != nil {
					return created, err
				}
				seenKeys[key] = true

				if med.Reminder != "" {
					rkey := domain.DoseDedupeKey(med.MedicineID, domain.AlertScheduleReminder, now, token)
					if !seenKeys[rkey] {
						r := e.newAlert(b, med, domain.AlertScheduleReminder, med.Reminder, rkey, now)
						if err := e.emit(ctx, r, &created); err != nil {
							return created, err
						}
						seenKeys[rkey] = true
					}
				}

				if med.CurrentCount > 0 && med.CurrentCount <= lowCountThreshold && !unreadLow[med.MedicineID] {
					low := e.newAlert(b, med, domain.AlertLowCount,
						fmt.Sprintf("%s is running low: %d doses left", med.Name, med.CurrentCount), "", now)
					if err := e.emit(ctx, low, &created); err != nil {
						return created, err
					}
					unreadLow[med.MedicineID] = true
				}

				// Independent of the low-count check; both can fire when the
				// last dose is taken from a count inside the threshold.
				if med.CurrentCount == 0 {
					out := e.newAlert(b, med, domain.AlertOutOfStock,
						fmt.Sprintf("%s is out of stock", med.Name), "", now)
					if err := e.emit(ctx, out, &created); err != nil {
						return created, err
					}
				}
			}
		}
		if changed {
			if err := e.boxes.SaveMedicines(ctx, b.BoxID, b.Medicines); err != nil {
				return created, fmt.Errorf("save medicines for box %s: %w", b.BoxID, err)
			}
		}
	}
	return created, nil
}

// EvaluateLowStock is the schedule-independent supply check: it converts the
// remaining count into days of supply and alerts when three days or fewer
// remain. A fully depleted medicine gets a refill_needed alert instead.
func (e *Engine) EvaluateLowStock(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	boxes, err := e.boxes.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load boxes: %w", err)
	}
	existing, err := e.alerts.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	suppressedLow := make(map[string]bool)
	unreadRefill := make(map[string]bool)
	for i := range existing {
		a := &existing[i]
		switch a.Type {
		case domain.AlertLowCount:
			if e.cfg.LowStockDedup == DedupAnyExisting || !a.IsRead {
				suppressedLow[a.MedicineID] = true
			}
		case domain.AlertRefillNeeded:
			if !a.IsRead {
				unreadRefill[a.MedicineID] = true
			}
		}
	}

	var created []domain.Alert
	for bi := range boxes {
		b := &boxes[bi]
		for mi := range b.Medicines {
			med := &b.Medicines[mi]
			if med.TimesPerDay < 1 {
				continue
			}
			days := float64(med.CurrentCount) / float64(med.TimesPerDay)
			switch {
			case days == 0:
				if unreadRefill[med.MedicineID] {
					continue
				}
				a := e.newAlert(b, med, domain.AlertRefillNeeded,
					fmt.Sprintf("%s needs a refill", med.Name), "", now)
				if err := e.emit(ctx, a, &created); err != nil {
					return created, err
				}
				unreadRefill[med.MedicineID] = true
			case days <= e.cfg.LowStockThresholdDays:
				if suppressedLow[med.MedicineID] {
					continue
				}
				a := e.newAlert(b, med, domain.AlertLowCount,
					fmt.Sprintf("%s has about %.1f days of supply left", med.Name, days), "", now)
				if err := e.emit(ctx, a, &created); err != nil {
					return created, err
				}
				suppressedLow[med.MedicineID] = true
			}
		}
	}
	return created, nil
}

func (e *Engine) newAlert(b *domain.MedicineBox, med *domain.Medicine, kind, message, dedupeKey string, now time.Time) *domain.Alert {
	return &domain.Alert{
		AlertID:      id.New(),
		UserID:       b.UserID,
		MedicineID:   med.MedicineID,
		MedicineName: med.Name,
		BoxName:      b.Name,
		Type:         kind,
		Message:      message,
		DedupeKey:    dedupeKey,
		CreatedAt:    now,
	}
}

func (e *Engine) emit(ctx context.Context, a *domain.Alert, created *[]domain.Alert) error {
	if err := e.alerts.Put(ctx, a); err != nil {
		return fmt.Errorf("persist alert: %w", err)
	}
	*created = append(*created, *a)
	return nil
}

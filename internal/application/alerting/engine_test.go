package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/medibox-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory stores: the engine's passes are read-modify-write over the full
// snapshot, so stateful fakes express the contract more directly than
// call-expectation mocks.

type fakeBoxStore struct {
	boxes []domain.MedicineBox
}

func (f *fakeBoxStore) Scan(context.Context) ([]domain.MedicineBox, error) {
	out := make([]domain.MedicineBox, len(f.boxes))
	for i := range f.boxes {
		out[i] = f.boxes[i]
		out[i].Medicines = append([]domain.Medicine(nil), f.boxes[i].Medicines...)
	}
	return out, nil
}

func (f *fakeBoxStore) SaveMedicines(_ context.Context, boxID string, medicines []domain.Medicine) error {
	for i := range f.boxes {
		if f.boxes[i].BoxID == boxID {
			f.boxes[i].Medicines = medicines
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeBoxStore) medicine(medicineID string) *domain.Medicine {
	for i := range f.boxes {
		if m := f.boxes[i].Medicine(medicineID); m != nil {
			return m
		}
	}
	return nil
}

type fakeAlertStore struct {
	alerts []domain.Alert
}

func (f *fakeAlertStore) Scan(context.Context) ([]domain.Alert, error) {
	return append([]domain.Alert(nil), f.alerts...), nil
}

func (f *fakeAlertStore) Put(_ context.Context, a *domain.Alert) error {
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeAlertStore) ofType(kind string) []domain.Alert {
	var out []domain.Alert
	for _, a := range f.alerts {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

// eight AM on a fixed date, in local time to match schedule matching.
func eightAM() time.Time {
	return time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)
}

func newMed(id string, count, timesPerDay int, tokens ...string) domain.Medicine {
	return domain.Medicine{
		MedicineID:   id,
		Name:         "Metformin",
		TimesPerDay:  timesPerDay,
		TotalCount:   60,
		CurrentCount: count,
		Schedule:     domain.Schedule(tokens),
	}
}

func newBox(meds ...domain.Medicine) *fakeBoxStore {
	return &fakeBoxStore{boxes: []domain.MedicineBox{{
		BoxID:     "box-1",
		Name:      "Kitchen box",
		UserID:    "user-1",
		Medicines: meds,
	}}}
}

func TestDueDoses_DeductsExactlyOne(t *testing.T) {
	boxes := newBox(newMed("m1", 10, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	created, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)

	assert.Equal(t, 9, boxes.medicine("m1").CurrentCount)
	require.Len(t, created, 1)
	assert.Equal(t, domain.AlertMedicineTime, created[0].Type)
	assert.Contains(t, created[0].Message, "08:00")
}

func TestDueDoses_IdempotentWithinMinute(t *testing.T) {
	boxes := newBox(newMed("m1", 10, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	_, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)
	again, err := eng.EvaluateDueDoses(context.Background(), eightAM().Add(20*time.Second))
	require.NoError(t, err)

	assert.Empty(t, again)
	assert.Equal(t, 9, boxes.medicine("m1").CurrentCount)
	assert.Len(t, alerts.ofType(domain.AlertMedicineTime), 1)
}

func TestDueDoses_SameTokenNextDayFiresAgain(t *testing.T) {
	boxes := newBox(newMed("m1", 10, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	_, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)
	nextDay, err := eng.EvaluateDueDoses(context.Background(), eightAM().AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Len(t, nextDay, 1)
	assert.Equal(t, 8, boxes.medicine("m1").CurrentCount)
}

func TestDueDoses_FourToThreeEmitsLowCountOnly(t *testing.T) {
	boxes := newBox(newMed("m1", 4, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	_, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)

	assert.Equal(t, 3, boxes.medicine("m1").CurrentCount)
	assert.Len(t, alerts.ofType(domain.AlertLowCount), 1)
	assert.Empty(t, alerts.ofType(domain.AlertOutOfStock))
}

func TestDueDoses_OneToZeroEmitsOutOfStockNotLowCount(t *testing.T) {
	boxes := newBox(newMed("m1", 1, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	_, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)

	assert.Equal(t, 0, boxes.medicine("m1").CurrentCount)
	// Zero is not > 0, so the low-count branch is skipped.
	assert.Empty(t, alerts.ofType(domain.AlertLowCount))
	assert.Len(t, alerts.ofType(domain.AlertOutOfStock), 1)
}

func TestDueDoses_ZeroCountTakesNothing(t *testing.T) {
	boxes := newBox(newMed("m1", 0, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	created, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)

	assert.Empty(t, created)
	assert.Equal(t, 0, boxes.medicine("m1").CurrentCount)
}

func TestDueDoses_UnreadLowCountSuppressesRepeat(t *testing.T) {
	boxes := newBox(newMed("m1", 3, 1, "08:00"))
	alerts := &fakeAlertStore{alerts: []domain.Alert{{
		AlertID: "a1", MedicineID: "m1", Type: domain.AlertLowCount, IsRead: false,
	}}}
	eng := NewEngine(boxes, alerts, Config{})

	_, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)

	// only the pre-existing one
	assert.Len(t, alerts.ofType(domain.AlertLowCount), 1)
}

func TestDueDoses_CustomReminderEmitsScheduleReminder(t *testing.T) {
	med := newMed("m1", 10, 1, "08:00")
	med.Reminder = "Take with food"
	boxes := newBox(med)
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	_, err := eng.EvaluateDueDoses(context.Background(), eightAM())
	require.NoError(t, err)

	reminders := alerts.ofType(domain.AlertScheduleReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Take with food", reminders[0].Message)
}

func TestDueDoses_NonMatchingMinuteDoesNothing(t *testing.T) {
	boxes := newBox(newMed("m1", 10, 1, "08:00"))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	created, err := eng.EvaluateDueDoses(context.Background(), eightAM().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, 10, boxes.medicine("m1").CurrentCount)
}

func TestLowStock_ThreeDaysOrFewer(t *testing.T) {
	// 6 doses at 2/day = 3 days exactly, inside the threshold.
	boxes := newBox(newMed("m1", 6, 2))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	created, err := eng.EvaluateLowStock(context.Background(), eightAM())
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, domain.AlertLowCount, created[0].Type)
}

func TestLowStock_AboveThresholdIsQuiet(t *testing.T) {
	boxes := newBox(newMed("m1", 7, 2)) // 3.5 days
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	created, err := eng.EvaluateLowStock(context.Background(), eightAM())
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestLowStock_DepletedEmitsRefillNeeded(t *testing.T) {
	boxes := newBox(newMed("m1", 0, 2))
	alerts := &fakeAlertStore{}
	eng := NewEngine(boxes, alerts, Config{})

	created, err := eng.EvaluateLowStock(context.Background(), eightAM())
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, domain.AlertRefillNeeded, created[0].Type)

	// Unread refill alert suppresses a repeat on the next pass.
	again, err := eng.EvaluateLowStock(context.Background(), eightAM().Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestLowStock_DedupUnreadOnly_ReadAlertRearms(t *testing.T) {
	boxes := newBox(newMed("m1", 2, 1))
	alerts := &fakeAlertStore{alerts: []domain.Alert{{
		AlertID: "a1", MedicineID: "m1", Type: domain.AlertLowCount, IsRead: true,
	}}}
	eng := NewEngine(boxes, alerts, Config{LowStockDedup: DedupUnreadOnly})

	created, err := eng.EvaluateLowStock(context.Background(), eightAM())
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestLowStock_DedupAnyExisting_ReadAlertStillSuppresses(t *testing.T) {
	boxes := newBox(newMed("m1", 2, 1))
	alerts := &fakeAlertStore{alerts: []domain.Alert{{
		AlertID: "a1", MedicineID: "m1", Type: domain.AlertLowCount, IsRead: true,
	}}}
	eng := NewEngine(boxes, alerts, Config{LowStockDedup: DedupAnyExisting})

	created, err := eng.EvaluateLowStock(context.Background(), eightAM())
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestParseDedupPolicy(t *testing.T) {
	assert.Equal(t, DedupAnyExisting, ParseDedupPolicy("any-existing"))
	assert.Equal(t, DedupUnreadOnly, ParseDedupPolicy("unread-only"))
	assert.Equal(t, DedupUnreadOnly, ParseDedupPolicy("garbage"))
}

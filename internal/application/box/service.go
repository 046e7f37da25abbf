package box

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/medibox-api/internal/domain"
	"github.com/medibox-api/internal/infrastructure/devicebox"
	"github.com/medibox-api/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateBoxRequest) (*domain.MedicineBox, error)
	List(ctx context.Context, userID string) ([]domain.MedicineBox, error)
	Get(ctx context.Context, boxID, userID string) (*domain.MedicineBox, error)
	Update(ctx context.Context, boxID, userID string, req domain.UpdateBoxRequest) (*domain.MedicineBox, error)
	// Delete removes the box, its medicines (composition) and every alert
	// referencing any of those medicines.
	Delete(ctx context.Context, boxID, userID string) error

	Connect(ctx context.Context, boxID, userID string) (devicebox.Result, error)
	Sync(ctx context.Context, boxID, userID string) (devicebox.Result, error)
	Disconnect(ctx context.Context, boxID, userID string) (devicebox.Result, error)
	Status(ctx context.Context, boxID, userID string) (json.RawMessage, devicebox.Result, error)
}

type boxStore interface {
	Put(ctx context.Context, b *domain.MedicineBox) error
	Get(ctx context.Context, boxID string) (*domain.MedicineBox, error)
	GetByHardwareID(ctx context.Context, hardwareID string) (*domain.MedicineBox, error)
	ListByUser(ctx context.Context, userID string) ([]domain.MedicineBox, error)
	Update(ctx context.Context, boxID string, updates map[string]interface{}) error
	Delete(ctx context.Context, boxID string) error
}

type alertStore interface {
	Put(ctx context.Context, a *domain.Alert) error
	DeleteByMedicine(ctx context.Context, medicineID string) error
}

type deviceClient interface {
	Health(ctx context.Context, ip string) devicebox.Result
	Sync(ctx context.Context, ip string, req devicebox.SyncRequest) devicebox.Result
	Status(ctx context.Context, ip string) (json.RawMessage, devicebox.Result)
	Disconnect(ctx context.Context, ip string) devicebox.Result
}

// DynamoDB attribute names used in partial update maps.
const (
	fieldName        = "name"
	fieldIPAddress   = "ip_address"
	fieldIsConnected = "is_connected"
	fieldLastSyncAt  = "last_sync_at"
)

type service struct {
	repo   boxStore
	alerts alertStore
	device deviceClient
}

func NewService(repo boxStore, alerts alertStore, device deviceClient) Service {
	return &service{repo: repo, alerts: alerts, device: device}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateBoxRequest) (*domain.MedicineBox, error) {
	if _, err := s.repo.GetByHardwareID(ctx, req.HardwareID); err == nil {
		return nil, fmt.Errorf("a box with this hardware id is already registered: %w", domain.ErrConflict)
	}
	now := time.Now().UTC()
	b := &domain.MedicineBox{
		BoxID:      id.New(),
		Name:       req.Name,
		HardwareID: req.HardwareID,
		IPAddress:  req.IPAddress,
		UserID:     userID,
		Medicines:  []domain.Medicine{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Put(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.MedicineBox, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, boxID, userID string) (*domain.MedicineBox, error) {
	return s.owned(ctx, boxID, userID)
}

func (s *service) Update(ctx context.Context, boxID, userID string, req domain.UpdateBoxRequest) (*domain.MedicineBox, error) {
	if _, err := s.owned(ctx, boxID, userID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.IPAddress != nil {
		updates[fieldIPAddress] = *req.IPAddress
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, boxID)
	}
	if err := s.repo.Update(ctx, boxID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, boxID)
}

func (s *service) Delete(ctx context.Context, boxID, userID string) error {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return err
	}
	for _, medID := range b.MedicineIDs() {
		if err := s.alerts.DeleteByMedicine(ctx, medID); err != nil {
			slog.Warn("alert cascade failed during box delete", "box_id", boxID, "medicine_id", medID, "err", err)
		}
	}
	return s.repo.Delete(ctx, boxID)
}

// Connect probes the device and records the connection state.
func (s *service) Connect(ctx context.Context, boxID, userID string) (devicebox.Result, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return devicebox.Result{}, err
	}
	res := s.device.Health(ctx, b.IPAddress)
	if !res.Success {
		return res, nil
	}
	if err := s.repo.Update(ctx, boxID, map[string]interface{}{fieldIsConnected: true}); err != nil {
		return devicebox.Result{}, err
	}
	return res, nil
}

// Sync pushes the current medicine schedule to the device. On success the
// box is marked connected with a fresh sync timestamp and a sync_success
// alert is recorded.
func (s *service) Sync(ctx context.Context, boxID, userID string) (devicebox.Result, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return devicebox.Result{}, err
	}
	req := devicebox.SyncRequest{
		BoxID:     b.HardwareID,
		Medicines: make([]devicebox.SyncMedicine, 0, len(b.Medicines)),
	}
	for i := range b.Medicines {
		m := &b.Medicines[i]
		req.Medicines = append(req.Medicines, devicebox.SyncMedicine{
			ID:      m.MedicineID,
			Name:    m.Name,
			Times:   []string(m.Schedule),
			Message: m.Reminder,
		})
	}
	res := s.device.Sync(ctx, b.IPAddress, req)
	if !res.Success {
		return res, nil
	}
	now := time.Now().UTC()
	err = s.repo.Update(ctx, boxID, map[string]interface{}{
		fieldIsConnected: true,
		fieldLastSyncAt:  now,
	})
	if err != nil {
		return devicebox.Result{}, err
	}
	a := &domain.Alert{
		AlertID:   id.New(),
		UserID:    b.UserID,
		BoxName:   b.Name,
		Type:      domain.AlertSyncSuccess,
		Message:   fmt.Sprintf("Box %q synced %d medicines", b.Name, len(b.Medicines)),
		CreatedAt: now,
	}
	if err := s.alerts.Put(ctx, a); err != nil {
		slog.Warn("failed to record sync alert", "box_id", boxID, "err", err)
	}
	return res, nil
}

// Disconnect is best-effort on the device side and always clears the
// connected flag locally.
func (s *service) Disconnect(ctx context.Context, boxID, userID string) (devicebox.Result, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return devicebox.Result{}, err
	}
	res := s.device.Disconnect(ctx, b.IPAddress)
	if err := s.repo.Update(ctx, boxID, map[string]interface{}{fieldIsConnected: false}); err != nil {
		return devicebox.Result{}, err
	}
	return res, nil
}

func (s *service) Status(ctx context.Context, boxID, userID string) (json.RawMessage, devicebox.Result, error) {
	b, err := s.owned(ctx, boxID, userID)
	if err != nil {
		return nil, devicebox.Result{}, err
	}
	raw, res := s.device.Status(ctx, b.IPAddress)
	return raw, res, nil
}

func (s *service) owned(ctx context.Context, boxID, userID string) (*domain.MedicineBox, error) {
	b, err := s.repo.Get(ctx, boxID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return b, nil
}

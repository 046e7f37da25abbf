package domain

import "time"

// MedicineBox is a paired hardware pillbox together with the medicines it
// holds. Medicines are owned by the box (composition): deleting a box deletes
// its medicines, and alert cleanup for them is handled by the box service.
type MedicineBox struct {
	BoxID       string     `json:"id" dynamodbav:"box_id"`
	Name        string     `json:"name" dynamodbav:"name"`
	HardwareID  string     `json:"hardware_id" dynamodbav:"hardware_id"` // stable device identifier, e.g. derived from the ESP32 MAC
	IPAddress   string     `json:"ip_address" dynamodbav:"ip_address"`
	UserID      string     `json:"user_id" dynamodbav:"user_id"`
	Medicines   []Medicine `json:"medicines" dynamodbav:"medicines"`
	IsConnected bool       `json:"is_connected" dynamodbav:"is_connected"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty" dynamodbav:"last_sync_at"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Medicine returns a pointer into the box's medicine slice, or nil.
func (b *MedicineBox) Medicine(medicineID string) *Medicine {
	for i := range b.Medicines {
		if b.Medicines[i].MedicineID == medicineID {
			return &b.Medicines[i]
		}
	}
	return nil
}

// MedicineIDs returns the ids of all medicines nested in the box.
func (b *MedicineBox) MedicineIDs() []string {
	ids := make([]string, 0, len(b.Medicines))
	for i := range b.Medicines {
		ids = append(ids, b.Medicines[i].MedicineID)
	}
	return ids
}

type CreateBoxRequest struct {
	Name       string `json:"name" validate:"required"`
	HardwareID string `json:"hardware_id" validate:"required"`
	IPAddress  string `json:"ip_address" validate:"required,ip"`
}

type UpdateBoxRequest struct {
	Name      *string `json:"name"`
	IPAddress *string `json:"ip_address" validate:"omitempty,ip"`
}

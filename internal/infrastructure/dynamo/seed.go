package dynamo

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/medibox-api/internal/domain"
	"github.com/medibox-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

const seedMarkerKey = "seeded"

// Seed inserts demo data on first run. A marker item in the meta table gates
// the seeding so restarts never duplicate the demo records.
func Seed(ctx context.Context, client *dynamodb.Client, metaTable string, users *UserRepo, boxes *BoxRepo) {
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(metaTable),
		Key:       strKey("meta_key", seedMarkerKey),
	})
	if err != nil {
		slog.Warn("seed marker check failed, skipping seed", "err", err)
		return
	}
	if out.Item != nil {
		return
	}

	now := time.Now().UTC()
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		slog.Warn("seed skipped", "err", err)
		return
	}
	demo := &domain.User{
		UserID:       id.New(),
		Username:     "demo",
		Email:        "demo@example.com",
		PasswordHash: string(hash),
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Put(ctx, demo); err != nil {
		slog.Warn("seed user failed", "err", err)
		return
	}

	box := &domain.MedicineBox{
		BoxID:      id.New(),
		Name:       "Kitchen box",
		HardwareID: "24:6F:28:AA:BB:CC",
		IPAddress:  "192.168.1.50",
		UserID:     demo.UserID,
		Medicines: []domain.Medicine{
			{
				MedicineID:   id.New(),
				Name:         "Vitamin D",
				TimesPerDay:  1,
				TotalCount:   30,
				CurrentCount: 30,
				Schedule:     domain.Schedule{"08:00"},
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			{
				MedicineID:   id.New(),
				Name:         "Metformin",
				TimesPerDay:  2,
				TotalCount:   60,
				CurrentCount: 60,
				Reminder:     "Take with food",
				Schedule:     domain.Schedule{"08:00", "20:00"},
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := boxes.Put(ctx, box); err != nil {
		slog.Warn("seed box failed", "err", err)
		return
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(metaTable),
		Item:      strKey("meta_key", seedMarkerKey),
	})
	if err != nil {
		slog.Warn("seed marker write failed", "err", err)
		return
	}
	slog.Info("seeded demo data", "user", demo.Username, "box", box.Name)
}

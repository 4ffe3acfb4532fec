package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn     func(ctx context.Context, order *models.Order) error
	listByUserFn func(ctx context.Context, userID string) ([]models.Order, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, order *models.Order) error {
	if f.createFn != nil {
		return f.createFn(ctx, order)
	}
	return nil
}

func (f *fakeRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if f.listByUserFn != nil {
		return f.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRepository) ListUserMedicine(ctx context.Context, userID, medicineName string) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeRepository) LatestPerUserMedicine(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}

func TestService_RecordNormalizesAndAssignsID(t *testing.T) {
	var created *models.Order
	repo := &fakeRepository{
		createFn: func(ctx context.Context, order *models.Order) error {
			created = order
			return nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	purchase := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	got, err := svc.Record(context.Background(), RecordOrderInput{
		UserID:       "U001",
		MedicineName: "  Aspirin ",
		Quantity:     10,
		DosagePerDay: 2,
		PurchaseDate: purchase,
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created == nil || got != created {
		t.Fatal("expected order to be created and returned")
	}
	if created.MedicineName != "aspirin" {
		t.Fatalf("medicine name not normalized: %q", created.MedicineName)
	}
	if !strings.HasPrefix(created.OrderID, "ORD-20250901120000-") {
		t.Fatalf("unexpected order id %q", created.OrderID)
	}
	if len(created.OrderID) != len("ORD-20250901120000-")+8 {
		t.Fatalf("order id suffix length wrong: %q", created.OrderID)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name  string
		input RecordOrderInput
	}{
		{"missing user", RecordOrderInput{MedicineName: "aspirin", Quantity: 1, DosagePerDay: 1}},
		{"missing medicine", RecordOrderInput{UserID: "U001", Quantity: 1, DosagePerDay: 1}},
		{"zero quantity", RecordOrderInput{UserID: "U001", MedicineName: "aspirin", DosagePerDay: 1}},
		{"negative dosage", RecordOrderInput{UserID: "U001", MedicineName: "aspirin", Quantity: 1, DosagePerDay: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tc.input)
			appErr := apperrors.As(err)
			if appErr == nil || appErr.Code() != apperrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_RecordRepoError(t *testing.T) {
	boom := errors.New("boom")
	repo := &fakeRepository{
		createFn: func(ctx context.Context, order *models.Order) error { return boom },
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Record(context.Background(), RecordOrderInput{
		UserID: "U001", MedicineName: "aspirin", Quantity: 1, DosagePerDay: 1,
	}); !errors.Is(err, boom) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestNewOrderIDIsUnique(t *testing.T) {
	at := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewOrderID(at)
		if seen[id] {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = true
	}
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/SohamFirke/pharma-backend/pkg/db/models"
	apperrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeRepository struct {
	getByNameFn func(ctx context.Context, name string) (*models.Medicine, error)
	listFn      func(ctx context.Context) ([]models.Medicine, error)
	createFn    func(ctx context.Context, medicine *models.Medicine) error
	updateFn    func(ctx context.Context, medicine *models.Medicine) error
	belowFn     func(ctx context.Context) ([]models.Medicine, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetByName(ctx context.Context, name string) (*models.Medicine, error) {
	if f.getByNameFn != nil {
		return f.getByNameFn(ctx, name)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context) ([]models.Medicine, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) ListNames(ctx context.Context) ([]string, error) {
	medicines, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(medicines))
	for _, m := range medicines {
		names = append(names, m.Name)
	}
	return names, nil
}

func (f *fakeRepository) Create(ctx context.Context, medicine *models.Medicine) error {
	if f.createFn != nil {
		return f.createFn(ctx, medicine)
	}
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, medicine *models.Medicine) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, medicine)
	}
	return nil
}

func (f *fakeRepository) BelowOwnThreshold(ctx context.Context) ([]models.Medicine, error) {
	if f.belowFn != nil {
		return f.belowFn(ctx)
	}
	return nil, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_GetReturnsMedicine(t *testing.T) {
	want := &models.Medicine{Name: "aspirin", StockLevel: 200}
	repo := &fakeRepository{
		getByNameFn: func(ctx context.Context, name string) (*models.Medicine, error) {
			if name != "Aspirin" {
				t.Fatalf("unexpected lookup name %q", name)
			}
			return want, nil
		},
	}
	svc := newTestService(t, repo)

	got, err := svc.Get(context.Background(), "Aspirin")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected medicine %+v", got)
	}
}

func TestService_GetMapsNotFound(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	_, err := svc.Get(context.Background(), "unobtainium")
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestService_GetRequiresName(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	_, err := svc.Get(context.Background(), "   ")
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_CreateMapsUniqueViolation(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, medicine *models.Medicine) error {
			return errors.New(`duplicate key value violates unique constraint "medicines_pkey"`)
		},
	}
	svc := newTestService(t, repo)

	err := svc.Create(context.Background(), &models.Medicine{Name: "aspirin", StockLevel: 100})
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{
		createFn: func(ctx context.Context, medicine *models.Medicine) error {
			t.Fatal("repository must not be reached on invalid input")
			return nil
		},
	})

	for name, medicine := range map[string]*models.Medicine{
		"missing name":       {StockLevel: 10},
		"negative stock":     {Name: "aspirin", StockLevel: -1},
		"negative threshold": {Name: "aspirin", StockLevel: 10, StockThreshold: -1},
	} {
		err := svc.Create(context.Background(), medicine)
		appErr := apperrors.As(err)
		if appErr == nil || appErr.Code() != apperrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestService_UpdateRewritesWholeRecord(t *testing.T) {
	var saved *models.Medicine
	repo := &fakeRepository{
		getByNameFn: func(ctx context.Context, name string) (*models.Medicine, error) {
			return &models.Medicine{Name: "Aspirin", StockLevel: 100, StockThreshold: 50}, nil
		},
		updateFn: func(ctx context.Context, medicine *models.Medicine) error {
			saved = medicine
			return nil
		},
	}
	svc := newTestService(t, repo)

	err := svc.Update(context.Background(), &models.Medicine{
		Name:           "aspirin",
		UnitType:       "capsule",
		StockLevel:     300,
		StockThreshold: 80,
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if saved == nil {
		t.Fatal("expected repository save")
	}
	if saved.Name != "Aspirin" {
		t.Fatalf("stored name casing must win, got %q", saved.Name)
	}
	if saved.StockLevel != 300 || saved.StockThreshold != 80 || saved.UnitType != "capsule" {
		t.Fatalf("unexpected rewrite %+v", saved)
	}
}

func TestService_UpdateUnknownMedicine(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	err := svc.Update(context.Background(), &models.Medicine{Name: "unobtainium", StockLevel: 10})
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestService_LowStockUsesPerRowThreshold(t *testing.T) {
	want := []models.Medicine{{Name: "insulin", StockLevel: 4, StockThreshold: 30}}
	repo := &fakeRepository{
		belowFn: func(ctx context.Context) ([]models.Medicine, error) { return want, nil },
	}
	svc := newTestService(t, repo)

	got, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("LowStock error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "insulin" {
		t.Fatalf("unexpected listing %+v", got)
	}
}

func TestService_ListBubblesRepoError(t *testing.T) {
	boom := errors.New("boom")
	repo := &fakeRepository{
		listFn: func(ctx context.Context) ([]models.Medicine, error) { return nil, boom },
	}
	svc := newTestService(t, repo)

	if _, err := svc.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/apperr"
	"github.com/velabs/studioforge-backend/internal/types"
)

func TestCreateAsset_Validation(t *testing.T) {
	svc := NewAssetService(nil, testLogger(t), newFakeAssetRepo(), nil)

	if _, err := svc.CreateAsset(context.Background(), CreateAssetInput{
		StudioID: uuid.New(),
		Type:     types.AssetTypeProp,
	}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}

	if _, err := svc.CreateAsset(context.Background(), CreateAssetInput{
		StudioID: uuid.New(),
		Name:     "crate",
		Type:     "VEHICLE",
	}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestGetAsset_ScopedToStudio(t *testing.T) {
	repo := newFakeAssetRepo()
	svc := NewAssetService(nil, testLogger(t), repo, nil)
	studioID := uuid.New()

	created, err := svc.CreateAsset(context.Background(), CreateAssetInput{
		StudioID: studioID,
		UserID:   uuid.New(),
		Name:     "crate",
		Type:     types.AssetTypeProp,
	})
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}

	got, err := svc.GetAsset(context.Background(), created.ID, studioID)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected asset %s, got %s", created.ID, got.ID)
	}

	// Another studio must not see the asset.
	if _, err := svc.GetAsset(context.Background(), created.ID, uuid.New()); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found for foreign studio, got %v", err)
	}
}

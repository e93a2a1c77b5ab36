package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
	"github.com/longpham-dev/milktea-backend/pkg/geo"
)

type storeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	ListActive(ctx context.Context) ([]models.Store, error)
}

// Match pairs a store with its distance from a delivery point.
type Match struct {
	Store      models.Store
	DistanceKm float64
}

// Service exposes store lookup operations used by pricing and order placement.
type Service interface {
	GetActive(ctx context.Context, id uuid.UUID) (*models.Store, error)
	NearestOpen(ctx context.Context, lat, lng float64) (*Match, error)
}

type service struct {
	repo storeRepository
}

// NewService builds a store service with the provided repository.
func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

// GetActive loads the store and rejects inactive ones.
func (s *service) GetActive(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStoreUnavailable, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStoreUnavailable, "store is closed")
	}
	return store, nil
}

// NearestOpen returns the active store closest to the coordinates.
func (s *service) NearestOpen(ctx context.Context, lat, lng float64) (*Match, error) {
	stores, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active stores")
	}
	if len(stores) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoStoreAvailable, "no open store can serve the delivery address")
	}

	best := Match{Store: stores[0], DistanceKm: geo.DistanceKm(lat, lng, stores[0].Lat, stores[0].Lng)}
	for _, candidate := range stores[1:] {
		d := geo.DistanceKm(lat, lng, candidate.Lat, candidate.Lng)
		if d < best.DistanceKm {
			best = Match{Store: candidate, DistanceKm: d}
		}
	}
	return &best, nil
}

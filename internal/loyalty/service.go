package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
)

// Service credits loyalty points when an order completes. Both the counter
// increment and the ledger row ride the caller's transaction.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, amount int64) (int64, error)
	PointsFor(amount int64) int64
}

type service struct {
	cfg config.LoyaltyConfig
}

// NewService builds a loyalty service from the points schedule.
func NewService(cfg config.LoyaltyConfig) (Service, error) {
	if cfg.AmountPerPoint <= 0 {
		return nil, fmt.Errorf("amount per point must be positive")
	}
	return &service{cfg: cfg}, nil
}

// PointsFor converts an order total into points, truncating the remainder.
func (s *service) PointsFor(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / s.cfg.AmountPerPoint
}

// Credit appends a loyalty ledger row and bumps the user's counter.
func (s *service) Credit(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, amount int64) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required")
	}

	points := s.PointsFor(amount)
	if points == 0 {
		return 0, nil
	}

	entry := models.LoyaltyTransaction{
		ID:      uuid.New(),
		UserID:  userID,
		OrderID: orderID,
		Points:  points,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record loyalty transaction")
	}

	err := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points)).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit loyalty points")
	}
	return points, nil
}

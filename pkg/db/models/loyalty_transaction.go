package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyTransaction records points credited to a user for a completed order.
// Points are derived from the order total and never mutated after insert.
type LoyaltyTransaction struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_loyalty_transactions_order"`
	Points    int64     `gorm:"column:points;not null"`
	Note      *string   `gorm:"column:note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

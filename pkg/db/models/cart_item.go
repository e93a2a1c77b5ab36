package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CartItem belongs to the cart collaborator. The order ledger only reads the
// rows for a user and clears them inside the order-creation transaction.
type CartItem struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID uuid.UUID      `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int            `gorm:"column:quantity;not null"`
	Size      *string        `gorm:"column:size"`
	Sugar     *string        `gorm:"column:sugar"`
	Ice       *string        `gorm:"column:ice"`
	Toppings  pq.StringArray `gorm:"column:toppings;type:text[]"`
	Product   *Product       `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

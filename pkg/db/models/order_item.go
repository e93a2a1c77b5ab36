package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OrderItem captures the immutable snapshot of each line in an order.
// UnitPriceAmount is decoupled from the live catalog price.
type OrderItem struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID      `gorm:"column:product_id;type:uuid;not null"`
	Name            string         `gorm:"column:name;not null"`
	UnitPriceAmount int64          `gorm:"column:unit_price_amount;not null"`
	Quantity        int            `gorm:"column:quantity;not null"`
	Size            *string        `gorm:"column:size"`
	Sugar           *string        `gorm:"column:sugar"`
	Ice             *string        `gorm:"column:ice"`
	Toppings        pq.StringArray `gorm:"column:toppings;type:text[]"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
}

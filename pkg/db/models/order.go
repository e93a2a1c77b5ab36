package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/pkg/enums"
)

// Order is the priced, fulfillment-routed order produced from a cart snapshot.
// TotalAmount is fixed at creation; every settlement callback is validated
// against it and it is never recomputed from the items.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID           uuid.UUID               `gorm:"column:store_id;type:uuid;not null"`
	FulfillmentMethod enums.FulfillmentMethod `gorm:"column:fulfillment_method;type:text;not null"`
	DeliveryAddress   *string                 `gorm:"column:delivery_address"`
	DeliveryLat       *float64                `gorm:"column:delivery_lat"`
	DeliveryLng       *float64                `gorm:"column:delivery_lng"`
	SubtotalAmount    int64                   `gorm:"column:subtotal_amount;not null"`
	ShippingFeeAmount int64                   `gorm:"column:shipping_fee_amount;not null;default:0"`
	TotalAmount       int64                   `gorm:"column:total_amount;not null"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	Status            enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Items             []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History           []OrderStatusHistory    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
)

// CreateInput captures a placement request after authentication.
type CreateInput struct {
	UserID        uuid.UUID
	Fulfillment   enums.FulfillmentMethod
	StoreID       *uuid.UUID
	Address       string
	Lat           *float64
	Lng           *float64
	PaymentMethod enums.PaymentMethod
}

// AdvanceInput is an operator-driven status change.
type AdvanceInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Note    *string
}

// OrderItemDTO is the line snapshot returned to clients.
type OrderItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Size      *string   `json:"size,omitempty"`
	Sugar     *string   `json:"sugar,omitempty"`
	Ice       *string   `json:"ice,omitempty"`
	Toppings  []string  `json:"toppings,omitempty"`
}

// OrderDTO is the order view returned to clients.
type OrderDTO struct {
	ID              uuid.UUID               `json:"id"`
	StoreID         uuid.UUID               `json:"store_id"`
	Fulfillment     enums.FulfillmentMethod `json:"fulfillment_method"`
	DeliveryAddress *string                 `json:"delivery_address,omitempty"`
	Subtotal        int64                   `json:"subtotal"`
	ShippingFee     int64                   `json:"shipping_fee"`
	Total           int64                   `json:"total"`
	PaymentMethod   enums.PaymentMethod     `json:"payment_method"`
	Status          enums.OrderStatus       `json:"status"`
	PaymentStatus   enums.PaymentStatus     `json:"payment_status"`
	Items           []OrderItemDTO          `json:"items,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// OrderSummary is the condensed row returned in the list endpoint.
type OrderSummary struct {
	ID            uuid.UUID               `json:"id"`
	Fulfillment   enums.FulfillmentMethod `json:"fulfillment_method"`
	Total         int64                   `json:"total"`
	TotalItems    int                     `json:"total_items"`
	PaymentMethod enums.PaymentMethod     `json:"payment_method"`
	Status        enums.OrderStatus       `json:"status"`
	PaymentStatus enums.PaymentStatus     `json:"payment_status"`
	CreatedAt     time.Time               `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              order.ID,
		StoreID:         order.StoreID,
		Fulfillment:     order.FulfillmentMethod,
		DeliveryAddress: order.DeliveryAddress,
		Subtotal:        order.SubtotalAmount,
		ShippingFee:     order.ShippingFeeAmount,
		Total:           order.TotalAmount,
		PaymentMethod:   order.PaymentMethod,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPriceAmount,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Sugar:     item.Sugar,
			Ice:       item.Ice,
			Toppings:  item.Toppings,
		})
	}
	return dto
}

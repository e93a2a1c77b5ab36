package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	"github.com/longpham-dev/milktea-backend/pkg/pagination"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateStatusConditional(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, paymentStatus enums.PaymentStatus) error
}

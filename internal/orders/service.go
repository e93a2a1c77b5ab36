package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/internal/cart"
	"github.com/longpham-dev/milktea-backend/internal/loyalty"
	"github.com/longpham-dev/milktea-backend/internal/pricing"
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
	"github.com/longpham-dev/milktea-backend/pkg/metrics"
	"github.com/longpham-dev/milktea-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order ledger operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderDTO, error)
	CancelByOwner(ctx context.Context, userID, orderID uuid.UUID) error
	AdvanceStatus(ctx context.Context, input AdvanceInput) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	FindByID(ctx context.Context, orderID, actorID uuid.UUID, admin bool) (*OrderDTO, error)
}

type service struct {
	repo    Repository
	cart    *cart.Repository
	calc    pricing.Calculator
	loyalty loyalty.Service
	tx      txRunner
	metrics *metrics.PaymentMetrics
}

// NewService builds the order service with its collaborators.
func NewService(repo Repository, cartRepo *cart.Repository, calc pricing.Calculator, loyaltySvc loyalty.Service, tx txRunner, m *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if loyaltySvc == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		cart:    cartRepo,
		calc:    calc,
		loyalty: loyaltySvc,
		tx:      tx,
		metrics: m,
	}, nil
}

// Create prices the user's cart and persists the order atomically: order row,
// item snapshots, the first history entry, and the cart wipe share one tx.
func (s *service) Create(ctx context.Context, input CreateInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Fulfillment.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment method")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	cartItems, err := s.cart.LoadCart(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(cartItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no items")
	}

	lines := make([]pricing.Line, 0, len(cartItems))
	for _, item := range cartItems {
		if item.Product == nil || !item.Product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains an unavailable product")
		}
		lines = append(lines, pricing.Line{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			UnitPrice: item.Product.Price,
			Quantity:  item.Quantity,
		})
	}

	quote, err := s.calc.Quote(ctx, pricing.QuoteInput{
		Items:       lines,
		Fulfillment: input.Fulfillment,
		StoreID:     input.StoreID,
		Address:     input.Address,
		Lat:         input.Lat,
		Lng:         input.Lng,
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                uuid.New(),
		UserID:            input.UserID,
		StoreID:           quote.StoreID,
		FulfillmentMethod: input.Fulfillment,
		SubtotalAmount:    quote.SubtotalAmount,
		ShippingFeeAmount: quote.ShippingFeeAmount,
		TotalAmount:       quote.TotalAmount,
		PaymentMethod:     input.PaymentMethod,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusUnpaid,
	}
	if input.Fulfillment == enums.FulfillmentDelivery {
		address := quote.Address
		order.DeliveryAddress = &address
		order.DeliveryLat = input.Lat
		order.DeliveryLng = input.Lng
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for _, cartItem := range cartItems {
		items = append(items, models.OrderItem{
			OrderID:         order.ID,
			ProductID:       cartItem.ProductID,
			Name:            cartItem.Product.Name,
			UnitPriceAmount: cartItem.Product.Price,
			Quantity:        cartItem.Quantity,
			Size:            cartItem.Size,
			Sugar:           cartItem.Sugar,
			Ice:             cartItem.Ice,
			Toppings:        cartItem.Toppings,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		note := "order placed"
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: enums.OrderStatusPending,
			ToStatus:   enums.OrderStatusPending,
			Note:       &note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order history")
		}
		if err := s.cart.WithTx(tx).ClearCart(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderPlaced(input.PaymentMethod.String())

	order.Items = items
	return toOrderDTO(order), nil
}

// CancelByOwner lets the customer back out while the order is still pending.
func (s *service) CancelByOwner(ctx context.Context, userID, orderID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeCannotCancel, "order can no longer be cancelled")
		}

		ok, err := repo.UpdateStatusConditional(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeCannotCancel, "order can no longer be cancelled")
		}

		note := "cancelled by customer"
		return repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: enums.OrderStatusPending,
			ToStatus:   enums.OrderStatusCancelled,
			Note:       &note,
		})
	})
}

// operatorEdges lists the transitions staff may drive. Confirmation is owned
// by payment settlement and never reachable here.
var operatorEdges = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

func operatorEdgeAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range operatorEdges[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AdvanceStatus applies an operator transition. The completed edge credits
// loyalty points and both ride the same tx; the conditional update guarantees
// the side effects fire at most once even under concurrent operators.
func (s *service) AdvanceStatus(ctx context.Context, input AdvanceInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if input.Target == enums.OrderStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeConflict, "confirmation is driven by payment settlement")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Target {
			return nil
		}
		if !operatorEdgeAllowed(order.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeConflict, "status change not allowed in current state")
		}

		ok, err := repo.UpdateStatusConditional(ctx, order.ID, order.Status, input.Target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "status change not allowed in current state")
		}

		if input.Target == enums.OrderStatusCompleted {
			if _, err := s.loyalty.Credit(ctx, tx, order.UserID, order.ID, order.TotalAmount); err != nil {
				return err
			}
		}

		return repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   input.Target,
			Note:       input.Note,
		})
	})
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) FindByID(ctx context.Context, orderID, actorID uuid.UUID, admin bool) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !admin && order.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toOrderDTO(order), nil
}

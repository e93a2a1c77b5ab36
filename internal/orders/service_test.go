package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/internal/cart"
	"github.com/longpham-dev/milktea-backend/internal/loyalty"
	"github.com/longpham-dev/milktea-backend/internal/pricing"
	"github.com/longpham-dev/milktea-backend/internal/stores"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type orderFixture struct {
	db      *gorm.DB
	svc     Service
	loyalty loyalty.Service
	userID  uuid.UUID
	storeID uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	db := setupOrdersTestDB(t)

	storeSvc, err := stores.NewService(stores.NewRepository(db))
	require.NoError(t, err)
	calc, err := pricing.NewCalculator(storeSvc, config.ShippingConfig{
		BaseFee:        15000,
		PerKmFee:       3000,
		MaxFee:         40000,
		BaseDistanceKm: 3,
	})
	require.NoError(t, err)
	loyaltySvc, err := loyalty.NewService(config.LoyaltyConfig{AmountPerPoint: 1000})
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), cart.NewRepository(db), calc, loyaltySvc, &gormTxRunner{db: db}, nil)
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, db.Create(&models.User{ID: userID, Name: "Lan", Email: "lan@example.com"}).Error)

	store := models.Store{
		ID:       uuid.New(),
		Code:     "Q1-001",
		Name:     "Milk Tea Quan 1",
		Address:  "12 Nguyen Hue, Q1",
		Lat:      10.7769,
		Lng:      106.7009,
		IsActive: true,
	}
	require.NoError(t, db.Create(&store).Error)

	return &orderFixture{db: db, svc: svc, loyalty: loyaltySvc, userID: userID, storeID: store.ID}
}

func (f *orderFixture) seedCart(t *testing.T, price int64, quantity int) {
	t.Helper()

	product := models.Product{ID: uuid.New(), Name: "Tra sua tran chau", Price: price, Active: true}
	require.NoError(t, f.db.Create(&product).Error)
	require.NoError(t, f.db.Create(&models.CartItem{
		ID:        uuid.New(),
		UserID:    f.userID,
		ProductID: product.ID,
		Quantity:  quantity,
	}).Error)
}

func TestServiceCreatePickup(t *testing.T) {
	f := newOrderFixture(t)
	f.seedCart(t, 50000, 2)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:        f.userID,
		Fulfillment:   enums.FulfillmentPickup,
		StoreID:       &f.storeID,
		PaymentMethod: enums.PaymentMethodVNPay,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), order.Subtotal)
	assert.Zero(t, order.ShippingFee)
	assert.Equal(t, int64(100000), order.Total)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	require.Len(t, order.Items, 1)

	// The cart must be emptied in the same transaction.
	var remaining int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", f.userID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var history int64
	require.NoError(t, f.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", order.ID).Count(&history).Error)
	assert.Equal(t, int64(1), history)
}

func TestServiceCreateDeliveryChargesShipping(t *testing.T) {
	f := newOrderFixture(t)
	f.seedCart(t, 50000, 5)
	ctx := context.Background()

	// Roughly 5km north of the seeded store.
	lat, lng := 10.8219, 106.7009
	order, err := f.svc.Create(ctx, CreateInput{
		UserID:        f.userID,
		Fulfillment:   enums.FulfillmentDelivery,
		Address:       "45 Le Van Sy, Q3",
		Lat:           &lat,
		Lng:           &lng,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250000), order.Subtotal)
	assert.Equal(t, int64(21000), order.ShippingFee)
	assert.Equal(t, int64(271000), order.Total)
	require.NotNil(t, order.DeliveryAddress)
	assert.Equal(t, "45 Le Van Sy, Q3", *order.DeliveryAddress)
}

func TestServiceCreateEmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		UserID:        f.userID,
		Fulfillment:   enums.FulfillmentPickup,
		StoreID:       &f.storeID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeEmptyCart, typed.Code())
}

func TestServiceCreateInactiveProduct(t *testing.T) {
	f := newOrderFixture(t)

	product := models.Product{ID: uuid.New(), Name: "Discontinued", Price: 40000, Active: false}
	require.NoError(t, f.db.Create(&product).Error)
	require.NoError(t, f.db.Create(&models.CartItem{
		ID:        uuid.New(),
		UserID:    f.userID,
		ProductID: product.ID,
		Quantity:  1,
	}).Error)

	_, err := f.svc.Create(context.Background(), CreateInput{
		UserID:        f.userID,
		Fulfillment:   enums.FulfillmentPickup,
		StoreID:       &f.storeID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceCancelByOwner(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := seedOrder(t, f.db, f.userID, enums.OrderStatusPending, 60000, time.Now().UTC())
	require.NoError(t, f.svc.CancelByOwner(ctx, f.userID, order.ID))

	reloaded, err := NewRepository(f.db).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
}

func TestServiceCancelGuards(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	confirmed := seedOrder(t, f.db, f.userID, enums.OrderStatusConfirmed, 60000, time.Now().UTC())
	err := f.svc.CancelByOwner(ctx, f.userID, confirmed.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeCannotCancel, pkgerrors.As(err).Code())

	pending := seedOrder(t, f.db, f.userID, enums.OrderStatusPending, 60000, time.Now().UTC())
	err = f.svc.CancelByOwner(ctx, uuid.New(), pending.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	err = f.svc.CancelByOwner(ctx, f.userID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceAdvanceStatusRejectsConfirm(t *testing.T) {
	f := newOrderFixture(t)

	order := seedOrder(t, f.db, f.userID, enums.OrderStatusPending, 60000, time.Now().UTC())
	err := f.svc.AdvanceStatus(context.Background(), AdvanceInput{OrderID: order.ID, Target: enums.OrderStatusConfirmed})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestServiceAdvanceStatusIllegalEdge(t *testing.T) {
	f := newOrderFixture(t)

	order := seedOrder(t, f.db, f.userID, enums.OrderStatusPending, 60000, time.Now().UTC())
	err := f.svc.AdvanceStatus(context.Background(), AdvanceInput{OrderID: order.ID, Target: enums.OrderStatusCompleted})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestServiceAdvanceStatusCompletedCreditsLoyaltyOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := seedOrder(t, f.db, f.userID, enums.OrderStatusProcessing, 271000, time.Now().UTC())
	require.NoError(t, f.svc.AdvanceStatus(ctx, AdvanceInput{OrderID: order.ID, Target: enums.OrderStatusCompleted}))

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", f.userID).Error)
	assert.Equal(t, int64(271), user.LoyaltyPoints)

	// Same-target replay is a no-op and must not double-credit.
	require.NoError(t, f.svc.AdvanceStatus(ctx, AdvanceInput{OrderID: order.ID, Target: enums.OrderStatusCompleted}))
	require.NoError(t, f.db.First(&user, "id = ?", f.userID).Error)
	assert.Equal(t, int64(271), user.LoyaltyPoints)

	var ledger int64
	require.NoError(t, f.db.Model(&models.LoyaltyTransaction{}).Where("order_id = ?", order.ID).Count(&ledger).Error)
	assert.Equal(t, int64(1), ledger)
}

func TestServiceFindByIDOwnership(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order := seedOrder(t, f.db, f.userID, enums.OrderStatusPending, 60000, time.Now().UTC())

	got, err := f.svc.FindByID(ctx, order.ID, f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Other users see not-found, never forbidden, to avoid leaking existence.
	_, err = f.svc.FindByID(ctx, order.ID, uuid.New(), false)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	got, err = f.svc.FindByID(ctx, order.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

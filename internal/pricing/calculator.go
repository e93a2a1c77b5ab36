package pricing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/internal/stores"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
)

// Line is a priced cart line entering the quote.
type Line struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice int64
	Quantity  int
}

// QuoteInput carries everything needed to price an order before placement.
type QuoteInput struct {
	Items       []Line
	Fulfillment enums.FulfillmentMethod
	StoreID     *uuid.UUID
	Address     string
	Lat         *float64
	Lng         *float64
}

// Quote is the priced result: amounts in minor units (VND).
type Quote struct {
	SubtotalAmount    int64
	ShippingFeeAmount int64
	TotalAmount       int64
	StoreID           uuid.UUID
	DistanceKm        float64
	Address           string
}

// Calculator prices orders against the shipping fee schedule.
type Calculator interface {
	Quote(ctx context.Context, input QuoteInput) (*Quote, error)
}

type calculator struct {
	stores stores.Service
	cfg    config.ShippingConfig
}

// NewCalculator builds a pricing calculator.
func NewCalculator(storeSvc stores.Service, cfg config.ShippingConfig) (Calculator, error) {
	if storeSvc == nil {
		return nil, fmt.Errorf("store service required")
	}
	return &calculator{stores: storeSvc, cfg: cfg}, nil
}

func (c *calculator) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no items")
	}
	if !input.Fulfillment.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment method")
	}

	var subtotal int64
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPrice < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line price must not be negative")
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	switch input.Fulfillment {
	case enums.FulfillmentPickup:
		return c.quotePickup(ctx, input, subtotal)
	default:
		return c.quoteDelivery(ctx, input, subtotal)
	}
}

func (c *calculator) quotePickup(ctx context.Context, input QuoteInput, subtotal int64) (*Quote, error) {
	if input.StoreID == nil || *input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup requires a store")
	}
	store, err := c.stores.GetActive(ctx, *input.StoreID)
	if err != nil {
		return nil, err
	}
	return &Quote{
		SubtotalAmount: subtotal,
		TotalAmount:    subtotal,
		StoreID:        store.ID,
		Address:        store.Address,
	}, nil
}

func (c *calculator) quoteDelivery(ctx context.Context, input QuoteInput, subtotal int64) (*Quote, error) {
	address := strings.TrimSpace(input.Address)
	if address == "" || input.Lat == nil || input.Lng == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery requires an address with coordinates")
	}

	match, err := c.stores.NearestOpen(ctx, *input.Lat, *input.Lng)
	if err != nil {
		return nil, err
	}

	fee := c.shippingFee(match.DistanceKm)
	return &Quote{
		SubtotalAmount:    subtotal,
		ShippingFeeAmount: fee,
		TotalAmount:       subtotal + fee,
		StoreID:           match.Store.ID,
		DistanceKm:        match.DistanceKm,
		Address:           address,
	}, nil
}

// shippingFee applies the distance schedule: flat base fee within the base
// radius, then a per-km surcharge on each started km, capped at the max fee.
func (c *calculator) shippingFee(distanceKm float64) int64 {
	if distanceKm <= c.cfg.BaseDistanceKm {
		return c.cfg.BaseFee
	}
	extraKm := int64(math.Ceil(distanceKm - c.cfg.BaseDistanceKm))
	fee := c.cfg.BaseFee + extraKm*c.cfg.PerKmFee
	if fee > c.cfg.MaxFee {
		return c.cfg.MaxFee
	}
	return fee
}

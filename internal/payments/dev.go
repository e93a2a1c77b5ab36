package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/internal/orders"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
)

// DevConfirmer fabricates a signed gateway callback for an order and runs it
// through the reconciler, so payment flows can be exercised without the
// sandbox. Only wired outside production.
type DevConfirmer struct {
	cfg     config.VNPayConfig
	orders  orders.Repository
	settler Settler
	now     func() time.Time
}

// NewDevConfirmer wires the dev confirmation helper.
func NewDevConfirmer(cfg config.VNPayConfig, ordersRepo orders.Repository, settler Settler) (*DevConfirmer, error) {
	if cfg.HashSecret == "" {
		return nil, fmt.Errorf("gateway secret required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	return &DevConfirmer{cfg: cfg, orders: ordersRepo, settler: settler, now: time.Now}, nil
}

// Confirm settles the order as if the gateway had called back with rspCode.
// An empty rspCode simulates a successful payment.
func (d *DevConfirmer) Confirm(ctx context.Context, orderID uuid.UUID, rspCode string) (*Result, error) {
	if rspCode == "" {
		rspCode = RspSuccess
	}

	order, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	now := d.now()
	values := url.Values{}
	values.Set("vnp_Amount", strconv.FormatInt(order.TotalAmount*100, 10))
	values.Set("vnp_BankCode", "DEVBANK")
	values.Set("vnp_PayDate", now.Format(createDateLayout))
	values.Set("vnp_ResponseCode", rspCode)
	values.Set("vnp_TmnCode", d.cfg.TmnCode)
	values.Set("vnp_TransactionNo", strconv.FormatInt(now.UnixNano(), 10))
	values.Set("vnp_TxnRef", order.ID.String())
	values.Set(secureHashParam, hmacSHA512(d.cfg.HashSecret, signPayload(values)))

	return d.settler.Reconcile(ctx, values, "dev"), nil
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/internal/orders"
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
	"github.com/longpham-dev/milktea-backend/pkg/metrics"
)

const providerName = "vnpay"

// TransactionRepository persists settlement attempts.
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository
	Upsert(ctx context.Context, txn *models.PaymentTransaction) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result is the settlement outcome reported back to the gateway and to
// clients inspecting the return redirect.
type Result struct {
	RspCode       string              `json:"rsp_code"`
	Message       string              `json:"message"`
	OrderID       uuid.UUID           `json:"order_id,omitempty"`
	OrderStatus   enums.OrderStatus   `json:"order_status,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"payment_status,omitempty"`
	Settled       bool                `json:"settled"`
}

// Settler reconciles gateway callbacks against the order ledger.
type Settler interface {
	// Reconcile verifies, records, and applies a callback. It never returns
	// an error for handled outcomes; the Result carries the acknowledgement.
	Reconcile(ctx context.Context, values url.Values, channel string) *Result
	// Inspect verifies a callback and reports stored state without writing.
	Inspect(ctx context.Context, values url.Values) *Result
}

type settler struct {
	gateway Gateway
	orders  orders.Repository
	txns    TransactionRepository
	tx      txRunner
	metrics *metrics.PaymentMetrics
}

// NewSettler wires the settlement reconciler.
func NewSettler(gw Gateway, ordersRepo orders.Repository, txns TransactionRepository, tx txRunner, m *metrics.PaymentMetrics) (Settler, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if txns == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &settler{gateway: gw, orders: ordersRepo, txns: txns, tx: tx, metrics: m}, nil
}

func resultFor(code string) *Result {
	return &Result{RspCode: code, Message: MessageFor(code)}
}

func (s *settler) Reconcile(ctx context.Context, values url.Values, channel string) *Result {
	started := time.Now()
	result := s.reconcile(ctx, values)
	s.metrics.ObserveSettlementDuration(channel, time.Since(started))
	s.metrics.IncSettlement(channel, outcomeLabel(result))
	return result
}

func (s *settler) reconcile(ctx context.Context, values url.Values) *Result {
	callback, err := s.gateway.VerifyCallback(values)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature) {
			return resultFor(RspInvalidSignature)
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeOrderNotFound) {
			return resultFor(RspOrderNotFound)
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeAmountInvalid) {
			return resultFor(RspInvalidAmount)
		}
		return resultFor(RspUnhandledError)
	}

	result := resultFor(RspUnhandledError)
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByIDForUpdate(ctx, callback.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = resultFor(RspOrderNotFound)
				return nil
			}
			return err
		}
		result.OrderID = order.ID

		// Fast path: settlement already landed, ack without touching the row.
		if order.PaymentStatus != enums.PaymentStatusUnpaid {
			result = resultFor(RspAlreadyConfirmed)
			result.OrderID = order.ID
			result.OrderStatus = order.Status
			result.PaymentStatus = order.PaymentStatus
			return nil
		}

		if callback.Amount != order.TotalAmount {
			result = resultFor(RspInvalidAmount)
			result.OrderID = order.ID
			return nil
		}

		succeeded := callback.ResponseCode == RspSuccess
		settlementStatus := enums.SettlementStatusFailed
		orderStatus := enums.OrderStatusCancelled
		paymentStatus := enums.PaymentStatusFailed
		note := fmt.Sprintf("payment failed (gateway code %s)", callback.ResponseCode)
		if succeeded {
			settlementStatus = enums.SettlementStatusSuccess
			orderStatus = enums.OrderStatusConfirmed
			paymentStatus = enums.PaymentStatusPaid
			note = "payment settled"
		}

		if err := s.txns.WithTx(tx).Upsert(ctx, &models.PaymentTransaction{
			OrderID:      order.ID,
			Provider:     providerName,
			TxnRef:       order.ID.String(),
			Amount:       callback.Amount,
			ResponseCode: callback.ResponseCode,
			Status:       settlementStatus,
			RawPayload:   callback.Raw,
		}); err != nil {
			return err
		}

		// Cancelled is terminal. The verified callback is still recorded
		// above for manual review (the gateway may have captured funds),
		// but the order never reopens.
		if order.Status == enums.OrderStatusCancelled {
			result = resultFor(RspSuccess)
			result.OrderID = order.ID
			result.OrderStatus = order.Status
			result.PaymentStatus = order.PaymentStatus
			return nil
		}

		if err := ordersRepo.UpdatePayment(ctx, order.ID, orderStatus, paymentStatus); err != nil {
			return err
		}
		if err := ordersRepo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   orderStatus,
			Note:       &note,
		}); err != nil {
			return err
		}

		result = resultFor(RspSuccess)
		result.OrderID = order.ID
		result.OrderStatus = orderStatus
		result.PaymentStatus = paymentStatus
		result.Settled = true
		return nil
	})
	if txErr != nil {
		return resultFor(RspUnhandledError)
	}
	return result
}

// Inspect runs the verification path only and reports the order's stored
// settlement state, for the front-channel redirect in read-only mode.
func (s *settler) Inspect(ctx context.Context, values url.Values) *Result {
	callback, err := s.gateway.VerifyCallback(values)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature) {
			return resultFor(RspInvalidSignature)
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeAmountInvalid) {
			return resultFor(RspInvalidAmount)
		}
		return resultFor(RspOrderNotFound)
	}

	order, err := s.orders.FindByID(ctx, callback.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resultFor(RspOrderNotFound)
		}
		return resultFor(RspUnhandledError)
	}

	result := resultFor(RspSuccess)
	result.OrderID = order.ID
	result.OrderStatus = order.Status
	result.PaymentStatus = order.PaymentStatus
	result.Settled = order.PaymentStatus != enums.PaymentStatusUnpaid
	return result
}

func outcomeLabel(result *Result) string {
	if result == nil {
		return "unknown"
	}
	switch result.RspCode {
	case RspSuccess:
		if result.PaymentStatus == enums.PaymentStatusFailed {
			return "failed"
		}
		return "success"
	case RspAlreadyConfirmed:
		return "replay"
	case RspInvalidSignature:
		return "invalid_signature"
	case RspInvalidAmount:
		return "invalid_amount"
	case RspOrderNotFound:
		return "order_not_found"
	default:
		return "error"
	}
}

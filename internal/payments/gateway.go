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
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
)

// Gateway builds signed payment URLs and verifies gateway callbacks.
type Gateway interface {
	CreatePayment(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (string, error)
	BuildPaymentURL(order *models.Order, clientIP string, now time.Time) (string, error)
	VerifyCallback(values url.Values) (*Callback, error)
}

type gateway struct {
	cfg  config.VNPayConfig
	repo orders.Repository
	now  func() time.Time
}

// NewGateway builds the redirect-gateway adapter.
func NewGateway(cfg config.VNPayConfig, repo orders.Repository) (Gateway, error) {
	if cfg.TmnCode == "" || cfg.HashSecret == "" {
		return nil, fmt.Errorf("gateway credentials required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &gateway{cfg: cfg, repo: repo, now: time.Now}, nil
}

// CreatePayment validates the order and returns the redirect URL the client
// should follow to the gateway's hosted payment page.
func (g *gateway) CreatePayment(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (string, error) {
	order, err := g.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return "", pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return "", pkgerrors.New(pkgerrors.CodeOrderPaid, "order is already paid")
	}
	if order.TotalAmount <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeAmountInvalid, "order amount must be positive")
	}
	return g.BuildPaymentURL(order, clientIP, g.now())
}

// BuildPaymentURL signs the closed parameter set and appends the secure hash.
func (g *gateway) BuildPaymentURL(order *models.Order, clientIP string, now time.Time) (string, error) {
	if order == nil {
		return "", fmt.Errorf("order required")
	}

	params := requestParams{
		Version:    paramVersion,
		Command:    paramCommand,
		TmnCode:    g.cfg.TmnCode,
		Amount:     order.TotalAmount,
		CreateDate: now,
		CurrCode:   paramCurrency,
		IPAddr:     clientIP,
		Locale:     g.cfg.Locale,
		OrderInfo:  fmt.Sprintf("Thanh toan don hang %s", order.ID),
		OrderType:  "other",
		ReturnURL:  g.cfg.ReturnURL,
		TxnRef:     order.ID.String(),
	}

	values := params.toValues()
	payload := signPayload(values)
	values.Set(secureHashParam, hmacSHA512(g.cfg.HashSecret, payload))

	return g.cfg.BaseURL + "?" + values.Encode(), nil
}

// VerifyCallback checks the signature before anything else, then parses the
// gateway's fields into a typed callback.
func (g *gateway) VerifyCallback(values url.Values) (*Callback, error) {
	if !verifySignature(g.cfg.HashSecret, values) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature verification failed")
	}

	orderID, err := uuid.Parse(values.Get("vnp_TxnRef"))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeOrderNotFound, err, "invalid transaction reference")
	}

	// The wire amount is the order total multiplied by 100. A remainder can
	// never match a stored total, so it is rejected before the divide
	// truncates it into one that would.
	rawAmount := values.Get("vnp_Amount")
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil || amount < 0 || amount%100 != 0 {
		return nil, pkgerrors.New(pkgerrors.CodeAmountInvalid, "invalid callback amount")
	}

	return &Callback{
		OrderID:       orderID,
		Amount:        amount / 100,
		ResponseCode:  values.Get("vnp_ResponseCode"),
		TransactionNo: values.Get("vnp_TransactionNo"),
		BankCode:      values.Get("vnp_BankCode"),
		PayDate:       values.Get("vnp_PayDate"),
		Raw:           values.Encode(),
	}, nil
}

package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/api/middleware"
	internalpayments "github.com/longpham-dev/milktea-backend/internal/payments"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
)

type stubGateway struct {
	createPayment func(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (string, error)
}

func (s *stubGateway) CreatePayment(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (string, error) {
	return s.createPayment(ctx, userID, orderID, clientIP)
}

func (s *stubGateway) BuildPaymentURL(*models.Order, string, time.Time) (string, error) {
	panic("not implemented")
}

func (s *stubGateway) VerifyCallback(url.Values) (*internalpayments.Callback, error) {
	panic("not implemented")
}

type stubSettler struct {
	reconcile func(ctx context.Context, values url.Values, channel string) *internalpayments.Result
	inspect   func(ctx context.Context, values url.Values) *internalpayments.Result
}

func (s *stubSettler) Reconcile(ctx context.Context, values url.Values, channel string) *internalpayments.Result {
	return s.reconcile(ctx, values, channel)
}

func (s *stubSettler) Inspect(ctx context.Context, values url.Values) *internalpayments.Result {
	return s.inspect(ctx, values)
}

func devConfig(prod bool, allowDevConfirm bool) *config.Config {
	env := config.AppEnvDev
	if prod {
		env = config.AppEnvProd
	}
	return &config.Config{
		App: config.AppConfig{Env: env},
		VNPay: config.VNPayConfig{
			TmnCode:        "MILK0001",
			HashSecret:     "secret",
			SettleOnReturn: true,
		},
		FeatureFlags: config.FeatureFlagsConfig{AllowDevConfirm: allowDevConfirm},
	}
}

func TestNotifyWritesBareAck(t *testing.T) {
	orderID := uuid.New()
	settler := &stubSettler{
		reconcile: func(_ context.Context, _ url.Values, channel string) *internalpayments.Result {
			if channel != "ipn" {
				t.Fatalf("expected ipn channel, got %s", channel)
			}
			return &internalpayments.Result{
				RspCode: internalpayments.RspSuccess,
				Message: internalpayments.MessageFor(internalpayments.RspSuccess),
				OrderID: orderID,
				Settled: true,
			}
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/notify?vnp_TxnRef="+orderID.String(), nil)
	resp := httptest.NewRecorder()
	Notify(settler, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var ack map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("parse ack: %v", err)
	}
	if ack["RspCode"] != "00" {
		t.Fatalf("expected RspCode 00 got %s", ack["RspCode"])
	}
	if ack["Message"] == "" {
		t.Fatal("expected ack message")
	}
}

func TestNotifyAcksErrorsWithoutTransportFailure(t *testing.T) {
	settler := &stubSettler{
		reconcile: func(context.Context, url.Values, string) *internalpayments.Result {
			return &internalpayments.Result{
				RspCode: internalpayments.RspInvalidSignature,
				Message: internalpayments.MessageFor(internalpayments.RspInvalidSignature),
			}
		},
	}

	resp := httptest.NewRecorder()
	Notify(settler, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/payment/notify", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("gateway callbacks must be acked with 200, got %d", resp.Code)
	}
	var ack map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("parse ack: %v", err)
	}
	if ack["RspCode"] != "97" {
		t.Fatalf("expected RspCode 97 got %s", ack["RspCode"])
	}
}

func TestReturnReconcilesInDev(t *testing.T) {
	reconciled := false
	settler := &stubSettler{
		reconcile: func(_ context.Context, _ url.Values, channel string) *internalpayments.Result {
			reconciled = true
			if channel != "return" {
				t.Fatalf("expected return channel, got %s", channel)
			}
			return &internalpayments.Result{RspCode: internalpayments.RspSuccess, Settled: true, PaymentStatus: enums.PaymentStatusPaid}
		},
		inspect: func(context.Context, url.Values) *internalpayments.Result {
			t.Fatal("inspect should not run when settle-on-return is enabled")
			return nil
		},
	}

	resp := httptest.NewRecorder()
	Return(settler, devConfig(false, false), nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/payment/return", nil))

	if !reconciled {
		t.Fatal("expected reconcile to run")
	}
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestReturnInspectsInProd(t *testing.T) {
	settler := &stubSettler{
		reconcile: func(context.Context, url.Values, string) *internalpayments.Result {
			t.Fatal("production return must never write settlement state")
			return nil
		},
		inspect: func(context.Context, url.Values) *internalpayments.Result {
			return &internalpayments.Result{RspCode: internalpayments.RspSuccess, Settled: false}
		},
	}

	resp := httptest.NewRecorder()
	Return(settler, devConfig(true, false), nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/payment/return", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestDevConfirmForbiddenInProd(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/dev-confirm", strings.NewReader(`{}`))
	DevConfirm(nil, devConfig(true, true), nil)(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestDevConfirmForbiddenWithoutFlag(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/dev-confirm", strings.NewReader(`{}`))
	DevConfirm(nil, devConfig(false, false), nil)(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCreateForwardsClientIP(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	var gotIP string
	gw := &stubGateway{
		createPayment: func(_ context.Context, gotUser, gotOrder uuid.UUID, clientIP string) (string, error) {
			if gotUser != userID || gotOrder != orderID {
				t.Fatalf("unexpected identifiers: %s %s", gotUser, gotOrder)
			}
			gotIP = clientIP
			return "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?vnp_TxnRef=" + gotOrder.String(), nil
		},
	}

	body := `{"order_id":"` + orderID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/create", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	resp := httptest.NewRecorder()
	Create(gw, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotIP != "203.0.113.9" {
		t.Fatalf("expected forwarded ip, got %q", gotIP)
	}
}

func TestCreateRequiresUserContext(t *testing.T) {
	gw := &stubGateway{
		createPayment: func(context.Context, uuid.UUID, uuid.UUID, string) (string, error) {
			t.Fatal("gateway should not be called")
			return "", nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/create", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(gw, nil)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

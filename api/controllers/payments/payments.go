package payments

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/api/middleware"
	"github.com/longpham-dev/milktea-backend/api/responses"
	"github.com/longpham-dev/milktea-backend/api/validators"
	internalpayments "github.com/longpham-dev/milktea-backend/internal/payments"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	pkgerrors "github.com/longpham-dev/milktea-backend/pkg/errors"
	"github.com/longpham-dev/milktea-backend/pkg/logger"
)

type createPaymentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type devConfirmRequest struct {
	OrderID      string `json:"order_id" validate:"required,uuid"`
	ResponseCode string `json:"response_code,omitempty" validate:"omitempty,len=2"`
}

type createPaymentResponse struct {
	PaymentURL string `json:"payment_url"`
}

// clientIP prefers the first forwarded hop; the gateway echoes it back on the
// hosted payment page.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Create returns the signed redirect URL for an unpaid order.
func Create(gw internalpayments.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gw == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		rawUserID := middleware.UserIDFromContext(r.Context())
		userID, err := uuid.Parse(rawUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		paymentURL, err := gw.CreatePayment(r.Context(), userID, orderID, clientIP(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, createPaymentResponse{PaymentURL: paymentURL})
	}
}

// Return handles the front-channel redirect from the gateway. In production
// it only inspects stored state; the IPN owns the write path.
func Return(settler internalpayments.Settler, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settler == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement unavailable"))
			return
		}

		values := r.URL.Query()

		var result *internalpayments.Result
		if cfg.VNPay.SettleOnReturn && !cfg.App.IsProd() {
			result = settler.Reconcile(r.Context(), values, "return")
		} else {
			result = settler.Inspect(r.Context(), values)
		}

		responses.WriteSuccess(w, result)
	}
}

// Notify handles the server-to-server callback. The body is the bare
// acknowledgement the gateway retries on, not the API envelope, and the
// status is always 200 so the gateway reads the code instead of the transport.
func Notify(settler internalpayments.Settler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settler == nil {
			writeGatewayAck(w, internalpayments.RspUnhandledError)
			return
		}

		result := settler.Reconcile(r.Context(), r.URL.Query(), "ipn")
		writeGatewayAck(w, result.RspCode)
	}
}

// DevConfirm settles an order without the gateway. Guarded by a feature flag
// and never available in production.
func DevConfirm(confirmer *internalpayments.DevConfirmer, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.App.IsProd() || !cfg.FeatureFlags.AllowDevConfirm {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "dev confirmation is disabled"))
			return
		}
		if confirmer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement unavailable"))
			return
		}

		var payload devConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		result, err := confirmer.Confirm(r.Context(), orderID, payload.ResponseCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func writeGatewayAck(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"RspCode": code,
		"Message": internalpayments.MessageFor(code),
	})
}

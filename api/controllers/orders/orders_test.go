package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/longpham-dev/milktea-backend/api/middleware"
	internalorders "github.com/longpham-dev/milktea-backend/internal/orders"
	"github.com/longpham-dev/milktea-backend/pkg/enums"
	"github.com/longpham-dev/milktea-backend/pkg/pagination"
)

type stubOrdersService struct {
	create   func(ctx context.Context, input internalorders.CreateInput) (*internalorders.OrderDTO, error)
	cancel   func(ctx context.Context, userID, orderID uuid.UUID) error
	advance  func(ctx context.Context, input internalorders.AdvanceInput) error
	list     func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error)
	findByID func(ctx context.Context, orderID, actorID uuid.UUID, admin bool) (*internalorders.OrderDTO, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateInput) (*internalorders.OrderDTO, error) {
	return s.create(ctx, input)
}

func (s *stubOrdersService) CancelByOwner(ctx context.Context, userID, orderID uuid.UUID) error {
	return s.cancel(ctx, userID, orderID)
}

func (s *stubOrdersService) AdvanceStatus(ctx context.Context, input internalorders.AdvanceInput) error {
	return s.advance(ctx, input)
}

func (s *stubOrdersService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return s.list(ctx, userID, params)
}

func (s *stubOrdersService) FindByID(ctx context.Context, orderID, actorID uuid.UUID, admin bool) (*internalorders.OrderDTO, error) {
	return s.findByID(ctx, orderID, actorID, admin)
}

func authedRequest(method, url, userID string, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withOrderIDParam(req *http.Request, orderID string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestCreateHandlerSuccess(t *testing.T) {
	userID := uuid.New()
	var captured internalorders.CreateInput
	svc := &stubOrdersService{
		create: func(_ context.Context, input internalorders.CreateInput) (*internalorders.OrderDTO, error) {
			captured = input
			return &internalorders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending, Total: 100000}, nil
		},
	}

	body := `{"fulfillment_method":"pickup","store_id":"` + uuid.NewString() + `","payment_method":"vnpay"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", userID.String(), body)
	resp := httptest.NewRecorder()
	Create(svc, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.UserID != userID {
		t.Fatalf("expected user id %s got %s", userID, captured.UserID)
	}
	if captured.Fulfillment != enums.FulfillmentPickup {
		t.Fatalf("unexpected fulfillment: %s", captured.Fulfillment)
	}
	if captured.PaymentMethod != enums.PaymentMethodVNPay {
		t.Fatalf("unexpected payment method: %s", captured.PaymentMethod)
	}
	if captured.StoreID == nil {
		t.Fatal("expected store id to be forwarded")
	}
}

func TestCreateHandlerRejectsUnknownFulfillment(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.CreateInput) (*internalorders.OrderDTO, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := `{"fulfillment_method":"teleport","payment_method":"cod"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", uuid.NewString(), body)
	resp := httptest.NewRecorder()
	Create(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateHandlerRequiresUserContext(t *testing.T) {
	svc := &stubOrdersService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(svc, nil)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCancelHandlerInvalidOrderID(t *testing.T) {
	svc := &stubOrdersService{
		cancel: func(context.Context, uuid.UUID, uuid.UUID) error {
			t.Fatal("service should not be called")
			return nil
		},
	}

	req := authedRequest(http.MethodPut, "/api/v1/orders/not-a-uuid/cancel", uuid.NewString(), "")
	req = withOrderIDParam(req, "not-a-uuid")
	resp := httptest.NewRecorder()
	Cancel(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminUpdateStatusForwardsInput(t *testing.T) {
	orderID := uuid.New()
	note := "packed and handed to shipper"
	var captured internalorders.AdvanceInput
	svc := &stubOrdersService{
		advance: func(_ context.Context, input internalorders.AdvanceInput) error {
			captured = input
			return nil
		},
	}

	body := `{"status":"processing","note":"` + note + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/status", uuid.NewString(), body)
	req = withOrderIDParam(req, orderID.String())
	resp := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID {
		t.Fatalf("expected order id %s got %s", orderID, captured.OrderID)
	}
	if captured.Target != enums.OrderStatusProcessing {
		t.Fatalf("unexpected target: %s", captured.Target)
	}
	if captured.Note == nil || *captured.Note != note {
		t.Fatalf("expected note to be forwarded")
	}

	var payload struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data["status"] != "processing" {
		t.Fatalf("unexpected response payload: %s", resp.Body.String())
	}
}

func TestListHandlerForwardsPagination(t *testing.T) {
	userID := uuid.New()
	var captured pagination.Params
	svc := &stubOrdersService{
		list: func(_ context.Context, _ uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
			captured = params
			return &internalorders.OrderList{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", userID.String(), "")
	resp := httptest.NewRecorder()
	List(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Limit != 5 || captured.Cursor != "abc" {
		t.Fatalf("unexpected params: %+v", captured)
	}
}

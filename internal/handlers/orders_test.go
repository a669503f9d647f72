package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/repositories"
	"github.com/lilyumflora/api/internal/services"
)

type stubOrderService struct {
	getFn         func(context.Context, string) (domain.Order, error)
	listFn        func(context.Context, repositories.OrderListFilter) (domain.Page[domain.Order], error)
	setStatusFn   func(context.Context, services.SetOrderStatusCommand) (domain.Order, error)
	setTrackingFn func(context.Context, services.SetTrackingCommand) (domain.Order, error)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

func (s *stubOrderService) SetStatus(ctx context.Context, cmd services.SetOrderStatusCommand) (domain.Order, error) {
	if s.setStatusFn != nil {
		return s.setStatusFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) SetTracking(ctx context.Context, cmd services.SetTrackingCommand) (domain.Order, error) {
	if s.setTrackingFn != nil {
		return s.setTrackingFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func newOrderRouter(t *testing.T, svc services.OrderService) chi.Router {
	t.Helper()
	handlers, err := NewOrderHandlers(svc)
	if err != nil {
		t.Fatalf("NewOrderHandlers returned error: %v", err)
	}
	r := chi.NewRouter()
	r.Route("/orders", handlers.Routes)
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestGetOrderReturnsPayload(t *testing.T) {
	created := time.Date(2024, time.March, 8, 10, 0, 0, 0, time.UTC)
	svc := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			if orderID != "ord_1" {
				t.Fatalf("unexpected order id %q", orderID)
			}
			return domain.Order{
				ID:          "ord_1",
				OrderNumber: "ORD-2024-000042",
				CustomerID:  "cus_1",
				Status:      domain.OrderStatusPending,
				Total:       65000,
				Items:       []domain.OrderItem{{ProductID: "prd_rose", Name: "Kırmızı Gül Buketi", Price: 65000, Quantity: 1}},
				Shipping:    domain.ShippingAddress{Name: "Mehmet Kaya", Phone: "+905553334455", Address: "Çiçek Sk. 5"},
				CreatedAt:   created,
				UpdatedAt:   created,
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	newOrderRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	order, ok := body["order"].(map[string]any)
	if !ok {
		t.Fatalf("expected order object, got %v", body)
	}
	if order["orderNumber"] != "ORD-2024-000042" || order["status"] != "pending" {
		t.Fatalf("unexpected order payload %v", order)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("lookup: %w", services.ErrOrderNotFound)
		},
	}

	rec := httptest.NewRecorder()
	newOrderRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/ord_missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != "order_not_found" || body["success"] != false {
		t.Fatalf("unexpected error envelope %v", body)
	}
}

func TestListOrdersParsesFilters(t *testing.T) {
	var captured repositories.OrderListFilter
	svc := &stubOrderService{
		listFn: func(_ context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
			captured = filter
			return domain.Page[domain.Order]{Items: []domain.Order{{ID: "ord_1"}}, Page: 2, Limit: 10, Total: 11}, nil
		},
	}

	target := "/orders?customer_id=cus_1&status=pending&created_after=2024-03-01T00:00:00Z&created_before=2024-03-31&page=2&limit=10"
	rec := httptest.NewRecorder()
	newOrderRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.CustomerID != "cus_1" || captured.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if captured.Created.From == nil || !captured.Created.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_after %v", captured.Created.From)
	}
	if captured.Created.To == nil || !captured.Created.To.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_before %v", captured.Created.To)
	}
	if captured.Page.Page != 2 || captured.Page.Limit != 10 {
		t.Fatalf("unexpected page query %+v", captured.Page)
	}

	body := decodeResponse(t, rec)
	pagination, ok := body["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("expected pagination metadata, got %v", body)
	}
	if pagination["total"] != float64(11) || pagination["totalPages"] != float64(2) {
		t.Fatalf("unexpected pagination %v", pagination)
	}
}

func TestListOrdersRejectsBadTimestamp(t *testing.T) {
	rec := httptest.NewRecorder()
	newOrderRouter(t, &stubOrderService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?created_after=yesterday", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetStatusMapsTransitionConflict(t *testing.T) {
	svc := &stubOrderService{
		setStatusFn: func(_ context.Context, cmd services.SetOrderStatusCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("delivered to pending: %w", services.ErrOrderInvalidTransition)
		},
	}

	payload := bytes.NewBufferString(`{"status":"pending"}`)
	rec := httptest.NewRecorder()
	newOrderRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/orders/ord_1/status", payload))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != "order_invalid_transition" {
		t.Fatalf("unexpected error envelope %v", body)
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrderService{
		setStatusFn: func(context.Context, services.SetOrderStatusCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("status lost: %w", services.ErrOrderInvalidStatus)
		},
	}

	payload := bytes.NewBufferString(`{"status":"lost"}`)
	rec := httptest.NewRecorder()
	newOrderRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/orders/ord_1/status", payload))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetStatusRejectsEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newOrderRouter(t, &stubOrderService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/orders/ord_1/status", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetTrackingUpdatesOrder(t *testing.T) {
	var captured services.SetTrackingCommand
	svc := &stubOrderService{
		setTrackingFn: func(_ context.Context, cmd services.SetTrackingCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID, TrackingNumber: cmd.TrackingNumber, Carrier: cmd.Carrier, Status: domain.OrderStatusShipped}, nil
		},
	}

	payload := bytes.NewBufferString(`{"trackingNumber":"TRK123456","carrier":"Aras Kargo"}`)
	rec := httptest.NewRecorder()
	newOrderRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/orders/ord_1/tracking", payload))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.TrackingNumber != "TRK123456" || captured.Carrier != "Aras Kargo" {
		t.Fatalf("unexpected command %+v", captured)
	}
}

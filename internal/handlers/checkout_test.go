package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/services"
)

type stubCheckoutService struct {
	createFn func(context.Context, services.CreateOrderCommand) (domain.Order, error)
}

func (s *stubCheckoutService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func newCheckoutRouter(t *testing.T, svc services.CheckoutService) chi.Router {
	t.Helper()
	handlers, err := NewCheckoutHandlers(svc)
	if err != nil {
		t.Fatalf("NewCheckoutHandlers returned error: %v", err)
	}
	r := chi.NewRouter()
	r.Route("/checkout", handlers.Routes)
	return r
}

const checkoutBody = `{
	"items": [
		{"productId": "prd_rose", "name": "Kırmızı Gül Buketi", "price": 45000, "quantity": 1},
		{"productId": "prd_lily", "name": "Lilyum Aranjmanı", "price": 10000, "quantity": 2}
	],
	"total": 65000,
	"shipping": {
		"name": "Mehmet Kaya",
		"phone": "+905553334455",
		"address": "Çiçek Sk. 5",
		"district": "Kadıköy",
		"city": "İstanbul",
		"deliveryDate": "2024-03-09",
		"deliveryTime": "14:00-16:00"
	},
	"sender": {"name": "Ayşe Yılmaz", "phone": "+905551112233"},
	"cardNote": "İyi ki doğdun!",
	"isAnonymous": false
}`

func TestCreateOrderHandlerMapsCommand(t *testing.T) {
	var captured services.CreateOrderCommand
	svc := &stubCheckoutService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{
				ID:          "ord_1",
				OrderNumber: "ORD-2024-000042",
				CustomerID:  "cus_1",
				Status:      domain.OrderStatusPending,
				Total:       65000,
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/orders", bytes.NewBufferString(checkoutBody))
	newCheckoutRouter(t, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(captured.Items) != 2 || captured.Items[0].ProductID != "prd_rose" || captured.Items[1].Quantity != 2 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}
	if captured.Total != 65000 {
		t.Fatalf("unexpected total %d", captured.Total)
	}
	if captured.Sender == nil || captured.Sender.Phone != "+905551112233" {
		t.Fatalf("unexpected sender %+v", captured.Sender)
	}
	if captured.Shipping.District != "Kadıköy" || captured.Shipping.DeliveryTime != "14:00-16:00" {
		t.Fatalf("unexpected shipping %+v", captured.Shipping)
	}

	body := decodeResponse(t, rec)
	order, ok := body["order"].(map[string]any)
	if !ok || order["id"] != "ord_1" {
		t.Fatalf("unexpected response %v", body)
	}
}

func TestCreateOrderHandlerRejectsInvalidInput(t *testing.T) {
	svc := &stubCheckoutService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("cart is empty: %w", services.ErrCheckoutInvalidInput)
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/orders", bytes.NewBufferString(`{"items":[]}`))
	newCheckoutRouter(t, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != "checkout_invalid" {
		t.Fatalf("unexpected envelope %v", body)
	}
}

func TestCreateOrderHandlerGuestDisabled(t *testing.T) {
	svc := &stubCheckoutService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrGuestCheckoutDisabled
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/orders", bytes.NewBufferString(checkoutBody))
	newCheckoutRouter(t, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCreateOrderHandlerPersistFailure(t *testing.T) {
	svc := &stubCheckoutService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("firestore write: %w", services.ErrOrderPersist)
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/orders", bytes.NewBufferString(checkoutBody))
	newCheckoutRouter(t, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestCreateOrderHandlerRejectsMalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/orders", bytes.NewBufferString(`{"items": [`))
	newCheckoutRouter(t, &stubCheckoutService{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

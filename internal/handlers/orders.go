package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/platform/httpx"
	"github.com/lilyumflora/api/internal/platform/observability"
	"github.com/lilyumflora/api/internal/repositories"
	"github.com/lilyumflora/api/internal/services"
)

// OrderHandlers exposes the fulfilment-side order endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs order HTTP handlers.
func NewOrderHandlers(orders services.OrderService) (*OrderHandlers, error) {
	if orders == nil {
		return nil, errors.New("order handlers: order service is required")
	}
	return &OrderHandlers{orders: orders}, nil
}

// Routes registers order routes on the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}/status", h.setStatus)
	r.Patch("/{orderID}/tracking", h.setTracking)
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

type shippingPayload struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	District     string `json:"district,omitempty"`
	City         string `json:"city,omitempty"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
	DeliveryTime string `json:"deliveryTime,omitempty"`
}

type senderPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type orderPayload struct {
	ID             string             `json:"id"`
	OrderNumber    string             `json:"orderNumber"`
	CustomerID     string             `json:"customerId,omitempty"`
	Status         string             `json:"status"`
	Total          int64              `json:"total"`
	Items          []orderItemPayload `json:"items"`
	Shipping       shippingPayload    `json:"shipping"`
	Sender         *senderPayload     `json:"sender,omitempty"`
	CardNote       string             `json:"cardNote,omitempty"`
	IsAnonymous    bool               `json:"isAnonymous"`
	MediaMessage   string             `json:"mediaMessage,omitempty"`
	TrackingNumber string             `json:"trackingNumber,omitempty"`
	Carrier        string             `json:"carrier,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

func toOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Total:       order.Total,
		Items:       make([]orderItemPayload, 0, len(order.Items)),
		Shipping: shippingPayload{
			Name:         order.Shipping.Name,
			Phone:        order.Shipping.Phone,
			Address:      order.Shipping.Address,
			District:     order.Shipping.District,
			City:         order.Shipping.City,
			DeliveryDate: order.Shipping.DeliveryDate,
			DeliveryTime: order.Shipping.DeliveryTime,
		},
		CardNote:       order.CardNote,
		IsAnonymous:    order.IsAnonymous,
		MediaMessage:   order.MediaMessage,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	if order.Sender != nil {
		payload.Sender = &senderPayload{Name: order.Sender.Name, Phone: order.Sender.Phone}
	}
	return payload
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, err := parsePageQuery(query)
	if err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}

	createdAfter, err := parseTimeParam(query, "created_after")
	if err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	createdBefore, err := parseTimeParam(query, "created_before")
	if err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}

	filter := repositories.OrderListFilter{
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		Status:     domain.OrderStatus(strings.TrimSpace(query.Get("status"))),
		Created:    domain.RangeQuery[time.Time]{From: createdAfter, To: createdBefore},
		Page:       page,
	}

	result, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	items := make([]orderPayload, 0, len(result.Items))
	for _, order := range result.Items {
		items = append(items, toOrderPayload(order))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":    true,
		"orders":     items,
		"pagination": metaForPage(result),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   toOrderPayload(order),
	})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setStatusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}

	order, err := h.orders.SetStatus(ctx, services.SetOrderStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  req.Status,
	})
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   toOrderPayload(order),
	})
}

type setTrackingRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

func (h *OrderHandlers) setTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setTrackingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}

	order, err := h.orders.SetTracking(ctx, services.SetTrackingCommand{
		OrderID:        chi.URLParam(r, "orderID"),
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
	})
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   toOrderPayload(order),
	})
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidStatus), errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_transition", err.Error(), http.StatusConflict))
	default:
		observability.FromContext(ctx).Error("orders.request.failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

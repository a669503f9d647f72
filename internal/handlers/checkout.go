package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/platform/httpx"
	"github.com/lilyumflora/api/internal/platform/observability"
	"github.com/lilyumflora/api/internal/services"
)

// CheckoutHandlers exposes the storefront order intake endpoint.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout HTTP handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) (*CheckoutHandlers, error) {
	if checkout == nil {
		return nil, errors.New("checkout handlers: checkout service is required")
	}
	return &CheckoutHandlers{checkout: checkout}, nil
}

// Routes registers checkout routes on the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	r.Post("/orders", h.createOrder)
}

type checkoutItemRequest struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

type checkoutShippingRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	District     string `json:"district"`
	City         string `json:"city"`
	DeliveryDate string `json:"deliveryDate"`
	DeliveryTime string `json:"deliveryTime"`
}

type checkoutSenderRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type createOrderRequest struct {
	CustomerID   string                  `json:"customerId"`
	Email        string                  `json:"email"`
	Items        []checkoutItemRequest   `json:"items"`
	Total        int64                   `json:"total"`
	Shipping     checkoutShippingRequest `json:"shipping"`
	Sender       *checkoutSenderRequest  `json:"sender"`
	CardNote     string                  `json:"cardNote"`
	IsAnonymous  bool                    `json:"isAnonymous"`
	MediaMessage string                  `json:"mediaMessage"`
}

func (h *CheckoutHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}

	cmd := services.CreateOrderCommand{
		CustomerID: req.CustomerID,
		Email:      req.Email,
		Total:      req.Total,
		Shipping: domain.ShippingAddress{
			Name:         req.Shipping.Name,
			Phone:        req.Shipping.Phone,
			Address:      req.Shipping.Address,
			District:     req.Shipping.District,
			City:         req.Shipping.City,
			DeliveryDate: req.Shipping.DeliveryDate,
			DeliveryTime: req.Shipping.DeliveryTime,
		},
		CardNote:     req.CardNote,
		IsAnonymous:  req.IsAnonymous,
		MediaMessage: req.MediaMessage,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	if req.Sender != nil {
		cmd.Sender = &domain.Sender{Name: req.Sender.Name, Phone: req.Sender.Phone}
	}

	order, err := h.checkout.CreateOrder(ctx, cmd)
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"order":   toOrderPayload(order),
	})
}

func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_invalid", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrGuestCheckoutDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("guest_checkout_disabled", "checkout requires an identifiable customer", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderPersist):
		httpx.WriteError(ctx, w, httpx.NewError("order_persist_failed", "order could not be stored", http.StatusBadGateway))
	default:
		observability.FromContext(ctx).Error("checkout.create.failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

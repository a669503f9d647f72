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

// CustomerHandlers exposes the admin customer ledger endpoints.
type CustomerHandlers struct {
	customers services.CustomerService
}

// NewCustomerHandlers constructs customer HTTP handlers.
func NewCustomerHandlers(customers services.CustomerService) (*CustomerHandlers, error) {
	if customers == nil {
		return nil, errors.New("customer handlers: customer service is required")
	}
	return &CustomerHandlers{customers: customers}, nil
}

// Routes registers customer routes on the provided router.
func (h *CustomerHandlers) Routes(r chi.Router) {
	r.Get("/", h.listCustomers)
	r.Get("/{customerID}", h.getCustomer)
}

type customerPayload struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	TotalSpent    int64      `json:"totalSpent"`
	OrderCount    int64      `json:"orderCount"`
	LastOrderDate *time.Time `json:"lastOrderDate,omitempty"`
	Address       string     `json:"address,omitempty"`
	District      string     `json:"district,omitempty"`
	City          string     `json:"city,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toCustomerPayload(customer domain.Customer) customerPayload {
	return customerPayload{
		ID:            customer.ID,
		Name:          customer.Name,
		Phone:         customer.Phone,
		Email:         customer.Email,
		TotalSpent:    customer.TotalSpent,
		OrderCount:    customer.OrderCount,
		LastOrderDate: customer.LastOrderDate,
		Address:       customer.Address,
		District:      customer.District,
		City:          customer.City,
		CreatedAt:     customer.CreatedAt,
		UpdatedAt:     customer.UpdatedAt,
	}
}

func (h *CustomerHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, err := parsePageQuery(query)
	if err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}

	filter := repositories.CustomerListFilter{
		Search: strings.TrimSpace(query.Get("search")),
		Sort:   repositories.CustomerSort(strings.TrimSpace(query.Get("sort"))),
		Page:   page,
	}

	result, err := h.customers.ListCustomers(ctx, filter)
	if err != nil {
		writeCustomerError(w, r, err)
		return
	}

	items := make([]customerPayload, 0, len(result.Items))
	for _, customer := range result.Items {
		items = append(items, toCustomerPayload(customer))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":    true,
		"customers":  items,
		"pagination": metaForPage(result),
	})
}

func (h *CustomerHandlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer, err := h.customers.GetCustomer(ctx, chi.URLParam(r, "customerID"))
	if err != nil {
		writeCustomerError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"customer": toCustomerPayload(customer),
	})
}

func writeCustomerError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("customer_not_found", "customer does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("customer_invalid", err.Error(), http.StatusBadRequest))
	default:
		observability.FromContext(ctx).Error("customers.request.failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

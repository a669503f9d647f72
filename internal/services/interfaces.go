package services

import (
	"context"
	"time"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/repositories"
)

// CheckoutService orchestrates order intake: item snapshots, customer resolution,
// order persistence, and aggregate reconciliation.
type CheckoutService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
}

// OrderService exposes fulfilment-side operations over the order ledger.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error)
	SetStatus(ctx context.Context, cmd SetOrderStatusCommand) (domain.Order, error)
	SetTracking(ctx context.Context, cmd SetTrackingCommand) (domain.Order, error)
}

// CustomerService resolves purchasing identities and serves the admin customer ledger.
type CustomerService interface {
	ResolveIdentity(ctx context.Context, cmd ResolveIdentityCommand) (domain.Customer, error)
	ApplyOrderStats(ctx context.Context, customerID string, delta domain.OrderStatsDelta) (domain.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (domain.Customer, error)
	ListCustomers(ctx context.Context, filter repositories.CustomerListFilter) (domain.Page[domain.Customer], error)
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	CustomerID     string
	PreviousStatus string
	CurrentStatus  string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderItemInput is one cart line submitted at checkout.
type OrderItemInput struct {
	ProductID string
	Name      string
	Price     int64
	Quantity  int
	Image     string
}

// CreateOrderCommand carries the checkout payload.
type CreateOrderCommand struct {
	CustomerID   string
	Email        string
	Items        []OrderItemInput
	Total        int64
	Shipping     domain.ShippingAddress
	Sender       *domain.Sender
	CardNote     string
	IsAnonymous  bool
	MediaMessage string
}

// ResolveIdentityCommand identifies the purchasing customer by id or by phone contact.
type ResolveIdentityCommand struct {
	CustomerID string
	Name       string
	Phone      string
	Email      string
}

// SetOrderStatusCommand moves an order through the fulfilment state machine.
type SetOrderStatusCommand struct {
	OrderID string
	Status  string
}

// SetTrackingCommand attaches shipment tracking data to an order.
type SetTrackingCommand struct {
	OrderID        string
	TrackingNumber string
	Carrier        string
}

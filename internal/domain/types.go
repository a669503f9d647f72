package domain

import "time"

// PageQuery carries offset pagination parameters for admin listings.
type PageQuery struct {
	Page  int
	Limit int
}

// Normalise clamps the query to sane bounds.
func (q PageQuery) Normalise(defaultLimit, maxLimit int) PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q
}

// Offset returns the number of records preceding the requested page.
func (q PageQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Page packages list results together with offset pagination metadata.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

// TotalPages derives the page count from the total and limit.
func (p Page[T]) TotalPages() int64 {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + int64(p.Limit) - 1) / int64(p.Limit)
}

// RangeQuery represents inclusive range filters for timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// Customer is the ledger record an order is attributed to. Monetary amounts are
// carried in minor currency units (kuruş).
type Customer struct {
	ID    string
	Name  string
	Phone string
	Email string

	TotalSpent    int64
	OrderCount    int64
	LastOrderDate *time.Time

	// Last-used shipping address, overwritten by each new order.
	Address  string
	District string
	City     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was accepted at checkout and awaits preparation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPreparing indicates the order is being assembled.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusShipped indicates the order left the shop with a courier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the recipient received the order.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusReturned indicates the courier brought the order back.
	OrderStatusReturned OrderStatus = "returned"
	// OrderStatusCancelled indicates the order was cancelled before reaching a terminal state.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether the value belongs to the closed status enumeration.
func ValidOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusReturned, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected from the status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusReturned, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is an immutable purchase-time snapshot of a product line. It is
// embedded in the order document and never references the live catalog.
type OrderItem struct {
	ProductID string
	Name      string
	Price     int64
	Quantity  int
	Image     string
}

// ShippingAddress snapshots the delivery destination at order time.
type ShippingAddress struct {
	Name         string
	Phone        string
	Address      string
	District     string
	City         string
	DeliveryDate string
	DeliveryTime string
}

// Sender identifies the purchaser when the order is a gift. The sender, not the
// shipping recipient, is the customer identity the order is attributed to.
type Sender struct {
	Name  string
	Phone string
}

// Order is the immutable ledger record of a checkout.
type Order struct {
	ID          string
	OrderNumber string
	// CustomerID is empty for guest orders that could not be attributed to a customer.
	CustomerID string
	Status     OrderStatus
	Total      int64
	Items      []OrderItem
	Shipping   ShippingAddress
	Sender     *Sender

	CardNote     string
	IsAnonymous  bool
	MediaMessage string

	TrackingNumber string
	Carrier        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatsDelta captures the aggregate mutation applied to a customer after an order.
type OrderStatsDelta struct {
	Total     int64
	OrderedAt time.Time
	Address   string
	District  string
	City      string
}

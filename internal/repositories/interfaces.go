package repositories

import (
	"context"
	"time"

	"github.com/lilyumflora/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Customers() CustomerRepository
	Orders() OrderRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CustomerRepository persists customer documents and their order-derived aggregates.
// Writes that must observe concurrent checkouts (find-or-create, stats folding) carry
// their transactional boundary inside the repository method.
type CustomerRepository interface {
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	// FindByPhone returns the first customer whose phone matches exactly. Should return a
	// RepositoryError with IsNotFound when no customer carries the phone.
	FindByPhone(ctx context.Context, phone string) (domain.Customer, error)
	// CreateIfAbsentByPhone atomically looks up the phone and inserts the candidate when no
	// match exists. The returned customer is either the existing match or the inserted one.
	CreateIfAbsentByPhone(ctx context.Context, candidate domain.Customer) (domain.Customer, error)
	// ApplyOrderStats folds an order into the customer's aggregates as a single
	// read-modify-write: totalSpent += delta.Total, orderCount += 1, lastOrderDate and the
	// address snapshot overwritten.
	ApplyOrderStats(ctx context.Context, customerID string, delta domain.OrderStatsDelta) (domain.Customer, error)
	List(ctx context.Context, filter CustomerListFilter) (domain.Page[domain.Customer], error)
}

// OrderRepository owns the immutable order ledger.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
}

// CounterRepository issues monotonically increasing sequence numbers.
type CounterRepository interface {
	// Next atomically increments and returns the counter value for the given name.
	Next(ctx context.Context, name string) (int64, error)
}

// HealthRepository verifies connectivity with the persistence layer.
type HealthRepository interface {
	Ping(ctx context.Context) error
}

// CustomerSort orders admin customer listings.
type CustomerSort string

const (
	CustomerSortSpentDesc  CustomerSort = "spent-desc"
	CustomerSortSpentAsc   CustomerSort = "spent-asc"
	CustomerSortOrdersDesc CustomerSort = "orders-desc"
	CustomerSortNewest     CustomerSort = "newest"
)

// ValidCustomerSort reports whether the sort key is one of the supported orderings.
func ValidCustomerSort(sort CustomerSort) bool {
	switch sort {
	case CustomerSortSpentDesc, CustomerSortSpentAsc, CustomerSortOrdersDesc, CustomerSortNewest:
		return true
	default:
		return false
	}
}

// CustomerListFilter narrows and orders admin customer listings.
type CustomerListFilter struct {
	Search string
	Sort   CustomerSort
	Page   domain.PageQuery
}

// OrderListFilter narrows admin order listings. Zero values mean "no constraint".
type OrderListFilter struct {
	CustomerID string
	Status     domain.OrderStatus
	Created    domain.RangeQuery[time.Time]
	Page       domain.PageQuery
}

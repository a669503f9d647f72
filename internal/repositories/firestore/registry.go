package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/lilyumflora/api/internal/platform/firestore"
	"github.com/lilyumflora/api/internal/repositories"
)

// Registry wires the Firestore-backed repository implementations behind the
// repositories.Registry contract.
type Registry struct {
	provider  *pfirestore.Provider
	customers *CustomerRepository
	orders    *OrderRepository
	counters  *CounterRepository
	health    *healthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the registry and its repositories from a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	customers, err := NewCustomerRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  provider,
		customers: customers,
		orders:    orders,
		counters:  counters,
		health:    &healthRepository{provider: provider},
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Customers returns the customer repository.
func (r *Registry) Customers() repositories.CustomerRepository { return r.customers }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health returns the connectivity probe.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

type healthRepository struct {
	provider *pfirestore.Provider
}

// Ping verifies the Firestore client can be constructed and reached.
func (h *healthRepository) Ping(ctx context.Context) error {
	if h == nil || h.provider == nil {
		return errors.New("health repository not initialised")
	}
	client, err := h.provider.Client(ctx)
	if err != nil {
		return err
	}

	// A single-document read against a known collection is the cheapest liveness probe
	// the API offers; NotFound still proves connectivity.
	_, err = client.Collection(countersCollection).Doc("healthz").Get(ctx)
	if err != nil {
		wrapped := pfirestore.WrapError("health.ping", err)
		var repoErr repositories.RepositoryError
		if errors.As(wrapped, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
		return wrapped
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/repositories"
)

const customerIDPrefix = "cus_"

var (
	// ErrIdentityUnresolved signals that no usable customer identity could be derived.
	ErrIdentityUnresolved = errors.New("customer: identity unresolved")
	// ErrCustomerNotFound indicates the customer could not be located.
	ErrCustomerNotFound = errors.New("customer: not found")
	// ErrCustomerInvalidInput signals the caller provided invalid data.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
)

// CustomerServiceDeps bundles collaborators required to construct the customer service.
type CustomerServiceDeps struct {
	Customers   repositories.CustomerRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type customerService struct {
	customers repositories.CustomerRepository
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewCustomerService wires dependencies into a concrete CustomerService implementation.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: customer repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &customerService{
		customers: deps.Customers,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// ResolveIdentity finds the purchasing customer. An explicit id wins when it resolves;
// a stale id falls back to the phone path rather than failing the checkout. The phone
// is matched exactly and a new customer is created when nothing matches; a stale id is
// reused as the new document id. The phone lookup and the create run inside one
// repository transaction so racing first orders from the same phone converge on a
// single customer.
func (s *customerService) ResolveIdentity(ctx context.Context, cmd ResolveIdentityCommand) (domain.Customer, error) {
	suppliedID := strings.TrimSpace(cmd.CustomerID)
	if suppliedID != "" {
		customer, err := s.customers.FindByID(ctx, suppliedID)
		if err == nil {
			return customer, nil
		}
		if !isNotFound(err) {
			return domain.Customer{}, s.mapRepositoryError(err)
		}
	}

	phone := strings.TrimSpace(cmd.Phone)
	if phone == "" {
		return domain.Customer{}, fmt.Errorf("%w: neither customer id nor phone supplied", ErrIdentityUnresolved)
	}

	existing, err := s.customers.FindByPhone(ctx, phone)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return domain.Customer{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	candidate := domain.Customer{
		ID:         suppliedID,
		Name:       s.canonicalName(cmd.Name),
		Phone:      phone,
		Email:      strings.TrimSpace(cmd.Email),
		TotalSpent: 0,
		OrderCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if candidate.ID == "" {
		candidate.ID = customerIDPrefix + s.newID()
	}

	customer, err := s.customers.CreateIfAbsentByPhone(ctx, candidate)
	if err != nil {
		return domain.Customer{}, s.mapRepositoryError(err)
	}

	if customer.ID == candidate.ID {
		s.logger(ctx, "customer.created", map[string]any{
			"customer": customer.ID,
		})
	}
	return customer, nil
}

// ApplyOrderStats folds a durable order into the customer aggregates.
func (s *customerService) ApplyOrderStats(ctx context.Context, customerID string, delta domain.OrderStatsDelta) (domain.Customer, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}

	customer, err := s.customers.ApplyOrderStats(ctx, id, delta)
	if err != nil {
		return domain.Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

// GetCustomer loads a single customer.
func (s *customerService) GetCustomer(ctx context.Context, customerID string) (domain.Customer, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}

	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return domain.Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

// ListCustomers serves the admin ledger listing.
func (s *customerService) ListCustomers(ctx context.Context, filter repositories.CustomerListFilter) (domain.Page[domain.Customer], error) {
	if filter.Sort == "" {
		filter.Sort = repositories.CustomerSortSpentDesc
	}
	if !repositories.ValidCustomerSort(filter.Sort) {
		return domain.Page[domain.Customer]{}, fmt.Errorf("%w: unknown sort %q", ErrCustomerInvalidInput, filter.Sort)
	}

	page, err := s.customers.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Customer]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// canonicalName trims and title-cases the display name using Turkish casing rules so
// "ayşe yılmaz" and "AYŞE YILMAZ" land on the same stored spelling. Casers are
// stateful, so a fresh one is built per call.
func (s *customerService) canonicalName(name string) string {
	trimmed := strings.Join(strings.Fields(name), " ")
	if trimmed == "" {
		return ""
	}
	caser := cases.Title(language.Turkish)
	return caser.String(strings.ToLowerSpecial(unicode.TurkishCase, trimmed))
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func (s *customerService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCustomerNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("customer: repository unavailable: %w", err)
		}
	}
	return err
}

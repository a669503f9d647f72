package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lilyumflora/api/internal/domain"
	pfirestore "github.com/lilyumflora/api/internal/platform/firestore"
	"github.com/lilyumflora/api/internal/repositories"
)

const customersCollection = "customers"

type customerDocument struct {
	Name          string     `firestore:"name"`
	Phone         string     `firestore:"phone"`
	Email         string     `firestore:"email"`
	TotalSpent    int64      `firestore:"totalSpent"`
	OrderCount    int64      `firestore:"orderCount"`
	LastOrderDate *time.Time `firestore:"lastOrderDate"`
	Address       string     `firestore:"address"`
	District      string     `firestore:"district"`
	City          string     `firestore:"city"`
	CreatedAt     time.Time  `firestore:"createdAt"`
	UpdatedAt     time.Time  `firestore:"updatedAt"`
}

// CustomerRepository implements repositories.CustomerRepository backed by Firestore.
type CustomerRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[customerDocument]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[customerDocument](provider, customersCollection, nil)
	return &CustomerRepository{provider: provider, base: base}, nil
}

// FindByID loads the customer by document ID.
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	if strings.TrimSpace(customerID) == "" {
		return domain.Customer{}, errors.New("customer id is required")
	}

	doc, err := r.base.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return toDomainCustomer(doc.ID, doc.Data), nil
}

// FindByPhone returns the first customer matching the phone exactly.
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return domain.Customer{}, errors.New("phone is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("phone", "==", trimmed).Limit(1)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	if len(docs) == 0 {
		return domain.Customer{}, pfirestore.WrapError("customers.findByPhone", status.Error(codes.NotFound, "customer not found"))
	}
	return toDomainCustomer(docs[0].ID, docs[0].Data), nil
}

// CreateIfAbsentByPhone atomically resolves the phone to an existing customer or inserts
// the candidate. The phone lookup and the create share one transaction so concurrent
// first orders from the same phone converge on a single customer document.
func (r *CustomerRepository) CreateIfAbsentByPhone(ctx context.Context, candidate domain.Customer) (domain.Customer, error) {
	if r == nil || r.provider == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	phone := strings.TrimSpace(candidate.Phone)
	if phone == "" {
		return domain.Customer{}, errors.New("candidate phone is required")
	}
	if strings.TrimSpace(candidate.ID) == "" {
		return domain.Customer{}, errors.New("candidate id is required")
	}

	coll, err := r.base.CollectionRef(ctx)
	if err != nil {
		return domain.Customer{}, err
	}

	var resolved domain.Customer
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(coll.Where("phone", "==", phone).Limit(1))
		defer iter.Stop()

		snapshot, err := iter.Next()
		if err == nil {
			var doc customerDocument
			if err := snapshot.DataTo(&doc); err != nil {
				return fmt.Errorf("firestore customers decode %s: %w", snapshot.Ref.ID, err)
			}
			resolved = toDomainCustomer(snapshot.Ref.ID, doc)
			return nil
		}
		if !errors.Is(err, iterator.Done) {
			return err
		}

		ref := coll.Doc(candidate.ID)
		if err := tx.Create(ref, fromDomainCustomer(candidate)); err != nil {
			return err
		}
		resolved = candidate
		return nil
	})
	if err != nil {
		return domain.Customer{}, pfirestore.WrapError("customers.createIfAbsentByPhone", err)
	}
	return resolved, nil
}

// ApplyOrderStats folds an order into the customer aggregates inside one transaction so
// concurrent checkouts cannot drop increments.
func (r *CustomerRepository) ApplyOrderStats(ctx context.Context, customerID string, delta domain.OrderStatsDelta) (domain.Customer, error) {
	if r == nil || r.provider == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	id := strings.TrimSpace(customerID)
	if id == "" {
		return domain.Customer{}, errors.New("customer id is required")
	}

	var updated domain.Customer
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc customerDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore customers decode %s: %w", id, err)
		}

		orderedAt := delta.OrderedAt
		doc.TotalSpent += delta.Total
		doc.OrderCount++
		doc.LastOrderDate = &orderedAt
		doc.Address = delta.Address
		doc.District = delta.District
		doc.City = delta.City
		doc.UpdatedAt = orderedAt

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = toDomainCustomer(id, doc)
		return nil
	})
	if err != nil {
		return domain.Customer{}, pfirestore.WrapError("customers.applyOrderStats", err)
	}
	return updated, nil
}

// List returns a page of customers ordered by the requested sort. Search matches are
// evaluated in memory because Firestore has no substring queries.
func (r *CustomerRepository) List(ctx context.Context, filter repositories.CustomerListFilter) (domain.Page[domain.Customer], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Customer]{}, errors.New("customer repository not initialised")
	}

	page := filter.Page.Normalise(defaultPageLimit, maxPageLimit)
	orderBy := customerOrderBy(filter.Sort)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	if search == "" {
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return orderBy(q).Offset(page.Offset()).Limit(page.Limit)
		})
		if err != nil {
			return domain.Page[domain.Customer]{}, err
		}
		total, err := r.base.Count(ctx, nil)
		if err != nil {
			return domain.Page[domain.Customer]{}, err
		}
		return domain.Page[domain.Customer]{
			Items: toDomainCustomers(docs),
			Page:  page.Page,
			Limit: page.Limit,
			Total: total,
		}, nil
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return orderBy(q)
	})
	if err != nil {
		return domain.Page[domain.Customer]{}, err
	}

	matched := make([]domain.Customer, 0, len(docs))
	for _, doc := range docs {
		customer := toDomainCustomer(doc.ID, doc.Data)
		if customerMatches(customer, search) {
			matched = append(matched, customer)
		}
	}

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return domain.Page[domain.Customer]{
		Items: matched[start:end],
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
	}, nil
}

func customerOrderBy(sortKey repositories.CustomerSort) func(firestore.Query) firestore.Query {
	switch sortKey {
	case repositories.CustomerSortSpentAsc:
		return func(q firestore.Query) firestore.Query { return q.OrderBy("totalSpent", firestore.Asc) }
	case repositories.CustomerSortOrdersDesc:
		return func(q firestore.Query) firestore.Query { return q.OrderBy("orderCount", firestore.Desc) }
	case repositories.CustomerSortNewest:
		return func(q firestore.Query) firestore.Query { return q.OrderBy("createdAt", firestore.Desc) }
	default:
		return func(q firestore.Query) firestore.Query { return q.OrderBy("totalSpent", firestore.Desc) }
	}
}

func customerMatches(customer domain.Customer, search string) bool {
	return strings.Contains(strings.ToLower(customer.Name), search) ||
		strings.Contains(customer.Phone, search) ||
		strings.Contains(strings.ToLower(customer.Email), search)
}

func toDomainCustomers(docs []pfirestore.Document[customerDocument]) []domain.Customer {
	out := make([]domain.Customer, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDomainCustomer(doc.ID, doc.Data))
	}
	return out
}

func toDomainCustomer(id string, doc customerDocument) domain.Customer {
	return domain.Customer{
		ID:            id,
		Name:          doc.Name,
		Phone:         doc.Phone,
		Email:         doc.Email,
		TotalSpent:    doc.TotalSpent,
		OrderCount:    doc.OrderCount,
		LastOrderDate: doc.LastOrderDate,
		Address:       doc.Address,
		District:      doc.District,
		City:          doc.City,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func fromDomainCustomer(customer domain.Customer) customerDocument {
	return customerDocument{
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

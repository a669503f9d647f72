package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/lilyumflora/api/internal/domain"
	pfirestore "github.com/lilyumflora/api/internal/platform/firestore"
	"github.com/lilyumflora/api/internal/repositories"
)

const ordersCollection = "orders"

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type orderDocument struct {
	OrderNumber    string              `firestore:"orderNumber"`
	CustomerID     string              `firestore:"customerId"`
	Status         string              `firestore:"status"`
	Total          int64               `firestore:"total"`
	Items          []orderItemDocument `firestore:"items"`
	Shipping       shippingDocument    `firestore:"shipping"`
	Sender         *senderDocument     `firestore:"sender,omitempty"`
	CardNote       string              `firestore:"cardNote"`
	IsAnonymous    bool                `firestore:"isAnonymous"`
	MediaMessage   string              `firestore:"mediaMessage"`
	TrackingNumber string              `firestore:"trackingNumber"`
	Carrier        string              `firestore:"carrier"`
	CreatedAt      time.Time           `firestore:"createdAt"`
	UpdatedAt      time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
	Image     string `firestore:"image"`
}

type shippingDocument struct {
	Name         string `firestore:"name"`
	Phone        string `firestore:"phone"`
	Address      string `firestore:"address"`
	District     string `firestore:"district"`
	City         string `firestore:"city"`
	DeliveryDate string `firestore:"deliveryDate"`
	DeliveryTime string `firestore:"deliveryTime"`
}

type senderDocument struct {
	Name  string `firestore:"name"`
	Phone string `firestore:"phone"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil)
	return &OrderRepository{provider: provider, base: base}, nil
}

// Insert writes a new order, failing when the ID already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}
	_, err := r.base.Create(ctx, order.ID, fromDomainOrder(order))
	return err
}

// Update overwrites the stored order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}
	_, err := r.base.Set(ctx, order.ID, fromDomainOrder(order))
	return err
}

// FindByID loads the order by document ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// List returns orders newest first, narrowed by the filter.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Order]{}, errors.New("order repository not initialised")
	}

	page := filter.Page.Normalise(defaultPageLimit, maxPageLimit)
	narrow := orderQueryFilter(filter)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return narrow(q).OrderBy("createdAt", firestore.Desc).Offset(page.Offset()).Limit(page.Limit)
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	total, err := r.base.Count(ctx, func(q firestore.Query) firestore.Query {
		return narrow(q)
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainOrder(doc.ID, doc.Data))
	}

	return domain.Page[domain.Order]{
		Items: items,
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
	}, nil
}

func orderQueryFilter(filter repositories.OrderListFilter) func(firestore.Query) firestore.Query {
	return func(q firestore.Query) firestore.Query {
		if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
			q = q.Where("customerId", "==", customerID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if filter.Created.From != nil {
			q = q.Where("createdAt", ">=", *filter.Created.From)
		}
		if filter.Created.To != nil {
			q = q.Where("createdAt", "<=", *filter.Created.To)
		}
		return q
	}
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}

	var sender *domain.Sender
	if doc.Sender != nil {
		sender = &domain.Sender{Name: doc.Sender.Name, Phone: doc.Sender.Phone}
	}

	return domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		CustomerID:  doc.CustomerID,
		Status:      domain.OrderStatus(doc.Status),
		Total:       doc.Total,
		Items:       items,
		Shipping: domain.ShippingAddress{
			Name:         doc.Shipping.Name,
			Phone:        doc.Shipping.Phone,
			Address:      doc.Shipping.Address,
			District:     doc.Shipping.District,
			City:         doc.Shipping.City,
			DeliveryDate: doc.Shipping.DeliveryDate,
			DeliveryTime: doc.Shipping.DeliveryTime,
		},
		Sender:         sender,
		CardNote:       doc.CardNote,
		IsAnonymous:    doc.IsAnonymous,
		MediaMessage:   doc.MediaMessage,
		TrackingNumber: doc.TrackingNumber,
		Carrier:        doc.Carrier,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func fromDomainOrder(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}

	var sender *senderDocument
	if order.Sender != nil {
		sender = &senderDocument{Name: order.Sender.Name, Phone: order.Sender.Phone}
	}

	return orderDocument{
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Total:       order.Total,
		Items:       items,
		Shipping: shippingDocument{
			Name:         order.Shipping.Name,
			Phone:        order.Shipping.Phone,
			Address:      order.Shipping.Address,
			District:     order.Shipping.District,
			City:         order.Shipping.City,
			DeliveryDate: order.Shipping.DeliveryDate,
			DeliveryTime: order.Shipping.DeliveryTime,
		},
		Sender:         sender,
		CardNote:       order.CardNote,
		IsAnonymous:    order.IsAnonymous,
		MediaMessage:   order.MediaMessage,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

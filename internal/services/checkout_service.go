package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"

	orderIDPrefix     = "ord_"
	orderNumberFormat = "ORD-%04d-%06d"
	orderCounterName  = "orders"
)

var (
	// ErrCheckoutInvalidInput signals the checkout payload failed validation.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrGuestCheckoutDisabled indicates the order carries no resolvable identity and
	// guest checkout is disallowed by policy.
	ErrGuestCheckoutDisabled = errors.New("checkout: guest checkout disabled")
	// ErrOrderPersist indicates the order could not be written durably.
	ErrOrderPersist = errors.New("checkout: order persistence failed")
)

// CheckoutPolicy captures intake policy decisions owned by configuration.
type CheckoutPolicy struct {
	AllowGuest       bool
	MaxItemsPerOrder int
}

// CheckoutServiceDeps bundles collaborators required to construct the checkout service.
type CheckoutServiceDeps struct {
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	Customers   CustomerService
	Policy      CheckoutPolicy
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	orders    repositories.OrderRepository
	counters  repositories.CounterRepository
	customers CustomerService
	policy    CheckoutPolicy
	clock     func() time.Time
	newID     func() string
	events    OrderEventPublisher
	logger    func(context.Context, string, map[string]any)
	sanitizer *bluemonday.Policy
}

// NewCheckoutService wires dependencies into a concrete CheckoutService implementation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("checkout service: counter repository is required")
	}
	if deps.Customers == nil {
		return nil, errors.New("checkout service: customer service is required")
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

	return &checkoutService{
		orders:    deps.Orders,
		counters:  deps.Counters,
		customers: deps.Customers,
		policy:    deps.Policy,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		events:    deps.Events,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// CreateOrder runs the intake pipeline: snapshot items, verify the total, resolve the
// purchasing customer, persist the order, then fold it into the customer aggregates.
// The order write comes first; a stats failure after a durable order is logged and
// reconciled out of band rather than compensated.
func (s *checkoutService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	items, err := buildOrderItems(cmd.Items)
	if err != nil {
		return domain.Order{}, err
	}
	if max := s.policy.MaxItemsPerOrder; max > 0 && len(items) > max {
		return domain.Order{}, fmt.Errorf("%w: order exceeds %d items", ErrCheckoutInvalidInput, max)
	}

	total := snapshotTotal(items)
	if cmd.Total > 0 && cmd.Total != total {
		return domain.Order{}, fmt.Errorf("%w: submitted total %d does not match items total %d", ErrCheckoutInvalidInput, cmd.Total, total)
	}

	if strings.TrimSpace(cmd.Shipping.Address) == "" {
		return domain.Order{}, fmt.Errorf("%w: shipping address is required", ErrCheckoutInvalidInput)
	}

	now := s.clock()

	customerID, err := s.resolveCustomer(ctx, cmd)
	if err != nil {
		return domain.Order{}, err
	}

	orderNumber, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", ErrOrderPersist, err)
	}

	order := domain.Order{
		ID:           orderIDPrefix + s.newID(),
		OrderNumber:  orderNumber,
		CustomerID:   customerID,
		Status:       domain.OrderStatusPending,
		Total:        total,
		Items:        items,
		Shipping:     cmd.Shipping,
		Sender:       cloneSender(cmd.Sender),
		CardNote:     s.sanitizer.Sanitize(cmd.CardNote),
		IsAnonymous:  cmd.IsAnonymous,
		MediaMessage: s.sanitizer.Sanitize(cmd.MediaMessage),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", ErrOrderPersist, err)
	}

	if customerID != "" {
		_, err := s.customers.ApplyOrderStats(ctx, customerID, domain.OrderStatsDelta{
			Total:     order.Total,
			OrderedAt: now,
			Address:   order.Shipping.Address,
			District:  order.Shipping.District,
			City:      order.Shipping.City,
		})
		if err != nil {
			// The order is durable; aggregate drift is repaired by reconciliation, not
			// by failing the checkout.
			s.logger(ctx, "checkout.stats.update.failed", map[string]any{
				"order":    order.ID,
				"customer": customerID,
				"error":    err.Error(),
			})
		}
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		CurrentStatus: string(order.Status),
		OccurredAt:    now,
	})

	return order, nil
}

// resolveCustomer derives the purchasing identity. The sender's phone wins over the
// shipping recipient's: the buyer pays, the recipient receives.
func (s *checkoutService) resolveCustomer(ctx context.Context, cmd CreateOrderCommand) (string, error) {
	identity := ResolveIdentityCommand{
		CustomerID: strings.TrimSpace(cmd.CustomerID),
		Email:      strings.TrimSpace(cmd.Email),
	}
	if cmd.Sender != nil && strings.TrimSpace(cmd.Sender.Phone) != "" {
		identity.Name = cmd.Sender.Name
		identity.Phone = cmd.Sender.Phone
	} else {
		identity.Name = cmd.Shipping.Name
		identity.Phone = cmd.Shipping.Phone
	}

	customer, err := s.customers.ResolveIdentity(ctx, identity)
	if err == nil {
		return customer.ID, nil
	}

	if errors.Is(err, ErrIdentityUnresolved) {
		if s.policy.AllowGuest {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrGuestCheckoutDisabled, err)
	}
	return "", err
}

func (s *checkoutService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderCounterName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(orderNumberFormat, now.Year(), seq), nil
}

func (s *checkoutService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

func cloneSender(sender *domain.Sender) *domain.Sender {
	if sender == nil {
		return nil
	}
	clone := *sender
	return &clone
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lilyumflora/api/internal/domain"
	"github.com/lilyumflora/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn func(context.Context, domain.Order) error
	updateFn func(context.Context, domain.Order) error
	findFn   func(context.Context, string) (domain.Order, error)
	listFn   func(context.Context, repositories.OrderListFilter) (domain.Page[domain.Order], error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, name string) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, name)
	}
	return 1, nil
}

type stubCustomerService struct {
	resolveFn    func(context.Context, ResolveIdentityCommand) (domain.Customer, error)
	applyStatsFn func(context.Context, string, domain.OrderStatsDelta) (domain.Customer, error)
}

func (s *stubCustomerService) ResolveIdentity(ctx context.Context, cmd ResolveIdentityCommand) (domain.Customer, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, cmd)
	}
	return domain.Customer{}, errors.New("not implemented")
}

func (s *stubCustomerService) ApplyOrderStats(ctx context.Context, customerID string, delta domain.OrderStatsDelta) (domain.Customer, error) {
	if s.applyStatsFn != nil {
		return s.applyStatsFn(ctx, customerID, delta)
	}
	return domain.Customer{}, nil
}

func (s *stubCustomerService) GetCustomer(context.Context, string) (domain.Customer, error) {
	return domain.Customer{}, errors.New("not implemented")
}

func (s *stubCustomerService) ListCustomers(context.Context, repositories.CustomerListFilter) (domain.Page[domain.Customer], error) {
	return domain.Page[domain.Customer]{}, errors.New("not implemented")
}

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

func checkoutCommand() CreateOrderCommand {
	return CreateOrderCommand{
		Items: []OrderItemInput{
			{ProductID: "prd_rose", Name: "Kırmızı Gül Buketi", Price: 45000, Quantity: 1, Image: "rose.jpg"},
			{ProductID: "prd_lily", Name: "Lilyum Aranjmanı", Price: 10000, Quantity: 2, Image: "lily.jpg"},
		},
		Total: 65000,
		Shipping: domain.ShippingAddress{
			Name:     "Mehmet Kaya",
			Phone:    "+905553334455",
			Address:  "Bağdat Cad. 42",
			District: "Kadıköy",
			City:     "İstanbul",
		},
		Sender:   &domain.Sender{Name: "Ayşe Yılmaz", Phone: "+905551112233"},
		CardNote: "Geçmiş olsun!",
	}
}

func newCheckoutService(t *testing.T, deps CheckoutServiceDeps) CheckoutService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Customers == nil {
		deps.Customers = &stubCustomerService{}
	}
	svc, err := NewCheckoutService(deps)
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}
	return svc
}

func TestCreateOrderPersistsOrderThenStats(t *testing.T) {
	now := time.Date(2024, time.March, 8, 10, 0, 0, 0, time.UTC)

	var inserted domain.Order
	var statsOrder []string
	orders := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = order
			statsOrder = append(statsOrder, "order")
			return nil
		},
	}

	var delta domain.OrderStatsDelta
	customers := &stubCustomerService{
		resolveFn: func(_ context.Context, cmd ResolveIdentityCommand) (domain.Customer, error) {
			if cmd.Phone != "+905551112233" {
				t.Fatalf("expected sender phone to drive identity, got %s", cmd.Phone)
			}
			return domain.Customer{ID: "cus_resolved"}, nil
		},
		applyStatsFn: func(_ context.Context, customerID string, d domain.OrderStatsDelta) (domain.Customer, error) {
			statsOrder = append(statsOrder, "stats")
			if customerID != "cus_resolved" {
				t.Fatalf("unexpected customer id %s", customerID)
			}
			delta = d
			return domain.Customer{ID: customerID}, nil
		},
	}

	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, name string) (int64, error) {
			if name != "orders" {
				t.Fatalf("unexpected counter name %s", name)
			}
			return 42, nil
		},
	}

	publisher := &captureOrderEvents{}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:      orders,
		Counters:    counters,
		Customers:   customers,
		Policy:      CheckoutPolicy{AllowGuest: true},
		Clock:       fixedClock(now),
		IDGenerator: sequenceIDs("01HCHECKOUT"),
		Events:      publisher,
	})

	order, err := svc.CreateOrder(context.Background(), checkoutCommand())
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	if order.ID != "ord_01HCHECKOUT" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.OrderNumber != "ORD-2024-000042" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.Total != 65000 {
		t.Fatalf("unexpected total %d", order.Total)
	}
	if len(inserted.Items) != 2 {
		t.Fatalf("expected 2 item snapshots, got %d", len(inserted.Items))
	}
	if inserted.Items[0].ProductID != "prd_rose" || inserted.Items[0].Price != 45000 {
		t.Fatalf("snapshot fields not preserved: %+v", inserted.Items[0])
	}

	if len(statsOrder) != 2 || statsOrder[0] != "order" || statsOrder[1] != "stats" {
		t.Fatalf("expected order write before stats update, got %v", statsOrder)
	}
	if delta.Total != 65000 || !delta.OrderedAt.Equal(now) {
		t.Fatalf("unexpected stats delta %+v", delta)
	}
	if delta.Address != "Bağdat Cad. 42" || delta.District != "Kadıköy" || delta.City != "İstanbul" {
		t.Fatalf("expected shipping address snapshot in delta, got %+v", delta)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != orderEventCreated || event.OrderID != order.ID || event.CustomerID != "cus_resolved" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestCreateOrderRejectsTotalMismatch(t *testing.T) {
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Customers: &stubCustomerService{
			resolveFn: func(context.Context, ResolveIdentityCommand) (domain.Customer, error) {
				return domain.Customer{ID: "cus_any"}, nil
			},
		},
	})

	cmd := checkoutCommand()
	cmd.Total = 70000

	_, err := svc.CreateOrder(context.Background(), cmd)
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}

func TestCreateOrderRejectsInvalidItems(t *testing.T) {
	svc := newCheckoutService(t, CheckoutServiceDeps{})

	cases := []struct {
		name  string
		items []OrderItemInput
	}{
		{"empty", nil},
		{"zero quantity", []OrderItemInput{{ProductID: "prd_rose", Price: 100, Quantity: 0}}},
		{"negative price", []OrderItemInput{{ProductID: "prd_rose", Price: -1, Quantity: 1}}},
	}

	for _, tc := range cases {
		cmd := checkoutCommand()
		cmd.Items = tc.items
		cmd.Total = 0
		if _, err := svc.CreateOrder(context.Background(), cmd); !errors.Is(err, ErrCheckoutInvalidInput) {
			t.Errorf("%s: expected ErrCheckoutInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestCreateOrderGuestAllowed(t *testing.T) {
	statsCalled := false
	customers := &stubCustomerService{
		resolveFn: func(_ context.Context, cmd ResolveIdentityCommand) (domain.Customer, error) {
			return domain.Customer{}, ErrIdentityUnresolved
		},
		applyStatsFn: func(context.Context, string, domain.OrderStatsDelta) (domain.Customer, error) {
			statsCalled = true
			return domain.Customer{}, nil
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Customers: customers,
		Policy:    CheckoutPolicy{AllowGuest: true},
	})

	cmd := checkoutCommand()
	cmd.Sender = nil
	cmd.Shipping.Phone = ""

	order, err := svc.CreateOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.CustomerID != "" {
		t.Fatalf("expected guest order with empty customer id, got %s", order.CustomerID)
	}
	if statsCalled {
		t.Fatal("expected no stats update for guest orders")
	}
}

func TestCreateOrderGuestDisallowed(t *testing.T) {
	customers := &stubCustomerService{
		resolveFn: func(context.Context, ResolveIdentityCommand) (domain.Customer, error) {
			return domain.Customer{}, ErrIdentityUnresolved
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Customers: customers,
		Policy:    CheckoutPolicy{AllowGuest: false},
	})

	_, err := svc.CreateOrder(context.Background(), checkoutCommand())
	if !errors.Is(err, ErrGuestCheckoutDisabled) {
		t.Fatalf("expected ErrGuestCheckoutDisabled, got %v", err)
	}
}

func TestCreateOrderStatsFailureDoesNotFailCheckout(t *testing.T) {
	var logged []string
	customers := &stubCustomerService{
		resolveFn: func(context.Context, ResolveIdentityCommand) (domain.Customer, error) {
			return domain.Customer{ID: "cus_resolved"}, nil
		},
		applyStatsFn: func(context.Context, string, domain.OrderStatsDelta) (domain.Customer, error) {
			return domain.Customer{}, &stubRepoError{unavailable: true}
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Customers: customers,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})

	order, err := svc.CreateOrder(context.Background(), checkoutCommand())
	if err != nil {
		t.Fatalf("expected checkout to succeed despite stats failure, got %v", err)
	}
	if order.ID == "" {
		t.Fatal("expected persisted order")
	}

	found := false
	for _, event := range logged {
		if event == "checkout.stats.update.failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stats failure log, got %v", logged)
	}
}

func TestCreateOrderPersistFailure(t *testing.T) {
	orders := &stubOrderRepo{
		insertFn: func(context.Context, domain.Order) error {
			return &stubRepoError{unavailable: true}
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders: orders,
		Customers: &stubCustomerService{
			resolveFn: func(context.Context, ResolveIdentityCommand) (domain.Customer, error) {
				return domain.Customer{ID: "cus_resolved"}, nil
			},
		},
	})

	_, err := svc.CreateOrder(context.Background(), checkoutCommand())
	if !errors.Is(err, ErrOrderPersist) {
		t.Fatalf("expected ErrOrderPersist, got %v", err)
	}
}

func TestCreateOrderFallsBackToShippingPhone(t *testing.T) {
	var resolved ResolveIdentityCommand
	customers := &stubCustomerService{
		resolveFn: func(_ context.Context, cmd ResolveIdentityCommand) (domain.Customer, error) {
			resolved = cmd
			return domain.Customer{ID: "cus_recipient"}, nil
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{Customers: customers})

	cmd := checkoutCommand()
	cmd.Sender = nil

	if _, err := svc.CreateOrder(context.Background(), cmd); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if resolved.Phone != "+905553334455" || resolved.Name != "Mehmet Kaya" {
		t.Fatalf("expected shipping contact fallback, got %+v", resolved)
	}
}

func TestCreateOrderSanitisesCardNote(t *testing.T) {
	var inserted domain.Order
	orders := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders: orders,
		Customers: &stubCustomerService{
			resolveFn: func(context.Context, ResolveIdentityCommand) (domain.Customer, error) {
				return domain.Customer{ID: "cus_resolved"}, nil
			},
		},
	})

	cmd := checkoutCommand()
	cmd.CardNote = `İyi ki doğdun <script>alert("x")</script>`

	if _, err := svc.CreateOrder(context.Background(), cmd); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if strings.Contains(inserted.CardNote, "<script>") {
		t.Fatalf("expected card note to be sanitised, got %q", inserted.CardNote)
	}
	if !strings.Contains(inserted.CardNote, "İyi ki doğdun") {
		t.Fatalf("expected text content preserved, got %q", inserted.CardNote)
	}
}

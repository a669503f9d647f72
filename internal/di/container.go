package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lilyumflora/api/internal/platform/config"
	"github.com/lilyumflora/api/internal/platform/observability"
	"github.com/lilyumflora/api/internal/repositories"
	"github.com/lilyumflora/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Checkout  services.CheckoutService
	Orders    services.OrderService
	Customers services.CustomerService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerDeps carries the externally constructed infrastructure the container wires together.
type ContainerDeps struct {
	Registry repositories.Registry
	// Events may be nil, in which case order events are not published.
	Events services.OrderEventPublisher
	Logger *zap.Logger
}

// NewContainer assembles the service layer on top of the provided repository registry.
func NewContainer(cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logFn := eventLogger(logger)

	customerSvc, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers: deps.Registry.Customers(),
		Clock:     time.Now,
		Logger:    logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("build customer service: %w", err)
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:    deps.Registry.Orders(),
		Counters:  deps.Registry.Counters(),
		Customers: customerSvc,
		Policy: services.CheckoutPolicy{
			AllowGuest:       cfg.Checkout.AllowGuest,
			MaxItemsPerOrder: cfg.Checkout.MaxItemsPerOrder,
		},
		Clock:  time.Now,
		Events: deps.Events,
		Logger: logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout service: %w", err)
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: deps.Registry.Orders(),
		Clock:  time.Now,
		Events: deps.Events,
		Logger: logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services: Services{
			Checkout:  checkoutSvc,
			Orders:    orderSvc,
			Customers: customerSvc,
		},
	}, nil
}

// Close releases repository clients and other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// eventLogger adapts a zap logger to the service-layer logging contract,
// preferring the request-scoped logger when one is present on the context.
func eventLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		// FromContext returns a no-op logger outside request scope.
		logger := observability.FromContext(ctx)
		if !logger.Core().Enabled(zapcore.InfoLevel) {
			logger = base
		}

		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}

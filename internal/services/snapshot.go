package services

import (
	"fmt"
	"strings"

	"github.com/lilyumflora/api/internal/domain"
)

// buildOrderItems copies cart lines into immutable order item snapshots. Product fields
// are carried verbatim so later catalog edits never rewrite order history.
func buildOrderItems(lines []OrderItemInput) ([]domain.OrderItem, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrCheckoutInvalidInput)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return nil, fmt.Errorf("%w: item %d product id is required", ErrCheckoutInvalidInput, i)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be positive, got %d", ErrCheckoutInvalidInput, i, line.Quantity)
		}
		if line.Price < 0 {
			return nil, fmt.Errorf("%w: item %d price must not be negative, got %d", ErrCheckoutInvalidInput, i, line.Price)
		}
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Image:     line.Image,
		})
	}
	return items, nil
}

// snapshotTotal sums price x quantity over the snapshots.
func snapshotTotal(items []domain.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

package services

import (
	"errors"
	"testing"
)

func TestBuildOrderItemsPreservesFields(t *testing.T) {
	lines := []OrderItemInput{
		{ProductID: "prd_rose", Name: "Kırmızı Gül Buketi", Price: 45000, Quantity: 1, Image: "rose.jpg"},
		{ProductID: "prd_lily", Name: "Lilyum Aranjmanı", Price: 10000, Quantity: 3, Image: "lily.jpg"},
	}

	items, err := buildOrderItems(lines)
	if err != nil {
		t.Fatalf("buildOrderItems returned error: %v", err)
	}
	if len(items) != len(lines) {
		t.Fatalf("expected %d items, got %d", len(lines), len(items))
	}
	for i, item := range items {
		if item.ProductID != lines[i].ProductID || item.Name != lines[i].Name ||
			item.Price != lines[i].Price || item.Quantity != lines[i].Quantity ||
			item.Image != lines[i].Image {
			t.Fatalf("item %d fields not preserved: %+v", i, item)
		}
	}
}

func TestBuildOrderItemsRejections(t *testing.T) {
	cases := []struct {
		name  string
		lines []OrderItemInput
	}{
		{"empty cart", nil},
		{"missing product id", []OrderItemInput{{Price: 100, Quantity: 1}}},
		{"zero quantity", []OrderItemInput{{ProductID: "prd_rose", Price: 100, Quantity: 0}}},
		{"negative quantity", []OrderItemInput{{ProductID: "prd_rose", Price: 100, Quantity: -2}}},
		{"negative price", []OrderItemInput{{ProductID: "prd_rose", Price: -100, Quantity: 1}}},
	}

	for _, tc := range cases {
		if _, err := buildOrderItems(tc.lines); !errors.Is(err, ErrCheckoutInvalidInput) {
			t.Errorf("%s: expected ErrCheckoutInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestSnapshotTotal(t *testing.T) {
	items, err := buildOrderItems([]OrderItemInput{
		{ProductID: "prd_rose", Price: 45000, Quantity: 1},
		{ProductID: "prd_lily", Price: 10000, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("buildOrderItems returned error: %v", err)
	}
	if got := snapshotTotal(items); got != 65000 {
		t.Fatalf("expected total 65000, got %d", got)
	}
}

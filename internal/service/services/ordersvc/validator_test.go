package ordersvc

import (
	"errors"
	"testing"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

func testRestaurant() catalog.Restaurant {
	return catalog.Restaurant{
		ID:   1,
		Name: "Spice Route",
		Items: []catalog.Item{
			{ID: 101, Name: "Butter Chicken", Price: decimal.NewFromInt(220), AvailableQuantity: 5},
			{ID: 102, Name: "Garlic Naan", Price: decimal.NewFromInt(40), AvailableQuantity: 0},
		},
	}
}

func TestValidateRequest(t *testing.T) {
	valid := order.CreateRequest{
		RestaurantID:    1,
		Items:           []orderitem.Line{{ItemID: 101, Quantity: 1}},
		CustomerName:    "Asha",
		CustomerPhone:   "+1-555-0100",
		DeliveryAddress: "7 Elm St",
	}

	tests := []struct {
		name    string
		mutate  func(r *order.CreateRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(*order.CreateRequest) {}},
		{name: "no items", mutate: func(r *order.CreateRequest) { r.Items = nil }, wantErr: true},
		{name: "blank name", mutate: func(r *order.CreateRequest) { r.CustomerName = "" }, wantErr: true},
		{name: "blank phone", mutate: func(r *order.CreateRequest) { r.CustomerPhone = " " }, wantErr: true},
		{name: "blank address", mutate: func(r *order.CreateRequest) { r.DeliveryAddress = "\t" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := validateRequest(req)
			if tt.wantErr && !errors.Is(err, order.ErrInvalidInput) {
				t.Fatalf("want ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name    string
		lines   []orderitem.Line
		wantErr error
		wantLen int
	}{
		{
			name:    "within stock",
			lines:   []orderitem.Line{{ItemID: 101, Quantity: 5}},
			wantLen: 1,
		},
		{
			name:    "same item twice within stock",
			lines:   []orderitem.Line{{ItemID: 101, Quantity: 2}, {ItemID: 101, Quantity: 3}},
			wantLen: 2,
		},
		{
			name:    "same item twice above stock",
			lines:   []orderitem.Line{{ItemID: 101, Quantity: 3}, {ItemID: 101, Quantity: 3}},
			wantErr: catalog.ErrInsufficientStock,
		},
		{
			name:    "sold out item",
			lines:   []orderitem.Line{{ItemID: 102, Quantity: 1}},
			wantErr: catalog.ErrInsufficientStock,
		},
		{
			name:    "zero quantity",
			lines:   []orderitem.Line{{ItemID: 101, Quantity: 0}},
			wantErr: order.ErrInvalidQuantity,
		},
		{
			name:    "item of another menu",
			lines:   []orderitem.Line{{ItemID: 201, Quantity: 1}},
			wantErr: catalog.ErrItemNotFound,
		},
		{
			name:    "first failing line wins",
			lines:   []orderitem.Line{{ItemID: 101, Quantity: -2}, {ItemID: 999, Quantity: 1}},
			wantErr: order.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateLines(testRestaurant(), tt.lines)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}

				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("want %d lines, got %d", tt.wantLen, len(got))
			}
		})
	}
}

package order

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "preparing", "out_for_delivery", "delivered", "cancelled"} {
		got, err := ParseStatus(s)
		if err != nil {
			t.Fatalf("ParseStatus(%q): unexpected error %v", s, err)
		}
		if got.String() != s {
			t.Fatalf("ParseStatus(%q) = %q", s, got)
		}
	}

	for _, s := range []string{"", "PENDING", "shipped"} {
		if _, err := ParseStatus(s); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("ParseStatus(%q): expected ErrInvalidStatus, got %v", s, err)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPreparing, true},
		{StatusConfirmed, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusOutForDelivery, StatusCancelled, true},
		{StatusPreparing, StatusPreparing, true},
		{StatusConfirmed, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, Status("shipped"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" -> "+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

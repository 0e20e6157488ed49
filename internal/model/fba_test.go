package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFBAStatusDerivation(t *testing.T) {
	now := time.Now()
	weight := 1200
	qty := 30

	cases := []struct {
		name  string
		order FBAOrder
		want  FBAStatus
	}{
		{"untouched", FBAOrder{}, FBANotProcessed},
		{"printed", FBAOrder{Printed: true}, FBAPrinted},
		{"details complete", FBAOrder{Printed: true, BoxWeight: &weight, QuantitySent: &qty}, FBAAwaitingBooking},
		{"closed", FBAOrder{BoxWeight: &weight, QuantitySent: &qty, ClosedAt: &now}, FBAFulfilled},
		{"hold beats everything", FBAOrder{OnHold: true, ClosedAt: &now, Printed: true}, FBAOnHold},
		{"partial details stay printed", FBAOrder{Printed: true, BoxWeight: &weight}, FBAPrinted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.order.Status())
		})
	}
}

func TestStatusBucketOrdering(t *testing.T) {
	assert.Equal(t, 0, StatusBucket(FBAAwaitingBooking))
	assert.Equal(t, 1, StatusBucket(FBAPrinted))
	assert.Equal(t, 2, StatusBucket(FBANotProcessed))
	assert.Equal(t, 3, StatusBucket(FBAOnHold))
	assert.Equal(t, 3, StatusBucket(FBAFulfilled))
}

package activity

import (
	"testing"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEventID(t *testing.T) {
	tests := []struct {
		name string
		cat  domain.Category
		rec  string
		disc string
		want string
	}{
		{"with status", domain.CategoryBooking, "b1", "pending", "booking_b1_pending"},
		{"status is lowercased", domain.CategoryListing, "l1", "Active", "listing_l1_active"},
		{"empty discriminator", domain.CategoryReview, "r1", "", "review_r1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EventID(tc.cat, tc.rec, tc.disc))
		})
	}
}

func TestEventID_DistinctPerState(t *testing.T) {
	pending := EventID(domain.CategoryListing, "l1", "pending")
	active := EventID(domain.CategoryListing, "l1", "active")
	assert.NotEqual(t, pending, active)
	assert.Equal(t, pending, EventID(domain.CategoryListing, "l1", "pending"))
}

func TestEventID_CategoryScopesRecord(t *testing.T) {
	assert.NotEqual(t,
		EventID(domain.CategoryPayment, "x1", "failed"),
		EventID(domain.CategoryRefund, "x1", "failed"))
}

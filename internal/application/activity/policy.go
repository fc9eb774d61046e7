package activity

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"gopkg.in/yaml.v3"
)

// TimestampMode selects which row time an event is placed at.
type TimestampMode string

const (
	// TimestampCreated always uses the creation time.
	TimestampCreated TimestampMode = "created"
	// TimestampUpdated uses the update time when present.
	TimestampUpdated TimestampMode = "updated"
	// TimestampTransition uses the update time once the record has left its
	// neutral status and was touched after creation.
	TimestampTransition TimestampMode = "transition"
)

// CategoryPolicy is the per-category normalization policy.
type CategoryPolicy struct {
	Timestamp     TimestampMode `yaml:"timestamp"`
	NeutralStatus string        `yaml:"neutral_status"`
	// InitialStatuses are statuses a record can be created in besides the
	// neutral one. A record found in one of them yields a single event at its
	// creation time and no neutral-status origin event.
	InitialStatuses []string `yaml:"initial_statuses"`
	// Limit overrides the per-source row cap when > 0.
	Limit int `yaml:"limit"`
}

// Policy maps each category to its policy.
type Policy map[domain.Category]CategoryPolicy

// DefaultPolicy returns the built-in policy table.
func DefaultPolicy() Policy {
	return Policy{
		domain.CategoryRegistration:        {Timestamp: TimestampCreated},
		domain.CategoryBooking:             {Timestamp: TimestampTransition, NeutralStatus: "pending"},
		domain.CategoryListing:             {Timestamp: TimestampTransition, NeutralStatus: "pending"},
		domain.CategoryReview:              {Timestamp: TimestampCreated},
		domain.CategoryPayment:             {Timestamp: TimestampCreated},
		domain.CategorySupportTicket:       {Timestamp: TimestampTransition, NeutralStatus: "open"},
		domain.CategoryBookingModification: {Timestamp: TimestampTransition, NeutralStatus: "pending"},
		domain.CategoryConversation:        {Timestamp: TimestampUpdated},
		domain.CategoryFavorite:            {Timestamp: TimestampCreated},
		domain.CategoryAnnouncement:        {Timestamp: TimestampCreated},
		domain.CategoryModeration:          {Timestamp: TimestampCreated},
		domain.CategoryUserStatusChange:    {Timestamp: TimestampCreated},
		domain.CategoryPayoutRequest:       {Timestamp: TimestampTransition, NeutralStatus: "pending"},
		domain.CategoryRefund:              {Timestamp: TimestampTransition, NeutralStatus: "pending"},
		domain.CategoryNotification:        {Timestamp: TimestampCreated},
	}
}

type policyFile struct {
	Categories map[domain.Category]CategoryPolicy `yaml:"categories"`
}

// LoadPolicy returns the default policy with overrides from the YAML file at
// path applied. An empty path yields the defaults.
//
//	categories:
//	  payment:
//	    timestamp: transition
//	    neutral_status: pending
//	    limit: 50
//	  booking:
//	    initial_statuses: [confirmed]
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var f policyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for cat, override := range f.Categories {
		if _, ok := p[cat]; !ok {
			return nil, fmt.Errorf("policy file: unknown category %q", cat)
		}
		merged := p[cat]
		switch override.Timestamp {
		case "":
		case TimestampCreated, TimestampUpdated, TimestampTransition:
			merged.Timestamp = override.Timestamp
		default:
			return nil, fmt.Errorf("policy file: category %q: unknown timestamp mode %q", cat, override.Timestamp)
		}
		if override.NeutralStatus != "" {
			merged.NeutralStatus = override.NeutralStatus
		}
		if override.Limit > 0 {
			merged.Limit = override.Limit
		}
		if len(override.InitialStatuses) > 0 {
			merged.InitialStatuses = override.InitialStatuses
		}
		p[cat] = merged
	}
	return p, nil
}

// For returns the policy for c, defaulting to creation-time placement.
func (p Policy) For(c domain.Category) CategoryPolicy {
	if cp, ok := p[c]; ok {
		if cp.Timestamp == "" {
			cp.Timestamp = TimestampCreated
		}
		return cp
	}
	return CategoryPolicy{Timestamp: TimestampCreated}
}

// Limit returns the row cap for c given the global default.
func (p Policy) Limit(c domain.Category, fallback int) int {
	if l := p.For(c).Limit; l > 0 {
		return l
	}
	return fallback
}

// Transitioned reports whether a record of category c has moved away from its
// neutral status after creation.
func (p Policy) Transitioned(c domain.Category, status string, created, updated *time.Time) bool {
	cp := p.For(c)
	if cp.Timestamp != TimestampTransition {
		return false
	}
	if isZero(created) || isZero(updated) {
		return false
	}
	if strings.EqualFold(status, cp.NeutralStatus) || cp.createdIn(status) {
		return false
	}
	return !updated.Equal(*created)
}

// Timestamp selects the effective time of the record's current state. It
// reports false when the row has no usable time at all.
func (p Policy) Timestamp(c domain.Category, status string, created, updated *time.Time) (time.Time, bool) {
	switch p.For(c).Timestamp {
	case TimestampUpdated:
		if !isZero(updated) {
			return *updated, true
		}
	case TimestampTransition:
		if p.Transitioned(c, status, created, updated) {
			return *updated, true
		}
	}
	if !isZero(created) {
		return *created, true
	}
	if !isZero(updated) {
		return *updated, true
	}
	return time.Time{}, false
}

func (cp CategoryPolicy) createdIn(status string) bool {
	for _, s := range cp.InitialStatuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

func isZero(t *time.Time) bool {
	return t == nil || t.IsZero()
}

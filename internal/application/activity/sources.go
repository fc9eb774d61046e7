package activity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/metrics"
)

// DefaultSourceLimit caps the rows each connector reads per pass.
const DefaultSourceLimit = 100

// Querier runs read-only queries against the relational backend. A missing
// or unreadable source must surface as an error wrapping
// domain.ErrSourceUnavailable.
type Querier interface {
	Query(ctx context.Context, q domain.Query, dest any) error
}

// Connector fetches and normalizes one category of events. Collect never
// fails: any error is logged and the source contributes no events.
type Connector interface {
	Name() string
	// Tables lists the change-feed tables whose writes affect this source.
	Tables() []string
	Collect(ctx context.Context, limit int, filter domain.SourceFilter) []domain.ActivityEvent
}

// SourceOptions configures the connectors built by Sources.
type SourceOptions struct {
	Querier    Querier
	Normalizer *Normalizer
	// Timeout bounds a single connector fetch. Zero means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type fetchFunc[R any] func(ctx context.Context, limit int, filter domain.SourceFilter) ([]R, error)

type source[R any] struct {
	name      string
	category  domain.Category
	tables    []string
	fetch     fetchFunc[R]
	normalize func(R) []domain.ActivityEvent
	policy    Policy
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func (s *source[R]) Name() string     { return s.name }
func (s *source[R]) Tables() []string { return s.tables }

func (s *source[R]) Collect(ctx context.Context, limit int, filter domain.SourceFilter) (events []domain.ActivityEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("activity_source_panic", "source", s.name, "panic", r)
			s.metrics.SourceFailed(s.name, "panic")
			events = nil
		}
	}()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rows, err := s.fetch(ctx, s.policy.Limit(s.category, limit), filter)
	if err != nil {
		reason := failureReason(err)
		s.logger.Warn("activity_source_fetch_failed", "source", s.name, "reason", reason, "error", err)
		s.metrics.SourceFailed(s.name, reason)
		return nil
	}
	for _, row := range rows {
		events = append(events, s.normalize(row)...)
	}
	s.metrics.SourceFetched(s.name, len(rows))
	return events
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// tableSource wires a relational query and a normalizer into a connector.
func tableSource[R any](opts SourceOptions, cat domain.Category, table string, build func(limit int, f domain.SourceFilter) domain.Query, normalize func(R) []domain.ActivityEvent) Connector {
	return &source[R]{
		name:     table,
		category: cat,
		tables:   []string{table},
		fetch: func(ctx context.Context, limit int, f domain.SourceFilter) ([]R, error) {
			var rows []R
			if err := opts.Querier.Query(ctx, build(limit, f), &rows); err != nil {
				return nil, err
			}
			return rows, nil
		},
		normalize: normalize,
		policy:    opts.Normalizer.Policy(),
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

const actorName = "NULLIF(TRIM(CONCAT_WS(' ', p.first_name, p.last_name)), '') AS actor_name"

func sinceCondition(expr string, f domain.SourceFilter) []domain.Condition {
	if f.Since.IsZero() {
		return nil
	}
	return []domain.Condition{{Expr: expr + " >= ?", Args: []any{f.Since}}}
}

// Sources returns one connector per marketplace event category.
func Sources(opts SourceOptions) []Connector {
	if opts.Normalizer == nil {
		opts.Normalizer = NewNormalizer(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	n := opts.Normalizer
	return []Connector{
		tableSource(opts, domain.CategoryRegistration, "profiles", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "profiles", Alias: "p",
				Columns: []string{"p.id", "COALESCE(p.role, '') AS role", "COALESCE(p.status, '') AS status", "p.email", actorName, "p.created_at", "p.updated_at"},
				Where:   sinceCondition("p.created_at", f),
				OrderBy: "p.created_at",
				Limit:   limit,
			}
		}, n.Registration),

		tableSource(opts, domain.CategoryBooking, "bookings", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(b.updated_at, b.created_at)"
			return domain.Query{
				Source: "bookings", Alias: "b",
				Columns: []string{"b.id", "COALESCE(b.status, '') AS status", "COALESCE(b.total_amount, 0) AS total_amount",
					"COALESCE(b.currency, '') AS currency", "l.title AS listing_title", actorName, "b.created_at", "b.updated_at"},
				Joins: []string{
					"LEFT JOIN listings l ON l.id = b.listing_id",
					"LEFT JOIN profiles p ON p.id = b.seeker_id",
				},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.Booking),

		tableSource(opts, domain.CategoryListing, "listings", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(l.updated_at, l.created_at)"
			return domain.Query{
				Source: "listings", Alias: "l",
				Columns: []string{"l.id", "l.title", "COALESCE(l.status, '') AS status", actorName, "l.created_at", "l.updated_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = l.partner_id"},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.Listing),

		tableSource(opts, domain.CategoryReview, "reviews", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "reviews", Alias: "r",
				Columns: []string{"r.id", "COALESCE(r.rating, 0) AS rating", "r.comment", "l.title AS listing_title", actorName, "r.created_at"},
				Joins: []string{
					"LEFT JOIN listings l ON l.id = r.listing_id",
					"LEFT JOIN profiles p ON p.id = r.reviewer_id",
				},
				Where:   sinceCondition("r.created_at", f),
				OrderBy: "r.created_at",
				Limit:   limit,
			}
		}, n.Review),

		tableSource(opts, domain.CategoryPayment, "payments", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "payments", Alias: "pay",
				Columns: []string{"pay.id", "COALESCE(pay.status, '') AS status", "COALESCE(pay.amount, 0) AS amount",
					"COALESCE(pay.currency, '') AS currency", actorName, "pay.created_at", "pay.updated_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = pay.payer_id"},
				Where:   sinceCondition("pay.created_at", f),
				OrderBy: "pay.created_at",
				Limit:   limit,
			}
		}, n.Payment),

		tableSource(opts, domain.CategorySupportTicket, "support_tickets", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(t.updated_at, t.created_at)"
			return domain.Query{
				Source: "support_tickets", Alias: "t",
				Columns: []string{"t.id", "t.subject", "COALESCE(t.status, '') AS status", "COALESCE(t.priority, '') AS priority",
					actorName, "t.created_at", "t.updated_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = t.requester_id"},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.SupportTicket),

		tableSource(opts, domain.CategoryBookingModification, "booking_modifications", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(m.updated_at, m.created_at)"
			return domain.Query{
				Source: "booking_modifications", Alias: "m",
				Columns: []string{"m.id", "COALESCE(m.modification_type, '') AS modification_type", "COALESCE(m.status, '') AS status",
					"m.reason", "l.title AS listing_title", actorName, "m.created_at", "m.updated_at"},
				Joins: []string{
					"LEFT JOIN bookings b ON b.id = m.booking_id",
					"LEFT JOIN listings l ON l.id = b.listing_id",
					"LEFT JOIN profiles p ON p.id = m.requested_by",
				},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.BookingModification),

		tableSource(opts, domain.CategoryConversation, "conversations", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(c.updated_at, c.created_at)"
			return domain.Query{
				Source: "conversations", Alias: "c",
				Columns: []string{"c.id", "c.subject", "c.last_message", actorName, "c.created_at", "c.updated_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = c.last_sender_id"},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.Conversation),

		tableSource(opts, domain.CategoryFavorite, "favorites", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "favorites", Alias: "fav",
				Columns: []string{"fav.id", "l.title AS listing_title", actorName, "fav.created_at"},
				Joins: []string{
					"LEFT JOIN listings l ON l.id = fav.listing_id",
					"LEFT JOIN profiles p ON p.id = fav.user_id",
				},
				Where:   sinceCondition("fav.created_at", f),
				OrderBy: "fav.created_at",
				Limit:   limit,
			}
		}, n.Favorite),

		tableSource(opts, domain.CategoryAnnouncement, "announcements", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "announcements", Alias: "a",
				Columns: []string{"a.id", "a.title", "COALESCE(a.status, '') AS status", "a.audience", actorName, "a.created_at", "a.updated_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = a.author_id"},
				Where:   sinceCondition("a.created_at", f),
				OrderBy: "a.created_at",
				Limit:   limit,
			}
		}, n.Announcement),

		tableSource(opts, domain.CategoryModeration, "moderation_actions", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "moderation_actions", Alias: "ma",
				Columns: []string{"ma.id", "COALESCE(ma.action, '') AS action", "COALESCE(ma.target_type, '') AS target_type",
					"ma.target_label", "ma.reason", actorName, "ma.created_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = ma.moderator_id"},
				Where:   sinceCondition("ma.created_at", f),
				OrderBy: "ma.created_at",
				Limit:   limit,
			}
		}, n.Moderation),

		tableSource(opts, domain.CategoryUserStatusChange, "user_status_changes", func(limit int, f domain.SourceFilter) domain.Query {
			return domain.Query{
				Source: "user_status_changes", Alias: "usc",
				Columns: []string{"usc.id", "usc.old_status", "COALESCE(usc.new_status, '') AS new_status", "usc.reason", actorName, "usc.created_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = usc.user_id"},
				Where:   sinceCondition("usc.created_at", f),
				OrderBy: "usc.created_at",
				Limit:   limit,
			}
		}, n.UserStatusChange),

		tableSource(opts, domain.CategoryPayoutRequest, "payout_requests", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(pr.updated_at, pr.created_at)"
			return domain.Query{
				Source: "payout_requests", Alias: "pr",
				Columns: []string{"pr.id", "COALESCE(pr.status, '') AS status", "COALESCE(pr.amount, 0) AS amount",
					"COALESCE(pr.currency, '') AS currency", actorName, "pr.created_at", "pr.updated_at"},
				Joins:   []string{"LEFT JOIN profiles p ON p.id = pr.partner_id"},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.PayoutRequest),

		tableSource(opts, domain.CategoryRefund, "refunds", func(limit int, f domain.SourceFilter) domain.Query {
			recency := "COALESCE(rf.updated_at, rf.created_at)"
			return domain.Query{
				Source: "refunds", Alias: "rf",
				Columns: []string{"rf.id", "COALESCE(rf.status, '') AS status", "COALESCE(rf.amount, 0) AS amount",
					"COALESCE(rf.currency, '') AS currency", "rf.reason", "l.title AS listing_title", actorName, "rf.created_at", "rf.updated_at"},
				Joins: []string{
					"LEFT JOIN bookings b ON b.id = rf.booking_id",
					"LEFT JOIN listings l ON l.id = b.listing_id",
					"LEFT JOIN profiles p ON p.id = rf.requested_by",
				},
				Where:   sinceCondition(recency, f),
				OrderBy: recency,
				Limit:   limit,
			}
		}, n.Refund),
	}
}

// NotificationLister reads a viewer's stored admin notification rows, newest first.
type NotificationLister interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}

// NotificationSource returns the connector for the viewer's stored admin
// notifications. Without a viewer in the filter it contributes nothing.
func NotificationSource(lister NotificationLister, opts SourceOptions) Connector {
	if opts.Normalizer == nil {
		opts.Normalizer = NewNormalizer(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &source[domain.Notification]{
		name:     "admin_notifications",
		category: domain.CategoryNotification,
		fetch: func(ctx context.Context, limit int, f domain.SourceFilter) ([]domain.Notification, error) {
			if f.ViewerID == "" {
				return nil, nil
			}
			rows, err := lister.ListRecent(ctx, f.ViewerID, limit)
			if err != nil {
				return nil, err
			}
			if f.Since.IsZero() {
				return rows, nil
			}
			kept := rows[:0:0]
			for _, r := range rows {
				if !r.CreatedAt.Before(f.Since) {
					kept = append(kept, r)
				}
			}
			return kept, nil
		},
		normalize: opts.Normalizer.Notification,
		policy:    opts.Normalizer.Policy(),
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

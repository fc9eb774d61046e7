package activity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
)

const (
	unknownUser    = "Unknown User"
	unknownPartner = "Unknown Partner"
	unknownListing = "Unknown Listing"

	previewLength = 80
)

// Normalizer turns raw source rows into canonical events. All methods are
// pure: the same row always yields the same events.
type Normalizer struct {
	policy Policy
}

func NewNormalizer(policy Policy) *Normalizer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Normalizer{policy: policy}
}

// Policy returns the policy table the normalizer applies.
func (n *Normalizer) Policy() Policy { return n.policy }

type rendering struct {
	title       string
	description string
	priority    domain.Priority
}

// renderFunc renders a record in the given status. initial is true for the
// event placed at the record's creation time.
type renderFunc func(status string, initial bool) rendering

// emit builds the events for one row. A record that moved on from its
// neutral creation state yields two events: the creation one and the current
// one. A status listed as an initial status never gets the origin event.
// Rows without any timestamp yield nothing.
func (n *Normalizer) emit(cat domain.Category, recordID, status string, created, updated *time.Time, ref any, render renderFunc) []domain.ActivityEvent {
	cp := n.policy.For(cat)
	switch cp.Timestamp {
	case TimestampTransition:
		if n.policy.Transitioned(cat, status, created, updated) {
			origin := cp.NeutralStatus
			return []domain.ActivityEvent{
				newEvent(cat, EventID(cat, recordID, origin), *created, ref, render(origin, true)),
				newEvent(cat, EventID(cat, recordID, status), *updated, ref, render(status, false)),
			}
		}
	case TimestampUpdated:
		if !isZero(created) && !isZero(updated) && updated.After(*created) {
			touched := joinDiscriminator(status, fmt.Sprintf("%d", updated.Unix()))
			return []domain.ActivityEvent{
				newEvent(cat, EventID(cat, recordID, status), *created, ref, render(status, true)),
				newEvent(cat, EventID(cat, recordID, touched), *updated, ref, render(status, false)),
			}
		}
	}
	ts, ok := n.policy.Timestamp(cat, status, created, updated)
	if !ok {
		return nil
	}
	initial := !isZero(created) && ts.Equal(*created)
	return []domain.ActivityEvent{newEvent(cat, EventID(cat, recordID, status), ts, ref, render(status, initial))}
}

func newEvent(cat domain.Category, id string, ts time.Time, ref any, r rendering) domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:          id,
		Category:    cat,
		Title:       r.title,
		Description: r.description,
		Timestamp:   ts.UTC(),
		Priority:    r.priority,
		SourceRef:   ref,
	}
}

func (n *Normalizer) Registration(r RegistrationRow) []domain.ActivityEvent {
	role := strings.ToLower(strings.TrimSpace(r.Role))
	partner := role == "partner" || role == "host"
	name := orDefault(r.ActorName, unknownUser)
	if partner {
		name = orDefault(r.ActorName, unknownPartner)
	}
	if role == "" {
		role = "user"
	}
	return n.emit(domain.CategoryRegistration, r.ID.String(), "", r.CreatedAt, r.UpdatedAt, r, func(string, bool) rendering {
		out := rendering{title: "New user registered", priority: domain.PriorityNormal}
		if partner {
			out.title = "New partner registered"
			if strings.EqualFold(r.Status, "pending") {
				out.priority = domain.PriorityMedium
			}
		}
		out.description = fmt.Sprintf("%s joined as a %s", name, role)
		if r.Email != nil && *r.Email != "" {
			out.description += fmt.Sprintf(" (%s)", *r.Email)
		}
		return out
	})
}

func (n *Normalizer) Booking(r BookingRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	listing := orDefault(r.ListingTitle, unknownListing)
	amount := formatAmount(r.TotalAmount, r.Currency)
	return n.emit(domain.CategoryBooking, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "pending":
			return rendering{"New booking request", fmt.Sprintf("%s requested to book %s (%s)", actor, listing, amount), domain.PriorityMedium}
		case "confirmed", "accepted", "approved":
			return rendering{"Booking confirmed", fmt.Sprintf("%s's booking for %s was confirmed (%s)", actor, listing, amount), domain.PriorityNormal}
		case "cancelled", "canceled":
			return rendering{"Booking cancelled", fmt.Sprintf("%s's booking for %s was cancelled", actor, listing), domain.PriorityHigh}
		case "rejected", "declined":
			return rendering{"Booking declined", fmt.Sprintf("%s's booking for %s was declined", actor, listing), domain.PriorityHigh}
		case "completed":
			return rendering{"Booking completed", fmt.Sprintf("%s completed a stay at %s", actor, listing), domain.PriorityLow}
		default:
			return rendering{"Booking " + humanize(status), fmt.Sprintf("%s's booking for %s is now %s", actor, listing, humanize(status)), domain.PriorityNormal}
		}
	})
}

func (n *Normalizer) Listing(r ListingRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownPartner)
	title := orDefault(r.Title, unknownListing)
	return n.emit(domain.CategoryListing, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "pending":
			return rendering{"New listing pending approval", fmt.Sprintf("%s submitted %s for review", actor, title), domain.PriorityHigh}
		case "active", "approved", "published":
			return rendering{"Listing approved", fmt.Sprintf("%s by %s is now live", title, actor), domain.PriorityNormal}
		case "rejected":
			return rendering{"Listing rejected", fmt.Sprintf("%s by %s was rejected", title, actor), domain.PriorityHigh}
		case "suspended":
			return rendering{"Listing suspended", fmt.Sprintf("%s by %s was suspended", title, actor), domain.PriorityHigh}
		case "inactive", "archived":
			return rendering{"Listing deactivated", fmt.Sprintf("%s by %s is no longer listed", title, actor), domain.PriorityLow}
		default:
			return rendering{"Listing " + humanize(status), fmt.Sprintf("%s by %s is now %s", title, actor, humanize(status)), domain.PriorityNormal}
		}
	})
}

func (n *Normalizer) Review(r ReviewRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	listing := orDefault(r.ListingTitle, unknownListing)
	return n.emit(domain.CategoryReview, r.ID.String(), "", r.CreatedAt, nil, r, func(string, bool) rendering {
		out := rendering{title: fmt.Sprintf("New %d-star review", r.Rating)}
		switch {
		case r.Rating <= 2:
			out.priority = domain.PriorityHigh
		case r.Rating == 3:
			out.priority = domain.PriorityNormal
		default:
			out.priority = domain.PriorityLow
		}
		if comment := orDefault(r.Comment, ""); comment != "" {
			out.description = fmt.Sprintf("%s reviewed %s: %q", actor, listing, truncate(comment, previewLength))
		} else {
			out.description = fmt.Sprintf("%s rated %s %d/5", actor, listing, r.Rating)
		}
		return out
	})
}

func (n *Normalizer) Payment(r PaymentRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	amount := formatAmount(r.Amount, r.Currency)
	return n.emit(domain.CategoryPayment, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "succeeded", "paid", "completed":
			return rendering{"Payment received", fmt.Sprintf("%s paid %s", actor, amount), domain.PriorityNormal}
		case "failed":
			return rendering{"Payment failed", fmt.Sprintf("Payment of %s from %s failed", amount, actor), domain.PriorityHigh}
		case "pending", "processing":
			return rendering{"Payment pending", fmt.Sprintf("Payment of %s from %s is processing", amount, actor), domain.PriorityLow}
		case "refunded":
			return rendering{"Payment refunded", fmt.Sprintf("Payment of %s from %s was refunded", amount, actor), domain.PriorityMedium}
		default:
			return rendering{"Payment " + humanize(status), fmt.Sprintf("Payment of %s from %s is %s", amount, actor, humanize(status)), domain.PriorityNormal}
		}
	})
}

func (n *Normalizer) SupportTicket(r SupportTicketRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	subject := orDefault(r.Subject, "(no subject)")
	ticketPriority := normalizeStatus(r.Priority)
	return n.emit(domain.CategorySupportTicket, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		var out rendering
		switch normalizeStatus(status) {
		case "open", "new":
			out = rendering{"New support ticket", fmt.Sprintf("%s: %s", actor, subject), domain.PriorityMedium}
		case "in_progress":
			out = rendering{"Support ticket in progress", fmt.Sprintf("Ticket %q from %s is being handled", subject, actor), domain.PriorityNormal}
		case "resolved":
			out = rendering{"Support ticket resolved", fmt.Sprintf("Ticket %q from %s was resolved", subject, actor), domain.PriorityLow}
		case "closed":
			out = rendering{"Support ticket closed", fmt.Sprintf("Ticket %q from %s was closed", subject, actor), domain.PriorityLow}
		default:
			out = rendering{"Support ticket " + humanize(status), fmt.Sprintf("Ticket %q from %s is %s", subject, actor, humanize(status)), domain.PriorityNormal}
		}
		switch ticketPriority {
		case "urgent":
			out.priority = domain.PriorityUrgent
		case "high":
			if !out.priority.AtLeast(domain.PriorityHigh) {
				out.priority = domain.PriorityHigh
			}
		}
		return out
	})
}

func (n *Normalizer) BookingModification(r BookingModificationRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	listing := orDefault(r.ListingTitle, unknownListing)
	kind := humanize(r.ModificationType)
	if kind == "" {
		kind = "change"
	}
	cancellation := normalizeStatus(r.ModificationType) == "cancellation"
	reason := orDefault(r.Reason, "")
	return n.emit(domain.CategoryBookingModification, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "pending":
			out := rendering{"Booking modification requested", fmt.Sprintf("%s requested a %s for %s", actor, kind, listing), domain.PriorityMedium}
			if cancellation {
				out.priority = domain.PriorityHigh
			}
			if reason != "" {
				out.description += ": " + truncate(reason, previewLength)
			}
			return out
		case "approved", "accepted":
			return rendering{"Booking modification approved", fmt.Sprintf("%s for %s by %s was approved", capitalize(kind), listing, actor), domain.PriorityNormal}
		case "rejected", "declined":
			return rendering{"Booking modification rejected", fmt.Sprintf("%s for %s by %s was rejected", capitalize(kind), listing, actor), domain.PriorityNormal}
		default:
			return rendering{"Booking modification " + humanize(status), fmt.Sprintf("%s for %s by %s is %s", capitalize(kind), listing, actor, humanize(status)), domain.PriorityNormal}
		}
	})
}

func (n *Normalizer) Conversation(r ConversationRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	subject := orDefault(r.Subject, "a conversation")
	preview := truncate(orDefault(r.LastMessage, ""), previewLength)
	return n.emit(domain.CategoryConversation, r.ID.String(), "", r.CreatedAt, r.UpdatedAt, r, func(_ string, initial bool) rendering {
		if initial {
			return rendering{"New conversation", fmt.Sprintf("%s started %s", actor, subject), domain.PriorityNormal}
		}
		if preview == "" {
			return rendering{"New message", fmt.Sprintf("%s replied in %s", actor, subject), domain.PriorityNormal}
		}
		return rendering{"New message", fmt.Sprintf("%s: %s", actor, preview), domain.PriorityNormal}
	})
}

func (n *Normalizer) Favorite(r FavoriteRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	listing := orDefault(r.ListingTitle, unknownListing)
	return n.emit(domain.CategoryFavorite, r.ID.String(), "", r.CreatedAt, nil, r, func(string, bool) rendering {
		return rendering{"Listing favorited", fmt.Sprintf("%s saved %s", actor, listing), domain.PriorityLow}
	})
}

func (n *Normalizer) Announcement(r AnnouncementRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	title := orDefault(r.Title, "Untitled announcement")
	audience := orDefault(r.Audience, "all users")
	return n.emit(domain.CategoryAnnouncement, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "published", "sent":
			return rendering{"Announcement published", fmt.Sprintf("%s published %q to %s", actor, title, audience), domain.PriorityNormal}
		case "scheduled":
			return rendering{"Announcement scheduled", fmt.Sprintf("%s scheduled %q for %s", actor, title, audience), domain.PriorityLow}
		case "draft":
			return rendering{"Announcement drafted", fmt.Sprintf("%s drafted %q", actor, title), domain.PriorityLow}
		default:
			return rendering{"Announcement " + humanize(status), fmt.Sprintf("%q by %s is %s", title, actor, humanize(status)), domain.PriorityNormal}
		}
	})
}

func (n *Normalizer) Moderation(r ModerationRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	target := humanize(r.TargetType)
	if target == "" {
		target = "content"
	}
	if label := orDefault(r.TargetLabel, ""); label != "" {
		target = fmt.Sprintf("%s %q", target, label)
	}
	return n.emit(domain.CategoryModeration, r.ID.String(), "", r.CreatedAt, nil, r, func(string, bool) rendering {
		out := rendering{
			title:       "Moderation: " + humanize(r.Action),
			description: fmt.Sprintf("%s applied %s to %s", actor, humanize(r.Action), target),
			priority:    domain.PriorityNormal,
		}
		switch normalizeStatus(r.Action) {
		case "suspend", "suspended", "ban", "banned", "remove", "removed":
			out.priority = domain.PriorityHigh
		case "warn", "warning", "flag", "flagged":
			out.priority = domain.PriorityMedium
		}
		if reason := orDefault(r.Reason, ""); reason != "" {
			out.description += ": " + truncate(reason, previewLength)
		}
		return out
	})
}

func (n *Normalizer) UserStatusChange(r UserStatusChangeRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	from := orDefault(r.OldStatus, "unknown")
	return n.emit(domain.CategoryUserStatusChange, r.ID.String(), r.NewStatus, r.CreatedAt, nil, r, func(status string, _ bool) rendering {
		out := rendering{
			title:       "User " + humanize(status),
			description: fmt.Sprintf("%s changed from %s to %s", actor, humanize(from), humanize(status)),
			priority:    domain.PriorityNormal,
		}
		switch normalizeStatus(status) {
		case "suspended", "banned":
			out.priority = domain.PriorityHigh
		case "deactivated", "inactive":
			out.priority = domain.PriorityMedium
		}
		if reason := orDefault(r.Reason, ""); reason != "" {
			out.description += ": " + truncate(reason, previewLength)
		}
		return out
	})
}

func (n *Normalizer) PayoutRequest(r PayoutRequestRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownPartner)
	amount := formatAmount(r.Amount, r.Currency)
	return n.emit(domain.CategoryPayoutRequest, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "pending", "requested":
			return rendering{"Payout requested", fmt.Sprintf("%s requested a payout of %s", actor, amount), domain.PriorityMedium}
		case "approved", "processing":
			return rendering{"Payout approved", fmt.Sprintf("Payout of %s to %s was approved", amount, actor), domain.PriorityNormal}
		case "paid", "completed":
			return rendering{"Payout paid", fmt.Sprintf("Payout of %s to %s was paid", amount, actor), domain.PriorityNormal}
		case "failed", "rejected":
			return rendering{"Payout " + humanize(status), fmt.Sprintf("Payout of %s to %s %s", amount, actor, humanize(status)), domain.PriorityHigh}
		default:
			return rendering{"Payout " + humanize(status), fmt.Sprintf("Payout of %s to %s is %s", amount, actor, humanize(status)), domain.PriorityNormal}
		}
	})
}

func (n *Normalizer) Refund(r RefundRow) []domain.ActivityEvent {
	actor := orDefault(r.ActorName, unknownUser)
	listing := orDefault(r.ListingTitle, unknownListing)
	amount := formatAmount(r.Amount, r.Currency)
	reason := orDefault(r.Reason, "")
	return n.emit(domain.CategoryRefund, r.ID.String(), r.Status, r.CreatedAt, r.UpdatedAt, r, func(status string, _ bool) rendering {
		switch normalizeStatus(status) {
		case "pending", "requested":
			out := rendering{"Refund requested", fmt.Sprintf("%s requested a refund of %s for %s", actor, amount, listing), domain.PriorityMedium}
			if reason != "" {
				out.description += ": " + truncate(reason, previewLength)
			}
			return out
		case "processed", "succeeded", "approved", "completed":
			return rendering{"Refund processed", fmt.Sprintf("Refund of %s to %s for %s was processed", amount, actor, listing), domain.PriorityNormal}
		case "failed":
			return rendering{"Refund failed", fmt.Sprintf("Refund of %s to %s for %s failed", amount, actor, listing), domain.PriorityHigh}
		case "rejected", "declined":
			return rendering{"Refund rejected", fmt.Sprintf("Refund of %s to %s for %s was rejected", amount, actor, listing), domain.PriorityNormal}
		default:
			return rendering{"Refund " + humanize(status), fmt.Sprintf("Refund of %s to %s is %s", amount, actor, humanize(status)), domain.PriorityNormal}
		}
	})
}

// Notification maps a stored admin notification row. Its id is the stored key.
func (n *Normalizer) Notification(row domain.Notification) []domain.ActivityEvent {
	if row.NotificationID == "" || row.CreatedAt.IsZero() {
		return nil
	}
	title := strings.TrimSpace(row.Title)
	if title == "" {
		title = "Notification"
		if row.Kind != "" {
			title = capitalize(humanize(string(row.Kind)))
		}
	}
	return []domain.ActivityEvent{{
		ID:          row.NotificationID,
		Category:    domain.CategoryNotification,
		Title:       title,
		Description: row.Message,
		Timestamp:   row.CreatedAt.UTC(),
		Priority:    domain.ParsePriority(string(row.Priority)),
		SourceRef:   row,
	}}
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"PHP": "₱",
}

// formatAmount renders an amount stored in minor units.
func formatAmount(minor int64, currency string) string {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		cur = "USD"
	}
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if sym, ok := currencySymbols[cur]; ok {
		return fmt.Sprintf("%s%s%d.%02d", sign, sym, minor/100, minor%100)
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, cur)
}

func orDefault(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	if v := strings.TrimSpace(*s); v != "" {
		return v
	}
	return fallback
}

func normalizeStatus(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

func humanize(s string) string {
	return strings.ReplaceAll(normalizeStatus(s), "_", " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "…"
}

func joinDiscriminator(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_")
}

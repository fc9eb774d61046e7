package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/id"
)

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

// Service manages stored admin notification rows, the server-backed tier of
// read state.
type Service interface {
	Notify(ctx context.Context, in NewNotification) (*domain.Notification, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) error
}

// NewNotification is the input for Notify.
type NewNotification struct {
	UserID      string
	Kind        domain.Category
	Title       string
	Message     string
	Priority    domain.Priority
	ReferenceID *string
}

type service struct {
	repo notificationStore
	now  func() time.Time
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Notify(ctx context.Context, in NewNotification) (*domain.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("user and title are required: %w", domain.ErrBadRequest)
	}
	now := s.now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         in.UserID,
		Kind:           in.Kind,
		Title:          in.Title,
		Message:        in.Message,
		Priority:       domain.ParsePriority(string(in.Priority)),
		ReferenceID:    in.ReferenceID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	return n, nil
}

func (s *service) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return s.repo.ListRecent(ctx, userID, limit)
}

// MarkAsRead flags the row as read once it is confirmed to belong to userID.
// Marking an already read row is a no-op.
func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	if !id.IsValid(notificationID) {
		return fmt.Errorf("notification id %q: %w", notificationID, domain.ErrBadRequest)
	}
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if n.Readed == 1 {
		return nil
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/notification"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/validate"
	"github.com/spacelproject/admin-spacel-sub001/internal/transport/http/middleware"
)

const defaultNotificationLimit = 50

// CreateNotificationRequest is the body of POST /notifications.
type CreateNotificationRequest struct {
	UserID      string  `json:"user_id" validate:"required,max=128"`
	Kind        string  `json:"kind" validate:"omitempty,max=64"`
	Title       string  `json:"title" validate:"required,max=200"`
	Message     string  `json:"message" validate:"max=2000"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low normal medium high urgent"`
	ReferenceID *string `json:"reference_id" validate:"omitempty,max=128"`
}

// NotificationHandler handles stored admin notification endpoints.
type NotificationHandler struct {
	svc notification.Service
	// onCreated lets open feeds pick up the new row without waiting for a
	// change notification.
	onCreated func(userID string)
}

func NewNotificationHandler(svc notification.Service, onCreated func(userID string)) *NotificationHandler {
	return &NotificationHandler{svc: svc, onCreated: onCreated}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	rows, err := h.svc.ListRecent(r.Context(), claims.UserID, limit)
	if err != nil {
		httpError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, NotificationsEnvelope{Data: rows})
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	n, err := h.svc.Notify(r.Context(), notification.NewNotification{
		UserID:      req.UserID,
		Kind:        domain.Category(req.Kind),
		Title:       req.Title,
		Message:     req.Message,
		Priority:    domain.Priority(req.Priority),
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	if h.onCreated != nil {
		h.onCreated(n.UserID)
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.MarkAsRead(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification marked as read"})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/activity"
	"github.com/spacelproject/admin-spacel-sub001/internal/transport/http/middleware"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

// ActivityHandler serves the aggregated activity feed of the calling admin.
type ActivityHandler struct {
	svc            activity.Service
	originPatterns []string
	logger         *slog.Logger
}

// NewActivityHandler builds the handler. originPatterns are the host
// patterns a websocket Origin header may match.
func NewActivityHandler(svc activity.Service, originPatterns []string, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{svc: svc, originPatterns: originPatterns, logger: logger}
}

func viewerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.UserID, true
}

// Open resets the window and starts live updates.
func (h *ActivityHandler) Open(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Open(r.Context(), viewer)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Close drops the viewer's feed and its subscriptions.
func (h *ActivityHandler) Close(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	h.svc.Close(viewer)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ActivityHandler) Window(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Window(r.Context(), viewer)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ActivityHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.LoadMore(r.Context(), viewer)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Refresh forces a pass. A failed pass still answers 200 with the previous
// window and an error field.
func (h *ActivityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Refresh(r.Context(), viewer)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ActivityHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(r.Context(), viewer, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ActivityHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkAllRead(r.Context(), viewer); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ActivityHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), viewer)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadEnvelope{Unread: n})
}

// Stream upgrades to a websocket and pushes the window after every completed
// pass. The current window is sent immediately on connect.
func (h *ActivityHandler) Stream(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("activity_stream_accept_failed", "viewer_id", viewer, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	signals, stop := h.svc.Watch(viewer)
	defer stop()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	if err := h.push(ctx, conn, viewer); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-signals:
			if err := h.push(ctx, conn, viewer); err != nil {
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *ActivityHandler) push(ctx context.Context, conn *websocket.Conn, viewer string) error {
	view, err := h.svc.Window(ctx, viewer)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "window unavailable")
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, view); err != nil {
		h.logger.Debug("activity_stream_write_failed", "viewer_id", viewer, "error", err)
		return err
	}
	return nil
}

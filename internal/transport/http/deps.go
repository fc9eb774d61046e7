package http

import (
	"log/slog"
	"net/http"

	"github.com/spacelproject/admin-spacel-sub001/internal/application/activity"
	"github.com/spacelproject/admin-spacel-sub001/internal/application/notification"
	"github.com/spacelproject/admin-spacel-sub001/internal/transport/http/handler"
	appmiddleware "github.com/spacelproject/admin-spacel-sub001/internal/transport/http/middleware"
)

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	Activity      activity.Service
	Notifications notification.Service
	// Nudge asks an open feed to re-aggregate after a write the change feed
	// does not see. Optional.
	Nudge    func(viewerID string)
	Verifier appmiddleware.Verifier
	// DB backs the readiness probe. Optional.
	DB      handler.Pinger
	Metrics http.Handler
	Logger  *slog.Logger
}

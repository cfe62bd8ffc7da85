package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/validate"
)

// Headers set by the upstream auth gateway.
const (
	headerUserID    = "X-User-Id"
	headerUserAdmin = "X-User-Admin"
)

type contextKey struct {
	name string
}

var viewerContextKey = &contextKey{"viewer"}

// Viewer is the authenticated caller of an HTTP request.
type Viewer struct {
	ID   string
	Role chat.Role
}

// ViewerFrom returns the viewer stored by Identity.
func ViewerFrom(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerContextKey).(Viewer)
	return v, ok
}

// Identity trusts the identity asserted by the auth gateway headers, falling
// back to the userId and isAdmin query parameters.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerUserID)
		admin := r.Header.Get(headerUserAdmin)
		if id == "" {
			id = r.URL.Query().Get("userId")
			admin = r.URL.Query().Get("isAdmin")
		}

		if err := validate.Identity(id); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid user identity")
			return
		}
		role, err := chat.ParseAdminFlag(admin)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), viewerContextKey, Viewer{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOperator rejects viewers that are not operators.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := ViewerFrom(r.Context())
		if !ok || v.Role != chat.RoleOperator {
			writeJSONError(w, http.StatusForbidden, "operator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request at debug level, or warn for 5xx.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// Hijacked (websocket) or nothing written.
				status = http.StatusOK
			}

			event := log.Debug()
			if status >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

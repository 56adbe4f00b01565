// Copyright 2026 The OpenFleet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/openfleet/openfleet/internal/accessgate"
	"github.com/openfleet/openfleet/internal/authz"
	"github.com/openfleet/openfleet/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Gated runs the access gate with the given options before the wrapped
// handler. On success the gate result is bound into the request context; on
// failure the gate's structured error is rendered and the handler never
// runs.
func (h *Handler) Gated(opts accessgate.Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, gerr := h.gate.Authorize(r, opts)
			if gerr != nil {
				respondGateError(w, gerr)
				return
			}
			ctx := accessgate.WithAccess(r.Context(), access)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require gates a route on a tenant-scoped resource permission
func (h *Handler) Require(resource authz.Resource, action authz.Action) func(http.Handler) http.Handler {
	ra := authz.ResourceAction{Resource: resource, Action: action}
	return h.Gated(accessgate.Options{Permission: &ra})
}

// RequireTenantAction gates a route on a tenant management action
func (h *Handler) RequireTenantAction(action authz.TenantAction) func(http.Handler) http.Handler {
	return h.Gated(accessgate.Options{TenantAction: &action})
}

// mustAccess extracts the gate result a gated route is guaranteed to carry.
// A miss means a routing bug, not a client error.
func mustAccess(w http.ResponseWriter, r *http.Request) (*accessgate.Access, bool) {
	access, ok := accessgate.FromContext(r.Context())
	if !ok {
		slog.ErrorContext(r.Context(), "handler reached without gate result",
			logger.Path(r.URL.Path),
			logger.Method(r.Method),
		)
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return nil, false
	}
	return access, true
}

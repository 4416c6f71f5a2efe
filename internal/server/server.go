// Package server exposes the contact workflow over HTTP.
package server

import (
	"net/http"

	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"precisionworks/internal/identity"
	"precisionworks/internal/intake"
	"precisionworks/internal/services"
	"precisionworks/internal/triage"
)

// Services are the collaborators the HTTP handlers call into
type Services struct {
	Health    *services.HealthService
	Auth      *services.AuthService
	Contact   *services.ContactService
	Dashboard *services.DashboardService
	Sessions  *intake.Sessions
	Boards    *triage.Registry
}

// Server routes requests to services
type Server struct {
	svc Services
	mux goahttp.Muxer
}

// New creates a server and mounts every route
func New(svc Services) *Server {
	s := &Server{svc: svc, mux: goahttp.NewMuxer()}

	// a logged out user starts from a fresh board next time
	svc.Auth.OnLogout(svc.Boards.Forget)

	s.mount()
	return s
}

func (s *Server) mount() {
	staff := []string{identity.ScopeStaff}
	admin := []string{identity.ScopeAdmin}

	s.mux.Handle("GET", "/health", s.health)
	s.mux.Handle("GET", "/metrics", promhttp.Handler().ServeHTTP)
	s.mux.Handle("GET", "/api/v1/catalog", s.catalog)

	s.mux.Handle("POST", "/api/v1/contact/submit", s.submitContact)

	s.mux.Handle("POST", "/api/v1/intake/sessions", s.createSession)
	s.mux.Handle("GET", "/api/v1/intake/sessions/{id}", s.sessionState)
	s.mux.Handle("DELETE", "/api/v1/intake/sessions/{id}", s.closeSession)
	s.mux.Handle("PATCH", "/api/v1/intake/sessions/{id}/fields", s.setFields)
	s.mux.Handle("POST", "/api/v1/intake/sessions/{id}/products", s.toggleProduct)
	s.mux.Handle("POST", "/api/v1/intake/sessions/{id}/advance", s.advance)
	s.mux.Handle("POST", "/api/v1/intake/sessions/{id}/retreat", s.retreat)
	s.mux.Handle("POST", "/api/v1/intake/sessions/{id}/submit", s.submitSession)

	s.mux.Handle("POST", "/api/v1/auth/login", s.login)
	s.mux.Handle("POST", "/api/v1/auth/logout", s.secure(nil, s.logout))
	s.mux.Handle("GET", "/api/v1/auth/me", s.secure(nil, s.me))
	s.mux.Handle("POST", "/api/v1/auth/users", s.secure(admin, s.createUser))
	s.mux.Handle("GET", "/api/v1/auth/users", s.secure(admin, s.listUsers))

	s.mux.Handle("GET", "/api/v1/triage", s.secure(staff, s.board))
	s.mux.Handle("PUT", "/api/v1/triage/filter", s.secure(staff, s.setFilter))
	s.mux.Handle("PUT", "/api/v1/triage/page", s.secure(staff, s.setPage))
	s.mux.Handle("PUT", "/api/v1/triage/requests/{id}/status", s.secure(staff, s.changeStatus))
	s.mux.Handle("DELETE", "/api/v1/triage/requests/{id}", s.secure(staff, s.deleteRequest))
	s.mux.Handle("GET", "/api/v1/contact-requests/{id}", s.secure(staff, s.getContactRequest))
	s.mux.Handle("GET", "/api/v1/dashboard", s.secure(staff, s.dashboard))
}

// Handler returns the routes wrapped with request id and context population
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = middleware.PopulateRequestContext()(h)
	h = middleware.RequestID()(h)
	return h
}

package server

import (
	"net/http"
	"strings"

	"precisionworks/internal/identity"
	"precisionworks/internal/services"
)

// secure requires a valid bearer token holding one of scopes before calling
// next. An empty scope list only requires authentication.
func (s *Server) secure(scopes []string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(r.Context(), w, services.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			writeError(r.Context(), w, services.Unauthorized("Invalid authorization header format"))
			return
		}

		ctx, err := s.svc.Auth.JWTAuth(r.Context(), parts[1], services.JWTScheme(scopes...))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		next(w, r.WithContext(ctx))
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var p services.LoginPayload
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.svc.Auth.Login(r.Context(), &p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Auth.Logout(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Auth.Me(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	p := services.CreateUserPayload{IsActive: true}
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.svc.Auth.CreateUser(r.Context(), &p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusCreated, res)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	var p services.ListUsersPayload
	var err error
	if p.Skip, err = queryNonNegative(r, "skip"); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if p.Limit, _, err = queryInt(r, "limit"); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.svc.Auth.ListUsers(r.Context(), &p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

func queryNonNegative(r *http.Request, key string) (int, error) {
	if r.URL.Query().Get(key) == "0" {
		return 0, nil
	}
	n, _, err := queryInt(r, key)
	return n, err
}

// principal returns the authenticated user; secure guarantees it is set
func principal(r *http.Request) *identity.Principal {
	p, _ := identity.FromContext(r.Context())
	return p
}

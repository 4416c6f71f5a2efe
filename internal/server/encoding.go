package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"precisionworks/internal/notify"
	"precisionworks/internal/services"
)

// errorBody is the JSON form of a goa service error
type errorBody struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Temporary bool   `json:"temporary"`
	Timeout   bool   `json:"timeout"`
	Fault     bool   `json:"fault"`
}

// statusOf maps a service error name to its HTTP status
func statusOf(name string) int {
	switch name {
	case services.ErrNameBadRequest:
		return http.StatusBadRequest
	case services.ErrNameUnauthorized:
		return http.StatusUnauthorized
	case services.ErrNameForbidden:
		return http.StatusForbidden
	case services.ErrNameNotFound:
		return http.StatusNotFound
	case services.ErrNameConflict:
		return http.StatusConflict
	case services.ErrNameUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func encode(ctx context.Context, w http.ResponseWriter, status int, v any) {
	enc := goahttp.ResponseEncoder(ctx, w)
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := enc.Encode(v); err != nil {
		log.Printf("[ERROR] encoding response: %v", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var se *goa.ServiceError
	if !errors.As(err, &se) {
		log.Printf("[ERROR] %v", err)
		se = services.Internal("internal server error")
	}

	status := statusOf(se.Name)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s: %s", se.Name, se.Message)
	}

	encode(ctx, w, status, &errorBody{
		Name:      se.Name,
		ID:        se.ID,
		Message:   se.Message,
		Temporary: se.Temporary,
		Timeout:   se.Timeout,
		Fault:     se.Fault,
	})
}

// decode reads the JSON body of r into v. An empty body leaves v untouched
// unless required is set.
func decode(r *http.Request, v any, required bool) error {
	err := goahttp.RequestDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) && !required {
		return nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return services.BadRequest("missing request body")
		}
		return services.BadRequest("invalid request body: %v", err)
	}
	return nil
}

// pathID parses the {id} segment as a record id
func (s *Server) pathID(r *http.Request) (uint, error) {
	raw := s.mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, services.BadRequest("invalid id %q", raw)
	}
	return uint(id), nil
}

// queryInt parses an optional positive integer query parameter
func queryInt(r *http.Request, key string) (int, bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false, services.BadRequest("%s must be a positive integer", key)
	}
	return n, true, nil
}

// notices drops zero notices and never returns nil
func notices(ns ...notify.Notice) []notify.Notice {
	out := []notify.Notice{}
	for _, n := range ns {
		if !n.IsZero() {
			out = append(out, n)
		}
	}
	return out
}

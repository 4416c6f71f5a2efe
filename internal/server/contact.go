package server

import (
	"net/http"

	"precisionworks/internal/domain"
	"precisionworks/internal/intake"
	"precisionworks/internal/notify"
	"precisionworks/internal/services"
)

type catalogResponse struct {
	ProductCategories []domain.Option `json:"product_categories"`
	RequestTypes      []domain.Option `json:"request_types"`
}

type sessionResponse struct {
	SessionID string       `json:"session_id,omitempty"`
	State     intake.State `json:"state"`
}

type advanceResponse struct {
	Advanced bool         `json:"advanced"`
	ScrollTo string       `json:"scroll_to,omitempty"`
	State    intake.State `json:"state"`
}

type submitResponse struct {
	Notices []notify.Notice `json:"notices"`
	State   intake.State    `json:"state"`
}

type productToggle struct {
	Tag      string `json:"tag"`
	Included bool   `json:"included"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Health.Check(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	encode(r.Context(), w, http.StatusOK, &catalogResponse{
		ProductCategories: domain.ProductCatalog,
		RequestTypes:      domain.RequestTypes,
	})
}

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	var p services.SubmitPayload
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.svc.Contact.Submit(r.Context(), &p)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusCreated, res)
}

func (s *Server) getContactRequest(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.svc.Contact.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

// form looks up the session named in the path, writing a 404 when it is gone
func (s *Server) form(w http.ResponseWriter, r *http.Request) (*intake.Form, bool) {
	f, ok := s.svc.Sessions.Get(s.mux.Vars(r)["id"])
	if !ok {
		writeError(r.Context(), w, services.NotFound("form session not found"))
	}
	return f, ok
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, f, err := s.svc.Sessions.Create()
	if err != nil {
		writeError(r.Context(), w, services.Unavailable("%v", err))
		return
	}
	encode(r.Context(), w, http.StatusCreated, &sessionResponse{SessionID: id, State: f.State()})
}

func (s *Server) sessionState(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}
	encode(r.Context(), w, http.StatusOK, &sessionResponse{State: f.State()})
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Sessions.Remove(s.mux.Vars(r)["id"]) {
		writeError(r.Context(), w, services.NotFound("form session not found"))
		return
	}
	encode(r.Context(), w, http.StatusNoContent, nil)
}

func (s *Server) setFields(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}

	var fields map[string]string
	if err := decode(r, &fields, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	for name, value := range fields {
		if err := f.SetField(intake.Field(name), value); err != nil {
			writeError(r.Context(), w, services.BadRequest("%v", err))
			return
		}
	}

	encode(r.Context(), w, http.StatusOK, &sessionResponse{State: f.State()})
}

func (s *Server) toggleProduct(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}

	var p productToggle
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if !domain.IsCatalogProduct(p.Tag) {
		writeError(r.Context(), w, services.BadRequest("unknown product interest %q", p.Tag))
		return
	}

	f.ToggleProductInterest(p.Tag, p.Included)
	encode(r.Context(), w, http.StatusOK, &sessionResponse{State: f.State()})
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}

	res := &advanceResponse{Advanced: f.Advance()}
	if res.Advanced {
		res.ScrollTo = intake.FormContainerID
	}
	res.State = f.State()
	encode(r.Context(), w, http.StatusOK, res)
}

func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}

	f.Retreat()
	encode(r.Context(), w, http.StatusOK, &sessionResponse{State: f.State()})
}

func (s *Server) submitSession(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}

	n := f.Submit(r.Context())
	encode(r.Context(), w, http.StatusOK, &submitResponse{Notices: notices(n), State: f.State()})
}

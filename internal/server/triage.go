package server

import (
	"context"
	"net/http"

	"precisionworks/internal/domain"
	"precisionworks/internal/notify"
	"precisionworks/internal/services"
	"precisionworks/internal/triage"
)

type boardResponse struct {
	triage.View
	Notices []notify.Notice `json:"notices"`
}

type filterPayload struct {
	Status string `json:"status"`
}

type pagePayload struct {
	Page int `json:"page"`
}

type statusPayload struct {
	Status string `json:"status"`
}

func (s *Server) respondBoard(w http.ResponseWriter, r *http.Request, b *triage.Board, ns ...notify.Notice) {
	encode(r.Context(), w, http.StatusOK, &boardResponse{View: b.Snapshot(), Notices: notices(ns...)})
}

func (s *Server) userBoard(r *http.Request) *triage.Board {
	b, _ := s.svc.Boards.For(principal(r).Username)
	return b
}

// board applies the optional page_size, status and page query parameters in
// that order, or reloads the current page when none is given
func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	size, hasSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	page, hasPage, err := queryInt(r, "page")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	rawStatus := r.URL.Query().Get("status")
	filter, err := triage.ParseFilter(rawStatus)
	if err != nil {
		writeError(ctx, w, services.BadRequest("%v", err))
		return
	}

	b := s.userBoard(r)
	var ns []notify.Notice
	if hasSize {
		ns = append(ns, b.SetPageSize(ctx, size))
	}
	if rawStatus != "" {
		ns = append(ns, b.SetFilter(ctx, filter))
	}
	if hasPage {
		ns = append(ns, b.SetPage(ctx, page))
	}
	if len(ns) == 0 {
		ns = append(ns, b.Reload(ctx))
	}

	s.respondBoard(w, r, b, ns...)
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request) {
	var p filterPayload
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	filter, err := triage.ParseFilter(p.Status)
	if err != nil {
		writeError(r.Context(), w, services.BadRequest("%v", err))
		return
	}

	b := s.userBoard(r)
	s.respondBoard(w, r, b, b.SetFilter(r.Context(), filter))
}

func (s *Server) setPage(w http.ResponseWriter, r *http.Request) {
	var p pagePayload
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if p.Page < 1 {
		writeError(r.Context(), w, services.BadRequest("page must be a positive integer"))
		return
	}

	b := s.userBoard(r)
	s.respondBoard(w, r, b, b.SetPage(r.Context(), p.Page))
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var p statusPayload
	if err := decode(r, &p, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	b := s.userBoard(r)
	s.respondBoard(w, r, b, b.ChangeStatus(r.Context(), id, domain.Status(p.Status)))
}

// deleteRequest only deletes when the caller passes confirm=true
func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	confirm := triage.ConfirmFunc(func(context.Context, string) bool { return confirmed })

	b := s.userBoard(r)
	s.respondBoard(w, r, b, b.DeleteRequest(r.Context(), id, confirm))
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Dashboard.Get(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	encode(r.Context(), w, http.StatusOK, res)
}

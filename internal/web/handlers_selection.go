package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/go-chi/chi/v5"
)

// rowIDParam parses the {rowID} path segment.
func rowIDParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "rowID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownRow, raw)
	}
	return id, nil
}

// pathParam returns a decoded path segment. Parameter names may contain
// escaped characters such as spaces.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// respondSelection writes the result of a selection transition.
func respondSelection(w http.ResponseWriter, r *http.Request, sel core.SelectionState, err error) {
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleToggleAllRows(w http.ResponseWriter, r *http.Request) {
	sel, err := s.service.ToggleAllRows()
	respondSelection(w, r, sel, err)
}

func (s *Server) handleToggleRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	sel, err := s.service.ToggleRow(id)
	respondSelection(w, r, sel, err)
}

func (s *Server) handleToggleParam(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	sel, err := s.service.ToggleParam(id, pathParam(r, "param"))
	respondSelection(w, r, sel, err)
}

func (s *Server) handleToggleAllParams(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	sel, err := s.service.ToggleAllParams(id)
	respondSelection(w, r, sel, err)
}

func (s *Server) handleToggleGroup(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	sel, err := s.service.ToggleGroup(id, pathParam(r, "group"))
	respondSelection(w, r, sel, err)
}

func (s *Server) handleApplySet(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	sel, err := s.service.ApplyChemicalSet(id, pathParam(r, "set"))
	respondSelection(w, r, sel, err)
}

func (s *Server) handleAvailableParams(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	groups, err := s.service.AvailableParams(id)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if groups == nil {
		groups = []core.ParamGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type commentResponse struct {
	RowID   int    `json:"rowId"`
	Comment string `json:"comment"`
}

func (s *Server) handleSetComment(w http.ResponseWriter, r *http.Request) {
	id, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("decode comment: %w", err), http.StatusBadRequest)
		return
	}

	comments, err := s.service.SetComment(id, req.Comment)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, commentResponse{RowID: id, Comment: comments.Get(id)})
}

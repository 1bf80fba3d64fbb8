package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/logging"
	"github.com/google/uuid"
)

// uploadResponse summarizes an ingested export.
type uploadResponse struct {
	FileName       string   `json:"fileName"`
	Rows           int      `json:"rows"`
	SkippedRows    int      `json:"skippedRows"`
	Headers        int      `json:"headers"`
	Generation     string   `json:"generation"`
	MissingColumns []string `json:"missingColumns"`
}

// handleUpload ingests a lab export sent as multipart field "file".
// The file is streamed into the parser.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, fmt.Errorf("file too large or invalid form: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size == 0 {
		respondError(w, r, errors.New("empty file"), http.StatusBadRequest)
		return
	}

	res, err := s.service.LoadDataset(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("upload accepted",
		"file", header.Filename,
		"size", header.Size,
	)
	writeJSON(w, http.StatusCreated, uploadResponse{
		FileName:       header.Filename,
		Rows:           res.Stats.DataRows,
		SkippedRows:    res.Stats.SkippedRows,
		Headers:        res.Stats.Headers,
		Generation:     res.Generation.String(),
		MissingColumns: nonNil(res.Diagnostics.MissingColumns),
	})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Dataset()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.State()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleImportState replaces the session with a state document in the
// persistence shape.
func (s *Server) handleImportState(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var state core.PersistedState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		respondError(w, r, fmt.Errorf("decode state: %w", err), http.StatusBadRequest)
		return
	}
	if err := s.service.ImportState(state); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	current, err := s.service.State()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SaveState(r.Context()); err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "saved",
		"generation": s.service.Generation().String(),
	})
}

func (s *Server) handleRestoreState(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RestoreState(r.Context()); err != nil {
		respondError(w, r, err, 0)
		return
	}
	state, err := s.service.State()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearState(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearSavedState(r.Context()); err != nil {
		respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":        "ok",
		"datasetLoaded": s.service.Generation() != uuid.Nil,
		"activeIngests": s.service.ActiveIngests(),
	}
	if s.opts.Ping != nil {
		if err := s.opts.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check: database unreachable", "error", err)
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

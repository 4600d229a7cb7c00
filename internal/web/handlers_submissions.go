package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gwasupload/internal/logging"
)

// handleSubmit records the session's accepted file for ingestion.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	sub, err := s.service.Submit(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("submission accepted", "submission_id", sub.ID, "file", sub.FileName)
	writeJSON(w, http.StatusCreated, sub)
}

// handleListSubmissions lists recorded submissions, newest first.
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, r, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}
	if limit > 500 {
		limit = 500
	}

	subs, err := s.service.ListSubmissions(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// handleGetSubmission returns one recorded submission.
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.service.Submission(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gwasupload/internal/core"
	"github.com/JonMunkholm/gwasupload/internal/logging"
	"github.com/JonMunkholm/gwasupload/internal/web/views"
)

// maxOptionsBody bounds the parser options JSON.
const maxOptionsBody = 64 << 10

// handleCreateSession opens an upload session for one form instance.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.service.NewSession()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

// handleCloseSession cancels a session's work and forgets it.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(chi.URLParam(r, "sessionID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectFile receives the file chosen in the form. Only the preview
// prefix is kept; the rest of the part is counted to learn the file size
// unless the form declared it in a "size" field sent before the file.
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	declared := int64(-1)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}

		switch part.FormName() {
		case "size":
			raw, err := io.ReadAll(io.LimitReader(part, 32))
			part.Close()
			if err != nil {
				respondError(w, r, fmt.Errorf("%w: size field: %v", errBadRequest, err))
				return
			}
			n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
			if err != nil || n < 0 {
				respondError(w, r, fmt.Errorf("%w: size field %q", errBadRequest, raw))
				return
			}
			declared = n

		case "file":
			name := part.FileName()
			if name == "" {
				part.Close()
				respondError(w, r, core.ErrNoFileSelected, http.StatusBadRequest)
				return
			}
			src, err := s.readUpload(part, declared)
			part.Close()
			if err != nil {
				respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
				return
			}

			v, err := s.service.SelectFile(id, name, src)
			if err != nil {
				respondError(w, r, err)
				return
			}
			logging.WithFields(r.Context(), "file", name, "size", v.FileSize).
				Info("file selected", "state", v.State, "reason", v.Reason)
			s.respondValidity(w, r, v, http.StatusOK)
			return

		default:
			part.Close()
		}
	}

	respondError(w, r, core.ErrNoFileSelected, http.StatusBadRequest)
}

// readUpload keeps the first PreviewBytes of part. The reported size is the
// declared one when given, otherwise the number of bytes in the part, capped
// one byte past the ceiling.
func (s *Server) readUpload(part io.Reader, declared int64) (core.ByteSource, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	if declared > maxSize {
		// Over the ceiling: the controller rejects it without reading.
		return core.NewPrefixSource(nil, declared), nil
	}

	counter := core.NewCountingReader(part)
	prefix := make([]byte, s.cfg.Upload.PreviewBytes)
	n, err := io.ReadFull(counter, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	prefix = prefix[:n]

	size := declared
	if size < 0 {
		_, err := io.CopyN(io.Discard, counter, maxSize-counter.BytesRead+1)
		if err != nil && !errors.Is(err, io.EOF) {
			if capped, ok := overCeiling(err, maxSize); ok {
				return core.NewPrefixSource(prefix, capped), nil
			}
			return nil, err
		}
		size = counter.BytesRead
	}
	return core.NewPrefixSource(prefix, size), nil
}

func overCeiling(err error, maxSize int64) (int64, bool) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return maxSize + 1, true
	}
	return 0, false
}

// handlePreview returns the preview lines, data start, header labels and
// suggested columns for the options step.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Preview(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		var readErr *core.ReadError
		if errors.As(err, &readErr) {
			respondError(w, r, err, http.StatusUnprocessableEntity)
			return
		}
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleConfirmOptions locks in the chosen columns and starts validation.
// The body is the options JSON, either raw or in a parser_options form field.
func (s *Server) handleConfirmOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := s.service.ConfirmOptions(chi.URLParam(r, "sessionID"), opts)
	s.respondValidation(w, r, result, err)
}

// handleDefaultOptions validates the file against the standard layout.
func (s *Server) handleDefaultOptions(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.UseDefaultOptions(chi.URLParam(r, "sessionID"))
	s.respondValidation(w, r, result, err)
}

func decodeOptions(w http.ResponseWriter, r *http.Request) (core.ParserOptions, error) {
	var opts core.ParserOptions
	r.Body = http.MaxBytesReader(w, r.Body, maxOptionsBody)

	var raw []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return opts, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		raw = []byte(r.PostForm.Get(views.OptionsFieldName))
	} else {
		var err error
		if raw, err = io.ReadAll(r.Body); err != nil {
			return opts, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("%w: parser options: %v", errBadRequest, err)
	}
	return opts, nil
}

// respondValidation answers a confirm request. With ?wait=true it blocks
// until the run finishes; a run superseded meanwhile answers with the
// session's current state.
func (s *Server) respondValidation(w http.ResponseWriter, r *http.Request, result <-chan core.Validity, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "sessionID")

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case v, ok := <-result:
			if ok {
				s.respondValidity(w, r, v, http.StatusOK)
				return
			}
		case <-r.Context().Done():
			respondError(w, r, r.Context().Err(), http.StatusServiceUnavailable)
			return
		}
	}

	v, err := s.service.State(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if !v.State.Terminal() {
		status = http.StatusAccepted
	}
	s.respondValidity(w, r, v, status)
}

// handleState returns the session's validity.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v, err := s.service.State(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondValidity(w, r, v, http.StatusOK)
}

// respondValidity writes v as JSON, or as the validity alert fragment for
// HTMX requests.
func (s *Server) respondValidity(w http.ResponseWriter, r *http.Request, v core.Validity, status int) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := views.ValidityAlert(v).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Warn("render validity", "error", err)
		}
		return
	}
	writeJSON(w, status, v)
}

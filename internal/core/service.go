package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SubmissionStore persists accepted uploads for the ingestion backend.
type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sub Submission) error
	// GetSubmission returns ErrSubmissionMissing when id is unknown.
	GetSubmission(ctx context.Context, id string) (Submission, error)
	// ListSubmissions returns the newest submissions first.
	ListSubmissions(ctx context.Context, limit int) ([]Submission, error)
	Close() error
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Controller    ControllerConfig
	MaxConcurrent int
	MaxWaitTime   time.Duration
}

// Service keeps one Controller per upload session.
type Service struct {
	cfg     ServiceConfig
	store   SubmissionStore
	limiter *ValidationLimiter

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	ID      string
	Created time.Time
	ctrl    *Controller

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// NewService creates a Service that records submissions in store.
func NewService(store SubmissionStore, cfg ServiceConfig) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		limiter:  NewValidationLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		sessions: make(map[string]*session),
	}
}

// Limiter returns the validation limiter shared by all sessions.
func (s *Service) Limiter() *ValidationLimiter { return s.limiter }

// NewSession creates an idle upload session and returns its ID.
func (s *Service) NewSession() string {
	id := uuid.NewString()

	cfg := s.cfg.Controller
	cfg.Limiter = s.limiter
	cfg.Logger = slog.Default().With("session_id", id)

	now := time.Now()
	sess := &session{ID: id, Created: now, lastSeen: now, ctrl: NewController(cfg)}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	slog.Debug("upload session created", "session_id", id)
	return id
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	sess.touch()
	return sess, nil
}

// Controller returns the controller of a session.
func (s *Service) Controller(id string) (*Controller, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.ctrl, nil
}

// SelectFile starts a new file selection in a session.
func (s *Service) SelectFile(id, name string, src ByteSource) (Validity, error) {
	sess, err := s.session(id)
	if err != nil {
		return Validity{}, err
	}
	return sess.ctrl.SelectFile(name, src), nil
}

// Preview returns the preview of the session's current file.
func (s *Service) Preview(ctx context.Context, id string) (Preview, error) {
	sess, err := s.session(id)
	if err != nil {
		return Preview{}, err
	}
	return sess.ctrl.Preview(ctx)
}

// ConfirmOptions confirms parser options for the session's current file.
func (s *Service) ConfirmOptions(id string, opts ParserOptions) (<-chan Validity, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.ctrl.ConfirmOptions(opts)
}

// UseDefaultOptions validates the session's file with the standard layout.
func (s *Service) UseDefaultOptions(id string) (<-chan Validity, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.ctrl.UseDefaultOptions()
}

// State returns the session's current validity.
func (s *Service) State(id string) (Validity, error) {
	sess, err := s.session(id)
	if err != nil {
		return Validity{}, err
	}
	return sess.ctrl.State(), nil
}

// Subscribe streams validity changes of a session.
func (s *Service) Subscribe(id string) (<-chan Validity, func(), error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.ctrl.Subscribe()
	return ch, cancel, nil
}

// Submit records the session's accepted file and returns the controller to
// Idle. It fails with ErrNotAccepted unless the file passed validation.
func (s *Service) Submit(ctx context.Context, id string) (Submission, error) {
	sess, err := s.session(id)
	if err != nil {
		return Submission{}, err
	}

	v, err := sess.ctrl.claim()
	if err != nil {
		return Submission{}, err
	}

	sub := Submission{
		ID:            uuid.NewString(),
		SessionID:     id,
		FileName:      v.FileName,
		FileSize:      v.FileSize,
		ParserOptions: v.Options,
		ClientIP:      GetIPAddressFromContext(ctx),
		UserAgent:     GetUserAgentFromContext(ctx),
		CreatedAt:     time.Now().UTC(),
	}
	if v.Summary != nil {
		sub.DataRows = v.Summary.DataRows
		sub.Chromosomes = v.Summary.Chromosomes
	}

	if err := s.store.SaveSubmission(ctx, sub); err != nil {
		sess.ctrl.release(v.Generation)
		return Submission{}, fmt.Errorf("save submission: %w", err)
	}

	if !sess.ctrl.resetIf(v.Generation) {
		slog.Warn("file changed while submitting", "session_id", id, "submission_id", sub.ID)
	}
	slog.Info("submission recorded",
		"session_id", id,
		"submission_id", sub.ID,
		"file", sub.FileName,
		"data_rows", sub.DataRows,
	)
	return sub, nil
}

// CloseSession cancels a session's work and forgets it.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	sess.ctrl.Close()
	return nil
}

// Submission returns a recorded submission.
func (s *Service) Submission(ctx context.Context, id string) (Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// ListSubmissions returns up to limit recorded submissions, newest first.
func (s *Service) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListSubmissions(ctx, limit)
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle closes sessions not used since before cutoff and returns how
// many were closed.
func (s *Service) EvictIdle(cutoff time.Time) int {
	var stale []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.ctrl.Close()
	}
	return len(stale)
}

// Shutdown closes every session and waits for running validations to
// release their slots.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.ctrl.Close()
	}
	return s.limiter.WaitForDrain(ctx)
}

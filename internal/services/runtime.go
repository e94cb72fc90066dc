package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/scormbridge/internal/bridge"
	"github.com/yungbote/scormbridge/internal/domain"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/repos"
	"github.com/yungbote/scormbridge/internal/scorm/cmi"
)

var (
	ErrFinished     = errors.New("session already finished")
	ErrEmptyElement = errors.New("data model element name is empty")
)

type SessionState int

const (
	StateUninitialized SessionState = iota
	StateInitialized
	StateFinished
)

func (s SessionState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateFinished:
		return "finished"
	default:
		return "uninitialized"
	}
}

// SessionAPI is the persistence backed run-time API for one attempt. Values
// are buffered in memory; LMSCommit and LMSFinish write them to the attempt
// row.
type SessionAPI struct {
	log      *logger.Logger
	repo     repos.AttemptRepo
	onFinish func()
	now      func() time.Time

	mu      sync.Mutex
	attempt *domain.Attempt
	data    cmi.Record
	state   SessionState
}

var _ bridge.API = (*SessionAPI)(nil)

func NewSessionAPI(log *logger.Logger, repo repos.AttemptRepo, attempt *domain.Attempt) *SessionAPI {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionAPI{
		log:     log.With("service", "SessionAPI", "attempt_id", attempt.ID.String()),
		repo:    repo,
		now:     time.Now,
		attempt: attempt,
		data:    cmi.Record(attempt.Data).Clone(),
	}
}

func (s *SessionAPI) AttemptID() uuid.UUID {
	return s.attempt.ID
}

func (s *SessionAPI) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the buffered record.
func (s *SessionAPI) Snapshot() cmi.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *SessionAPI) LMSInitialize(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinished {
		return "false", ErrFinished
	}
	if s.state == StateInitialized {
		s.log.Debug("LMSInitialize called twice")
		return "true", nil
	}
	prevState, prevAt := s.attempt.State, s.attempt.InitializedAt
	now := s.now()
	s.attempt.State = domain.AttemptInitialized
	s.attempt.InitializedAt = &now
	if err := s.repo.Update(ctx, nil, s.attempt); err != nil {
		s.attempt.State, s.attempt.InitializedAt = prevState, prevAt
		s.log.Error("Failed to persist initialization", "error", err)
		return "false", err
	}
	s.state = StateInitialized
	return "true", nil
}

func (s *SessionAPI) LMSGetValue(_ context.Context, parameter string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinished {
		return "", ErrFinished
	}
	v, _ := s.data.Value(parameter)
	return v, nil
}

func (s *SessionAPI) LMSSetValue(_ context.Context, parameter, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinished {
		return "false", ErrFinished
	}
	if parameter == "" {
		return "false", ErrEmptyElement
	}
	if s.state == StateUninitialized {
		s.log.Debug("LMSSetValue before LMSInitialize", "parameter", parameter)
	}
	s.data[parameter] = value
	return "true", nil
}

func (s *SessionAPI) LMSCommit(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinished {
		return "false", ErrFinished
	}
	if err := s.commitLocked(ctx); err != nil {
		return "false", err
	}
	return "true", nil
}

func (s *SessionAPI) LMSFinish(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == StateFinished {
		s.mu.Unlock()
		return "false", ErrFinished
	}
	// The row only reads finished once that has been saved.
	prevState, prevAt := s.attempt.State, s.attempt.FinishedAt
	now := s.now()
	s.attempt.State = domain.AttemptFinished
	s.attempt.FinishedAt = &now
	if err := s.commitLocked(ctx); err != nil {
		s.attempt.State, s.attempt.FinishedAt = prevState, prevAt
		s.mu.Unlock()
		return "false", err
	}
	s.state = StateFinished
	onFinish := s.onFinish
	s.mu.Unlock()

	s.log.Info("Runtime session finished", "lesson_status", s.attempt.LessonStatus)
	if onFinish != nil {
		onFinish()
	}
	return "true", nil
}

func (s *SessionAPI) LMSGetLastError(context.Context) (string, error) {
	return bridge.NoErrorCode, nil
}

func (s *SessionAPI) LMSGetErrorString(context.Context) (string, error) {
	return bridge.NoErrorString, nil
}

func (s *SessionAPI) LMSGetDiagnostic(context.Context) (string, error) {
	return bridge.NoDiagnostic, nil
}

// commitLocked copies the buffered record onto the attempt row and saves it.
func (s *SessionAPI) commitLocked(ctx context.Context) error {
	now := s.now()
	s.attempt.Data = datatypes.JSONMap(s.data.Clone())
	s.attempt.CommittedAt = &now
	if status, ok := cmi.ParseStatus(stringValue(s.data, cmi.LessonStatus)); ok {
		s.attempt.LessonStatus = string(status)
	}
	if raw, ok := s.data.Float(cmi.ScoreRaw); ok {
		s.attempt.ScoreRaw = &raw
	}
	if err := s.repo.Update(ctx, nil, s.attempt); err != nil {
		s.log.Error("Failed to commit runtime data", "error", err)
		return err
	}
	return nil
}

func stringValue(r cmi.Record, key string) string {
	v, _ := r.Value(key)
	return v
}

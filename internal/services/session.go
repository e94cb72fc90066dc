package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/scormbridge/internal/domain"
	"github.com/yungbote/scormbridge/internal/observability"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/repos"
	"github.com/yungbote/scormbridge/internal/scorm/cmi"
	"github.com/yungbote/scormbridge/internal/scorm/launch"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRootNotAllowed  = errors.New("package root is not allowed")
	ErrMissingLearner  = errors.New("learner id is required")
)

// Launcher resolves package roots. *launch.Launcher satisfies it.
type Launcher interface {
	Resolve(ctx context.Context, root string) (launch.Resolution, error)
}

// RootPolicy limits which package roots may be launched. An empty policy
// allows everything.
type RootPolicy []string

func (p RootPolicy) Allows(root string) bool {
	if len(p) == 0 {
		return true
	}
	root = strings.TrimSpace(root)
	for _, prefix := range p {
		if prefix != "" && strings.HasPrefix(root, prefix) {
			return true
		}
	}
	return false
}

type StartRequest struct {
	LearnerID   string
	LearnerName string
	Root        string
}

// Session is a live runtime session held in memory until it finishes.
type Session struct {
	ID         uuid.UUID
	LearnerID  string
	Root       string
	Resolution launch.Resolution
	Record     cmi.Record
	API        *SessionAPI
	Token      string
	ExpiresAt  time.Time
	StartedAt  time.Time
}

type SessionService struct {
	log      *logger.Logger
	repo     repos.AttemptRepo
	launcher Launcher
	tokens   *TokenIssuer
	roots    RootPolicy

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewSessionService(log *logger.Logger, repo repos.AttemptRepo, launcher Launcher, tokens *TokenIssuer, roots RootPolicy) *SessionService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionService{
		log:      log.With("service", "SessionService"),
		repo:     repo,
		launcher: launcher,
		tokens:   tokens,
		roots:    roots,
		sessions: map[uuid.UUID]*Session{},
	}
}

// Start resolves the package, seeds the learner's record from their latest
// attempt and opens a new attempt.
func (s *SessionService) Start(ctx context.Context, req StartRequest) (*Session, error) {
	learnerID := strings.TrimSpace(req.LearnerID)
	if learnerID == "" {
		return nil, ErrMissingLearner
	}
	if !s.roots.Allows(req.Root) {
		return nil, ErrRootNotAllowed
	}
	res, err := s.launcher.Resolve(ctx, req.Root)
	if err != nil {
		return nil, err
	}
	root := res.BasePath

	prev, err := s.repo.GetLatest(ctx, nil, learnerID, root)
	if err != nil {
		s.log.Error("Failed to load previous attempt", "learner_id", learnerID, "root", root, "error", err)
		return nil, err
	}
	record := cmi.Record{}
	if prev != nil {
		record = cmi.Resume(cmi.Record(prev.Data))
	}
	record[cmi.StudentID] = learnerID
	if name := strings.TrimSpace(req.LearnerName); name != "" {
		record[cmi.StudentName] = name
	}
	if _, ok := record[cmi.LessonStatus]; !ok {
		record[cmi.LessonStatus] = string(cmi.StatusNotAttempted)
	}

	attempt, err := s.repo.Create(ctx, nil, &domain.Attempt{
		LearnerID:    learnerID,
		PackageRoot:  root,
		EntryFile:    res.FileName,
		LessonStatus: stringValue(record, cmi.LessonStatus),
		Data:         datatypes.JSONMap(record.Clone()),
	})
	if err != nil {
		return nil, err
	}

	token, expires, err := s.tokens.Issue(attempt.ID, learnerID)
	if err != nil {
		return nil, err
	}

	api := NewSessionAPI(s.log, s.repo, attempt)
	sess := &Session{
		ID:         attempt.ID,
		LearnerID:  learnerID,
		Root:       root,
		Resolution: res,
		Record:     record,
		API:        api,
		Token:      token,
		ExpiresAt:  expires,
		StartedAt:  time.Now(),
	}
	api.onFinish = func() { s.End(sess.ID) }

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	observability.SetActiveSessions(n)

	s.log.Info("Runtime session started", "session_id", sess.ID.String(), "learner_id", learnerID, "root", root, "file", res.FileName)
	return sess, nil
}

func (s *SessionService) Get(id uuid.UUID) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Authorize returns the live session a token grants access to.
func (s *SessionService) Authorize(id uuid.UUID, token string) (*Session, error) {
	if _, err := s.tokens.Verify(token, id); err != nil {
		return nil, err
	}
	sess, ok := s.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// End drops a session from memory. Finished attempts stay in the database.
func (s *SessionService) End(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	observability.SetActiveSessions(n)
}

// Sweep drops sessions whose token has expired.
func (s *SessionService) Sweep(now time.Time) int {
	s.mu.Lock()
	dropped := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			dropped++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()
	if dropped > 0 {
		observability.SetActiveSessions(n)
		s.log.Info("Expired runtime sessions dropped", "count", dropped)
	}
	return dropped
}

func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

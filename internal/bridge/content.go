package bridge

import (
	"context"
	"sync"

	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/scorm/cmi"
)

// Poster carries a message from the content half to the host.
type Poster interface {
	Post(ctx context.Context, msg Message) error
}

type PosterFunc func(ctx context.Context, msg Message) error

func (f PosterFunc) Post(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Global names the run-time objects are installed under.
const (
	GlobalAPI     = "API"
	GlobalAPI2004 = "API_1484_11"
)

// Scope is one execution context content can look the run-time API up in:
// the content's own window, a nested frame, or a stand-in opener.
type Scope struct {
	Name string

	mu      sync.RWMutex
	globals map[string]any
}

func NewScope(name string) *Scope {
	return &Scope{Name: name, globals: map[string]any{}}
}

func (s *Scope) Set(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals[name] = v
}

func (s *Scope) Lookup(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.globals[name]
	return v, ok
}

// Runtime looks up the SCORM 1.2 object installed in the scope.
func (s *Scope) Runtime() (*Content, bool) {
	v, ok := s.Lookup(GlobalAPI)
	if !ok {
		return nil, false
	}
	c, ok := v.(*Content)
	return c, ok
}

// Runtime2004 looks up the API_1484_11 object installed in the scope.
func (s *Scope) Runtime2004() (*Alias, bool) {
	v, ok := s.Lookup(GlobalAPI2004)
	if !ok {
		return nil, false
	}
	a, ok := v.(*Alias)
	return a, ok
}

// Content is the content half of the bridge. Reads and writes are answered
// from its ambient store at once; forwarded calls go through an ordered
// outbox drained by one goroutine, so a slow host never stalls the content.
type Content struct {
	log    *logger.Logger
	poster Poster

	mu      sync.RWMutex
	ambient map[string]string

	outMu   sync.RWMutex
	closed  bool
	outbox  chan outboxItem
	drained chan struct{}
}

type outboxItem struct {
	ctx     context.Context
	msg     Message
	flushed chan struct{}
}

const outboxSize = 256

// NewContent seeds the ambient store from a snapshot of record.
func NewContent(log *logger.Logger, record cmi.Record, poster Poster) *Content {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Content{
		log:     log.With("service", "BridgeContent"),
		poster:  poster,
		ambient: record.Strings(),
		outbox:  make(chan outboxItem, outboxSize),
		drained: make(chan struct{}),
	}
	go c.drain()
	return c
}

func (c *Content) drain() {
	defer close(c.drained)
	for item := range c.outbox {
		if item.flushed != nil {
			close(item.flushed)
			continue
		}
		if err := c.poster.Post(item.ctx, item.msg); err != nil {
			c.log.Warn("Failed to post SCORM message", "action", string(item.msg.Action), "error", err)
		}
	}
}

// Flush waits until every message queued before the call has been posted.
func (c *Content) Flush(ctx context.Context) error {
	done := make(chan struct{})
	c.outMu.RLock()
	if c.closed {
		c.outMu.RUnlock()
		return nil
	}
	select {
	case c.outbox <- outboxItem{flushed: done}:
		c.outMu.RUnlock()
	case <-ctx.Done():
		c.outMu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for the outbox to drain. Calls
// made after Close are still answered locally but nothing is posted.
func (c *Content) Close() {
	c.outMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
	c.outMu.Unlock()
	<-c.drained
}

// Install binds the run-time object and its 2004 alias into every scope.
func (c *Content) Install(scopes ...*Scope) {
	alias := &Alias{c: c}
	for _, s := range scopes {
		if s == nil {
			continue
		}
		s.Set(GlobalAPI, c)
		s.Set(GlobalAPI2004, alias)
	}
}

// Ambient returns a copy of the current ambient values.
func (c *Content) Ambient() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.ambient))
	for k, v := range c.ambient {
		out[k] = v
	}
	return out
}

func (c *Content) post(ctx context.Context, msg Message) {
	if c.poster == nil {
		return
	}
	c.outMu.RLock()
	defer c.outMu.RUnlock()
	if c.closed {
		c.log.Warn("Dropped SCORM message after close", "action", string(msg.Action))
		return
	}
	select {
	case c.outbox <- outboxItem{ctx: context.WithoutCancel(ctx), msg: msg}:
	default:
		c.log.Warn("SCORM outbox full, dropping message", "action", string(msg.Action))
	}
}

func (c *Content) LMSInitialize(ctx context.Context) string {
	c.post(ctx, Message{Action: ActionInitialize})
	return resultTrue
}

func (c *Content) LMSFinish(ctx context.Context) string {
	c.post(ctx, Message{Action: ActionFinish})
	return resultTrue
}

func (c *Content) LMSGetValue(ctx context.Context, parameter string) string {
	c.post(ctx, Message{Action: ActionGetValue, Parameter: parameter})
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ambient[parameter]
}

func (c *Content) LMSSetValue(ctx context.Context, parameter, value string) string {
	c.post(ctx, Message{Action: ActionSetValue, Parameter: parameter, Value: value})
	c.mu.Lock()
	c.ambient[parameter] = value
	c.mu.Unlock()
	return resultTrue
}

func (c *Content) LMSCommit(ctx context.Context) string {
	c.post(ctx, Message{Action: ActionCommit})
	return resultTrue
}

func (c *Content) LMSGetLastError(context.Context) string   { return NoErrorCode }
func (c *Content) LMSGetErrorString(context.Context) string { return NoErrorString }
func (c *Content) LMSGetDiagnostic(context.Context) string  { return NoDiagnostic }

// Call invokes the named operation. Either naming convention is accepted;
// unknown names answer "false".
func (c *Content) Call(ctx context.Context, name, parameter, value string) string {
	action, ok := ParseAction(name)
	if !ok {
		return resultFalse
	}
	switch action {
	case ActionInitialize:
		return c.LMSInitialize(ctx)
	case ActionFinish:
		return c.LMSFinish(ctx)
	case ActionGetValue:
		return c.LMSGetValue(ctx, parameter)
	case ActionSetValue:
		return c.LMSSetValue(ctx, parameter, value)
	case ActionCommit:
		return c.LMSCommit(ctx)
	case ActionGetLastError:
		return c.LMSGetLastError(ctx)
	case ActionGetErrorString:
		return c.LMSGetErrorString(ctx)
	default:
		return c.LMSGetDiagnostic(ctx)
	}
}

// Alias exposes Content under the API_1484_11 names.
type Alias struct {
	c *Content
}

func (a *Alias) Initialize(ctx context.Context) string { return a.c.LMSInitialize(ctx) }
func (a *Alias) Terminate(ctx context.Context) string  { return a.c.LMSFinish(ctx) }
func (a *Alias) GetValue(ctx context.Context, parameter string) string {
	return a.c.LMSGetValue(ctx, parameter)
}
func (a *Alias) SetValue(ctx context.Context, parameter, value string) string {
	return a.c.LMSSetValue(ctx, parameter, value)
}
func (a *Alias) Commit(ctx context.Context) string         { return a.c.LMSCommit(ctx) }
func (a *Alias) GetLastError(ctx context.Context) string   { return a.c.LMSGetLastError(ctx) }
func (a *Alias) GetErrorString(ctx context.Context) string { return a.c.LMSGetErrorString(ctx) }
func (a *Alias) GetDiagnostic(ctx context.Context) string  { return a.c.LMSGetDiagnostic(ctx) }

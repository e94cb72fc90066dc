package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/scormbridge/internal/scorm/cmi"
)

type capture struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (c *capture) Post(_ context.Context, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func (c *capture) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func TestContentRecordRoundTrip(t *testing.T) {
	record := cmi.Record{
		cmi.StudentID:    "learner-7",
		cmi.StudentName:  "Doe, Jane",
		cmi.LessonStatus: "incomplete",
		cmi.ScoreRaw:     72.5,
		cmi.ScoreMin:     0,
		cmi.SuspendData:  `{"page":4}`,
	}
	record[cmi.Interaction(0, "id")] = "q1"
	c := NewContent(nil, record, &capture{})

	ctx := context.Background()
	for key := range record {
		want, _ := record.Value(key)
		assert.Equal(t, want, c.LMSGetValue(ctx, key), key)
	}
	assert.Equal(t, "0", c.LMSGetValue(ctx, cmi.ScoreMin))
}

func TestContentSnapshotsRecord(t *testing.T) {
	record := cmi.Record{cmi.LessonStatus: "incomplete"}
	c := NewContent(nil, record, nil)
	record[cmi.LessonStatus] = "passed"

	assert.Equal(t, "incomplete", c.LMSGetValue(context.Background(), cmi.LessonStatus))
}

func TestContentAnswersLocallyAndForwards(t *testing.T) {
	sink := &capture{}
	c := NewContent(nil, nil, sink)
	ctx := context.Background()

	assert.Equal(t, "true", c.LMSInitialize(ctx))
	assert.Equal(t, "", c.LMSGetValue(ctx, cmi.LessonLocation))
	assert.Equal(t, "true", c.LMSSetValue(ctx, cmi.LessonLocation, "page-3"))
	assert.Equal(t, "page-3", c.LMSGetValue(ctx, cmi.LessonLocation))
	assert.Equal(t, "true", c.LMSCommit(ctx))
	assert.Equal(t, "0", c.LMSGetLastError(ctx))
	assert.Equal(t, "No error", c.LMSGetErrorString(ctx))
	assert.Equal(t, "No diagnostic information available", c.LMSGetDiagnostic(ctx))
	assert.Equal(t, "true", c.LMSFinish(ctx))
	require.NoError(t, c.Flush(ctx))

	assert.Equal(t, []Message{
		{Action: ActionInitialize},
		{Action: ActionGetValue, Parameter: cmi.LessonLocation},
		{Action: ActionSetValue, Parameter: cmi.LessonLocation, Value: "page-3"},
		{Action: ActionGetValue, Parameter: cmi.LessonLocation},
		{Action: ActionCommit},
		{Action: ActionFinish},
	}, sink.messages())
}

func TestContentIgnoresPosterFailures(t *testing.T) {
	c := NewContent(nil, nil, &capture{err: errors.New("host gone")})
	ctx := context.Background()

	assert.Equal(t, "true", c.LMSSetValue(ctx, cmi.LessonStatus, "completed"))
	assert.Equal(t, "completed", c.LMSGetValue(ctx, cmi.LessonStatus))
}

func TestInstallBindsEveryScope(t *testing.T) {
	sink := &capture{}
	c := NewContent(nil, cmi.Record{cmi.StudentID: "s-1"}, sink)

	self, frame, opener := NewScope("self"), NewScope("frame:0"), NewScope("opener")
	c.Install(self, frame, nil, opener)

	ctx := context.Background()
	for _, s := range []*Scope{self, frame, opener} {
		api, ok := s.Runtime()
		require.True(t, ok, s.Name)
		assert.Same(t, c, api)

		alias, ok := s.Runtime2004()
		require.True(t, ok, s.Name)
		assert.Equal(t, "s-1", alias.GetValue(ctx, cmi.StudentID))
	}

	alias, _ := opener.Runtime2004()
	assert.Equal(t, "true", alias.Initialize(ctx))
	assert.Equal(t, "true", alias.SetValue(ctx, "cmi.completion_status", "completed"))
	assert.Equal(t, "true", alias.Commit(ctx))
	assert.Equal(t, "0", alias.GetLastError(ctx))
	assert.Equal(t, "No error", alias.GetErrorString(ctx))
	assert.Equal(t, "No diagnostic information available", alias.GetDiagnostic(ctx))
	assert.Equal(t, "true", alias.Terminate(ctx))

	api, _ := frame.Runtime()
	assert.Equal(t, "completed", api.LMSGetValue(ctx, "cmi.completion_status"))
	c.Close()

	var actions []Action
	for _, m := range sink.messages() {
		actions = append(actions, m.Action)
	}
	assert.Equal(t, []Action{
		ActionGetValue, ActionGetValue, ActionGetValue,
		ActionInitialize, ActionSetValue, ActionCommit, ActionFinish,
		ActionGetValue,
	}, actions)
}

func TestContentCallByName(t *testing.T) {
	c := NewContent(nil, nil, nil)
	ctx := context.Background()

	assert.Equal(t, "true", c.Call(ctx, "SetValue", cmi.ScoreRaw, "88"))
	assert.Equal(t, "88", c.Call(ctx, "LMSGetValue", cmi.ScoreRaw, ""))
	assert.Equal(t, "No error", c.Call(ctx, "GetErrorString", "", ""))
	assert.Equal(t, "false", c.Call(ctx, "Launch", "", ""))
}

func TestContentWiredToHost(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(nil)
	poster := PosterFunc(func(ctx context.Context, m Message) error {
		raw, err := m.Encode()
		if err != nil {
			return err
		}
		d.Handle(ctx, raw, rec)
		return nil
	})
	c := NewContent(nil, nil, poster)
	ctx := context.Background()

	c.LMSInitialize(ctx)
	c.LMSSetValue(ctx, cmi.LessonStatus, "completed")
	c.LMSGetLastError(ctx)
	c.LMSFinish(ctx)
	c.Close()

	assert.Equal(t, []Call{
		{Action: ActionInitialize},
		{Action: ActionSetValue, Parameter: cmi.LessonStatus, Value: "completed"},
		{Action: ActionFinish},
	}, rec.Calls())
}

func TestContentAnswersWithoutWaitingForHost(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var posted []Action
	poster := PosterFunc(func(_ context.Context, m Message) error {
		<-release
		mu.Lock()
		posted = append(posted, m.Action)
		mu.Unlock()
		return nil
	})
	c := NewContent(nil, nil, poster)
	ctx := context.Background()

	answered := make(chan string, 1)
	go func() {
		c.LMSInitialize(ctx)
		c.LMSSetValue(ctx, cmi.LessonStatus, "completed")
		answered <- c.LMSGetValue(ctx, cmi.LessonStatus)
	}()
	select {
	case got := <-answered:
		assert.Equal(t, "completed", got)
	case <-time.After(2 * time.Second):
		t.Fatal("content calls blocked on a stalled host")
	}

	close(release)
	c.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Action{ActionInitialize, ActionSetValue, ActionGetValue}, posted)
}

func TestFlushHonorsContext(t *testing.T) {
	release := make(chan struct{})
	c := NewContent(nil, nil, PosterFunc(func(context.Context, Message) error {
		<-release
		return nil
	}))
	c.LMSCommit(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Flush(ctx), context.DeadlineExceeded)

	close(release)
	c.Close()
	assert.Equal(t, "true", c.LMSCommit(context.Background()))
}

package bridge

import (
	"context"
	"sync"
)

// API is the host-side run-time implementation messages are dispatched to.
type API interface {
	LMSInitialize(ctx context.Context) (string, error)
	LMSFinish(ctx context.Context) (string, error)
	LMSGetValue(ctx context.Context, parameter string) (string, error)
	LMSSetValue(ctx context.Context, parameter, value string) (string, error)
	LMSCommit(ctx context.Context) (string, error)
	LMSGetLastError(ctx context.Context) (string, error)
	LMSGetErrorString(ctx context.Context) (string, error)
	LMSGetDiagnostic(ctx context.Context) (string, error)
}

// NopAPI accepts every call and stores nothing.
type NopAPI struct{}

var _ API = NopAPI{}

func (NopAPI) LMSInitialize(context.Context) (string, error)               { return resultTrue, nil }
func (NopAPI) LMSFinish(context.Context) (string, error)                   { return resultTrue, nil }
func (NopAPI) LMSGetValue(context.Context, string) (string, error)         { return "", nil }
func (NopAPI) LMSSetValue(context.Context, string, string) (string, error) { return resultTrue, nil }
func (NopAPI) LMSCommit(context.Context) (string, error)                   { return resultTrue, nil }
func (NopAPI) LMSGetLastError(context.Context) (string, error)             { return NoErrorCode, nil }
func (NopAPI) LMSGetErrorString(context.Context) (string, error)           { return NoErrorString, nil }
func (NopAPI) LMSGetDiagnostic(context.Context) (string, error)            { return NoDiagnostic, nil }

// Call is one invocation seen by a Recorder.
type Call struct {
	Action    Action
	Parameter string
	Value     string
}

// Recorder is an API that remembers every call. Fail, when set, decides the
// error returned for a call; Panic makes the named action panic.
type Recorder struct {
	Fail  func(Call) error
	Panic Action

	mu    sync.Mutex
	calls []Call
}

var _ API = (*Recorder)(nil)

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func (r *Recorder) record(c Call, result string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	if r.Panic != "" && r.Panic == c.Action {
		panic("recorder: " + string(c.Action))
	}
	if r.Fail != nil {
		if err := r.Fail(c); err != nil {
			return "", err
		}
	}
	return result, nil
}

func (r *Recorder) LMSInitialize(context.Context) (string, error) {
	return r.record(Call{Action: ActionInitialize}, resultTrue)
}

func (r *Recorder) LMSFinish(context.Context) (string, error) {
	return r.record(Call{Action: ActionFinish}, resultTrue)
}

func (r *Recorder) LMSGetValue(_ context.Context, parameter string) (string, error) {
	return r.record(Call{Action: ActionGetValue, Parameter: parameter}, "")
}

func (r *Recorder) LMSSetValue(_ context.Context, parameter, value string) (string, error) {
	return r.record(Call{Action: ActionSetValue, Parameter: parameter, Value: value}, resultTrue)
}

func (r *Recorder) LMSCommit(context.Context) (string, error) {
	return r.record(Call{Action: ActionCommit}, resultTrue)
}

func (r *Recorder) LMSGetLastError(context.Context) (string, error) {
	return r.record(Call{Action: ActionGetLastError}, NoErrorCode)
}

func (r *Recorder) LMSGetErrorString(context.Context) (string, error) {
	return r.record(Call{Action: ActionGetErrorString}, NoErrorString)
}

func (r *Recorder) LMSGetDiagnostic(context.Context) (string, error) {
	return r.record(Call{Action: ActionGetDiagnostic}, NoDiagnostic)
}

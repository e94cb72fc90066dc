package bridge

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/scormbridge/internal/observability"
	"github.com/yungbote/scormbridge/internal/platform/logger"
)

var ErrUnknownAction = errors.New("unknown SCORM action")

// DispatchError wraps a failure while decoding or dispatching a message.
type DispatchError struct {
	Action Action
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("bridge dispatch: %v", e.Err)
	}
	return fmt.Sprintf("bridge dispatch %s: %v", e.Action, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher is the host half of the bridge.
type Dispatcher struct {
	log *logger.Logger
}

func NewDispatcher(log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{log: log.With("service", "BridgeDispatcher")}
}

var nopDispatcher = NewDispatcher(nil)

// Handle is Dispatcher.Handle without logging.
func Handle(ctx context.Context, raw []byte, api API) Reply {
	return nopDispatcher.Handle(ctx, raw, api)
}

// Handle decodes raw and dispatches it to api. It never panics and never
// returns an error; failures are logged and described in the Reply.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte, api API) Reply {
	msg, err := Decode(raw)
	if err != nil {
		derr := &DispatchError{Err: err}
		d.log.Error("Failed to handle message from content", "error", derr)
		observability.RecordBridgeMessage("", "invalid")
		return Reply{Result: resultFalse, Error: derr.Error()}
	}
	return d.Dispatch(ctx, msg, api)
}

// Dispatch routes one decoded message. API errors and panics are swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, api API) (reply Reply) {
	action, ok := ParseAction(string(msg.Action))
	if !ok {
		d.log.Warn("Unknown SCORM action", "action", string(msg.Action))
		observability.RecordBridgeMessage("unknown", "ignored")
		return Reply{Action: msg.Action, Result: resultFalse, Error: ErrUnknownAction.Error()}
	}
	reply = Reply{Action: action}

	ctx, span := observability.Tracer().Start(ctx, "bridge.Dispatch")
	span.SetAttributes(attribute.String("scorm.action", string(action)))
	if msg.Parameter != "" {
		span.SetAttributes(attribute.String("scorm.parameter", msg.Parameter))
	}
	defer func() {
		if rec := recover(); rec != nil {
			derr := &DispatchError{Action: action, Err: fmt.Errorf("panic: %v", rec)}
			d.log.Error("SCORM API implementation panicked", "action", string(action), "error", derr)
			reply = Reply{Action: action, Result: resultFalse, Error: derr.Error()}
		}
		outcome := "ok"
		if reply.Error != "" {
			outcome = "error"
			span.SetStatus(codes.Error, reply.Error)
		}
		observability.RecordBridgeMessage(string(action), outcome)
		span.End()
	}()

	d.log.Debug("SCORM event", "action", string(action), "parameter", msg.Parameter)
	if api == nil {
		return reply
	}

	var (
		result string
		err    error
	)
	switch action {
	case ActionInitialize:
		result, err = api.LMSInitialize(ctx)
	case ActionFinish:
		result, err = api.LMSFinish(ctx)
	case ActionGetValue:
		result, err = api.LMSGetValue(ctx, msg.Parameter)
	case ActionSetValue:
		result, err = api.LMSSetValue(ctx, msg.Parameter, msg.Value)
	case ActionCommit:
		result, err = api.LMSCommit(ctx)
	case ActionGetLastError:
		result, err = api.LMSGetLastError(ctx)
	case ActionGetErrorString:
		result, err = api.LMSGetErrorString(ctx)
	case ActionGetDiagnostic:
		result, err = api.LMSGetDiagnostic(ctx)
	}
	if err != nil {
		derr := &DispatchError{Action: action, Err: err}
		d.log.Warn("SCORM API call failed", "action", string(action), "parameter", msg.Parameter, "error", derr)
		span.RecordError(err)
		return Reply{Action: action, Result: resultFalse, Error: derr.Error()}
	}
	reply.Result = result
	return reply
}

package domain

import "github.com/yungbote/scormbridge/internal/domain/runtime"

const (
	AttemptStarted     = runtime.AttemptStarted
	AttemptInitialized = runtime.AttemptInitialized
	AttemptFinished    = runtime.AttemptFinished
)

type (
	Attempt = runtime.Attempt
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Attempt{},
	}
}

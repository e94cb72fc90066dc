package realtime

import (
	"time"

	"github.com/yungbote/scormbridge/internal/bridge"
)

// Event is one bridge message observed by the host, with the reply it got.
type Event struct {
	SessionID string         `json:"session_id"`
	LearnerID string         `json:"learner_id,omitempty"`
	Message   bridge.Message `json:"message"`
	Reply     bridge.Reply   `json:"reply"`
	At        time.Time      `json:"at"`
}

// Channel is the hub channel an event is broadcast on.
func (e Event) Channel() string {
	return SessionChannel(e.SessionID)
}

func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}

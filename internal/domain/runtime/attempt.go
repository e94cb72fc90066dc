package runtime

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attempt states.
const (
	AttemptStarted     = "started"
	AttemptInitialized = "initialized"
	AttemptFinished    = "finished"
)

// Attempt is one learner session against one package root. Data holds the
// learner's run-time record as last committed.
type Attempt struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID     string            `gorm:"column:learner_id;not null;index:idx_attempt_learner_root" json:"learner_id"`
	PackageRoot   string            `gorm:"column:package_root;not null;index:idx_attempt_learner_root" json:"package_root"`
	EntryFile     string            `gorm:"column:entry_file" json:"entry_file"`
	State         string            `gorm:"column:state;not null;index" json:"state"`
	LessonStatus  string            `gorm:"column:lesson_status;index" json:"lesson_status,omitempty"`
	ScoreRaw      *float64          `gorm:"column:score_raw" json:"score_raw,omitempty"`
	Data          datatypes.JSONMap `gorm:"column:data" json:"data"`
	InitializedAt *time.Time        `gorm:"column:initialized_at" json:"initialized_at,omitempty"`
	CommittedAt   *time.Time        `gorm:"column:committed_at" json:"committed_at,omitempty"`
	FinishedAt    *time.Time        `gorm:"column:finished_at;index" json:"finished_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (Attempt) TableName() string { return "scorm_attempt" }

func (a *Attempt) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.State == "" {
		a.State = AttemptStarted
	}
	return nil
}

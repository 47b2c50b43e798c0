package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStateQueued     = "queued"
	JobStateInProgress = "in-progress"
	JobStateCompleted  = "completed"
	JobStateFailed     = "failed"
	JobStateCancelled  = "cancelled"
	JobStateStalled    = "stalled"
)

type Job struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JobID                string     `gorm:"column:job_id;type:varchar(50);uniqueIndex;not null" json:"job_id"`
	InputS3Path          string     `gorm:"column:input_s3_path;type:varchar(255);not null" json:"input_s3_path"`
	OutputS3Path         string     `gorm:"column:output_s3_path;type:varchar(255);not null" json:"output_s3_path"`
	Pipeline             string     `gorm:"column:pipeline;type:text;not null" json:"pipeline"`
	PresetID             *uuid.UUID `gorm:"column:preset_id;type:uuid;index" json:"preset_id"`
	Preset               *Preset    `gorm:"foreignKey:PresetID;references:PresetID" json:"preset,omitempty"`
	State                string     `gorm:"column:state;type:varchar(20);not null;default:'queued'" json:"state"`
	Error                *string    `gorm:"column:error;type:text" json:"error"`
	ErrorType            *string    `gorm:"column:error_type;type:varchar(50)" json:"error_type"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null" json:"updated_at"`
	TranscodeStartedAt   *time.Time `gorm:"column:transcode_started_at" json:"transcode_started_at"`
	TranscodeCompletedAt *time.Time `gorm:"column:transcode_completed_at" json:"transcode_completed_at"`
}

func (Job) TableName() string { return "jobs" }

// IsTerminalJobState reports whether state admits no further transitions.
func IsTerminalJobState(state string) bool {
	switch state {
	case JobStateCompleted, JobStateFailed, JobStateCancelled, JobStateStalled:
		return true
	default:
		return false
	}
}

// CanTransitionJobState reports whether from -> to is a legal lifecycle move.
// Queued jobs may start or be cancelled; in-progress jobs may finish, fail or
// stall; terminal states are frozen.
func CanTransitionJobState(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case JobStateQueued:
		return to == JobStateInProgress || to == JobStateCancelled
	case JobStateInProgress:
		return to == JobStateCompleted || to == JobStateFailed || to == JobStateStalled
	default:
		return false
	}
}

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

// UpdateJobInput carries the mutable job fields; nil means untouched.
type UpdateJobInput struct {
	InputS3Path  *string
	OutputS3Path *string
	Pipeline     *string
	PresetID     *uuid.UUID
	State        *string
	Error        *string
	ErrorType    *string
}

type JobService interface {
	Get(ctx context.Context, jobID string) (*types.Job, error)
	List(ctx context.Context, offset, limit int) ([]*types.Job, error)
	Update(ctx context.Context, jobID string, in UpdateJobInput) (*types.Job, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	jobs repos.JobRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		jobs: jobs,
	}
}

func (s *jobService) Get(ctx context.Context, jobID string) (*types.Job, error) {
	return s.jobs.GetByJobID(dbctx.Context{Ctx: ctx}, jobID)
}

func (s *jobService) List(ctx context.Context, offset, limit int) ([]*types.Job, error) {
	return s.jobs.List(dbctx.Context{Ctx: ctx}, offset, limit)
}

// Update applies the provided fields. State changes go through the same
// guarded primitives the workers use, so the lifecycle timestamps stay
// consistent: a move to a terminal state finalizes (stamping the completion
// time) and a move to in-progress claims (stamping the start time). In
// practice the externally useful move is cancelling a queued job.
func (s *jobService) Update(ctx context.Context, jobID string, in UpdateJobInput) (*types.Job, error) {
	var out *types.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		job, err := s.jobs.GetByJobID(dbc, jobID)
		if err != nil {
			return err
		}

		toTerminal := in.State != nil && *in.State != job.State && types.IsTerminalJobState(*in.State)

		updates := map[string]interface{}{}
		if in.InputS3Path != nil {
			updates["input_s3_path"] = *in.InputS3Path
		}
		if in.OutputS3Path != nil {
			updates["output_s3_path"] = *in.OutputS3Path
		}
		if in.Pipeline != nil {
			updates["pipeline"] = *in.Pipeline
		}
		if in.PresetID != nil {
			updates["preset_id"] = *in.PresetID
		}
		// Finalize records the error fields itself on a terminal move.
		if !toTerminal {
			if in.Error != nil {
				updates["error"] = *in.Error
			}
			if in.ErrorType != nil {
				updates["error_type"] = *in.ErrorType
			}
		}
		if len(updates) > 0 {
			if err := s.jobs.UpdateFields(dbc, jobID, updates); err != nil {
				return err
			}
		}

		if in.State != nil && *in.State != job.State {
			switch {
			case toTerminal:
				if _, err := s.jobs.Finalize(dbc, jobID, *in.State, in.Error, in.ErrorType); err != nil {
					return err
				}
			case *in.State == types.JobStateInProgress:
				outcome, _, err := s.jobs.Claim(dbc, jobID)
				if err != nil {
					return err
				}
				if outcome != repos.ClaimOK {
					return fmt.Errorf("job %s: %s -> %s: %w", jobID, job.State, *in.State, repos.ErrIllegalTransition)
				}
			default:
				return fmt.Errorf("job %s: %s -> %s: %w", jobID, job.State, *in.State, repos.ErrIllegalTransition)
			}
		}

		out, err = s.jobs.GetByJobID(dbc, jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("Job updated", "jobID", jobID)
	return out, nil
}

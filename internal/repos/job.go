package repos

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/types"
)

// ClaimOutcome classifies a claim attempt against the job lifecycle.
type ClaimOutcome string

const (
	ClaimOK         ClaimOutcome = "claimed"
	ClaimNotFound   ClaimOutcome = "not-found"
	ClaimCancelled  ClaimOutcome = "cancelled"
	ClaimInProgress ClaimOutcome = "already-in-progress"
	ClaimTerminal   ClaimOutcome = "already-terminal"
)

type JobRepo interface {
	Create(dbc dbctx.Context, job *types.Job) (*types.Job, error)
	GetByJobID(dbc dbctx.Context, jobID string) (*types.Job, error)
	List(dbc dbctx.Context, offset, limit int) ([]*types.Job, error)
	UpdateFields(dbc dbctx.Context, jobID string, updates map[string]interface{}) error
	Claim(dbc dbctx.Context, jobID string) (ClaimOutcome, *types.Job, error)
	Finalize(dbc dbctx.Context, jobID string, state string, errMsg, errType *string) (*types.Job, error)
	ListStale(dbc dbctx.Context, cutoff time.Time) ([]*types.Job, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) Create(dbc dbctx.Context, job *types.Job) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, fmt.Errorf("create job: nil job")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.State == "" {
		job.State = types.JobStateQueued
	}
	if err := transaction.WithContext(dbc.Ctx).Create(job).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("create job %s: %w", job.JobID, ErrDuplicate)
		}
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) GetByJobID(dbc dbctx.Context, jobID string) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.Job
	err := transaction.WithContext(dbc.Ctx).
		Preload("Preset").
		Where("job_id = ?", jobID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Job
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, jobID string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("job_id = ?", jobID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return nil
}

// Claim moves a queued job to in-progress. The conditional update is the
// only cross-worker serialization point: exactly one claimer observes
// RowsAffected == 1, everyone else re-reads and gets told why.
func (r *jobRepo) Claim(dbc dbctx.Context, jobID string) (ClaimOutcome, *types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("job_id = ? AND state = ?", jobID, types.JobStateQueued).
		Updates(map[string]interface{}{
			"state":                types.JobStateInProgress,
			"transcode_started_at": now,
			"updated_at":           now,
		})
	if res.Error != nil {
		return "", nil, res.Error
	}
	if res.RowsAffected == 1 {
		job, err := r.GetByJobID(dbc, jobID)
		if err != nil {
			return "", nil, err
		}
		return ClaimOK, job, nil
	}

	job, err := r.GetByJobID(dbc, jobID)
	if errors.Is(err, ErrNotFound) {
		return ClaimNotFound, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	switch job.State {
	case types.JobStateCancelled:
		return ClaimCancelled, job, nil
	case types.JobStateInProgress:
		return ClaimInProgress, job, nil
	case types.JobStateQueued:
		// unreachable unless something rewrites states outside the graph
		return "", nil, fmt.Errorf("claim job %s: update matched no rows but state is queued", jobID)
	default:
		return ClaimTerminal, job, nil
	}
}

// Finalize moves a job into a terminal state, guarded by the lifecycle
// graph. Finalizing into the state the job already holds is a no-op so a
// worker and the stall detector can race without harm.
func (r *jobRepo) Finalize(dbc dbctx.Context, jobID string, state string, errMsg, errType *string) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if !types.IsTerminalJobState(state) {
		return nil, fmt.Errorf("finalize job %s: %q is not a terminal state", jobID, state)
	}
	job, err := r.GetByJobID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job.State == state {
		return job, nil
	}
	if !types.CanTransitionJobState(job.State, state) {
		return nil, fmt.Errorf("finalize job %s (%s -> %s): %w", jobID, job.State, state, ErrIllegalTransition)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"state":                  state,
		"updated_at":             now,
		"transcode_completed_at": now,
	}
	if errMsg != nil {
		updates["error"] = *errMsg
	}
	if errType != nil {
		updates["error_type"] = *errType
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("job_id = ? AND state = ?", jobID, job.State).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// lost a race against another finalizer; reclassify
		cur, err := r.GetByJobID(dbc, jobID)
		if err != nil {
			return nil, err
		}
		if cur.State == state {
			return cur, nil
		}
		return nil, fmt.Errorf("finalize job %s (%s -> %s): %w", jobID, cur.State, state, ErrIllegalTransition)
	}
	return r.GetByJobID(dbc, jobID)
}

func (r *jobRepo) ListStale(dbc dbctx.Context, cutoff time.Time) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Job
	if err := transaction.WithContext(dbc.Ctx).
		Where("state = ? AND updated_at < ?", types.JobStateInProgress, cutoff).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/broker"
	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

// Publisher is the broker surface the dispatcher needs. *broker.Broker
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

type SubmitJobInput struct {
	JobID        string
	InputS3Path  string
	OutputS3Path string
	Pipeline     *string
	PresetID     *uuid.UUID
}

type CreatePlaylistInput struct {
	Name        string
	InputS3Path string
	Presets     []uuid.UUID
}

// PlaylistReceipt echoes what was created: the playlist id, the source path
// and the external ids of the fanned-out jobs, in preset order.
type PlaylistReceipt struct {
	PlaylistID  uuid.UUID `json:"playlist_id"`
	InputS3Path string    `json:"input_s3_path"`
	Jobs        []string  `json:"jobs"`
}

// DispatchService turns accepted submissions into queued jobs and work
// messages. Rows are persisted before anything is published: the worker drops
// submissions whose job id it cannot find, so the store write must win the
// race against the queue.
type DispatchService interface {
	Submit(ctx context.Context, in SubmitJobInput) (*types.Job, error)
	CreatePlaylist(ctx context.Context, in CreatePlaylistInput) (*PlaylistReceipt, error)
}

type dispatchService struct {
	db        *gorm.DB
	log       *logger.Logger
	jobs      repos.JobRepo
	presets   repos.PresetRepo
	playlists repos.PlaylistRepo
	publisher Publisher
}

func NewDispatchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	presets repos.PresetRepo,
	playlists repos.PlaylistRepo,
	publisher Publisher,
) DispatchService {
	return &dispatchService{
		db:        db,
		log:       baseLog.With("service", "DispatchService"),
		jobs:      jobs,
		presets:   presets,
		playlists: playlists,
		publisher: publisher,
	}
}

func (s *dispatchService) Submit(ctx context.Context, in SubmitJobInput) (*types.Job, error) {
	if in.JobID == "" {
		return nil, fmt.Errorf("missing job_id")
	}
	dbc := dbctx.Context{Ctx: ctx}

	pipeline := ""
	switch {
	case in.PresetID != nil:
		preset, err := s.presets.GetByID(dbc, *in.PresetID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrPresetNotFound
			}
			return nil, fmt.Errorf("resolve preset: %w", err)
		}
		pipeline = preset.Pipeline
	case in.Pipeline != nil:
		pipeline = *in.Pipeline
	default:
		return nil, ErrPipelineRequired
	}

	job := &types.Job{
		ID:           uuid.New(),
		JobID:        in.JobID,
		InputS3Path:  in.InputS3Path,
		OutputS3Path: in.OutputS3Path,
		Pipeline:     pipeline,
		PresetID:     in.PresetID,
		State:        types.JobStateQueued,
	}
	if _, err := s.jobs.Create(dbc, job); err != nil {
		return nil, err
	}

	if err := s.publishSubmission(ctx, job); err != nil {
		return nil, err
	}
	s.log.Info("Job submitted", "jobID", job.JobID, "presetID", in.PresetID)
	return job, nil
}

// CreatePlaylist creates the playlist and one job per preset in a single
// transaction, then publishes a work message per job. Deterministic external
// ids (<name>-<idx>) make the fan-out replayable; nothing reaches the queue
// when any preset is unknown.
func (s *dispatchService) CreatePlaylist(ctx context.Context, in CreatePlaylistInput) (*PlaylistReceipt, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("missing playlist name")
	}

	playlist := &types.Playlist{
		ID:   uuid.New(),
		Name: in.Name,
	}
	jobs := make([]*types.Job, 0, len(in.Presets))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for idx, presetID := range in.Presets {
			preset, err := s.presets.GetByID(dbc, presetID)
			if err != nil {
				if isNotFound(err) {
					return ErrPresetNotFound
				}
				return fmt.Errorf("resolve preset %s: %w", presetID, err)
			}
			jobID := fmt.Sprintf("%s-%d", in.Name, idx)
			pid := presetID
			jobs = append(jobs, &types.Job{
				ID:           uuid.New(),
				JobID:        jobID,
				InputS3Path:  in.InputS3Path,
				OutputS3Path: fmt.Sprintf("%s/%s/%s.mp4", playlist.ID, presetID, jobID),
				Pipeline:     preset.Pipeline,
				PresetID:     &pid,
				State:        types.JobStateQueued,
			})
		}
		playlist.Jobs = jobs
		_, err := s.playlists.Create(dbc, playlist)
		return err
	})
	if err != nil {
		return nil, err
	}

	receipt := &PlaylistReceipt{
		PlaylistID:  playlist.ID,
		InputS3Path: in.InputS3Path,
		Jobs:        make([]string, 0, len(jobs)),
	}
	for _, job := range jobs {
		if err := s.publishSubmission(ctx, job); err != nil {
			return nil, err
		}
		receipt.Jobs = append(receipt.Jobs, job.JobID)
	}
	s.log.Info("Playlist created", "playlistID", playlist.ID, "name", in.Name, "jobs", len(jobs))
	return receipt, nil
}

func (s *dispatchService) publishSubmission(ctx context.Context, job *types.Job) error {
	msg := messages.JobSubmissionMessage{
		JobID:            job.JobID,
		InputS3Path:      job.InputS3Path,
		OutputS3Path:     job.OutputS3Path,
		TranscodeOptions: job.Pipeline,
	}
	if err := s.publisher.Publish(ctx, "", broker.JobsQueue, msg); err != nil {
		return fmt.Errorf("publish submission for %s: %w", job.JobID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repos.ErrNotFound)
}

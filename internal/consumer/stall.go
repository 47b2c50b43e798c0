package consumer

import (
	"context"
	"time"

	"github.com/yungbote/transcoderd/internal/events"
	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/progress"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

// StallDetector sweeps for in-progress jobs whose worker went quiet. A job is
// live only while its row was touched or a progress message arrived within
// the idle horizon; everything else is finalized as stalled and announced to
// subscribers with a synthetic result. Stalled jobs are never revived here.
type StallDetector struct {
	log     *logger.Logger
	jobs    repos.JobRepo
	tracker *progress.Tracker
	events  *events.Manager

	interval time.Duration
	maxIdle  time.Duration
	now      func() time.Time
}

func NewStallDetector(
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	tracker *progress.Tracker,
	eventManager *events.Manager,
) *StallDetector {
	return &StallDetector{
		log:      baseLog.With("component", "StallDetector"),
		jobs:     jobs,
		tracker:  tracker,
		events:   eventManager,
		interval: time.Minute,
		maxIdle:  time.Minute,
		now:      time.Now,
	}
}

// Run sweeps once per interval until ctx ends. Store errors are logged and
// retried on the next tick.
func (d *StallDetector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *StallDetector) sweep(ctx context.Context) {
	d.log.Debug("Checking for stalled jobs")
	now := d.now()
	stale, err := d.jobs.ListStale(dbctx.From(ctx), now.Add(-d.maxIdle))
	if err != nil {
		d.log.Error("Stall sweep query failed", "error", err)
		return
	}
	for _, job := range stale {
		if entry, ok := d.tracker.Get(job.JobID); ok && now.Sub(entry.ReceivedAt) < d.maxIdle {
			continue
		}
		d.log.Info("Job has made no progress in over a minute, marking it stalled", "jobID", job.JobID)
		if _, err := d.jobs.Finalize(dbctx.From(ctx), job.JobID, types.JobStateStalled, nil, nil); err != nil {
			// Lost the race against the worker's own terminal write; the
			// winner's state stands.
			d.log.Warn("Could not mark job stalled", "jobID", job.JobID, "error", err)
			continue
		}
		d.tracker.Delete(job.JobID)
		d.events.Broadcast(job.JobID, events.EventCompletion, messages.JobResultMessage{
			JobID:  job.JobID,
			Status: types.JobStateStalled,
		})
	}
}

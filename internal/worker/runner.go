package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/transcoderd/internal/broker"
	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/pipeline"
	"github.com/yungbote/transcoderd/internal/platform/blob"
	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

// Publisher is the slice of the broker the runner publishes through.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// Source is the slice of the broker the runner consumes through.
type Source interface {
	Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler func(amqp.Delivery)) error
}

// Runner consumes the work queue one job at a time: claim, download,
// transcode with progress reporting, upload, then record and publish the
// terminal result before the delivery is acked.
type Runner struct {
	log    *logger.Logger
	id     string
	jobs   repos.JobRepo
	store  blob.Store
	engine pipeline.Engine
	pub    Publisher
	source Source

	// scratchDir defaults to the system temp directory.
	scratchDir string
	// maxIdle is how long the pipeline may go without reporting progress
	// before the watchdog kills it.
	maxIdle time.Duration
	poll    time.Duration
}

func NewRunner(log *logger.Logger, workerID string, jobs repos.JobRepo, store blob.Store, engine pipeline.Engine, pub Publisher, source Source) *Runner {
	return &Runner{
		log:     log.With("component", "Runner"),
		id:      workerID,
		jobs:    jobs,
		store:   store,
		engine:  engine,
		pub:     pub,
		source:  source,
		maxIdle: time.Minute,
		poll:    time.Second,
	}
}

// Run blocks consuming the work queue until ctx is done. Prefetch 1 keeps a
// busy worker from hoarding queued jobs.
func (r *Runner) Run(ctx context.Context) error {
	return r.source.Consume(ctx, broker.JobsQueue, "worker-"+r.id, 1, func(d amqp.Delivery) {
		r.handle(ctx, d)
	})
}

func (r *Runner) handle(ctx context.Context, d amqp.Delivery) {
	// The delivery is acked on every outcome except a claim that failed on
	// the database, which is requeued for a worker that can reach it.
	requeue := false
	defer func() {
		if requeue {
			r.nack(d)
		} else {
			r.ack(d)
		}
	}()

	var sub messages.JobSubmissionMessage
	if err := json.Unmarshal(d.Body, &sub); err != nil {
		r.log.Error("Could not decode job submission", "error", err)
		return
	}
	jobLog := r.log.With("job_id", sub.JobID)
	jobLog.Info("Received a new transcoding job")

	outcome, job, err := r.jobs.Claim(dbctx.From(ctx), sub.JobID)
	if err != nil {
		jobLog.Error("Could not claim job", "error", err)
		requeue = true
		return
	}
	switch outcome {
	case repos.ClaimOK:
	case repos.ClaimNotFound:
		jobLog.Info("Job could not be found in the DB, skipping processing")
		return
	case repos.ClaimCancelled:
		jobLog.Info("Job has been cancelled, skipping processing")
		return
	case repos.ClaimInProgress:
		jobLog.Info("Job is already in progress, skipping processing")
		return
	default:
		if job.State == types.JobStateStalled {
			jobLog.Info("Job stalled the last time it was attempted, skipping processing")
		} else {
			jobLog.Error("Job is already in a terminal state, skipping processing", "state", job.State)
		}
		return
	}

	inputPath, outputPath, cleanup, err := r.scratchFiles()
	if err != nil {
		jobLog.Error("Could not create scratch files", "error", err)
		r.fail(ctx, jobLog, sub.JobID, messages.KindUnknown, err)
		return
	}
	defer cleanup()

	dlStart := time.Now()
	jobLog.Info("Downloading input from S3", "key", sub.InputS3Path)
	if err := r.store.Download(ctx, sub.InputS3Path, inputPath); err != nil {
		jobLog.Error("Unable to download input", "error", err)
		r.fail(ctx, jobLog, sub.JobID, messages.KindS3Download, err)
		return
	}
	jobLog.Info("Input finished downloading", "path", inputPath, "seconds", time.Since(dlStart).Seconds())

	if err := r.transcode(ctx, jobLog, sub, inputPath, outputPath); err != nil {
		r.fail(ctx, jobLog, sub.JobID, pipeline.Classify(err), err)
		return
	}
	jobLog.Info("Transcoding completed")

	jobLog.Info("Uploading output to S3", "key", sub.OutputS3Path)
	out, err := os.Open(outputPath)
	if err != nil {
		jobLog.Error("Unable to open output for upload", "error", err)
		r.fail(ctx, jobLog, sub.JobID, messages.KindS3Upload, err)
		return
	}
	defer out.Close()
	if err := r.store.Upload(ctx, sub.OutputS3Path, out); err != nil {
		jobLog.Error("Unable to upload output", "error", err)
		r.fail(ctx, jobLog, sub.JobID, messages.KindS3Upload, err)
		return
	}

	r.complete(ctx, jobLog, sub.JobID, sub.OutputS3Path)
}

// transcode runs the engine with a watchdog sibling. The watchdog cancels
// the engine when the pipeline stops reporting progress for maxIdle.
func (r *Runner) transcode(ctx context.Context, jobLog *logger.Logger, sub messages.JobSubmissionMessage, inputPath, outputPath string) error {
	description := pipeline.Expand(sub.TranscodeOptions, inputPath, outputPath)

	engineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lastProgress atomic.Int64
	lastProgress.Store(time.Now().UnixNano())
	var timedOut atomic.Bool

	onProgress := func(percent float64) {
		lastProgress.Store(time.Now().UnixNano())
		msg := messages.JobProgressMessage{
			Timestamp: unixSeconds(time.Now()),
			WorkerID:  r.id,
			JobID:     sub.JobID,
			Progress:  math.Round(percent*10000) / 10000,
		}
		if err := r.pub.Publish(ctx, broker.ProgressExchange, broker.ProgressKey(r.id), msg); err != nil {
			jobLog.Warn("Could not publish progress", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(engineCtx)
	g.Go(func() error {
		defer cancel()
		return r.engine.Run(gctx, description, onProgress)
	})
	g.Go(func() error {
		ticker := time.NewTicker(r.poll)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				idle := time.Since(time.Unix(0, lastProgress.Load()))
				if idle > r.maxIdle {
					timedOut.Store(true)
					return fmt.Errorf("pipeline failed to progress after %s", r.maxIdle)
				}
			}
		}
	})

	err := g.Wait()
	if err != nil && timedOut.Load() {
		return pipeline.NewTranscodeError(messages.KindPipelineTimeout, err)
	}
	return err
}

// fail records the failed state first so the database never lags behind the
// result that observers are about to see.
func (r *Runner) fail(ctx context.Context, jobLog *logger.Logger, jobID string, kind messages.ErrorKind, cause error) {
	errMsg := cause.Error()
	errType := kind.String()
	if _, err := r.jobs.Finalize(dbctx.From(ctx), jobID, types.JobStateFailed, &errMsg, &errType); err != nil {
		// Lost the race against another finalizer; its state stands but the
		// result message still reports what this attempt saw.
		jobLog.Warn("Could not record failure", "error", err)
	}
	now := unixSeconds(time.Now())
	r.publishResult(ctx, jobLog, messages.JobResultMessage{
		JobID:     jobID,
		Status:    types.JobStateFailed,
		Timestamp: &now,
		WorkerID:  &r.id,
		Error:     &errMsg,
		ErrorType: &errType,
	})
	jobLog.Error("Transcoding failed", "error_type", errType)
}

func (r *Runner) complete(ctx context.Context, jobLog *logger.Logger, jobID, outputKey string) {
	if _, err := r.jobs.Finalize(dbctx.From(ctx), jobID, types.JobStateCompleted, nil, nil); err != nil {
		jobLog.Warn("Could not record completion", "error", err)
	}
	now := unixSeconds(time.Now())
	r.publishResult(ctx, jobLog, messages.JobResultMessage{
		JobID:        jobID,
		Status:       types.JobStateCompleted,
		Timestamp:    &now,
		WorkerID:     &r.id,
		OutputS3Path: &outputKey,
	})
	jobLog.Info("Job completed and result message sent")
}

func (r *Runner) publishResult(ctx context.Context, jobLog *logger.Logger, msg messages.JobResultMessage) {
	if err := r.pub.Publish(ctx, broker.ResultsExchange, broker.ResultsKey(r.id), msg); err != nil {
		jobLog.Error("Could not publish result", "error", err)
	}
}

// scratchFiles creates empty input and output files for the pipeline to
// read and write by path.
func (r *Runner) scratchFiles() (inputPath, outputPath string, cleanup func(), err error) {
	input, err := os.CreateTemp(r.scratchDir, "transcode-*.in")
	if err != nil {
		return "", "", nil, fmt.Errorf("Failed to create input scratch file: %w", err)
	}
	_ = input.Close()
	output, err := os.CreateTemp(r.scratchDir, "transcode-*.out")
	if err != nil {
		_ = os.Remove(input.Name())
		return "", "", nil, fmt.Errorf("Failed to create output scratch file: %w", err)
	}
	_ = output.Close()
	cleanup = func() {
		_ = os.Remove(input.Name())
		_ = os.Remove(output.Name())
	}
	return input.Name(), output.Name(), cleanup, nil
}

func (r *Runner) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		r.log.Warn("Could not ack delivery", "error", err)
	}
}

func (r *Runner) nack(d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		r.log.Warn("Could not nack delivery", "error", err)
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

package consumer

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/transcoderd/internal/broker"
	"github.com/yungbote/transcoderd/internal/events"
	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/progress"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

// MessageSource is the broker surface the consumer needs. *broker.Broker
// satisfies it.
type MessageSource interface {
	Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler func(amqp.Delivery)) error
}

// Consumer drains the shared progress and results queues and fans the
// messages out to subscribers. It is an observer: workers own the terminal
// store writes, and the consumer only mirrors them to listeners. It is also
// the sole writer of the progress tracker.
type Consumer struct {
	log     *logger.Logger
	source  MessageSource
	jobs    repos.JobRepo
	tracker *progress.Tracker
	events  *events.Manager
}

func NewConsumer(
	baseLog *logger.Logger,
	source MessageSource,
	jobs repos.JobRepo,
	tracker *progress.Tracker,
	eventManager *events.Manager,
) *Consumer {
	return &Consumer{
		log:     baseLog.With("component", "Consumer"),
		source:  source,
		jobs:    jobs,
		tracker: tracker,
		events:  eventManager,
	}
}

// Run consumes both queues until ctx ends. Messages are always acked; a
// message that cannot be used is logged and dropped.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.source.Consume(ctx, broker.ProgressQueue, "", 0, func(d amqp.Delivery) {
			c.handleProgress(ctx, d)
		})
	})
	g.Go(func() error {
		return c.source.Consume(ctx, broker.ResultsQueue, "", 0, func(d amqp.Delivery) {
			c.handleResult(ctx, d)
		})
	})
	return g.Wait()
}

func (c *Consumer) handleProgress(ctx context.Context, d amqp.Delivery) {
	var msg messages.JobProgressMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Warn("Discarding malformed progress message", "error", err)
	} else {
		c.onProgress(ctx, msg)
	}
	c.ack(d)
}

func (c *Consumer) handleResult(ctx context.Context, d amqp.Delivery) {
	var msg messages.JobResultMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Warn("Discarding malformed result message", "error", err)
	} else {
		c.onResult(ctx, msg)
	}
	c.ack(d)
}

func (c *Consumer) onProgress(ctx context.Context, msg messages.JobProgressMessage) {
	job, err := c.jobs.GetByJobID(dbctx.From(ctx), msg.JobID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			c.log.Info("Received progress message for unknown job", "jobID", msg.JobID)
		} else {
			c.log.Error("Progress job lookup failed", "jobID", msg.JobID, "error", err)
		}
		return
	}
	// A terminal job already had its completion delivered; a straggling
	// progress message must not recreate tracker state for it.
	if types.IsTerminalJobState(job.State) {
		c.log.Debug("Ignoring progress for terminal job", "jobID", msg.JobID, "state", job.State)
		return
	}
	c.tracker.Set(msg)
	c.events.Broadcast(msg.JobID, events.EventProgress, msg)
}

func (c *Consumer) onResult(ctx context.Context, msg messages.JobResultMessage) {
	if _, err := c.jobs.GetByJobID(dbctx.From(ctx), msg.JobID); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			c.log.Info("Received result message for unknown job", "jobID", msg.JobID)
		} else {
			c.log.Error("Result job lookup failed", "jobID", msg.JobID, "error", err)
		}
		return
	}
	c.tracker.Delete(msg.JobID)
	if msg.Status == types.JobStateCompleted || msg.Status == types.JobStateFailed {
		c.events.Broadcast(msg.JobID, events.EventCompletion, msg)
	}
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.log.Warn("Failed to ack delivery", "error", err)
	}
}

package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// JobsQueue carries one JobSubmissionMessage per transcode job and is
	// served by the default direct exchange.
	JobsQueue = "transcoding_jobs"

	ProgressExchange = "progress_logs"
	ResultsExchange  = "results_logs"

	ProgressQueue = "transcoding_progress"
	ResultsQueue  = "transcoding_results"

	ProgressBinding = "transcoding_progress.*"
	ResultsBinding  = "transcoding_results.*"
)

// ProgressKey is the routing key a worker publishes progress under. The same
// string names that worker's private progress queue.
func ProgressKey(workerID string) string {
	return ProgressQueue + "." + workerID
}

// ResultsKey is the routing key a worker publishes results under, and the
// name of its private results queue.
func ResultsKey(workerID string) string {
	return ResultsQueue + "." + workerID
}

type declaration func(*amqp.Channel) error

// DeclareAPITopology declares everything the coordinator touches: the work
// queue plus the shared progress and results queues bound to their topic
// exchanges.
func (b *Broker) DeclareAPITopology(ctx context.Context) error {
	return b.declare(ctx,
		declareJobsQueue,
		declareExchanges,
		declareBoundQueue(ProgressQueue, ProgressBinding, ProgressExchange, false),
		declareBoundQueue(ResultsQueue, ResultsBinding, ResultsExchange, false),
	)
}

// DeclareWorkerTopology declares the work queue, the topic exchanges, and the
// worker's private progress/results queues. Private queues are exclusive so
// the server reaps them when the worker disconnects.
func (b *Broker) DeclareWorkerTopology(ctx context.Context, workerID string) error {
	return b.declare(ctx,
		declareJobsQueue,
		declareExchanges,
		declareBoundQueue(ProgressKey(workerID), ProgressBinding, ProgressExchange, true),
		declareBoundQueue(ResultsKey(workerID), ResultsBinding, ResultsExchange, true),
	)
}

// declare runs each declaration on the live channel and records it for replay
// on reconnect. Declarations are idempotent on the server, so re-declaring an
// existing topology yields the same queues and bindings.
func (b *Broker) declare(ctx context.Context, decls ...declaration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.ch == nil || b.conn.IsClosed() {
		b.conn, b.ch = nil, nil
		if err := b.dialLocked(ctx); err != nil {
			return err
		}
	}
	for _, d := range decls {
		if err := d(b.ch); err != nil {
			return err
		}
	}
	b.declarations = append(b.declarations, decls...)
	return nil
}

func declareJobsQueue(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(JobsQueue, false, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", JobsQueue, err)
	}
	return nil
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []string{ProgressExchange, ResultsExchange} {
		if err := ch.ExchangeDeclare(name, "topic", false, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareBoundQueue(queue, binding, exchange string, exclusive bool) declaration {
	return func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(queue, false, false, exclusive, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, binding, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
		}
		return nil
	}
}

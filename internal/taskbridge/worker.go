package taskbridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler executes one task.
type Handler func(ctx context.Context, args map[string]string) error

const (
	// Deferred tasks due within this window are waited out inline; anything
	// further out goes back on the queue so it cannot hold up tasks behind it.
	maxInlineWait = 5 * time.Second
	// Pause after requeueing so a lone deferred task does not spin the loop.
	requeuePause = time.Second
)

// Worker consumes task envelopes and dispatches them to registered handlers.
type Worker struct {
	reader   *kafka.Reader
	bridge   Bridge
	handlers map[string]Handler
	clock    clock.Clock
	logger   logger.Logger
	sleep    func(time.Duration)
}

func NewWorker(brokers []string, topic, groupID string, bridge Bridge, clk clock.Clock, log logger.Logger) *Worker {
	return &Worker{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		bridge:   bridge,
		handlers: make(map[string]Handler),
		clock:    clk,
		logger:   log,
		sleep:    time.Sleep,
	}
}

func (w *Worker) Register(task string, h Handler) {
	w.handlers[task] = h
}

// Handlers exposes the registry so an in-process bridge can dispatch to the
// same handlers in tests.
func (w *Worker) Handlers() map[string]Handler {
	return w.handlers
}

func (w *Worker) Close() error {
	return w.reader.Close()
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("task worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("task worker stopping")
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Error("failed to read task message", zap.Error(err))
				w.sleep(time.Second)
				continue
			}
			w.process(ctx, msg.Value)
		}
	}
}

func (w *Worker) process(ctx context.Context, value []byte) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		w.logger.Error("failed to unmarshal task envelope", zap.Error(err))
		return
	}

	handler, ok := w.handlers[env.Task]
	if !ok {
		w.logger.Warn("no handler for task", zap.String("task", env.Task))
		return
	}

	// Honour the eta without blocking the consumer loop on it.
	if env.ETA != nil {
		if wait := env.ETA.Sub(w.clock.Now()); wait > 0 {
			if wait > maxInlineWait && w.bridge != nil {
				err := w.bridge.EnqueueAt(ctx, env.Task, env.Args, *env.ETA)
				if err == nil {
					w.sleep(requeuePause)
					return
				}
				w.logger.Error("failed to requeue deferred task",
					zap.String("task", env.Task), zap.Error(err))
			}
			w.sleep(wait)
		}
	}

	w.logger.Info("running task", zap.String("task", env.Task))
	if err := handler(ctx, env.Args); err != nil {
		w.logger.Error("task failed", zap.String("task", env.Task), zap.Error(err))
		return
	}
	w.logger.Info("task complete", zap.String("task", env.Task))
}

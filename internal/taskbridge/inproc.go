package taskbridge

import (
	"context"
	"sync"
	"time"
)

// InProcBridge records enqueued tasks in memory. Tests assert on Enqueued;
// when a handler registry is attached, immediate tasks run synchronously.
type InProcBridge struct {
	mu       sync.Mutex
	Enqueued []Envelope
	handlers map[string]Handler
}

func NewInProcBridge() *InProcBridge {
	return &InProcBridge{}
}

// Attach lets immediate enqueues dispatch straight to handlers.
func (b *InProcBridge) Attach(handlers map[string]Handler) {
	b.handlers = handlers
}

func (b *InProcBridge) Enqueue(ctx context.Context, task string, args map[string]string) error {
	b.record(Envelope{Task: task, Args: args, EnqueuedAt: time.Now()})
	if h, ok := b.handlers[task]; ok {
		return h(ctx, args)
	}
	return nil
}

func (b *InProcBridge) EnqueueAt(ctx context.Context, task string, args map[string]string, eta time.Time) error {
	b.record(Envelope{Task: task, Args: args, ETA: &eta, EnqueuedAt: time.Now()})
	return nil
}

func (b *InProcBridge) record(env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Enqueued = append(b.Enqueued, env)
}

// Last returns the most recently enqueued envelope, nil when none.
func (b *InProcBridge) Last() *Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Enqueued) == 0 {
		return nil
	}
	env := b.Enqueued[len(b.Enqueued)-1]
	return &env
}

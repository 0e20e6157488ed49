package taskbridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestInProcBridgeDispatchesToAttachedHandlers(t *testing.T) {
	bridge := NewInProcBridge()

	var gotArgs map[string]string
	bridge.Attach(map[string]Handler{
		TaskCloseManifest: func(_ context.Context, args map[string]string) error {
			gotArgs = args
			return nil
		},
	})

	err := bridge.Enqueue(context.Background(), TaskCloseManifest,
		map[string]string{"manifest_id": "m1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"manifest_id": "m1"}, gotArgs)

	require.Len(t, bridge.Enqueued, 1)
	assert.Equal(t, TaskCloseManifest, bridge.Enqueued[0].Task)
	assert.Nil(t, bridge.Enqueued[0].ETA)
}

func TestInProcBridgePropagatesHandlerError(t *testing.T) {
	bridge := NewInProcBridge()
	boom := errors.New("boom")
	bridge.Attach(map[string]Handler{
		TaskOrderUpdate: func(context.Context, map[string]string) error { return boom },
	})

	err := bridge.Enqueue(context.Background(), TaskOrderUpdate, nil)
	assert.ErrorIs(t, err, boom)
}

func TestInProcBridgeEnqueueAtRecordsETA(t *testing.T) {
	bridge := NewInProcBridge()
	called := false
	bridge.Attach(map[string]Handler{
		TaskClearFiles: func(context.Context, map[string]string) error {
			called = true
			return nil
		},
	})

	eta := fixedNow.Add(30 * time.Minute)
	require.NoError(t, bridge.EnqueueAt(context.Background(), TaskClearFiles,
		map[string]string{"manifest_id": "m1"}, eta))

	// Deferred tasks are recorded, never run inline.
	assert.False(t, called)
	env := bridge.Last()
	require.NotNil(t, env)
	require.NotNil(t, env.ETA)
	assert.Equal(t, eta, *env.ETA)
}

func TestRunScheduledEnqueuesRecurringTasks(t *testing.T) {
	bridge := NewInProcBridge()
	require.NoError(t, RunScheduled(context.Background(), bridge))

	tasks := make([]string, len(bridge.Enqueued))
	for i, env := range bridge.Enqueued {
		tasks[i] = env.Task
	}
	assert.Equal(t, []string{
		TaskUpdateExchangeRates,
		TaskOrderUpdate,
		TaskDetailsUpdate,
		TaskUpdateTracking,
		TaskMonthlyPurchaseExport,
	}, tasks)
}

func newTestWorker() (*Worker, *[]time.Duration) {
	var slept []time.Duration
	w := &Worker{
		handlers: make(map[string]Handler),
		clock:    clock.Fixed{T: fixedNow},
		logger:   logger.NewNop(),
		sleep:    func(d time.Duration) { slept = append(slept, d) },
	}
	return w, &slept
}

func marshalEnvelope(t *testing.T, env Envelope) []byte {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return b
}

func TestWorkerProcessDispatches(t *testing.T) {
	w, slept := newTestWorker()
	var gotArgs map[string]string
	w.Register(TaskRegenerateManifest, func(_ context.Context, args map[string]string) error {
		gotArgs = args
		return nil
	})

	w.process(context.Background(), marshalEnvelope(t, Envelope{
		Task: TaskRegenerateManifest,
		Args: map[string]string{"manifest_id": "m1"},
	}))

	assert.Equal(t, map[string]string{"manifest_id": "m1"}, gotArgs)
	assert.Empty(t, *slept)
}

func TestWorkerProcessWaitsOutShortETA(t *testing.T) {
	w, slept := newTestWorker()
	ran := false
	w.Register(TaskClearFiles, func(context.Context, map[string]string) error {
		ran = true
		return nil
	})

	eta := fixedNow.Add(3 * time.Second)
	w.process(context.Background(), marshalEnvelope(t, Envelope{
		Task: TaskClearFiles,
		ETA:  &eta,
	}))

	assert.True(t, ran)
	require.Len(t, *slept, 1)
	assert.Equal(t, 3*time.Second, (*slept)[0])
}

func TestWorkerProcessRequeuesDistantETA(t *testing.T) {
	w, slept := newTestWorker()
	bridge := NewInProcBridge()
	w.bridge = bridge
	ran := false
	w.Register(TaskClearFiles, func(context.Context, map[string]string) error {
		ran = true
		return nil
	})

	eta := fixedNow.Add(30 * time.Minute)
	w.process(context.Background(), marshalEnvelope(t, Envelope{
		Task: TaskClearFiles,
		Args: map[string]string{"manifest_id": "m1"},
		ETA:  &eta,
	}))

	// A task that is not yet due goes back on the queue instead of stalling
	// everything behind it.
	assert.False(t, ran)
	env := bridge.Last()
	require.NotNil(t, env)
	assert.Equal(t, TaskClearFiles, env.Task)
	assert.Equal(t, map[string]string{"manifest_id": "m1"}, env.Args)
	require.NotNil(t, env.ETA)
	assert.Equal(t, eta, *env.ETA)

	require.Len(t, *slept, 1)
	assert.Equal(t, requeuePause, (*slept)[0])
}

func TestWorkerProcessWaitsWithoutRequeuePath(t *testing.T) {
	w, slept := newTestWorker()
	ran := false
	w.Register(TaskClearFiles, func(context.Context, map[string]string) error {
		ran = true
		return nil
	})

	eta := fixedNow.Add(10 * time.Minute)
	w.process(context.Background(), marshalEnvelope(t, Envelope{
		Task: TaskClearFiles,
		ETA:  &eta,
	}))

	assert.True(t, ran)
	require.Len(t, *slept, 1)
	assert.Equal(t, 10*time.Minute, (*slept)[0])
}

func TestWorkerProcessIgnoresPastETA(t *testing.T) {
	w, slept := newTestWorker()
	w.Register(TaskClearFiles, func(context.Context, map[string]string) error { return nil })

	eta := fixedNow.Add(-time.Minute)
	w.process(context.Background(), marshalEnvelope(t, Envelope{
		Task: TaskClearFiles,
		ETA:  &eta,
	}))
	assert.Empty(t, *slept)
}

func TestWorkerProcessUnknownTask(t *testing.T) {
	w, _ := newTestWorker()
	// A task with no handler is dropped without panicking.
	w.process(context.Background(), marshalEnvelope(t, Envelope{Task: "mystery"}))
	w.process(context.Background(), []byte("not json"))
}

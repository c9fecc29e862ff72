package activity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-coach/pkg/events"
)

type flakySink struct {
	failures atomic.Int32
	calls    atomic.Int32
	mem      *events.MemorySink
}

func (f *flakySink) Append(ctx context.Context, e events.Envelope) error {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return errors.New("transient")
	}
	return f.mem.Append(ctx, e)
}

func TestGetWorkflowContext_OutsideActivity(t *testing.T) {
	b := NewBaseActivities(nil)
	wf := b.GetWorkflowContext(context.Background())

	assert.True(t, wf.Local())
	assert.Equal(t, "local", wf.WorkflowID)
	assert.NotEmpty(t, wf.RunID)
}

func TestGetWorkflowContext_LocalRun(t *testing.T) {
	b := NewBaseActivities(nil)
	ctx := WithLocalRun(context.Background(), "batch-7")

	first := b.GetWorkflowContext(ctx)
	second := b.GetWorkflowContext(ctx)

	assert.Equal(t, "batch-7", first.RunID)
	assert.Equal(t, first, second)
}

func TestEmitEventSafe(t *testing.T) {
	t.Run("nil sink is a no-op", func(t *testing.T) {
		b := NewBaseActivities(nil)
		b.EmitEventSafe(context.Background(), events.Envelope{ID: "1"}, "test")
	})

	t.Run("retries once", func(t *testing.T) {
		sink := &flakySink{mem: events.NewMemorySink()}
		sink.failures.Store(1)
		b := NewBaseActivities(sink)

		b.EmitEventSafe(context.Background(), events.Envelope{ID: "1", Type: "t"}, "test")
		assert.Equal(t, int32(2), sink.calls.Load())
		assert.Len(t, sink.mem.Events(), 1)
	})

	t.Run("gives up without failing", func(t *testing.T) {
		sink := &flakySink{mem: events.NewMemorySink()}
		sink.failures.Store(5)
		b := NewBaseActivities(sink)

		b.EmitEventSafe(context.Background(), events.Envelope{ID: "1", Type: "t"}, "test")
		assert.Equal(t, int32(2), sink.calls.Load())
		assert.Empty(t, sink.mem.Events())
	})

	t.Run("cancelled context stops retry", func(t *testing.T) {
		sink := &flakySink{mem: events.NewMemorySink()}
		sink.failures.Store(1)
		b := NewBaseActivities(sink)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b.EmitEventSafe(ctx, events.Envelope{ID: "1", Type: "t"}, "test")
		assert.Equal(t, int32(1), sink.calls.Load())
	})
}

func TestSafeHelpersOutsideActivity(t *testing.T) {
	assert.NotPanics(t, func() {
		SafeLog(context.Background(), "hello", "k", "v")
		SafeLogError(context.Background(), "oops")
		RecordHeartbeat(context.Background(), 1)
	})
}

// Package activity provides common infrastructure for Temporal activity
// implementations: workflow context extraction, logging that is safe outside
// an activity, heartbeats and best-effort event emission.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-coach/pkg/events"
)

// WorkflowContext contains metadata extracted from the Temporal activity
// context. Scoring activities use it to scope event idempotency keys, so
// every example scored in one run shares a WorkflowID:RunID prefix. Outside
// Temporal the fields are synthesized; see GetWorkflowContext.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
}

// Local reports whether the context was synthesized because the caller is
// not a Temporal activity (a direct harness run or a test).
func (w WorkflowContext) Local() bool { return w.ActivityID == localActivityID }

const localActivityID = "local"

type localRunKey struct{}

// WithLocalRun tags ctx with the run ID reported by GetWorkflowContext when
// activities are called directly. A batch run outside Temporal uses it so
// every event of the batch shares one idempotency scope.
func WithLocalRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, localRunKey{}, runID)
}

// BaseActivities provides common infrastructure for all activity types.
// It handles event emission, context extraction and safe logging in a way
// that works in a Temporal worker, in the in-process evaluation harness and
// in plain unit tests. Activity structs embed it by value.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a new BaseActivities instance with the provided
// event sink. The sink may be nil, in which case events are dropped.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext extracts workflow details from the activity context.
// Outside an activity (where activity.GetInfo panics) it returns a local
// context whose run ID comes from WithLocalRun, or is fresh.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wfCtx WorkflowContext

	func() {
		defer func() {
			if r := recover(); r != nil {
				runID, _ := ctx.Value(localRunKey{}).(string)
				if runID == "" {
					runID = "local-" + uuid.NewString()[:8]
				}
				wfCtx = WorkflowContext{
					WorkflowID: "local",
					RunID:      runID,
					ActivityID: localActivityID,
				}
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
	}()

	return wfCtx
}

// EmitEventSafe provides best-effort event emission with one retry.
// Events feed observability, not correctness, so emission never fails the
// activity that triggered it.
//
// The method will:
//   - skip emission when the sink is nil;
//   - try at most twice, 200ms apart, stopping early if ctx is done;
//   - log the outcome through the activity logger without returning it.
func (b *BaseActivities) EmitEventSafe(
	ctx context.Context,
	envelope events.Envelope,
	description string,
) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat safely records a heartbeat in the Temporal activity context.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs through the activity logger at info level. Outside an
// activity context (the evaluation harness, unit tests) activity.GetLogger
// panics, so the call is silently dropped instead.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		_ = recover() // not an activity context
	}()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		_ = recover() // not an activity context
	}()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records activity heartbeat details. Scoring activities
// heartbeat with the example ID before each collaborator call, which is
// what lets a worker restart resume a long batch. Non-activity contexts are
// ignored.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() {
		_ = recover() // not an activity context
	}()
	activity.RecordHeartbeat(ctx, details...)
}

package signaling

import (
	"context"
	"fmt"
	"math"
	"time"

	"mentorlink/internal/models"
	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

// CallLogLifecycle wraps the call log store with the event fan-out shared by
// both coordinators: every create/update is pushed to all participants'
// personal channels.
type CallLogLifecycle struct {
	store       CallLogStore
	broadcaster Broadcaster
}

// NewCallLogLifecycle creates the lifecycle helper.
func NewCallLogLifecycle(store CallLogStore, broadcaster Broadcaster) *CallLogLifecycle {
	return &CallLogLifecycle{store: store, broadcaster: broadcaster}
}

// Create persists a new call log record and fans out call-log-created to the
// initiator and every recipient. Persistence failure aborts the call setup;
// fan-out is best-effort.
func (l *CallLogLifecycle) Create(ctx context.Context, record *models.CallLog) (*models.CallLog, error) {
	created, err := l.store.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create call log: %w", err)
	}

	for _, userID := range created.Participants() {
		l.broadcaster.EmitToUser(userID, ws.EventCallLogCreated, created)
	}

	return created, nil
}

// Update merges a patch into the record identified by callID and fans out
// call-log-updated to all participants. Status transitions are monotonic:
// once the record is terminal, further terminal patches are silent no-ops
// (changed=false) and nothing is broadcast. A missing record is an error and
// the broadcast is skipped.
func (l *CallLogLifecycle) Update(ctx context.Context, callID string, patch CallLogPatch) (*models.CallLog, bool, error) {
	record, err := l.store.FindByCallID(ctx, callID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up call log %s: %w", callID, err)
	}
	if record == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	if record.Status.Terminal() {
		logger.LogCallEvent("call_log_update_skipped", callID, "", map[string]interface{}{
			"status": record.Status,
		})
		return record, false, nil
	}

	if patch.Status != nil && *patch.Status == models.CallStatusCompleted {
		end := time.Now()
		if patch.EndTime != nil {
			end = *patch.EndTime
		} else {
			patch.EndTime = &end
		}
		duration := int64(math.Round(end.Sub(record.StartTime).Seconds()))
		patch.DurationSeconds = &duration
	}

	updated, err := l.store.Update(ctx, callID, patch)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update call log %s: %w", callID, err)
	}

	for _, userID := range updated.Participants() {
		l.broadcaster.EmitToUser(userID, ws.EventCallLogUpdated, updated)
	}

	return updated, true, nil
}

// Complete finalizes a record as completed at the given end time.
func (l *CallLogLifecycle) Complete(ctx context.Context, callID string, end time.Time) (*models.CallLog, bool, error) {
	status := models.CallStatusCompleted
	return l.Update(ctx, callID, CallLogPatch{Status: &status, EndTime: &end})
}

// Missed finalizes a record as missed. End time and duration stay unset:
// the call never happened.
func (l *CallLogLifecycle) Missed(ctx context.Context, callID string) (*models.CallLog, bool, error) {
	status := models.CallStatusMissed
	return l.Update(ctx, callID, CallLogPatch{Status: &status})
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeJournalCreated announces a newly drafted journal entry.
	TaskTypeJournalCreated = "journal:created"
	// TaskTypeClosingFinalized announces a finalized monthly closing.
	TaskTypeClosingFinalized = "closing:finalized"
)

// JournalCreatedPayload carries the identifying fields of a drafted entry.
type JournalCreatedPayload struct {
	EntryID     int64     `json:"entryId"`
	Number      string    `json:"number"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	CreatedBy   int64     `json:"createdBy"`
}

// ClosingFinalizedPayload carries the identifying fields of a closed month.
type ClosingFinalizedPayload struct {
	ClosingID int64 `json:"closingId"`
	Year      int   `json:"year"`
	Month     int   `json:"month"`
	ClosedBy  int64 `json:"closedBy"`
}

// NewJournalCreatedTask constructs an Asynq task for journal notifications.
func NewJournalCreatedTask(payload JournalCreatedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeJournalCreated, data), nil
}

// NewClosingFinalizedTask constructs an Asynq task for closing notifications.
func NewClosingFinalizedTask(payload ClosingFinalizedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeClosingFinalized, data), nil
}

// NewJournalCreatedHandler processes TaskTypeJournalCreated tasks. Delivery is
// a log line for now; downstream channels plug in here.
func NewJournalCreatedHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload JournalCreatedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("journal entry drafted",
			slog.String("number", payload.Number),
			slog.Int64("entryId", payload.EntryID),
			slog.Int64("createdBy", payload.CreatedBy),
		)
		return nil
	}
}

// NewClosingFinalizedHandler processes TaskTypeClosingFinalized tasks.
func NewClosingFinalizedHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ClosingFinalizedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("monthly closing finalized",
			slog.Int64("closingId", payload.ClosingID),
			slog.Int("year", payload.Year),
			slog.Int("month", payload.Month),
		)
		return nil
	}
}

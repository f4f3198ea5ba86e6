// Package notify bridges domain events onto the background job queue.
package notify

import (
	"context"

	"github.com/meridian-his/meridian-his/internal/closing"
	"github.com/meridian-his/meridian-his/internal/ledger/journals"
	"github.com/meridian-his/meridian-his/jobs"
)

// QueueNotifier forwards ledger events to Asynq. Callers treat enqueue
// failures as non-fatal.
type QueueNotifier struct {
	client *jobs.Client
}

// NewQueueNotifier constructs a notifier backed by the job queue client.
func NewQueueNotifier(client *jobs.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// JournalCreated enqueues a journal-created notification task.
func (n *QueueNotifier) JournalCreated(ctx context.Context, entry journals.JournalEntry) error {
	_, err := n.client.EnqueueJournalCreated(ctx, jobs.JournalCreatedPayload{
		EntryID:     entry.ID,
		Number:      entry.Number,
		Date:        entry.Date,
		Description: entry.Description,
		CreatedBy:   entry.CreatedBy,
	})
	return err
}

// ClosingFinalized enqueues a closing-finalized notification task.
func (n *QueueNotifier) ClosingFinalized(ctx context.Context, mc closing.MonthlyClosing, actorID int64) error {
	_, err := n.client.EnqueueClosingFinalized(ctx, jobs.ClosingFinalizedPayload{
		ClosingID: mc.ID,
		Year:      mc.Year,
		Month:     int(mc.Month),
		ClosedBy:  actorID,
	})
	return err
}

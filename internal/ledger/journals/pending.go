package journals

import (
	"context"
	"time"
)

// PendingDrafts reports unposted draft entries for a month. The closing
// process consults it before sealing the period.
type PendingDrafts struct {
	repo Repository
}

// NewPendingDrafts constructs the draft-entry pending source.
func NewPendingDrafts(repo Repository) *PendingDrafts {
	return &PendingDrafts{repo: repo}
}

// Name identifies the source in precondition failures.
func (p *PendingDrafts) Name() string { return "journal_drafts" }

// CountPending returns the number of draft entries dated inside the month.
func (p *PendingDrafts) CountPending(ctx context.Context, year int, month time.Month) (int64, error) {
	return p.repo.CountPending(ctx, year, month)
}

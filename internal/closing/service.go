package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-his/meridian-his/internal/shared"
)

// AuditPort records closing events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort files approval history for closings.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Notifier announces finalized closings. Failures never roll back the close.
type Notifier interface {
	ClosingFinalized(ctx context.Context, closing MonthlyClosing, actorID int64) error
}

// Service orchestrates the monthly closing lifecycle.
type Service struct {
	repo      Repository
	audit     AuditPort
	approvals ApprovalPort
	policy    Policy
	notifier  Notifier
	sources   []PendingSource
	adjusters []AutoAdjuster
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the closing service.
func NewService(repo Repository, audit AuditPort, approvals ApprovalPort, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		audit:     audit,
		approvals: approvals,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNotifier attaches a post-close notification channel.
func (s *Service) WithNotifier(n Notifier) {
	s.notifier = n
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterPendingSource adds a subsidiary ledger consulted before closing.
func (s *Service) RegisterPendingSource(src PendingSource) {
	if src != nil {
		s.sources = append(s.sources, src)
	}
}

// RegisterAutoAdjuster adds a close-time adjustment step.
func (s *Service) RegisterAutoAdjuster(adj AutoAdjuster) {
	if adj != nil {
		s.adjusters = append(s.adjusters, adj)
	}
}

// CanInitiate reports whether a closing may be started for the month.
func (s *Service) CanInitiate(ctx context.Context, year int, month time.Month) error {
	if monthStart(year, month).After(s.now()) {
		return ErrFutureMonth
	}
	if _, err := s.repo.GetByMonth(ctx, year, month); err == nil {
		return shared.ConflictError{Entity: "monthly_closing", Reason: fmt.Sprintf("closing for %d-%02d already exists", year, int(month))}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if s.policy.RequireSequential {
		prevYear, prevMonth := year, month-1
		if month == time.January {
			prevYear, prevMonth = year-1, time.December
		}
		closed, err := s.repo.IsMonthClosed(ctx, prevYear, prevMonth)
		if err != nil {
			return err
		}
		if !closed {
			return ErrPriorMonthOpen
		}
	}
	return nil
}

// Initiate creates the closing record for a fully elapsed month. Under the
// approval policy the record moves straight to pending approval and an
// approval submit entry is filed.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (MonthlyClosing, error) {
	if err := in.Validate(); err != nil {
		return MonthlyClosing{}, shared.ValidationError{Reason: err.Error()}
	}
	if err := s.CanInitiate(ctx, in.Year, in.Month); err != nil {
		return MonthlyClosing{}, err
	}
	cutoff := in.CutoffDate
	if cutoff.IsZero() {
		cutoff = monthStart(in.Year, in.Month).AddDate(0, 1, -1)
	}
	status := StatusDraft
	if s.policy.RequireApproval {
		status = StatusPendingApproval
	}
	var created MonthlyClosing
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.Insert(ctx, MonthlyClosing{
			UID:         uuid.New(),
			Year:        in.Year,
			Month:       in.Month,
			CutoffDate:  cutoff,
			Status:      status,
			InitiatedBy: in.ActorID,
			Notes:       in.Notes,
		})
		if err != nil {
			if errors.Is(err, ErrMonthTaken) {
				return shared.ConflictError{Entity: "monthly_closing", Reason: fmt.Sprintf("closing for %d-%02d already exists", in.Year, int(in.Month))}
			}
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return MonthlyClosing{}, err
	}
	s.record(ctx, in.ActorID, "closing.initiate", created.ID, map[string]any{
		"year": created.Year, "month": int(created.Month), "status": string(created.Status),
	})
	if status == StatusPendingApproval && s.approvals != nil {
		if err := s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "closing",
			RefID:   created.UID,
			ActorID: in.ActorID,
			Action:  shared.ApprovalSubmit,
			Note:    in.Notes,
			At:      s.now(),
		}); err != nil && s.logger != nil {
			s.logger.Warn("file closing approval", slog.Any("error", err))
		}
	}
	return created, nil
}

// Approve moves a pending or reopened closing to approved. Self-approval is
// rejected. Reopened months pass through approval again before re-closing.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (MonthlyClosing, error) {
	if approverID == 0 {
		return MonthlyClosing{}, shared.ValidationError{Field: "approver", Reason: "required"}
	}
	var closing MonthlyClosing
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPendingApproval && current.Status != StatusReopened {
			return shared.InvalidTransitionError{Entity: "monthly_closing", From: string(current.Status), To: string(StatusApproved)}
		}
		if current.InitiatedBy == approverID {
			return ErrSameActor
		}
		now := s.now()
		current.Status = StatusApproved
		current.ApprovedBy = &approverID
		current.ApprovedAt = &now
		if err := tx.UpdateState(ctx, current); err != nil {
			return err
		}
		closing = current
		return nil
	})
	if err != nil {
		return MonthlyClosing{}, err
	}
	s.record(ctx, approverID, "closing.approve", closing.ID, nil)
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "closing",
			RefID:   closing.UID,
			ActorID: approverID,
			Action:  shared.ApprovalApprove,
			At:      s.now(),
		})
	}
	return closing, nil
}

// Close finalises the month. It refuses while any subsidiary ledger still has
// pending transactions dated inside the month, runs registered auto
// adjustments, and snapshots the posted activity summary.
func (s *Service) Close(ctx context.Context, id, actorID int64) (MonthlyClosing, error) {
	var closing MonthlyClosing
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		allowedFrom := current.Status == StatusApproved
		if !s.policy.RequireApproval {
			allowedFrom = allowedFrom || current.Status == StatusDraft || current.Status == StatusReopened
		}
		if !allowedFrom {
			return shared.InvalidTransitionError{Entity: "monthly_closing", From: string(current.Status), To: string(StatusClosed)}
		}
		pending, err := s.pendingCount(ctx, current.Year, current.Month)
		if err != nil {
			return err
		}
		if pending > 0 {
			return shared.PreconditionError{Reason: fmt.Sprintf("month %d-%02d has unfinished transactions", current.Year, int(current.Month)), PendingCount: pending}
		}
		for _, adj := range s.adjusters {
			if err := adj.Apply(ctx, current); err != nil {
				return fmt.Errorf("closing: auto adjustment %s: %w", adj.Name(), err)
			}
		}
		summary, err := tx.SummarizePostedMonth(ctx, current.Year, current.Month)
		if err != nil {
			return err
		}
		now := s.now()
		summary.PendingBefore = pending
		summary.GeneratedAt = now
		current.Summary = &summary
		current.Status = StatusClosed
		current.ClosedAt = &now
		if err := tx.UpdateState(ctx, current); err != nil {
			return err
		}
		closing = current
		return nil
	})
	if err != nil {
		return MonthlyClosing{}, err
	}
	s.record(ctx, actorID, "closing.close", closing.ID, map[string]any{
		"year": closing.Year, "month": int(closing.Month),
	})
	if s.notifier != nil {
		if err := s.notifier.ClosingFinalized(ctx, closing, actorID); err != nil && s.logger != nil {
			s.logger.Warn("closing notification failed",
				slog.Int64("closingId", closing.ID), slog.Any("error", err))
		}
	}
	return closing, nil
}

// Reopen unlocks a closed month, recording who and why.
func (s *Service) Reopen(ctx context.Context, id, actorID int64, reason string) (MonthlyClosing, error) {
	if reason == "" {
		return MonthlyClosing{}, ErrReasonRequired
	}
	var closing MonthlyClosing
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusClosed {
			return shared.InvalidTransitionError{Entity: "monthly_closing", From: string(current.Status), To: string(StatusReopened)}
		}
		now := s.now()
		current.Status = StatusReopened
		current.ReopenedBy = &actorID
		current.ReopenedAt = &now
		current.ReopenReason = reason
		if err := tx.UpdateState(ctx, current); err != nil {
			return err
		}
		closing = current
		return nil
	})
	if err != nil {
		return MonthlyClosing{}, err
	}
	s.record(ctx, actorID, "closing.reopen", closing.ID, map[string]any{"reason": reason})
	return closing, nil
}

// EnsurePeriodOpen is the posting gate: it rejects any mutation dated inside a
// month whose closing record is in the CLOSED state. Reopened months accept
// postings again.
func (s *Service) EnsurePeriodOpen(ctx context.Context, date time.Time) error {
	closed, err := s.repo.IsMonthClosed(ctx, date.Year(), date.Month())
	if err != nil {
		return err
	}
	if closed {
		return fmt.Errorf("%w: %d-%02d", ErrPeriodClosed, date.Year(), int(date.Month()))
	}
	return nil
}

// Get returns a single closing record.
func (s *Service) Get(ctx context.Context, id int64) (MonthlyClosing, error) {
	return s.repo.Get(ctx, id)
}

// List returns closings newest month first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]MonthlyClosing, error) {
	return s.repo.List(ctx, limit, offset)
}

// PendingCount reports outstanding transactions across all registered sources.
func (s *Service) PendingCount(ctx context.Context, year int, month time.Month) (int64, error) {
	return s.pendingCount(ctx, year, month)
}

func (s *Service) pendingCount(ctx context.Context, year int, month time.Month) (int64, error) {
	var total int64
	for _, src := range s.sources {
		n, err := src.CountPending(ctx, year, month)
		if err != nil {
			return 0, fmt.Errorf("closing: pending count from %s: %w", src.Name(), err)
		}
		total += n
	}
	return total, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, closingID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "monthly_closing",
		EntityID: fmt.Sprintf("%d", closingID),
		Meta:     meta,
		At:       s.now(),
	})
}

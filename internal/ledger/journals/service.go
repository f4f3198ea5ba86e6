package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-his/meridian-his/internal/closing"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort files approval requests for revision overrides.
type ApprovalPort interface {
	EnsureSubmit(ctx context.Context, module string, ref uuid.UUID, actorID int64, note string) error
}

// PeriodGuard blocks mutations dated inside a closed month.
type PeriodGuard interface {
	EnsurePeriodOpen(ctx context.Context, date time.Time) error
}

// Notifier announces committed journal events. Failures never roll back the entry.
type Notifier interface {
	JournalCreated(ctx context.Context, entry JournalEntry) error
}

// BalanceInvalidator drops derived balance caches after posted activity
// changes. Invalidation failures are logged, never surfaced.
type BalanceInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service coordinates the draft/posted/reversed lifecycle of journal entries.
type Service struct {
	repo      Repository
	audit     AuditPort
	approvals ApprovalPort
	guard     PeriodGuard
	notifier  Notifier
	balances  BalanceInvalidator
	logger    *slog.Logger
	numberPad int
	now       func() time.Time
}

// NewService constructs the posting service.
func NewService(repo Repository, audit AuditPort, approvals ApprovalPort, guard PeriodGuard, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		audit:     audit,
		approvals: approvals,
		guard:     guard,
		notifier:  notifier,
		logger:    logger,
		numberPad: DefaultNumberPad,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithNumberPad overrides the sequence padding width.
func (s *Service) WithNumberPad(pad int) {
	if pad > 0 {
		s.numberPad = pad
	}
}

// WithBalanceInvalidator attaches a cache invalidation hook fired whenever
// posted balances change.
func (s *Service) WithBalanceInvalidator(inv BalanceInvalidator) {
	s.balances = inv
}

func (s *Service) invalidateBalances(ctx context.Context, number string) {
	if s.balances == nil {
		return
	}
	if err := s.balances.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("balance cache invalidation failed",
			slog.String("number", number), slog.Any("error", err))
	}
}

func (s *Service) ensureOpen(ctx context.Context, date time.Time) error {
	if s.guard == nil {
		return nil
	}
	return s.guard.EnsurePeriodOpen(ctx, date)
}

// Create validates and persists a new draft entry, then fires the
// journal-created notification outside the transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	totalDebit, totalCredit, err := validateLines(in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.ensureOpen(ctx, in.Date); err != nil {
			return err
		}
		seq, err := tx.NextSequence(ctx, in.Kind, in.Date.Year())
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			UID:         uuid.New(),
			Number:      FormatNumber(in.Kind, in.Date.Year(), seq, s.numberPad),
			Date:        in.Date,
			Description: in.Description,
			RefType:     in.RefType,
			RefNumber:   in.RefNumber,
			TotalDebit:  totalDebit,
			TotalCredit: totalCredit,
			Status:      JournalStatusDraft,
			Kind:        in.Kind,
			CreatedBy:   in.ActorID,
		})
		if err != nil {
			if errors.Is(err, ErrNumberTaken) {
				return shared.ConflictError{Entity: "journal_entry", Reason: "number already taken"}
			}
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, toLines(inserted.ID, in.Lines)); err != nil {
			return err
		}
		inserted.Lines = toLines(inserted.ID, in.Lines)
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.ActorID, "journal.create", entry.ID, map[string]any{
		"number": entry.Number,
		"kind":   string(entry.Kind),
	})
	if s.notifier != nil {
		if err := s.notifier.JournalCreated(ctx, entry); err != nil && s.logger != nil {
			s.logger.Warn("journal created notification failed",
				slog.String("number", entry.Number), slog.Any("error", err))
		}
	}
	return entry, nil
}

// Edit re-validates invariants and replaces the full line set atomically.
// Draft entries edit freely inside open periods; adjusting entries in closed
// periods require the revision mode, which is audit-logged and may file an
// approval request. Revision mode is rejected while the period is open, so
// posted entries in open periods change only through Unpost or Reverse.
func (s *Service) Edit(ctx context.Context, in EditInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	totalDebit, totalCredit, err := validateLines(in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		periodErr := s.ensureOpen(ctx, current.Date)
		if in.Mode.Revision {
			// The override exists only for adjusting entries locked inside a
			// closed period. Open-period entries keep the draft-only rule.
			if current.Kind != JournalKindAdjusting {
				return ErrRevisionNotAllowed
			}
			if current.Status == JournalStatusReversed {
				return shared.InvalidTransitionError{Entity: "journal_entry", From: string(current.Status), To: "edited"}
			}
			if periodErr == nil {
				return ErrRevisionPeriodOpen
			}
			if !errors.Is(periodErr, closing.ErrPeriodClosed) {
				return periodErr
			}
		} else {
			if periodErr == nil {
				periodErr = s.ensureOpen(ctx, in.Date)
			}
			if periodErr != nil {
				return periodErr
			}
			if current.Status != JournalStatusDraft {
				return shared.InvalidTransitionError{Entity: "journal_entry", From: string(current.Status), To: "edited"}
			}
		}
		current.Date = in.Date
		current.Description = in.Description
		current.TotalDebit = totalDebit
		current.TotalCredit = totalCredit
		if err := tx.UpdateHeader(ctx, current); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, current.ID); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, current.ID, toLines(current.ID, in.Lines)); err != nil {
			return err
		}
		current.Lines = toLines(current.ID, in.Lines)
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	meta := map[string]any{"number": entry.Number}
	action := "journal.edit"
	if in.Mode.Revision {
		action = "journal.revise"
		meta["reason"] = in.Mode.Reason
	}
	s.record(ctx, in.ActorID, action, entry.ID, meta)
	if in.Mode.Revision && in.Mode.RequiresApproval && s.approvals != nil {
		if err := s.approvals.EnsureSubmit(ctx, "journals", entry.UID, in.ActorID, in.Mode.Reason); err != nil && s.logger != nil {
			s.logger.Warn("file revision approval", slog.String("number", entry.Number), slog.Any("error", err))
		}
	}
	return entry, nil
}

// Post finalises a draft so it counts toward ledger balances.
func (s *Service) Post(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return shared.InvalidTransitionError{Entity: "journal_entry", From: string(current.Status), To: string(JournalStatusPosted)}
		}
		if err := s.ensureOpen(ctx, current.Date); err != nil {
			return err
		}
		now := s.now()
		if err := tx.SetStatus(ctx, current.ID, JournalStatusPosted, &actorID, &now); err != nil {
			return err
		}
		current.Status = JournalStatusPosted
		current.PostedBy = &actorID
		current.PostedAt = &now
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.post", entry.ID, map[string]any{"number": entry.Number})
	s.invalidateBalances(ctx, entry.Number)
	return entry, nil
}

// Unpost returns a posted entry to draft, clearing poster metadata.
func (s *Service) Unpost(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusPosted {
			return shared.InvalidTransitionError{Entity: "journal_entry", From: string(current.Status), To: string(JournalStatusDraft)}
		}
		if err := s.ensureOpen(ctx, current.Date); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, current.ID, JournalStatusDraft, nil, nil); err != nil {
			return err
		}
		current.Status = JournalStatusDraft
		current.PostedBy = nil
		current.PostedAt = nil
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.unpost", entry.ID, map[string]any{"number": entry.Number})
	s.invalidateBalances(ctx, entry.Number)
	return entry, nil
}

// Reverse creates a posted counter-entry dated now with debit and credit
// swapped per line, and marks the original as reversed. The original can never
// be posted, unposted, or edited again.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (JournalEntry, error) {
	if in.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("journals: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if original.Status != JournalStatusPosted {
			return shared.InvalidTransitionError{Entity: "journal_entry", From: string(original.Status), To: string(JournalStatusReversed)}
		}
		now := s.now()
		if err := s.ensureOpen(ctx, now); err != nil {
			return err
		}
		lines, err := tx.GetLines(ctx, original.ID)
		if err != nil {
			return err
		}
		seq, err := tx.NextSequence(ctx, original.Kind, now.Year())
		if err != nil {
			return err
		}
		refType := "REVERSAL"
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			UID:         uuid.New(),
			Number:      FormatNumber(original.Kind, now.Year(), seq, s.numberPad),
			Date:        now,
			Description: reversalDescription(in.Description, original),
			RefType:     &refType,
			RefNumber:   &original.Number,
			TotalDebit:  original.TotalDebit,
			TotalCredit: original.TotalCredit,
			Status:      JournalStatusPosted,
			Kind:        original.Kind,
			CreatedBy:   in.ActorID,
			PostedBy:    &in.ActorID,
			PostedAt:    &now,
		})
		if err != nil {
			return err
		}
		swapped := reverseLines(inserted.ID, lines)
		if err := tx.InsertLines(ctx, inserted.ID, swapped); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, original.ID, JournalStatusReversed, original.PostedBy, original.PostedAt); err != nil {
			return err
		}
		inserted.Lines = swapped
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.ActorID, "journal.reverse", in.EntryID, map[string]any{
		"reversal_number": reversal.Number,
	})
	s.invalidateBalances(ctx, reversal.Number)
	return reversal, nil
}

// Delete removes a draft entry and its lines. Posted entries leave only via
// the reversal path; adjusting entries in closed periods use the revision mode.
func (s *Service) Delete(ctx context.Context, entryID, actorID int64, mode EditMode) error {
	if mode.Revision && mode.Reason == "" {
		return ErrRevisionReasonRequired
	}
	var deleted JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if mode.Revision {
			if current.Kind != JournalKindAdjusting {
				return ErrRevisionNotAllowed
			}
			if current.Status == JournalStatusReversed {
				return shared.InvalidTransitionError{Entity: "journal_entry", From: string(current.Status), To: "deleted"}
			}
			periodErr := s.ensureOpen(ctx, current.Date)
			if periodErr == nil {
				return ErrRevisionPeriodOpen
			}
			if !errors.Is(periodErr, closing.ErrPeriodClosed) {
				return periodErr
			}
		} else {
			if current.Status != JournalStatusDraft {
				return shared.InvalidTransitionError{Entity: "journal_entry", From: string(current.Status), To: "deleted"}
			}
			if err := s.ensureOpen(ctx, current.Date); err != nil {
				return err
			}
		}
		if err := tx.DeleteLines(ctx, current.ID); err != nil {
			return err
		}
		if err := tx.DeleteEntry(ctx, current.ID); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return err
	}
	meta := map[string]any{"number": deleted.Number}
	if mode.Revision {
		meta["reason"] = mode.Reason
	}
	s.record(ctx, actorID, "journal.delete", entryID, meta)
	if mode.Revision && mode.RequiresApproval && s.approvals != nil {
		if err := s.approvals.EnsureSubmit(ctx, "journals", deleted.UID, actorID, mode.Reason); err != nil && s.logger != nil {
			s.logger.Warn("file revision approval", slog.String("number", deleted.Number), slog.Any("error", err))
		}
	}
	return nil
}

// Get returns an entry with lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// List returns entries matching the filter, newest number first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func reverseLines(entryID int64, lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			JournalID:   entryID,
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}

func reversalDescription(memo string, original JournalEntry) string {
	if memo != "" {
		return "REVERSAL: " + memo
	}
	return fmt.Sprintf("REVERSAL: %s (%s)", original.Description, original.Number)
}

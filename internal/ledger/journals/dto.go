package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineInput describes one journal line for create/edit requests.
type LineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// CreateInput groups fields required to create a draft entry.
type CreateInput struct {
	Date        time.Time
	Description string
	RefType     *string
	RefNumber   *string
	Kind        JournalKind
	ActorID     int64
	Lines       []LineInput
}

// EditInput replaces the header fields and the full line set of an entry.
type EditInput struct {
	EntryID     int64
	Date        time.Time
	Description string
	ActorID     int64
	Mode        EditMode
	Lines       []LineInput
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID     int64
	ActorID     int64
	Description string
}

// validateLines enforces line shape and double-entry balance. It returns the
// computed totals so callers persist exactly what was validated.
func validateLines(lines []LineInput) (totalDebit, totalCredit decimal.Decimal, err error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, ErrTooFewLines
	}
	totalDebit, totalCredit = decimal.Zero, decimal.Zero
	for idx, line := range lines {
		if line.AccountID == 0 {
			return decimal.Zero, decimal.Zero, fmt.Errorf("journals: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d: %w", idx, ErrNegativeAmount)
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d: %w", idx, ErrLineShape)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return decimal.Zero, decimal.Zero, ErrUnbalanced
	}
	return totalDebit, totalCredit, nil
}

// Validate ensures create input meets the posting invariants.
func (in CreateInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("journals: date required")
	}
	if in.Kind != JournalKindGeneral && in.Kind != JournalKindAdjusting {
		return ErrUnknownKind
	}
	_, _, err := validateLines(in.Lines)
	return err
}

// Validate ensures edit input meets the same invariants as create.
func (in EditInput) Validate() error {
	if in.EntryID == 0 {
		return fmt.Errorf("journals: entry id required")
	}
	if in.Date.IsZero() {
		return fmt.Errorf("journals: date required")
	}
	if in.Mode.Revision && in.Mode.Reason == "" {
		return ErrRevisionReasonRequired
	}
	_, _, err := validateLines(in.Lines)
	return err
}

func toLines(entryID int64, inputs []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, JournalLine{
			JournalID:   entryID,
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
		})
	}
	return out
}

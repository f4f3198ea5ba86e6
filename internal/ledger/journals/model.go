package journals

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft    JournalStatus = "DRAFT"
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
)

// JournalKind distinguishes general entries from adjusting entries.
type JournalKind string

const (
	JournalKindGeneral   JournalKind = "GENERAL"
	JournalKindAdjusting JournalKind = "ADJUSTING"
)

// JournalEntry captures one accounting event and its lines.
type JournalEntry struct {
	ID          int64         `json:"id"`
	UID         uuid.UUID     `json:"uid"`
	Number      string        `json:"number"`
	Date        time.Time     `json:"date"`
	Description string        `json:"description"`
	RefType     *string       `json:"refType,omitempty"`
	RefNumber   *string       `json:"refNumber,omitempty"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Status      JournalStatus `json:"status"`
	Kind        JournalKind   `json:"kind"`
	CreatedBy   int64         `json:"createdBy"`
	PostedBy    *int64        `json:"postedBy,omitempty"`
	PostedAt    *time.Time    `json:"postedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Lines       []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a debit or credit amount for one account.
type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journalId"`
	AccountID   int64           `json:"accountId"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

var (
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = errors.New("journals: lines must balance")
	// ErrLineShape indicates a line with both or neither sides populated.
	ErrLineShape = errors.New("journals: each line must carry exactly one of debit or credit")
	// ErrTooFewLines indicates fewer than two lines.
	ErrTooFewLines = errors.New("journals: entry requires at least two lines")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("journals: amounts must not be negative")
	// ErrRevisionNotAllowed indicates a revision edit on a non-adjusting entry.
	ErrRevisionNotAllowed = errors.New("journals: revision edits apply to adjusting entries only")
	// ErrRevisionReasonRequired indicates a revision edit without a reason.
	ErrRevisionReasonRequired = errors.New("journals: revision edits require a reason")
	// ErrRevisionPeriodOpen indicates a revision override while the entry's
	// period is still open. Open-period entries follow the draft-only rules.
	ErrRevisionPeriodOpen = errors.New("journals: revision edits apply only inside closed periods")
	// ErrUnknownKind indicates an unsupported journal kind.
	ErrUnknownKind = errors.New("journals: unknown journal kind")
)

// EditMode selects between a normal draft edit and an audit-logged revision of
// an adjusting entry inside a closed period.
type EditMode struct {
	Revision         bool
	Reason           string
	RequiresApproval bool
}

// NormalEdit is the default edit mode for draft entries.
func NormalEdit() EditMode {
	return EditMode{}
}

// RevisionEdit builds the override mode used for adjusting entries in closed periods.
func RevisionEdit(reason string, requiresApproval bool) EditMode {
	return EditMode{Revision: true, Reason: reason, RequiresApproval: requiresApproval}
}

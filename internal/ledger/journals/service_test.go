package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-his/meridian-his/internal/closing"
	"github.com/meridian-his/meridian-his/internal/shared"
)

type memJournalRepo struct {
	entries    map[int64]JournalEntry
	lines      map[int64][]JournalLine
	seqs       map[string]int64
	nextID     int64
	nextLineID int64
}

func newMemJournalRepo() *memJournalRepo {
	return &memJournalRepo{
		entries: make(map[int64]JournalEntry),
		lines:   make(map[int64][]JournalLine),
		seqs:    make(map[string]int64),
	}
}

func (m *memJournalRepo) Get(ctx context.Context, id int64) (JournalEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrNotFound
	}
	e.Lines = append([]JournalLine(nil), m.lines[id]...)
	return e, nil
}

func (m *memJournalRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range m.entries {
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memJournalRepo) CountPending(ctx context.Context, year int, month time.Month) (int64, error) {
	var count int64
	for _, e := range m.entries {
		if e.Status == JournalStatusDraft && e.Date.Year() == year && e.Date.Month() == month {
			count++
		}
	}
	return count, nil
}

func (m *memJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memJournalRepo) NextSequence(ctx context.Context, kind JournalKind, year int) (int64, error) {
	key := fmt.Sprintf("%s/%d", kind, year)
	m.seqs[key]++
	return m.seqs[key], nil
}

func (m *memJournalRepo) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	for _, existing := range m.entries {
		if existing.Number == e.Number {
			return JournalEntry{}, ErrNumberTaken
		}
	}
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	stored := e
	stored.Lines = nil
	m.entries[e.ID] = stored
	return e, nil
}

func (m *memJournalRepo) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		m.nextLineID++
		line.ID = m.nextLineID
		line.JournalID = entryID
		m.lines[entryID] = append(m.lines[entryID], line)
	}
	return nil
}

func (m *memJournalRepo) DeleteLines(ctx context.Context, entryID int64) error {
	delete(m.lines, entryID)
	return nil
}

func (m *memJournalRepo) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return JournalEntry{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *memJournalRepo) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return append([]JournalLine(nil), m.lines[entryID]...), nil
}

func (m *memJournalRepo) UpdateHeader(ctx context.Context, e JournalEntry) error {
	current, ok := m.entries[e.ID]
	if !ok {
		return shared.ErrNotFound
	}
	current.Date = e.Date
	current.Description = e.Description
	current.RefType = e.RefType
	current.RefNumber = e.RefNumber
	current.TotalDebit = e.TotalDebit
	current.TotalCredit = e.TotalCredit
	current.UpdatedAt = time.Now()
	m.entries[e.ID] = current
	return nil
}

func (m *memJournalRepo) SetStatus(ctx context.Context, id int64, status JournalStatus, postedBy *int64, postedAt *time.Time) error {
	current, ok := m.entries[id]
	if !ok {
		return shared.ErrNotFound
	}
	current.Status = status
	current.PostedBy = postedBy
	current.PostedAt = postedAt
	m.entries[id] = current
	return nil
}

func (m *memJournalRepo) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := m.entries[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

type stubGuard struct {
	closed map[string]bool
}

func (g *stubGuard) EnsurePeriodOpen(ctx context.Context, date time.Time) error {
	if g == nil || g.closed == nil {
		return nil
	}
	key := fmt.Sprintf("%d-%02d", date.Year(), int(date.Month()))
	if g.closed[key] {
		return fmt.Errorf("period %s: %w", key, closing.ErrPeriodClosed)
	}
	return nil
}

type stubAudit struct {
	actions []string
}

func (a *stubAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

type stubApprovals struct {
	submits []uuid.UUID
}

func (a *stubApprovals) EnsureSubmit(ctx context.Context, module string, ref uuid.UUID, actorID int64, note string) error {
	a.submits = append(a.submits, ref)
	return nil
}

type stubNotifier struct {
	created []string
	fail    bool
}

func (n *stubNotifier) JournalCreated(ctx context.Context, entry JournalEntry) error {
	if n.fail {
		return errors.New("queue unavailable")
	}
	n.created = append(n.created, entry.Number)
	return nil
}

func amount(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func balancedLines(total string) []LineInput {
	return []LineInput{
		{AccountID: 1, Debit: amount(total)},
		{AccountID: 2, Credit: amount(total)},
	}
}

func newTestService(t *testing.T) (*Service, *memJournalRepo, *stubAudit, *stubApprovals, *stubNotifier, *stubGuard) {
	t.Helper()
	repo := newMemJournalRepo()
	audit := &stubAudit{}
	approvals := &stubApprovals{}
	notifier := &stubNotifier{}
	guard := &stubGuard{closed: map[string]bool{}}
	svc := NewService(repo, audit, approvals, guard, notifier, slog.Default())
	svc.WithNow(func() time.Time { return time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC) })
	return svc, repo, audit, approvals, notifier, guard
}

func TestCreateAssignsSequentialNumbersPerKindAndYear(t *testing.T) {
	svc, _, _, _, notifier, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	first, err := svc.Create(ctx, CreateInput{
		Date: date, Description: "outpatient cash receipts", Kind: JournalKindGeneral,
		ActorID: 7, Lines: balancedLines("500000"),
	})
	require.NoError(t, err)
	require.Equal(t, "JRN/2024/0001", first.Number)
	require.Equal(t, JournalStatusDraft, first.Status)
	require.True(t, first.TotalDebit.Equal(amount("500000")))
	require.True(t, first.TotalCredit.Equal(amount("500000")))

	second, err := svc.Create(ctx, CreateInput{
		Date: date, Description: "pharmacy sales", Kind: JournalKindGeneral,
		ActorID: 7, Lines: balancedLines("125000"),
	})
	require.NoError(t, err)
	require.Equal(t, "JRN/2024/0002", second.Number)

	adjusting, err := svc.Create(ctx, CreateInput{
		Date: date, Description: "depreciation", Kind: JournalKindAdjusting,
		ActorID: 7, Lines: balancedLines("90000"),
	})
	require.NoError(t, err)
	require.Equal(t, "ADJ/2024/0001", adjusting.Number)

	require.Equal(t, []string{"JRN/2024/0001", "JRN/2024/0002", "ADJ/2024/0001"}, notifier.created)
}

func TestCreateRejectsInvalidLines(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, CreateInput{
		Date: date, Description: "unbalanced", Kind: JournalKindGeneral, ActorID: 1,
		Lines: []LineInput{
			{AccountID: 1, Debit: amount("100")},
			{AccountID: 2, Credit: amount("90")},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)

	_, err = svc.Create(ctx, CreateInput{
		Date: date, Description: "both sides", Kind: JournalKindGeneral, ActorID: 1,
		Lines: []LineInput{
			{AccountID: 1, Debit: amount("100"), Credit: amount("100")},
			{AccountID: 2, Credit: amount("100")},
		},
	})
	require.ErrorIs(t, err, ErrLineShape)

	_, err = svc.Create(ctx, CreateInput{
		Date: date, Description: "single line", Kind: JournalKindGeneral, ActorID: 1,
		Lines: []LineInput{{AccountID: 1, Debit: amount("100")}},
	})
	require.ErrorIs(t, err, ErrTooFewLines)

	_, err = svc.Create(ctx, CreateInput{
		Date: date, Description: "negative", Kind: JournalKindGeneral, ActorID: 1,
		Lines: []LineInput{
			{AccountID: 1, Debit: amount("-100")},
			{AccountID: 2, Credit: amount("-100")},
		},
	})
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = svc.Create(ctx, CreateInput{
		Date: date, Description: "bad kind", Kind: JournalKind("MEMO"), ActorID: 1,
		Lines: balancedLines("100"),
	})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestCreateBlockedInClosedPeriod(t *testing.T) {
	svc, repo, _, _, _, guard := newTestService(t)
	guard.closed["2024-03"] = true

	_, err := svc.Create(context.Background(), CreateInput{
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "late entry", Kind: JournalKindGeneral, ActorID: 1,
		Lines: balancedLines("100"),
	})
	require.ErrorIs(t, err, closing.ErrPeriodClosed)
	require.Empty(t, repo.entries)
}

func TestPostAndUnpostLifecycle(t *testing.T) {
	svc, _, audit, _, _, _ := newTestService(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	entry, err := svc.Create(ctx, CreateInput{
		Date: date, Description: "consultation revenue", Kind: JournalKindGeneral,
		ActorID: 7, Lines: balancedLines("500000"),
	})
	require.NoError(t, err)

	posted, err := svc.Post(ctx, entry.ID, 9)
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	require.Equal(t, int64(9), *posted.PostedBy)
	require.NotNil(t, posted.PostedAt)

	_, err = svc.Post(ctx, entry.ID, 9)
	var transition shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, "POSTED", transition.From)

	unposted, err := svc.Unpost(ctx, entry.ID, 9)
	require.NoError(t, err)
	require.Equal(t, JournalStatusDraft, unposted.Status)
	require.Nil(t, unposted.PostedBy)
	require.Nil(t, unposted.PostedAt)

	_, err = svc.Unpost(ctx, entry.ID, 9)
	require.ErrorAs(t, err, &transition)

	require.Contains(t, audit.actions, "journal.post")
	require.Contains(t, audit.actions, "journal.unpost")
}

func TestReverseSwapsLinesAndSealsOriginal(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "outpatient revenue",
		Kind:        JournalKindGeneral,
		ActorID:     7,
		Lines: []LineInput{
			{AccountID: 10, Debit: amount("500000"), Description: "cash"},
			{AccountID: 40, Credit: amount("500000"), Description: "revenue"},
		},
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, entry.ID, 7)
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, ReverseInput{EntryID: entry.ID, ActorID: 8})
	require.NoError(t, err)

	require.Equal(t, JournalStatusPosted, reversal.Status)
	require.Equal(t, time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC), reversal.Date)
	require.NotNil(t, reversal.RefType)
	require.Equal(t, "REVERSAL", *reversal.RefType)
	require.NotNil(t, reversal.RefNumber)
	require.Equal(t, entry.Number, *reversal.RefNumber)
	require.Contains(t, reversal.Description, "REVERSAL: ")
	require.Contains(t, reversal.Description, entry.Number)

	require.Len(t, reversal.Lines, 2)
	require.True(t, reversal.Lines[0].Credit.Equal(amount("500000")))
	require.True(t, reversal.Lines[0].Debit.IsZero())
	require.True(t, reversal.Lines[1].Debit.Equal(amount("500000")))

	original, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, JournalStatusReversed, original.Status)
	require.NotNil(t, original.PostedBy)

	_, err = svc.Post(ctx, entry.ID, 7)
	var transition shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	_, err = svc.Reverse(ctx, ReverseInput{EntryID: entry.ID, ActorID: 8})
	require.ErrorAs(t, err, &transition)

	require.Len(t, repo.entries, 2)
}

func TestReverseRequiresPostedStatus(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "draft",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, ReverseInput{EntryID: entry.ID, ActorID: 1})
	var transition shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, "DRAFT", transition.From)
}

func TestDeleteDraftOnly(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "scratch",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, entry.ID, 1, NormalEdit()))
	require.Empty(t, repo.entries)
	require.Empty(t, repo.lines)

	posted, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), Description: "kept",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("200"),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, posted.ID, 1)
	require.NoError(t, err)

	err = svc.Delete(ctx, posted.ID, 1, NormalEdit())
	var transition shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestEditReplacesLinesForDraft(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "before",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, EditInput{
		EntryID: entry.ID,
		Date:    time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		ActorID: 1, Description: "after", Mode: NormalEdit(),
		Lines: []LineInput{
			{AccountID: 3, Debit: amount("250")},
			{AccountID: 4, Credit: amount("250")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "after", edited.Description)
	require.True(t, edited.TotalDebit.Equal(amount("250")))
	require.Len(t, edited.Lines, 2)
	require.Equal(t, int64(3), edited.Lines[0].AccountID)

	stored, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
}

func TestEditRejectsPostedWithoutRevision(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "posted",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, entry.ID, 1)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, EditInput{
		EntryID: entry.ID, Date: entry.Date, Description: "changed",
		ActorID: 1, Mode: NormalEdit(), Lines: balancedLines("100"),
	})
	var transition shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestRevisionEditRestrictedToAdjustingEntries(t *testing.T) {
	svc, _, _, _, _, guard := newTestService(t)
	ctx := context.Background()

	general, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "general",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)

	guard.closed["2024-03"] = true

	_, err = svc.Edit(ctx, EditInput{
		EntryID: general.ID, Date: general.Date, Description: "sneak",
		ActorID: 1, Mode: RevisionEdit("typo fix", true), Lines: balancedLines("100"),
	})
	require.ErrorIs(t, err, ErrRevisionNotAllowed)

	_, err = svc.Edit(ctx, EditInput{
		EntryID: general.ID, Date: general.Date, Description: "normal",
		ActorID: 1, Mode: NormalEdit(), Lines: balancedLines("100"),
	})
	require.ErrorIs(t, err, closing.ErrPeriodClosed)
}

func TestRevisionEditFilesApproval(t *testing.T) {
	svc, _, audit, approvals, _, guard := newTestService(t)
	ctx := context.Background()

	adj, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Description: "accrual",
		Kind: JournalKindAdjusting, ActorID: 2, Lines: balancedLines("75000"),
	})
	require.NoError(t, err)

	guard.closed["2024-03"] = true

	revised, err := svc.Edit(ctx, EditInput{
		EntryID: adj.ID, Date: adj.Date, Description: "corrected accrual",
		ActorID: 3, Mode: RevisionEdit("auditor finding", true),
		Lines: balancedLines("80000"),
	})
	require.NoError(t, err)
	require.Equal(t, "corrected accrual", revised.Description)
	require.Contains(t, audit.actions, "journal.revise")
	require.Equal(t, []uuid.UUID{adj.UID}, approvals.submits)
}

func TestRevisionEditRequiresReason(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)

	_, err := svc.Edit(context.Background(), EditInput{
		EntryID: 1, Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "x", ActorID: 1, Mode: RevisionEdit("", true),
		Lines: balancedLines("100"),
	})
	require.ErrorIs(t, err, ErrRevisionReasonRequired)
}

func TestNotifierFailureDoesNotFailCreate(t *testing.T) {
	svc, _, _, _, notifier, _ := newTestService(t)
	notifier.fail = true

	entry, err := svc.Create(context.Background(), CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "resilient",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
}

func TestFormatNumberPadding(t *testing.T) {
	require.Equal(t, "JRN/2024/0001", FormatNumber(JournalKindGeneral, 2024, 1, 4))
	require.Equal(t, "ADJ/2024/0042", FormatNumber(JournalKindAdjusting, 2024, 42, 4))
	require.Equal(t, "JRN/2025/10000", FormatNumber(JournalKindGeneral, 2025, 10000, 4))
	require.Equal(t, "JRN/2024/000007", FormatNumber(JournalKindGeneral, 2024, 7, 6))
}

type stubInvalidator struct {
	bumps int
	fail  bool
}

func (s *stubInvalidator) Invalidate(ctx context.Context) error {
	s.bumps++
	if s.fail {
		return errors.New("redis down")
	}
	return nil
}

func TestPostedActivityBumpsBalanceCache(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	inv := &stubInvalidator{}
	svc.WithBalanceInvalidator(inv)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "cash receipts",
		Kind: JournalKindGeneral, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)
	require.Zero(t, inv.bumps, "drafting must not touch posted balances")

	_, err = svc.Post(ctx, entry.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, inv.bumps)

	_, err = svc.Unpost(ctx, entry.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, inv.bumps)

	// Invalidation failures never surface to the caller.
	inv.fail = true
	_, err = svc.Post(ctx, entry.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 3, inv.bumps)
}

func TestRevisionRejectedWhilePeriodOpen(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	adj, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Description: "accrual",
		Kind: JournalKindAdjusting, ActorID: 1, Lines: balancedLines("100"),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, adj.ID, 1)
	require.NoError(t, err)

	// The override must not become a side door around posted-state
	// protection while the month is still open.
	_, err = svc.Edit(ctx, EditInput{
		EntryID: adj.ID, Date: adj.Date, Description: "tweak",
		ActorID: 1, Mode: RevisionEdit("tweak", false), Lines: balancedLines("999"),
	})
	require.ErrorIs(t, err, ErrRevisionPeriodOpen)

	err = svc.Delete(ctx, adj.ID, 1, RevisionEdit("cleanup", false))
	require.ErrorIs(t, err, ErrRevisionPeriodOpen)

	stored, err := svc.Get(ctx, adj.ID)
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, stored.Status)
	require.True(t, stored.TotalDebit.Equal(amount("100")))
	require.Len(t, repo.entries, 1)
}

func TestRevisionDeleteInClosedPeriodFilesApproval(t *testing.T) {
	svc, repo, audit, approvals, _, guard := newTestService(t)
	ctx := context.Background()

	adj, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Description: "duplicate accrual",
		Kind: JournalKindAdjusting, ActorID: 2, Lines: balancedLines("500"),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, adj.ID, 2)
	require.NoError(t, err)

	guard.closed["2024-03"] = true

	require.NoError(t, svc.Delete(ctx, adj.ID, 3, RevisionEdit("posted twice", true)))
	require.Empty(t, repo.entries)
	require.Contains(t, audit.actions, "journal.delete")
	require.Equal(t, []uuid.UUID{adj.UID}, approvals.submits)
}

func TestRevisionNeverTouchesReversedEntries(t *testing.T) {
	svc, _, _, _, _, guard := newTestService(t)
	ctx := context.Background()

	adj, err := svc.Create(ctx, CreateInput{
		Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "wrong accrual",
		Kind: JournalKindAdjusting, ActorID: 1, Lines: balancedLines("300"),
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, adj.ID, 1)
	require.NoError(t, err)
	_, err = svc.Reverse(ctx, ReverseInput{EntryID: adj.ID, ActorID: 1})
	require.NoError(t, err)

	guard.closed["2024-03"] = true

	var transition shared.InvalidTransitionError
	_, err = svc.Edit(ctx, EditInput{
		EntryID: adj.ID, Date: adj.Date, Description: "rewrite history",
		ActorID: 1, Mode: RevisionEdit("cover up", false), Lines: balancedLines("300"),
	})
	require.ErrorAs(t, err, &transition)

	err = svc.Delete(ctx, adj.ID, 1, RevisionEdit("cover up", false))
	require.ErrorAs(t, err, &transition)
}

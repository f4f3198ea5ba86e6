package journals

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-his/meridian-his/internal/platform/db"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// ErrNumberTaken indicates a duplicate journal number slipped past the sequence.
var ErrNumberTaken = errors.New("journals: number already taken")

// ListFilter narrows the entry listing.
type ListFilter struct {
	Kind     *JournalKind
	Status   *JournalStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	Get(ctx context.Context, id int64) (JournalEntry, error)
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	CountPending(ctx context.Context, year int, month time.Month) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes operations available within one transaction. Header and
// lines always mutate together inside a single WithTx boundary.
type TxRepository interface {
	NextSequence(ctx context.Context, kind JournalKind, year int) (int64, error)
	InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	DeleteLines(ctx context.Context, entryID int64) error
	GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]JournalLine, error)
	UpdateHeader(ctx context.Context, e JournalEntry) error
	SetStatus(ctx context.Context, id int64, status JournalStatus, postedBy *int64, postedAt *time.Time) error
	DeleteEntry(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `id, uid, number, date, description, ref_type, ref_number, total_debit, total_credit, status, kind, created_by, posted_by, posted_at, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.UID, &e.Number, &e.Date, &e.Description, &e.RefType, &e.RefNumber,
		&e.TotalDebit, &e.TotalCredit, &e.Status, &e.Kind, &e.CreatedBy, &e.PostedBy, &e.PostedAt,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, journal_id, account_id, debit, credit, description
FROM journal_lines WHERE journal_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalID, &line.AccountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	args := []any{}
	arg := 0
	next := func(v any) string {
		arg++
		args = append(args, v)
		return "$" + strconv.Itoa(arg)
	}
	if filter.Kind != nil {
		query += ` AND kind=` + next(*filter.Kind)
	}
	if filter.Status != nil {
		query += ` AND status=` + next(*filter.Status)
	}
	if filter.DateFrom != nil {
		query += ` AND date>=` + next(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += ` AND date<=` + next(*filter.DateTo)
	}
	query += ` ORDER BY number DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next(filter.Limit) + ` OFFSET ` + next(filter.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountPending reports draft entries dated inside the given month. The closing
// module consults this before allowing a month to close.
func (r *repository) CountPending(ctx context.Context, year int, month time.Month) (int64, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE status='DRAFT' AND date >= $1 AND date < $2`, start, end).Scan(&count)
	return count, err
}

// WithTx executes fn within a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// NextSequence allocates the next per-(kind, year) sequence value. The counter
// row is updated under its row lock, serialising concurrent number generation.
func (r *txRepository) NextSequence(ctx context.Context, kind JournalKind, year int) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (kind, year, last_value) VALUES ($1,$2,1)
ON CONFLICT (kind, year) DO UPDATE SET last_value = journal_sequences.last_value + 1
RETURNING last_value`, kind, year).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (uid, number, date, description, ref_type, ref_number, total_debit, total_credit, status, kind, created_by, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id, created_at, updated_at`,
		e.UID, e.Number, e.Date, e.Description, e.RefType, e.RefNumber, e.TotalDebit, e.TotalCredit,
		e.Status, e.Kind, e.CreatedBy, e.PostedBy, e.PostedAt)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if db.IsUniqueViolation(err, "uq_journal_entries_number") {
			return JournalEntry{}, ErrNumberTaken
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (journal_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id=$1`, entryID)
	return err
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, journal_id, account_id, debit, credit, description
FROM journal_lines WHERE journal_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalID, &line.AccountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) UpdateHeader(ctx context.Context, e JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET date=$2, description=$3, ref_type=$4, ref_number=$5, total_debit=$6, total_credit=$7, updated_at=NOW() WHERE id=$1`,
		e.ID, e.Date, e.Description, e.RefType, e.RefNumber, e.TotalDebit, e.TotalCredit)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status JournalStatus, postedBy *int64, postedAt *time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, posted_by=$3, posted_at=$4, updated_at=NOW() WHERE id=$1`,
		id, status, postedBy, postedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

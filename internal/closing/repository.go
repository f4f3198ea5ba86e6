package closing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-his/meridian-his/internal/platform/db"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// ErrMonthTaken indicates a closing already covers the (year, month) pair.
var ErrMonthTaken = errors.New("closing: month already covered")

// Repository persists monthly closing state.
type Repository interface {
	Get(ctx context.Context, id int64) (MonthlyClosing, error)
	GetByMonth(ctx context.Context, year int, month time.Month) (MonthlyClosing, error)
	List(ctx context.Context, limit, offset int) ([]MonthlyClosing, error)
	IsMonthClosed(ctx context.Context, year int, month time.Month) (bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes operations available within one transaction.
type TxRepository interface {
	Insert(ctx context.Context, c MonthlyClosing) (MonthlyClosing, error)
	GetForUpdate(ctx context.Context, id int64) (MonthlyClosing, error)
	UpdateState(ctx context.Context, c MonthlyClosing) error
	SummarizePostedMonth(ctx context.Context, year int, month time.Month) (ClosingSummary, error)
	IsMonthClosed(ctx context.Context, year int, month time.Month) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const closingColumns = `id, uid, year, month, cutoff_date, status, initiated_by, approved_by, approved_at, closed_at, reopened_by, reopened_at, reopen_reason, notes, summary, created_at, updated_at`

func scanClosing(row pgx.Row) (MonthlyClosing, error) {
	var c MonthlyClosing
	var month int
	var summaryJSON []byte
	err := row.Scan(&c.ID, &c.UID, &c.Year, &month, &c.CutoffDate, &c.Status, &c.InitiatedBy,
		&c.ApprovedBy, &c.ApprovedAt, &c.ClosedAt, &c.ReopenedBy, &c.ReopenedAt,
		&c.ReopenReason, &c.Notes, &summaryJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return MonthlyClosing{}, err
	}
	c.Month = time.Month(month)
	if len(summaryJSON) > 0 {
		var summary ClosingSummary
		if err := json.Unmarshal(summaryJSON, &summary); err == nil {
			c.Summary = &summary
		}
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (MonthlyClosing, error) {
	c, err := scanClosing(r.pool.QueryRow(ctx, `SELECT `+closingColumns+` FROM monthly_closings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MonthlyClosing{}, shared.ErrNotFound
		}
		return MonthlyClosing{}, err
	}
	return c, nil
}

func (r *repository) GetByMonth(ctx context.Context, year int, month time.Month) (MonthlyClosing, error) {
	c, err := scanClosing(r.pool.QueryRow(ctx, `SELECT `+closingColumns+` FROM monthly_closings WHERE year=$1 AND month=$2`, year, int(month)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MonthlyClosing{}, shared.ErrNotFound
		}
		return MonthlyClosing{}, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]MonthlyClosing, error) {
	if limit <= 0 {
		limit = 24
	}
	rows, err := r.pool.Query(ctx, `SELECT `+closingColumns+` FROM monthly_closings ORDER BY year DESC, month DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var closings []MonthlyClosing
	for rows.Next() {
		c, err := scanClosing(rows)
		if err != nil {
			return nil, err
		}
		closings = append(closings, c)
	}
	return closings, rows.Err()
}

func (r *repository) IsMonthClosed(ctx context.Context, year int, month time.Month) (bool, error) {
	return isMonthClosed(ctx, r.pool, year, month)
}

// WithTx executes fn inside a repeatable-read transaction.
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

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isMonthClosed(ctx context.Context, q querier, year int, month time.Month) (bool, error) {
	var closed bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM monthly_closings WHERE year=$1 AND month=$2 AND status='CLOSED')`, year, int(month)).Scan(&closed)
	return closed, err
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Insert(ctx context.Context, c MonthlyClosing) (MonthlyClosing, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO monthly_closings (uid, year, month, cutoff_date, status, initiated_by, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		c.UID, c.Year, int(c.Month), c.CutoffDate, c.Status, c.InitiatedBy, c.Notes)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if db.IsUniqueViolation(err, "uq_monthly_closings_year_month") {
			return MonthlyClosing{}, ErrMonthTaken
		}
		return MonthlyClosing{}, err
	}
	return c, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (MonthlyClosing, error) {
	c, err := scanClosing(r.tx.QueryRow(ctx, `SELECT `+closingColumns+` FROM monthly_closings WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MonthlyClosing{}, shared.ErrNotFound
		}
		return MonthlyClosing{}, err
	}
	return c, nil
}

func (r *txRepository) UpdateState(ctx context.Context, c MonthlyClosing) error {
	var summaryJSON []byte
	if c.Summary != nil {
		data, err := json.Marshal(c.Summary)
		if err != nil {
			return err
		}
		summaryJSON = data
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE monthly_closings
SET status=$2, approved_by=$3, approved_at=$4, closed_at=$5, reopened_by=$6, reopened_at=$7, reopen_reason=$8, notes=$9, summary=$10, updated_at=NOW()
WHERE id=$1`,
		c.ID, c.Status, c.ApprovedBy, c.ApprovedAt, c.ClosedAt, c.ReopenedBy, c.ReopenedAt, c.ReopenReason, c.Notes, summaryJSON)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SummarizePostedMonth(ctx context.Context, year int, month time.Month) (ClosingSummary, error) {
	start := monthStart(year, month)
	end := start.AddDate(0, 1, 0)
	var summary ClosingSummary
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_debit),0), COALESCE(SUM(total_credit),0)
FROM journal_entries WHERE status='POSTED' AND date >= $1 AND date < $2`, start, end).
		Scan(&summary.JournalCount, &summary.TotalDebit, &summary.TotalCredit)
	return summary, err
}

func (r *txRepository) IsMonthClosed(ctx context.Context, year int, month time.Month) (bool, error) {
	return isMonthClosed(ctx, r.tx, year, month)
}

package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-his/meridian-his/internal/platform/db"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// Repository persists chart-of-accounts entries.
type Repository interface {
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	ListActive(ctx context.Context, filterType *AccountType) ([]Account, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	HasJournalLines(ctx context.Context, id int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, code, name, type, normal_side, parent_id, level, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalSide, &a.ParentID, &a.Level, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, type, normal_side, parent_id, level, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+accountColumns,
		a.Code, a.Name, a.Type, a.NormalSide, a.ParentID, a.Level, a.IsActive)
	inserted, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounts_code") {
			return Account{}, ErrCodeTaken
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) Update(ctx context.Context, a Account) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET name=$2, is_active=$3, updated_at=NOW() WHERE id=$1`,
		a.ID, a.Name, a.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) ListActive(ctx context.Context, filterType *AccountType) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE is_active`
	args := []any{}
	if filterType != nil {
		query += ` AND type=$1`
		args = append(args, *filterType)
	}
	query += ` ORDER BY code`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE parent_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) HasJournalLines(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journal_lines WHERE account_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

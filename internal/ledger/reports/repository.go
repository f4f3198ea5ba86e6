package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
)

// ActivityLine is one posted journal line joined with its header, in ledger
// (insertion) order.
type ActivityLine struct {
	LineID      int64           `json:"lineId"`
	EntryID     int64           `json:"entryId"`
	Number      string          `json:"number"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Repository aggregates posted journal activity. Only POSTED headers count
// toward any balance.
type Repository interface {
	SumPostedBefore(ctx context.Context, accountID int64, asOf time.Time) (debit, credit decimal.Decimal, err error)
	SumPostedThrough(ctx context.Context, accountID int64, date time.Time) (debit, credit decimal.Decimal, err error)
	PostedLines(ctx context.Context, accountID int64, from, to time.Time) ([]ActivityLine, error)
	RangeBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) sumPosted(ctx context.Context, accountID int64, boundary time.Time, op string) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit decimal.Decimal
	query := `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE l.account_id = $1 AND e.status = 'POSTED' AND e.date ` + op + ` $2`
	err := r.pool.QueryRow(ctx, query, accountID, boundary).Scan(&debit, &credit)
	return debit, credit, err
}

// SumPostedBefore excludes the boundary date: opening-balance semantics.
func (r *repository) SumPostedBefore(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return r.sumPosted(ctx, accountID, asOf, "<")
}

// SumPostedThrough includes the boundary date: point-in-time balance semantics.
func (r *repository) SumPostedThrough(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return r.sumPosted(ctx, accountID, date, "<=")
}

func (r *repository) PostedLines(ctx context.Context, accountID int64, from, to time.Time) ([]ActivityLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.id, e.id, e.number, e.date, l.description, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE l.account_id = $1 AND e.status = 'POSTED' AND e.date >= $2 AND e.date <= $3
ORDER BY l.id ASC`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []ActivityLine
	for rows.Next() {
		var line ActivityLine
		if err := rows.Scan(&line.LineID, &line.EntryID, &line.Number, &line.Date, &line.Description, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// RangeBalances returns, per active account, raw opening sums before `from`
// and debit/credit activity inside [from, to]. Opening amounts are raw sums;
// the service signs them by normal side.
func (r *repository) RangeBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type, a.normal_side,
  COALESCE(SUM(l.debit)  FILTER (WHERE e.date <  $1), 0),
  COALESCE(SUM(l.credit) FILTER (WHERE e.date <  $1), 0),
  COALESCE(SUM(l.debit)  FILTER (WHERE e.date >= $1), 0),
  COALESCE(SUM(l.credit) FILTER (WHERE e.date >= $1), 0)
FROM accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.journal_id AND e.status = 'POSTED' AND e.date <= $2
WHERE a.is_active AND (l.id IS NULL OR e.id IS NOT NULL)
GROUP BY a.id, a.code, a.name, a.type, a.normal_side
ORDER BY a.code`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		var openDebit, openCredit decimal.Decimal
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.NormalSide,
			&openDebit, &openCredit, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		if b.NormalSide == accounts.NormalSideCredit {
			b.Opening = openCredit.Sub(openDebit)
		} else {
			b.Opening = openDebit.Sub(openCredit)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

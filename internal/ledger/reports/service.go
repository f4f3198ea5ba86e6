package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
)

// AccountDirectory resolves account metadata for single-account balances.
type AccountDirectory interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// LedgerRow is one activity line with the running balance after applying it.
type LedgerRow struct {
	ActivityLine
	Running decimal.Decimal `json:"running"`
}

// Activity is a single account's ledger over a date range.
type Activity struct {
	AccountID  int64               `json:"accountId"`
	Code       string              `json:"code"`
	Name       string              `json:"name"`
	NormalSide accounts.NormalSide `json:"normalSide"`
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
	Opening    decimal.Decimal     `json:"opening"`
	Rows       []LedgerRow         `json:"rows"`
	Closing    decimal.Decimal     `json:"closing"`
}

// Service computes ledger balances and financial statements from posted
// entries only.
type Service struct {
	repo     Repository
	accounts AccountDirectory
	cache    *Cache
}

func NewService(repo Repository, dir AccountDirectory) *Service {
	return &Service{repo: repo, accounts: dir}
}

// WithCache attaches a Redis statement cache. A nil cache is a no-op.
func (s *Service) WithCache(cache *Cache) {
	s.cache = cache
}

// Invalidate drops every cached statement. Posting-side services call this
// after any mutation that changes posted balances.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func signed(normalSide accounts.NormalSide, debit, credit decimal.Decimal) decimal.Decimal {
	if normalSide == accounts.NormalSideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// OpeningBalance sums posted activity strictly before asOf, signed by the
// account's normal side.
func (s *Service) OpeningBalance(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	debit, credit, err := s.repo.SumPostedBefore(ctx, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return signed(acct.NormalSide, debit, credit), nil
}

// AccountBalanceAsOf sums posted activity through asOf inclusive, signed by
// the account's normal side.
func (s *Service) AccountBalanceAsOf(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	debit, credit, err := s.repo.SumPostedThrough(ctx, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return signed(acct.NormalSide, debit, credit), nil
}

// PeriodActivity lists an account's posted lines in [from, to] with a running
// balance seeded from the opening balance at from.
func (s *Service) PeriodActivity(ctx context.Context, accountID int64, from, to time.Time) (Activity, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return Activity{}, err
	}
	debit, credit, err := s.repo.SumPostedBefore(ctx, accountID, from)
	if err != nil {
		return Activity{}, err
	}
	opening := signed(acct.NormalSide, debit, credit)

	lines, err := s.repo.PostedLines(ctx, accountID, from, to)
	if err != nil {
		return Activity{}, err
	}
	act := Activity{
		AccountID:  acct.ID,
		Code:       acct.Code,
		Name:       acct.Name,
		NormalSide: acct.NormalSide,
		From:       from,
		To:         to,
		Opening:    opening,
		Rows:       make([]LedgerRow, 0, len(lines)),
		Closing:    opening,
	}
	running := opening
	for _, line := range lines {
		running = running.Add(signed(acct.NormalSide, line.Debit, line.Credit))
		act.Rows = append(act.Rows, LedgerRow{ActivityLine: line, Running: running})
	}
	act.Closing = running
	return act, nil
}

// NetIncome is revenue minus expense over the posted activity in [from, to].
func (s *Service) NetIncome(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	balances, err := s.repo.RangeBalances(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	pl := BuildProfitAndLoss(balances)
	return pl.NetIncome, nil
}

// TrialBalance builds the trial balance for posted activity in [from, to].
func (s *Service) TrialBalance(ctx context.Context, from, to time.Time) (TrialBalance, error) {
	key, err := s.cache.BuildKey(ctx, keyStatement("tb", from, to)...)
	if err != nil {
		return TrialBalance{}, err
	}
	var tb TrialBalance
	err = s.cache.FetchJSON(ctx, key, &tb, func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.RangeBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances), nil
	})
	return tb, err
}

// ProfitAndLoss builds the income statement for posted activity in [from, to].
func (s *Service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	key, err := s.cache.BuildKey(ctx, keyStatement("pl", from, to)...)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var pl ProfitAndLoss
	err = s.cache.FetchJSON(ctx, key, &pl, func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.RangeBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(balances), nil
	})
	return pl, err
}

// BalanceSheet builds the statement of financial position as of a date.
// Current-period net income covers the calendar year of asOf and is folded
// into the equity side.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, asOf.Location())
	key, err := s.cache.BuildKey(ctx, keyStatement("bs", yearStart, asOf)...)
	if err != nil {
		return BalanceSheet{}, err
	}
	var bs BalanceSheet
	err = s.cache.FetchJSON(ctx, key, &bs, func(ctx context.Context) (interface{}, error) {
		balances, err := s.repo.RangeBalances(ctx, yearStart, asOf)
		if err != nil {
			return nil, err
		}
		pl := BuildProfitAndLoss(balances)
		return BuildBalanceSheet(balances, pl.NetIncome), nil
	})
	return bs, err
}

package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
)

// AccountBalance models a ledger account with aggregated posted amounts:
// opening balance before the range and debit/credit activity inside it.
type AccountBalance struct {
	AccountID  int64
	Code       string
	Name       string
	Type       accounts.AccountType
	NormalSide accounts.NormalSide
	Opening    decimal.Decimal
	Debit      decimal.Decimal
	Credit     decimal.Decimal
}

// Closing computes the closing balance on the account's normal side.
func (a AccountBalance) Closing() decimal.Decimal {
	if a.NormalSide == accounts.NormalSideCredit {
		return a.Opening.Add(a.Credit).Sub(a.Debit)
	}
	return a.Opening.Add(a.Debit).Sub(a.Credit)
}

// IsZero reports whether the account had no balance and no activity. Such
// accounts are omitted from statement output.
func (a AccountBalance) IsZero() bool {
	return a.Opening.IsZero() && a.Debit.IsZero() && a.Credit.IsZero()
}

// GroupKey returns the code segment used for grouping trial balance rows.
// Hierarchical codes such as 1-1-1 group under their top segment.
func (a AccountBalance) GroupKey() string {
	if idx := strings.IndexAny(a.Code, "-."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code    string
	Name    string
	Opening decimal.Decimal
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Closing decimal.Decimal
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string
	Accounts []TrialBalanceAccount
	Opening  decimal.Decimal
	Debit    decimal.Decimal
	Credit   decimal.Decimal
	Closing  decimal.Decimal
}

// TrialBalance is the final structure rendered by the delivery layer.
type TrialBalance struct {
	Groups       []TrialBalanceGroup
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
	TotalOpening decimal.Decimal
	TotalClosing decimal.Decimal
}

// BuildTrialBalance converts account balances into grouped trial balance data.
// Accounts with neither balance nor activity are skipped.
func BuildTrialBalance(balances []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range balances {
		if acc.IsZero() {
			continue
		}
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceAccount{
			Code:    acc.Code,
			Name:    acc.Name,
			Opening: acc.Opening,
			Debit:   acc.Debit,
			Credit:  acc.Credit,
			Closing: acc.Closing(),
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Opening = grp.Opening.Add(row.Opening)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Closing = grp.Closing.Add(row.Closing)
	}

	sort.Strings(keys)
	result := TrialBalance{}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalOpening = result.TotalOpening.Add(grp.Opening)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
		result.TotalClosing = result.TotalClosing.Add(grp.Closing)
	}
	return result
}

package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string
	Accounts []ProfitAndLossAccount
	Total    decimal.Decimal
}

// ProfitAndLoss contains the structured output for the income statement.
type ProfitAndLoss struct {
	Revenue   ProfitAndLossSection
	Expense   ProfitAndLossSection
	NetIncome decimal.Decimal
}

// BuildProfitAndLoss aggregates period activity into revenue and expense
// sections. Net income is revenue (credit minus debit) less expenses (debit
// minus credit), posted activity only.
func BuildProfitAndLoss(balances []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range balances {
		if acc.IsZero() {
			continue
		}
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Credit.Sub(acc.Debit)}
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case accounts.AccountTypeExpense:
			row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Debit.Sub(acc.Credit)}
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}

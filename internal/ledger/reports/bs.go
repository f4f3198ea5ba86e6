package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-his/meridian-his/internal/ledger/accounts"
)

// ConsistencyTolerance is the accepted difference between total assets and
// total liabilities, equity, and current net income.
var ConsistencyTolerance = decimal.NewFromFloat(0.01)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string
	Name    string
	Balance decimal.Decimal
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string
	Accounts []BalanceSheetAccount
	Total    decimal.Decimal
}

// BalanceSheet is the structured response for the balance sheet report. The
// consistency check is a reportable property: an imbalance is flagged, never
// rejected.
type BalanceSheet struct {
	Assets                    BalanceSheetSection
	Liabilities               BalanceSheetSection
	Equity                    BalanceSheetSection
	NetIncome                 decimal.Decimal
	TotalLiabilitiesAndEquity decimal.Decimal
	Consistent                bool
	Difference                decimal.Decimal
}

// BuildBalanceSheet aggregates closing balances into assets, liabilities, and
// equity sections, folds current-period net income into the right-hand side,
// and computes the consistency flag.
func BuildBalanceSheet(balances []AccountBalance, netIncome decimal.Decimal) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	for _, acc := range balances {
		if acc.IsZero() {
			continue
		}
		row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.Closing()}
		switch acc.Type {
		case accounts.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case accounts.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case accounts.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	rightSide := liabilities.Total.Add(equity.Total).Add(netIncome)
	difference := assets.Total.Sub(rightSide)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		NetIncome:                 netIncome,
		TotalLiabilitiesAndEquity: rightSide,
		Consistent:                difference.Abs().LessThanOrEqual(ConsistencyTolerance),
		Difference:                difference,
	}
}

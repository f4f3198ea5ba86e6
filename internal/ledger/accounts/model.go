package accounts

import (
	"errors"
	"time"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalSide identifies which side carries an account's natural positive balance.
type NormalSide string

const (
	NormalSideDebit  NormalSide = "DEBIT"
	NormalSideCredit NormalSide = "CREDIT"
)

// MaxLevel bounds the account hierarchy depth.
const MaxLevel = 5

// Account models a chart of accounts node.
type Account struct {
	ID         int64       `json:"id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Type       AccountType `json:"type"`
	NormalSide NormalSide  `json:"normalSide"`
	ParentID   *int64      `json:"parentId,omitempty"`
	Level      int16       `json:"level"`
	IsActive   bool        `json:"isActive"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

var (
	// ErrCodeTaken indicates the account code is already registered.
	ErrCodeTaken = errors.New("accounts: code already registered")
	// ErrAccountInUse indicates the account has children or journal lines.
	ErrAccountInUse = errors.New("accounts: account has children or journal activity")
	// ErrUnknownType indicates an unsupported account type.
	ErrUnknownType = errors.New("accounts: unknown account type")
	// ErrLevelOutOfRange indicates the hierarchy level is outside 1..5.
	ErrLevelOutOfRange = errors.New("accounts: level out of range")
	// ErrParentNotFound indicates the referenced parent does not exist.
	ErrParentNotFound = errors.New("accounts: parent account not found")
)

// NormalSideFor returns the normal balance side implied by an account type.
// Assets and expenses are debit-normal; liabilities, equity, and revenue are credit-normal.
func NormalSideFor(t AccountType) (NormalSide, error) {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalSideDebit, nil
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return NormalSideCredit, nil
	default:
		return "", ErrUnknownType
	}
}

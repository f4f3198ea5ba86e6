package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-his/meridian-his/internal/shared"
)

type memAccountRepo struct {
	accounts map[int64]Account
	children map[int64][]int64
	withLine map[int64]bool
	nextID   int64
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		accounts: make(map[int64]Account),
		children: make(map[int64][]int64),
		withLine: make(map[int64]bool),
	}
}

func (m *memAccountRepo) Insert(ctx context.Context, a Account) (Account, error) {
	for _, existing := range m.accounts {
		if existing.Code == a.Code {
			return Account{}, ErrCodeTaken
		}
	}
	m.nextID++
	a.ID = m.nextID
	m.accounts[a.ID] = a
	if a.ParentID != nil {
		m.children[*a.ParentID] = append(m.children[*a.ParentID], a.ID)
	}
	return a, nil
}

func (m *memAccountRepo) Update(ctx context.Context, a Account) error {
	if _, ok := m.accounts[a.ID]; !ok {
		return shared.ErrNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *memAccountRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.accounts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memAccountRepo) Get(ctx context.Context, id int64) (Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *memAccountRepo) GetByCode(ctx context.Context, code string) (Account, error) {
	for _, a := range m.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return Account{}, shared.ErrNotFound
}

func (m *memAccountRepo) ListActive(ctx context.Context, filterType *AccountType) ([]Account, error) {
	var out []Account
	for _, a := range m.accounts {
		if !a.IsActive {
			continue
		}
		if filterType != nil && a.Type != *filterType {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memAccountRepo) HasChildren(ctx context.Context, id int64) (bool, error) {
	return len(m.children[id]) > 0, nil
}

func (m *memAccountRepo) HasJournalLines(ctx context.Context, id int64) (bool, error) {
	return m.withLine[id], nil
}

func (m *memAccountRepo) SetActive(ctx context.Context, id int64, active bool) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsActive = active
	m.accounts[id] = a
	return nil
}

func TestCreateDerivesNormalSideFromType(t *testing.T) {
	svc := NewService(newMemAccountRepo(), nil)
	ctx := context.Background()

	cash, err := svc.Create(ctx, CreateInput{Code: "1-1-1", Name: "Cash on Hand", Type: AccountTypeAsset, Level: 1})
	require.NoError(t, err)
	require.Equal(t, NormalSideDebit, cash.NormalSide)
	require.True(t, cash.IsActive)

	revenue, err := svc.Create(ctx, CreateInput{Code: "4-1", Name: "Outpatient Revenue", Type: AccountTypeRevenue, Level: 1})
	require.NoError(t, err)
	require.Equal(t, NormalSideCredit, revenue.NormalSide)

	_, err = svc.Create(ctx, CreateInput{Code: "9-9", Name: "Mystery", Type: AccountType("SUSPENSE"), Level: 1})
	var validation shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "type", validation.Field)
}

func TestCreateDerivesLevelFromParent(t *testing.T) {
	svc := NewService(newMemAccountRepo(), nil)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateInput{Code: "1", Name: "Assets", Type: AccountTypeAsset, Level: 1})
	require.NoError(t, err)

	child, err := svc.Create(ctx, CreateInput{Code: "1-1", Name: "Cash and Bank", Type: AccountTypeAsset, ParentID: &root.ID})
	require.NoError(t, err)
	require.Equal(t, int16(2), child.Level)

	_, err = svc.Create(ctx, CreateInput{Code: "1-2", Name: "Wrong Level", Type: AccountTypeAsset, ParentID: &root.ID, Level: 4})
	var validation shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "level", validation.Field)

	missing := int64(999)
	_, err = svc.Create(ctx, CreateInput{Code: "1-3", Name: "Orphan", Type: AccountTypeAsset, ParentID: &missing})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "parentId", validation.Field)
}

func TestCreateEnforcesLevelBounds(t *testing.T) {
	repo := newMemAccountRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	parentID := int64(0)
	codes := []string{"1", "1-1", "1-1-1", "1-1-1-1", "1-1-1-1-1"}
	for i, code := range codes {
		in := CreateInput{Code: code, Name: "Level " + code, Type: AccountTypeAsset}
		if i == 0 {
			in.Level = 1
		} else {
			pid := parentID
			in.ParentID = &pid
		}
		acc, err := svc.Create(ctx, in)
		require.NoError(t, err)
		parentID = acc.ID
	}

	pid := parentID
	_, err := svc.Create(ctx, CreateInput{Code: "1-1-1-1-1-1", Name: "Too Deep", Type: AccountTypeAsset, ParentID: &pid})
	var validation shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "level", validation.Field)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemAccountRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "1-1", Name: "Cash", Type: AccountTypeAsset, Level: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "1-1", Name: "Cash Again", Type: AccountTypeAsset, Level: 1})
	var conflict shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "account", conflict.Entity)
}

func TestDeleteBlockedByChildrenOrActivity(t *testing.T) {
	repo := newMemAccountRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateInput{Code: "1", Name: "Assets", Type: AccountTypeAsset, Level: 1})
	require.NoError(t, err)
	leaf, err := svc.Create(ctx, CreateInput{Code: "1-1", Name: "Cash", Type: AccountTypeAsset, ParentID: &root.ID})
	require.NoError(t, err)

	var conflict shared.ConflictError
	require.ErrorAs(t, svc.Delete(ctx, root.ID, 1), &conflict)

	repo.withLine[leaf.ID] = true
	require.ErrorAs(t, svc.Delete(ctx, leaf.ID, 1), &conflict)

	repo.withLine[leaf.ID] = false
	require.NoError(t, svc.Delete(ctx, leaf.ID, 1))
	_, err = svc.Get(ctx, leaf.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateKeepsHistory(t *testing.T) {
	repo := newMemAccountRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	acc, err := svc.Create(ctx, CreateInput{Code: "5-1", Name: "Salary Expense", Type: AccountTypeExpense, Level: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, acc.ID, 1))
	stored, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	active, err := svc.ListActive(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestListActiveValidatesTypeFilter(t *testing.T) {
	svc := NewService(newMemAccountRepo(), nil)
	bad := AccountType("JUNK")
	_, err := svc.ListActive(context.Background(), &bad)
	var validation shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestNormalSideFor(t *testing.T) {
	for typ, want := range map[AccountType]NormalSide{
		AccountTypeAsset:     NormalSideDebit,
		AccountTypeExpense:   NormalSideDebit,
		AccountTypeLiability: NormalSideCredit,
		AccountTypeEquity:    NormalSideCredit,
		AccountTypeRevenue:   NormalSideCredit,
	} {
		side, err := NormalSideFor(typ)
		require.NoError(t, err)
		require.Equal(t, want, side)
	}
	_, err := NormalSideFor(AccountType("OTHER"))
	require.ErrorIs(t, err, ErrUnknownType)
}

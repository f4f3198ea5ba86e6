package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-his/meridian-his/internal/shared"
)

// AuditPort records registry events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the chart of accounts.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the registry service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput carries fields for a new account.
type CreateInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
	Level    int16
	ActorID  int64
}

// Create registers a new account. The hierarchy level is derived from the
// parent when one is given; a requested level that disagrees is rejected.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if strings.TrimSpace(in.Code) == "" {
		return Account{}, shared.ValidationError{Field: "code", Reason: "required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return Account{}, shared.ValidationError{Field: "name", Reason: "required"}
	}
	side, err := NormalSideFor(in.Type)
	if err != nil {
		return Account{}, shared.ValidationError{Field: "type", Reason: err.Error()}
	}

	level := in.Level
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Account{}, shared.ValidationError{Field: "parentId", Reason: ErrParentNotFound.Error()}
			}
			return Account{}, err
		}
		derived := parent.Level + 1
		if level != 0 && level != derived {
			return Account{}, shared.ValidationError{Field: "level", Reason: fmt.Sprintf("must be %d (parent level + 1)", derived)}
		}
		level = derived
	}
	if level < 1 || level > MaxLevel {
		return Account{}, shared.ValidationError{Field: "level", Reason: ErrLevelOutOfRange.Error()}
	}

	account, err := s.repo.Insert(ctx, Account{
		Code:       strings.TrimSpace(in.Code),
		Name:       strings.TrimSpace(in.Name),
		Type:       in.Type,
		NormalSide: side,
		ParentID:   in.ParentID,
		Level:      level,
		IsActive:   true,
	})
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return Account{}, shared.ConflictError{Entity: "account", Reason: "code " + in.Code + " already registered"}
		}
		return Account{}, err
	}
	s.record(ctx, in.ActorID, "account.create", account.ID, map[string]any{"code": account.Code})
	return account, nil
}

// UpdateInput carries mutable account fields. Code and type are immutable.
type UpdateInput struct {
	ID      int64
	Name    string
	ActorID int64
}

// Update renames an account.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Account, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Account{}, shared.ValidationError{Field: "name", Reason: "required"}
	}
	account, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return Account{}, err
	}
	account.Name = strings.TrimSpace(in.Name)
	if err := s.repo.Update(ctx, account); err != nil {
		return Account{}, err
	}
	s.record(ctx, in.ActorID, "account.update", account.ID, map[string]any{"name": account.Name})
	return account, nil
}

// Deactivate retires an account without deleting history.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actorID, "account.deactivate", id, nil)
	return nil
}

// Delete removes an account that has no children and no journal activity.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.ConflictError{Entity: "account", Reason: "has child accounts"}
	}
	hasLines, err := s.repo.HasJournalLines(ctx, id)
	if err != nil {
		return err
	}
	if hasLines {
		return shared.ConflictError{Entity: "account", Reason: "referenced by journal lines"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "account.delete", id, nil)
	return nil
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// ListActive returns active accounts ordered by code, optionally filtered by type.
func (s *Service) ListActive(ctx context.Context, filterType *AccountType) ([]Account, error) {
	if filterType != nil {
		if _, err := NormalSideFor(*filterType); err != nil {
			return nil, shared.ValidationError{Field: "type", Reason: err.Error()}
		}
	}
	return s.repo.ListActive(ctx, filterType)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, accountID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", accountID),
		Meta:     meta,
		At:       s.now(),
	})
}

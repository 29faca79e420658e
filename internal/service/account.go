package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService provisions wallets and toggles their status. Balances are
// never touched here.
type AccountService struct {
	store    QueryStore
	audit    *AuditService
	currency string
}

func NewAccountService(store QueryStore, referenceCurrency string) *AccountService {
	if referenceCurrency == "" {
		referenceCurrency = domain.DefaultReferenceCurrency
	}
	return &AccountService{
		store:    store,
		audit:    NewAuditService(store),
		currency: referenceCurrency,
	}
}

// Provision creates a zero-balance ACTIVE account whose id matches the user.
func (s *AccountService) Provision(ctx context.Context, actor authz.Actor, accountID uuid.UUID) (*models.Account, error) {
	if err := authz.Require(actor, authz.ManageAccounts); err != nil {
		return nil, err
	}
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidRequest)
	}

	var created repository.Account
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		row, err := qtx.CreateAccount(ctx, repository.CreateAccountParams{
			ID:       accountID,
			Currency: s.currency,
			Status:   domain.AccountStatusActive,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: account %s already exists", domain.ErrConflict, accountID)
			}
			return fmt.Errorf("create account: %w", err)
		}
		created = row
		return s.audit.Write(ctx, qtx, auditEntityAccount, accountID, &actor.ID, "provisioned", "", domain.AccountStatusActive, nil)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("account provisioned", zap.String("account_id", accountID.String()), zap.String("actor_id", actor.ID.String()))
	return toAccount(created), nil
}

// Deactivate blocks new debits. Credits still land.
func (s *AccountService) Deactivate(ctx context.Context, actor authz.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.setStatus(ctx, actor, accountID, domain.AccountStatusInactive, "deactivated")
}

func (s *AccountService) Activate(ctx context.Context, actor authz.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.setStatus(ctx, actor, accountID, domain.AccountStatusActive, "activated")
}

func (s *AccountService) setStatus(ctx context.Context, actor authz.Actor, accountID uuid.UUID, status, action string) (*models.Account, error) {
	if err := authz.Require(actor, authz.ManageAccounts); err != nil {
		return nil, err
	}

	var updated repository.Account
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		current, err := qtx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFoundOr(err, "account %s", accountID)
		}
		if current.Status == status {
			updated = current
			return nil
		}

		rows, err := qtx.UpdateAccountStatus(ctx, repository.UpdateAccountStatusParams{ID: accountID, Status: status})
		if err != nil {
			return fmt.Errorf("update account status: %w", err)
		}
		if err := requireExactlyOne(rows, "update account status"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, auditEntityAccount, accountID, &actor.ID, action, current.Status, status, nil); err != nil {
			return err
		}

		updated, err = qtx.GetAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("reload account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toAccount(updated), nil
}

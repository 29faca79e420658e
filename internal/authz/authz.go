// Package authz holds the role model and the single policy function that
// every privileged operation consults.
package authz

import (
	"fmt"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/google/uuid"
)

// Role is the closed set of platform roles. RoleUnknown holds no capabilities.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleSuperuser
	RoleAdmin
	RoleDistributor
	RoleReseller
	RoleTaquilla
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleSuperuser:
		return "SUPERUSER"
	case RoleAdmin:
		return "ADMIN"
	case RoleDistributor:
		return "DISTRIBUTOR"
	case RoleReseller:
		return "RESELLER"
	case RoleTaquilla:
		return "TAQUILLA"
	case RoleClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// ParseRole maps a token claim to a Role. Unrecognised values become RoleUnknown.
func ParseRole(v string) Role {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "SUPERUSER":
		return RoleSuperuser
	case "ADMIN":
		return RoleAdmin
	case "DISTRIBUTOR":
		return RoleDistributor
	case "RESELLER":
		return RoleReseller
	case "TAQUILLA":
		return RoleTaquilla
	case "CLIENT":
		return RoleClient
	default:
		return RoleUnknown
	}
}

// Capability names an operation class guarded by the policy.
type Capability uint8

const (
	// HoldWallet lets an actor operate on the account that matches its own id.
	HoldWallet Capability = iota + 1
	ViewAnyAccount
	ManageAccounts
	ReviewDeposits
	ReviewWithdrawals
	ViewLedgerReports
)

func (c Capability) String() string {
	switch c {
	case HoldWallet:
		return "hold_wallet"
	case ViewAnyAccount:
		return "view_any_account"
	case ManageAccounts:
		return "manage_accounts"
	case ReviewDeposits:
		return "review_deposits"
	case ReviewWithdrawals:
		return "review_withdrawals"
	case ViewLedgerReports:
		return "view_ledger_reports"
	default:
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
}

// Allows is the policy.
func Allows(r Role, c Capability) bool {
	if c < HoldWallet || c > ViewLedgerReports {
		return false
	}
	switch r {
	case RoleSuperuser, RoleAdmin:
		return true
	case RoleDistributor, RoleReseller, RoleTaquilla, RoleClient:
		return c == HoldWallet
	case RoleUnknown:
		return false
	default:
		return false
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Can reports whether the actor's role grants c.
func (a Actor) Can(c Capability) bool {
	return a.ID != uuid.Nil && Allows(a.Role, c)
}

// Require fails with ErrPermissionDenied unless the actor holds c.
func Require(a Actor, c Capability) error {
	if a.Can(c) {
		return nil
	}
	return fmt.Errorf("%w: role %s lacks %s", domain.ErrPermissionDenied, a.Role, c)
}

// RequireAccount admits the account owner, or any actor holding c.
func RequireAccount(a Actor, accountID uuid.UUID, c Capability) error {
	if a.ID == accountID && a.Can(HoldWallet) {
		return nil
	}
	if a.Can(c) {
		return nil
	}
	return fmt.Errorf("%w: account %s is not accessible to %s", domain.ErrPermissionDenied, accountID, a.ID)
}

package domain

import "fmt"

// DefaultReferenceCurrency is the internal unit every wallet balance is kept in.
const DefaultReferenceCurrency = "USD"

// Account statuses. Accounts are never deleted, only deactivated.
const (
	AccountStatusActive   = "ACTIVE"
	AccountStatusInactive = "INACTIVE"
)

// Reference types link a ledger entry to the record that caused it.
const (
	ReferenceOrder         = "order"
	ReferencePaymentReport = "payment_report"
	ReferenceWithdrawal    = "withdrawal"
	ReferenceManualCredit  = "manual_credit"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryDeposit           EntryKind = "DEPOSIT"
	EntryPurchase          EntryKind = "PURCHASE"
	EntryWithdrawalHold    EntryKind = "WITHDRAWAL_HOLD"
	EntryWithdrawalConfirm EntryKind = "WITHDRAWAL_CONFIRM"
	EntryWithdrawalRefund  EntryKind = "WITHDRAWAL_REFUND"
)

// EntryKinds lists every kind in a stable order.
var EntryKinds = []EntryKind{
	EntryDeposit,
	EntryPurchase,
	EntryWithdrawalHold,
	EntryWithdrawalConfirm,
	EntryWithdrawalRefund,
}

// Direction is the sign an entry kind applies to a balance.
type Direction int8

const (
	DirectionNone   Direction = 0
	DirectionCredit Direction = 1
	DirectionDebit  Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionCredit:
		return "credit"
	case DirectionDebit:
		return "debit"
	default:
		return "none"
	}
}

// Direction reports which ledger primitive may post the kind.
// WITHDRAWAL_CONFIRM carries no monetary effect, so it has none.
func (k EntryKind) Direction() Direction {
	switch k {
	case EntryDeposit, EntryWithdrawalRefund:
		return DirectionCredit
	case EntryPurchase, EntryWithdrawalHold:
		return DirectionDebit
	default:
		return DirectionNone
	}
}

// ParseEntryKind validates a wire value.
func ParseEntryKind(v string) (EntryKind, error) {
	for _, k := range EntryKinds {
		if string(k) == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown entry kind %q", ErrInvalidRequest, v)
}

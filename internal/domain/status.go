package domain

import (
	"fmt"
	"strings"
)

// ReportStatus is the closed set of payment report states.
// The zero value is not a valid status.
type ReportStatus uint8

const (
	ReportPending ReportStatus = iota + 1
	ReportApproved
	ReportRejected
)

// ReportAction is a reviewer decision on a payment report.
type ReportAction uint8

const (
	ReportApprove ReportAction = iota + 1
	ReportReject
)

func (s ReportStatus) String() string {
	switch s {
	case ReportPending:
		return "PENDING"
	case ReportApproved:
		return "APPROVED"
	case ReportRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("ReportStatus(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s ReportStatus) Terminal() bool {
	switch s {
	case ReportApproved, ReportRejected:
		return true
	default:
		return false
	}
}

// Next returns the state reached by applying a. Terminal states yield ErrConflict.
func (s ReportStatus) Next(a ReportAction) (ReportStatus, error) {
	switch s {
	case ReportPending:
		switch a {
		case ReportApprove:
			return ReportApproved, nil
		case ReportReject:
			return ReportRejected, nil
		default:
			return s, fmt.Errorf("%w: unknown report action %d", ErrInvalidRequest, a)
		}
	case ReportApproved, ReportRejected:
		return s, fmt.Errorf("%w: payment report already %s", ErrConflict, s)
	default:
		return s, fmt.Errorf("invalid payment report status %d", uint8(s))
	}
}

// ParseReportStatus parses a stored or wire status.
func ParseReportStatus(v string) (ReportStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "PENDING":
		return ReportPending, nil
	case "APPROVED":
		return ReportApproved, nil
	case "REJECTED":
		return ReportRejected, nil
	default:
		return 0, fmt.Errorf("%w: unknown payment report status %q", ErrInvalidRequest, v)
	}
}

func (s ReportStatus) MarshalText() ([]byte, error) {
	if s < ReportPending || s > ReportRejected {
		return nil, fmt.Errorf("invalid payment report status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ReportStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseReportStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WithdrawalStatus is the closed set of withdrawal request states.
type WithdrawalStatus uint8

const (
	WithdrawalPending WithdrawalStatus = iota + 1
	WithdrawalConfirmed
	WithdrawalRejected
)

// WithdrawalAction is a reviewer decision on a withdrawal request.
type WithdrawalAction uint8

const (
	WithdrawalConfirm WithdrawalAction = iota + 1
	WithdrawalReject
)

func (s WithdrawalStatus) String() string {
	switch s {
	case WithdrawalPending:
		return "PENDING"
	case WithdrawalConfirmed:
		return "CONFIRMED"
	case WithdrawalRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("WithdrawalStatus(%d)", uint8(s))
	}
}

func (s WithdrawalStatus) Terminal() bool {
	switch s {
	case WithdrawalConfirmed, WithdrawalRejected:
		return true
	default:
		return false
	}
}

// Next returns the state reached by applying a. Terminal states yield ErrConflict.
func (s WithdrawalStatus) Next(a WithdrawalAction) (WithdrawalStatus, error) {
	switch s {
	case WithdrawalPending:
		switch a {
		case WithdrawalConfirm:
			return WithdrawalConfirmed, nil
		case WithdrawalReject:
			return WithdrawalRejected, nil
		default:
			return s, fmt.Errorf("%w: unknown withdrawal action %d", ErrInvalidRequest, a)
		}
	case WithdrawalConfirmed, WithdrawalRejected:
		return s, fmt.Errorf("%w: withdrawal already %s", ErrConflict, s)
	default:
		return s, fmt.Errorf("invalid withdrawal status %d", uint8(s))
	}
}

func ParseWithdrawalStatus(v string) (WithdrawalStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "PENDING":
		return WithdrawalPending, nil
	case "CONFIRMED":
		return WithdrawalConfirmed, nil
	case "REJECTED":
		return WithdrawalRejected, nil
	default:
		return 0, fmt.Errorf("%w: unknown withdrawal status %q", ErrInvalidRequest, v)
	}
}

func (s WithdrawalStatus) MarshalText() ([]byte, error) {
	if s < WithdrawalPending || s > WithdrawalRejected {
		return nil, fmt.Errorf("invalid withdrawal status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *WithdrawalStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseWithdrawalStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

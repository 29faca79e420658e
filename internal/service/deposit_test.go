package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitReport(t *testing.T, f *fixture, owner authz.Actor, amount, currency string) uuid.UUID {
	t.Helper()
	report, err := f.deposits.Submit(context.Background(), owner, SubmitPaymentReportRequest{
		AccountID:     owner.ID,
		ClaimedAmount: decimal.RequireFromString(amount),
		Currency:      currency,
		Method:        "bank_transfer",
		ProofRef:      "receipt-001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)
	return report.ID
}

func TestApprovePaymentReportConvertsAndCredits(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(0)
	ctx := context.Background()
	reportID := submitReport(t, f, owner, "410000.00", "cop")

	assert.Equal(t, int64(0), f.balance(t, owner.ID), "submitting must not credit")

	report, err := f.deposits.Approve(ctx, f.admin, reportID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportApproved, report.Status)
	assert.Equal(t, "COP", report.Currency)
	require.NotNil(t, report.Rate)
	assert.True(t, decimal.NewFromInt(4100).Equal(*report.Rate))
	require.NotNil(t, report.CreditedCents)
	assert.Equal(t, int64(10_000), *report.CreditedCents)
	require.NotNil(t, report.ApproverID)
	assert.Equal(t, f.admin.ID, *report.ApproverID)

	assert.Equal(t, int64(10_000), f.balance(t, owner.ID))
	entries := f.store.Entries(owner.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, string(domain.EntryDeposit), entries[0].Kind)
	assert.Contains(t, entries[0].Note, "410000.00 COP at rate 4100 = 100.00 USD")
	require.NotNil(t, report.EntryID)
	assert.Equal(t, entries[0].ID, *report.EntryID)
	f.requireBalanced(t, owner.ID)

	assert.Equal(t, []string{
		events.TypePaymentReportSubmitted,
		events.TypeEntryPosted,
		events.TypePaymentReportApproved,
	}, f.events.Types())

	history, err := NewAuditService(f.store).History(ctx, auditEntityPaymentReport, reportID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "submitted", history[0].Action)
	assert.Equal(t, "approved", history[1].Action)
}

func TestApprovePaymentReportTwiceCreditsOnce(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(0)
	reportID := submitReport(t, f, owner, "4100.00", "COP")

	_, err := f.deposits.Approve(context.Background(), f.admin, reportID)
	require.NoError(t, err)

	_, err = f.deposits.Approve(context.Background(), f.admin, reportID)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.deposits.Reject(context.Background(), f.admin, reportID, "late")
	require.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, int64(100), f.balance(t, owner.ID))
	assert.Len(t, f.store.Entries(owner.ID), 1)
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(0)
	reportID := submitReport(t, f, owner, "250.00", "USD")

	const reviewers = 4
	var (
		wg   sync.WaitGroup
		errs = make(chan error, reviewers)
	)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.deposits.Approve(context.Background(), f.admin, reportID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(25_000), f.balance(t, owner.ID))
	assert.Len(t, f.store.Entries(owner.ID), 1)
}

func TestApproveRateEdgeCases(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{name: "unknown currency credits at rate 1", amount: "150.00", currency: "ARS", want: 15_000},
		{name: "rate at or below 1 leaves amount unchanged", amount: "150.00", currency: "EUR", want: 15_000},
		{name: "reference currency", amount: "12.34", currency: "USD", want: 1_234},
		{name: "rounds half to even", amount: "1.00", currency: "VES", want: 2},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			owner := f.seedWallet(0)
			reportID := submitReport(t, f, owner, tc.amount, tc.currency)

			report, err := f.deposits.Approve(context.Background(), f.admin, reportID)
			require.NoError(t, err)
			require.NotNil(t, report.CreditedCents)
			assert.Equal(t, tc.want, *report.CreditedCents)
			assert.Equal(t, tc.want, f.balance(t, owner.ID))
		})
	}
}

func TestApproveSkipsProviderForReferenceCurrency(t *testing.T) {
	provider := &stubProvider{err: errors.New("must not be called")}
	f := newFixture(t, provider)
	owner := f.seedWallet(0)
	reportID := submitReport(t, f, owner, "10.00", "USD")

	_, err := f.deposits.Approve(context.Background(), f.admin, reportID)
	require.NoError(t, err)
	assert.Zero(t, provider.calls)
}

func TestApproveRateFailuresLeaveReportPending(t *testing.T) {
	cases := []struct {
		name     string
		provider *stubProvider
	}{
		{name: "timeout", provider: &stubProvider{block: true}},
		{name: "provider error", provider: &stubProvider{err: errors.New("503 from upstream")}},
		{name: "zero rate", provider: &stubProvider{rate: decimal.Zero}},
		{name: "negative rate", provider: &stubProvider{rate: decimal.NewFromInt(-3)}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.provider, WithRateTimeout(20*time.Millisecond))
			owner := f.seedWallet(0)
			reportID := submitReport(t, f, owner, "4100.00", "COP")

			_, err := f.deposits.Approve(context.Background(), f.admin, reportID)
			require.ErrorIs(t, err, domain.ErrExternalService)
			assert.Equal(t, domain.CodeExternalService, domain.CodeOf(err))

			report, err := f.deposits.Get(context.Background(), owner, reportID)
			require.NoError(t, err)
			assert.Equal(t, domain.ReportPending, report.Status)
			assert.Zero(t, f.balance(t, owner.ID))
		})
	}
}

func TestApproveRejectsAmountThatConvertsToZero(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(0)
	reportID := submitReport(t, f, owner, "0.01", "COP")

	_, err := f.deposits.Approve(context.Background(), f.admin, reportID)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	report, err := f.deposits.Get(context.Background(), f.admin, reportID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)
}

func TestRejectPaymentReport(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(0)
	ctx := context.Background()
	reportID := submitReport(t, f, owner, "50.00", "USD")

	_, err := f.deposits.Reject(ctx, owner, reportID, "self review")
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	report, err := f.deposits.Reject(ctx, f.admin, reportID, " receipt unreadable ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportRejected, report.Status)
	require.NotNil(t, report.RejectReason)
	assert.Equal(t, "receipt unreadable", *report.RejectReason)
	assert.Nil(t, report.EntryID)

	_, err = f.deposits.Approve(ctx, f.admin, reportID)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, f.store.Entries(owner.ID))
}

func TestSubmitPaymentReportValidation(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(0)
	ctx := context.Background()

	_, err := f.deposits.Submit(ctx, owner, SubmitPaymentReportRequest{
		AccountID: owner.ID, ClaimedAmount: decimal.RequireFromString("1.005"), Currency: "USD",
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.deposits.Submit(ctx, owner, SubmitPaymentReportRequest{
		AccountID: owner.ID, ClaimedAmount: decimal.NewFromInt(5), Currency: "US",
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	other := f.seedWallet(0)
	_, err = f.deposits.Submit(ctx, owner, SubmitPaymentReportRequest{
		AccountID: other.ID, ClaimedAmount: decimal.NewFromInt(5), Currency: "USD",
	})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	f.store.SetAccountStatus(owner.ID, domain.AccountStatusInactive)
	_, err = f.deposits.Submit(ctx, owner, SubmitPaymentReportRequest{
		AccountID: owner.ID, ClaimedAmount: decimal.NewFromInt(5), Currency: "USD",
	})
	require.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestListPaymentReportsIsScopedToActor(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.seedWallet(0)
	bob := f.seedWallet(0)
	ctx := context.Background()

	submitReport(t, f, alice, "10.00", "USD")
	approved := submitReport(t, f, alice, "20.00", "USD")
	submitReport(t, f, bob, "30.00", "USD")
	_, err := f.deposits.Approve(ctx, f.admin, approved)
	require.NoError(t, err)

	own, err := f.deposits.List(ctx, alice, PaymentReportFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 2)
	for _, r := range own {
		assert.Equal(t, alice.ID, r.AccountID)
	}

	_, err = f.deposits.List(ctx, alice, PaymentReportFilter{AccountID: &bob.ID})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	all, err := f.deposits.List(ctx, f.admin, PaymentReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending := domain.ReportPending
	queue, err := f.deposits.List(ctx, f.admin, PaymentReportFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, queue, 2)

	_, err = f.deposits.Get(ctx, bob, approved)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestApprovePaymentReportRollsBackCreditWhenStatusUpdateFails(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.seedWallet(10_000)
	ctx := context.Background()
	reportID := submitReport(t, f, owner, "41000.00", "COP")
	boom := errors.New("connection reset")
	f.store.FailOn("ApprovePaymentReport", boom)

	_, err := f.deposits.Approve(ctx, f.admin, reportID)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(10_000), f.balance(t, owner.ID))
	assert.Len(t, f.store.Entries(owner.ID), 1)
	report, err := f.deposits.Get(ctx, owner, reportID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)
	assert.Nil(t, report.CreditedCents)
	assert.Equal(t, []string{events.TypePaymentReportSubmitted}, f.events.Types())
	f.requireBalanced(t, owner.ID)

	f.store.FailOn("ApprovePaymentReport", nil)
	report, err = f.deposits.Approve(ctx, f.admin, reportID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportApproved, report.Status)
	assert.Equal(t, int64(11_000), f.balance(t, owner.ID))
	f.requireBalanced(t, owner.ID)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositHandler serves the payment report workflow.
type DepositHandler struct {
	deposits *service.DepositService
}

func NewDepositHandler(deposits *service.DepositService) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

type submitPaymentReportRequest struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    string          `json:"method"`
	ProofRef  string          `json:"proof_ref"`
	Note      string          `json:"note"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Submit handles POST /v1/payment-reports.
func (h *DepositHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	var req submitPaymentReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.deposits.Submit(r.Context(), actor, service.SubmitPaymentReportRequest{
		AccountID:     req.AccountID,
		ClaimedAmount: req.Amount,
		Currency:      req.Currency,
		Method:        req.Method,
		ProofRef:      req.ProofRef,
		Note:          req.Note,
	})
	if err != nil {
		respondServiceError(w, r, err, "submit payment report")
		return
	}
	RespondJSON(w, http.StatusCreated, report)
}

// List handles GET /v1/payment-reports?account_id=&status=&limit=&offset=.
func (h *DepositHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}

	filter := service.PaymentReportFilter{}
	var err error
	if filter.AccountID, err = queryUUID(r, "account_id"); err != nil {
		respondServiceError(w, r, err, "list payment reports")
		return
	}
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		status, err := domain.ParseReportStatus(v)
		if err != nil {
			respondServiceError(w, r, err, "list payment reports")
			return
		}
		filter.Status = &status
	}
	if filter.Limit, filter.Offset, err = pagination(r); err != nil {
		respondServiceError(w, r, err, "list payment reports")
		return
	}

	reports, err := h.deposits.List(r.Context(), actor, filter)
	if err != nil {
		respondServiceError(w, r, err, "list payment reports")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  reports,
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"count":  len(reports),
	})
}

func (h *DepositHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	reportID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	report, err := h.deposits.Get(r.Context(), actor, reportID)
	if err != nil {
		respondServiceError(w, r, err, "get payment report")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

// Approve handles POST /v1/payment-reports/{id}/approve.
func (h *DepositHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	reportID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	report, err := h.deposits.Approve(r.Context(), actor, reportID)
	if err != nil {
		respondServiceError(w, r, err, "approve payment report")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

// Reject handles POST /v1/payment-reports/{id}/reject. The body is optional.
func (h *DepositHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	reportID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	report, err := h.deposits.Reject(r.Context(), actor, reportID, req.Reason)
	if err != nil {
		respondServiceError(w, r, err, "reject payment report")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

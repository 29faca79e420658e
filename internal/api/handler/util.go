package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/api/problem"
	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

var codeStatus = map[domain.Code]int{
	domain.CodeInvalidAmount:     http.StatusBadRequest,
	domain.CodeInvalidRequest:    http.StatusBadRequest,
	domain.CodeInsufficientFunds: http.StatusUnprocessableEntity,
	domain.CodeAccountInactive:   http.StatusUnprocessableEntity,
	domain.CodeNotFound:          http.StatusNotFound,
	domain.CodeConflict:          http.StatusConflict,
	domain.CodePermissionDenied:  http.StatusForbidden,
	domain.CodeExternalService:   http.StatusBadGateway,
	domain.CodeTimeout:           http.StatusGatewayTimeout,
	domain.CodeInternal:          http.StatusInternalServerError,
}

// respondServiceError renders a service failure as problem+json with its
// stable code. Internal errors are logged and their detail withheld.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	code := domain.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	detail := err.Error()
	if code == domain.CodeInternal {
		zap.L().Error(op+" failed",
			zap.Error(err),
			zap.String("trace_id", middleware.TraceIDFromContext(r.Context())),
		)
		detail = "unexpected server error"
	}

	problem.WriteDetails(w, r, problem.Details{
		Type:      problem.Type(strings.ToLower(strings.ReplaceAll(string(code), "_", "-"))),
		Status:    status,
		Detail:    detail,
		Code:      string(code),
		Retryable: code.Retryable(),
	})
}

func requestActor(r *http.Request) (authz.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return authz.Actor{}, errors.New("missing user in auth context")
	}
	return actor, nil
}

// withActor resolves the caller or answers 401.
func withActor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return authz.Actor{}, false
	}
	return actor, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: invalid %s", domain.ErrInvalidRequest, name), "parse path")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidRequest, err), "decode body")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return n, nil
}

// pagination reads limit and offset. Range checks happen in the service.
func pagination(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidRequest, name)
	}
	return &id, nil
}

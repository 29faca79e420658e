package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ayo6706/wallet-ledger/internal/api"
	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/config"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/rates"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/ayo6706/wallet-ledger/internal/testutil/memstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "reseller-platform-test"
	testJWTAudience = "wallet-ledger-test"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)
	os.Exit(m.Run())
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testAPI struct {
	handler http.Handler
	store   *memstore.Store
	events  *events.Recorder
	admin   string
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	table, err := rates.NewStaticProvider("USD", map[string]string{"COP": "4100", "VES": "40"})
	require.NoError(t, err)
	provider := rates.NewCachedProvider(table, rdb, time.Minute)

	store := memstore.New()
	recorder := &events.Recorder{}
	ledger := service.NewLedgerService(store, recorder)
	orders := service.NewOrderService(store, ledger, recorder)

	cfg := &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
		ReferenceCurrency:  "USD",
		RateTimeout:        time.Second,
	}
	router := api.NewRouter(cfg, zap.NewNop(), api.Dependencies{
		DB:             okPinger{},
		Redis:          rdb,
		Idempotency:    idempotency.NewStore(rdb, store.Queries(), cfg.IdempotencyTTL),
		Rates:          provider,
		RateTimeout:    cfg.RateTimeout,
		Accounts:       service.NewAccountService(store, "USD"),
		Ledger:         ledger,
		Orders:         orders,
		Deposits:       service.NewDepositService(store, ledger, provider, recorder),
		Withdrawals:    service.NewWithdrawalService(store, ledger, recorder),
		Reconciliation: service.NewReconciliationService(store),
	})

	return &testAPI{
		handler: router.Routes(),
		store:   store,
		events:  recorder,
		admin:   generateTokenWithRole(uuid.NewString(), "ADMIN"),
	}
}

func generateTokenWithRole(userID, role string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"iss":     testJWTIssuer,
		"aud":     testJWTAudience,
		"sub":     userID,
		"iat":     now.Unix(),
		"nbf":     now.Add(-30 * time.Second).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString(middleware.JWTSecret())
	return tokenString
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	acct, ok := a.store.Account(id)
	require.True(t, ok)
	return acct.Balance
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// fundedReseller provisions a wallet and credits it through an approved
// payment report of 410000 COP, i.e. 100.00 USD.
func (a *testAPI) fundedReseller(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token := generateTokenWithRole(userID.String(), "RESELLER")

	w := a.do(t, http.MethodPost, "/v1/accounts", a.admin, map[string]any{"user_id": userID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/v1/payment-reports", token, map[string]any{
		"account_id": userID,
		"amount":     "410000",
		"currency":   "cop",
		"method":     "bank_transfer",
		"proof_ref":  "TRX-991",
	}, "Idempotency-Key", uuid.NewString())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reportID := decode(t, w)["id"].(string)

	w = a.do(t, http.MethodPost, "/v1/payment-reports/"+reportID+"/approve", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode(t, w)
	assert.Equal(t, "APPROVED", report["status"])
	assert.Equal(t, float64(10000), report["credited_cents"])
	return userID, token
}

func TestRFC7807ProblemDetails(t *testing.T) {
	a := setupAPI(t)

	accountID := uuid.New().String()
	w := a.do(t, http.MethodGet, "/v1/accounts/"+accountID+"/balance", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
	body := decode(t, w)
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/accounts/"+accountID+"/balance", body["instance"])
	assert.NotEmpty(t, body["request_id"])
}

func TestTokenWithNonUUIDUserRejected(t *testing.T) {
	a := setupAPI(t)
	w := a.do(t, http.MethodGet, "/v1/accounts/"+uuid.NewString()+"/balance", generateTokenWithRole("reseller-7", "RESELLER"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDepositOrderFlow(t *testing.T) {
	a := setupAPI(t)
	userID, token := a.fundedReseller(t)

	w := a.do(t, http.MethodPost, "/v1/orders", token, map[string]any{
		"account_id": userID,
		"amount":     "25.00",
		"note":       "recharge 5GB",
	}, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	assert.Equal(t, float64(2500), order["amount_cents"])
	assert.NotEmpty(t, order["entry_id"])

	w = a.do(t, http.MethodGet, "/v1/orders/"+order["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/v1/accounts/"+userID.String()+"/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	balance := decode(t, w)
	assert.Equal(t, float64(7500), balance["balance_cents"])
	assert.Equal(t, "75.00", balance["balance"])
	assert.Equal(t, float64(2), balance["last_seq"])

	w = a.do(t, http.MethodGet, "/v1/accounts/"+userID.String()+"/entries?limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	items := page["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "PURCHASE", items[0].(map[string]any)["kind"])
	assert.Equal(t, float64(2), page["next_before_seq"])

	assert.Equal(t, int64(7500), a.store.EntrySum(userID))
	assert.Contains(t, a.events.Types(), events.TypeOrderPlaced)
}

func TestOrderIdempotency(t *testing.T) {
	a := setupAPI(t)
	userID, token := a.fundedReseller(t)
	body := map[string]any{"account_id": userID, "amount": "10.00"}

	w1 := a.do(t, http.MethodPost, "/v1/orders", token, body, "Idempotency-Key", "same-key")
	require.Equal(t, http.StatusCreated, w1.Code)

	w2 := a.do(t, http.MethodPost, "/v1/orders", token, body, "Idempotency-Key", "same-key")
	require.Equal(t, http.StatusCreated, w2.Code)
	assert.JSONEq(t, w1.Body.String(), w2.Body.String())
	assert.Len(t, a.store.Orders(), 1)

	w3 := a.do(t, http.MethodPost, "/v1/orders", token, map[string]any{"account_id": userID, "amount": "11.00"}, "Idempotency-Key", "same-key")
	assert.Equal(t, http.StatusConflict, w3.Code)

	w4 := a.do(t, http.MethodPost, "/v1/orders", token, body)
	assert.Equal(t, http.StatusBadRequest, w4.Code)

	account, ok := a.store.Account(userID)
	require.True(t, ok)
	assert.Equal(t, int64(9000), account.Balance)
}

func TestErrorCodes(t *testing.T) {
	a := setupAPI(t)
	userID, token := a.fundedReseller(t)
	_, otherToken := a.fundedReseller(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{
			name: "insufficient funds", method: http.MethodPost, path: "/v1/withdrawals", token: token,
			body: map[string]any{
				"account_id":  userID,
				"amount":      "500.00",
				"destination": map[string]any{"bank": "Banesco", "account_number": "0134-55", "holder": "Ana"},
			},
			status: http.StatusUnprocessableEntity, code: "INSUFFICIENT_FUNDS",
		},
		{
			name: "three decimals", method: http.MethodPost, path: "/v1/orders", token: token,
			body:   map[string]any{"account_id": userID, "amount": "1.005"},
			status: http.StatusBadRequest, code: "INVALID_AMOUNT",
		},
		{
			name: "foreign wallet", method: http.MethodGet, path: "/v1/accounts/" + userID.String() + "/balance", token: otherToken,
			status: http.StatusForbidden, code: "PERMISSION_DENIED",
		},
		{
			name: "reseller cannot review", method: http.MethodPost, path: "/v1/payment-reports/" + uuid.NewString() + "/approve", token: token,
			status: http.StatusForbidden, code: "PERMISSION_DENIED",
		},
		{
			name: "unknown report", method: http.MethodGet, path: "/v1/payment-reports/" + uuid.NewString(), token: a.admin,
			status: http.StatusNotFound, code: "NOT_FOUND",
		},
		{
			name: "bad id", method: http.MethodGet, path: "/v1/orders/not-a-uuid", token: token,
			status: http.StatusBadRequest, code: "INVALID_REQUEST",
		},
		{
			name: "limit too large", method: http.MethodGet, path: "/v1/accounts/" + userID.String() + "/orders?limit=501", token: token,
			status: http.StatusBadRequest, code: "INVALID_REQUEST",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, tc.method, tc.path, tc.token, tc.body, "Idempotency-Key", uuid.NewString())
			require.Equal(t, tc.status, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestWithdrawalReviewFlow(t *testing.T) {
	a := setupAPI(t)
	userID, token := a.fundedReseller(t)

	w := a.do(t, http.MethodPost, "/v1/withdrawals", token, map[string]any{
		"account_id":  userID,
		"amount":      "40.00",
		"destination": map[string]any{"bank": "Banesco", "account_number": "0134-55", "holder": "Ana"},
	}, "Idempotency-Key", uuid.NewString())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	withdrawalID := decode(t, w)["id"].(string)

	w = a.do(t, http.MethodGet, "/v1/withdrawals/pending", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, "/v1/withdrawals/pending", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode(t, w)["items"].([]any)
	require.Len(t, pending, 1)

	w = a.do(t, http.MethodPost, "/v1/withdrawals/"+withdrawalID+"/reject", a.admin, map[string]any{"reason": "holder mismatch"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "REJECTED", decode(t, w)["status"])

	w = a.do(t, http.MethodPost, "/v1/withdrawals/"+withdrawalID+"/confirm", a.admin, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["code"])

	account, ok := a.store.Account(userID)
	require.True(t, ok)
	assert.Equal(t, int64(10000), account.Balance)
}

func TestAdminEndpoints(t *testing.T) {
	a := setupAPI(t)
	_, token := a.fundedReseller(t)

	w := a.do(t, http.MethodGet, "/v1/admin/ledger/totals", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, "/v1/admin/ledger/totals", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10000), decode(t, w)["deposited_cents"])

	w = a.do(t, http.MethodPost, "/v1/admin/reconciliation", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)
	assert.Equal(t, true, report["balanced"])
	assert.Equal(t, float64(1), report["accounts_checked"])
}

func TestAdminManualCreditAndEntryFeed(t *testing.T) {
	a := setupAPI(t)
	userID, token := a.fundedReseller(t)
	creditPath := "/v1/admin/accounts/" + userID.String() + "/credits"
	body := map[string]any{"amount": "5.00", "note": "goodwill after outage"}

	w := a.do(t, http.MethodPost, creditPath, token, body, "Idempotency-Key", "credit-1")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, creditPath, a.admin, body, "Idempotency-Key", "credit-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode(t, w)
	assert.Equal(t, "DEPOSIT", entry["kind"])
	assert.Equal(t, "5.00", entry["amount"])
	assert.Equal(t, "manual_credit", entry["reference_type"])

	replay := a.do(t, http.MethodPost, creditPath, a.admin, body, "Idempotency-Key", "credit-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, w.Body.String(), replay.Body.String())
	assert.Equal(t, int64(10_500), a.balance(t, userID))
	assert.Equal(t, a.store.EntrySum(userID), a.balance(t, userID))

	w = a.do(t, http.MethodPost, creditPath, a.admin, map[string]any{"amount": "1.001", "note": "x"}, "Idempotency-Key", "credit-2")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AMOUNT", decode(t, w)["code"])

	w = a.do(t, http.MethodGet, "/v1/admin/ledger/entries?limit=1", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, "/v1/admin/ledger/entries?limit=1", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	assert.Equal(t, float64(1), page["count"])
	assert.Equal(t, "goodwill after outage", page["items"].([]any)[0].(map[string]any)["note"])
	cursor, _ := page["next_cursor"].(string)
	require.NotEmpty(t, cursor)

	w = a.do(t, http.MethodGet, "/v1/admin/ledger/entries?limit=1&cursor="+cursor, a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page = decode(t, w)
	assert.Equal(t, "DEPOSIT", page["items"].([]any)[0].(map[string]any)["kind"])
	assert.Equal(t, "payment_report", page["items"].([]any)[0].(map[string]any)["reference_type"])

	w = a.do(t, http.MethodGet, "/v1/admin/ledger/entries?kind=deposit&q=GOODWILL", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = a.do(t, http.MethodGet, "/v1/admin/ledger/entries?cursor=%21%21", a.admin, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestRateEndpoints(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/rates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	table := decode(t, w)
	assert.Equal(t, "USD", table["base"])
	assert.Equal(t, "4100", table["rates"].(map[string]any)["COP"])

	w = a.do(t, http.MethodGet, "/v1/rates/quote?amount=2.50&currency=COP", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "10250", decode(t, w)["local_amount"])

	w = a.do(t, http.MethodGet, "/v1/rates/quote?amount=abc&currency=COP", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AMOUNT", decode(t, w)["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	a := setupAPI(t)

	cases := []struct {
		name string
		path string
	}{
		{name: "live", path: "/health/live"},
		{name: "ready", path: "/health/ready"},
		{name: "metrics", path: "/metrics"},
		{name: "openapi", path: "/openapi.yaml"},
		{name: "swagger", path: "/swagger/index.html"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, http.MethodGet, tc.path, "", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

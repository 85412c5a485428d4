package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/config"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/database"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/dto"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-jwt-secret"

type apiEnv struct {
	app    *fiber.App
	cfg    *config.Config
	engine *services.Engine
}

func newAPIEnv(t *testing.T, ping func() error) *apiEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	engine := services.NewEngine(db, services.Options{StorageTimeout: 10 * time.Second}, services.SettingsDefaults{
		ReferralRewardCoins: 100,
		ReportRewardMin:     100,
		ReportRewardMax:     10000,
	})
	require.NoError(t, engine.Pricing.SeedDefaults(context.Background()))

	hash, err := bcrypt.GenerateFromPassword([]byte("operator-token"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:             testSecret,
		AdminTokenHash:        string(hash),
		AdminTokenActorID:     uuid.NewString(),
		EventsSecret:          "events-secret",
		PaymentsWebhookSecret: "payments-secret",
	}
	if ping == nil {
		ping = func() error { return nil }
	}

	app := fiber.New()
	Setup(app, cfg, engine, ping)
	return &apiEnv{app: app, cfg: cfg, engine: engine}
}

func (e *apiEnv) account(t *testing.T, name string) uuid.UUID {
	t.Helper()
	acc, err := e.engine.Accounts.Sync(context.Background(), services.AccountSync{
		ID:          uuid.New(),
		DisplayName: name,
		Email:       strings.ToLower(name) + "@example.com",
	})
	require.NoError(t, err)
	return acc.ID
}

func token(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *apiEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t, func() error { return errors.New("connection refused") })

	status, body := env.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Contains(t, health.DB, "connection refused")
}

func TestMemberRoutesRequireJWT(t *testing.T) {
	env := newAPIEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/me/balances", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), `"unauthorized"`)

	status, _ = env.do(t, http.MethodGet, "/api/catalog/gift-tiers", nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestGiftFlowOverHTTP(t *testing.T) {
	env := newAPIEnv(t, nil)
	admin := env.account(t, "Admin")
	sender := env.account(t, "Sender")
	receiver := env.account(t, "Receiver")
	adminAuth := bearer(token(t, admin, models.RoleAdmin))

	status, body := env.do(t, http.MethodPost, "/api/admin/accounts/"+sender.String()+"/credit",
		map[string]interface{}{"currency": "coin", "amount": "600"}, adminAuth)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodPost, "/api/gifts",
		map[string]interface{}{"receiver_id": receiver, "tier": "GOLD"}, bearer(token(t, sender, "")))
	require.Equal(t, http.StatusCreated, status, string(body))
	var gift services.GiftView
	require.NoError(t, json.Unmarshal(body, &gift))
	assert.Equal(t, services.GiftStateSent, gift.State)
	assert.Equal(t, int64(500), gift.PriceCoins)

	status, body = env.do(t, http.MethodPost, "/api/gifts",
		map[string]interface{}{"receiver_id": receiver, "tier": "GOLD"}, bearer(token(t, sender, "")))
	assert.Equal(t, http.StatusPaymentRequired, status)
	var apiErr dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "insufficient_balance", apiErr.Code)

	status, _ = env.do(t, http.MethodPost, "/api/gifts/"+gift.ID.String()+"/decision",
		map[string]interface{}{"accept": true}, bearer(token(t, sender, "")))
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPost, "/api/gifts/"+gift.ID.String()+"/decision",
		map[string]interface{}{"accept": true}, bearer(token(t, receiver, "")))
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &gift))
	assert.Equal(t, services.GiftStateAccepted, gift.State)

	status, body = env.do(t, http.MethodGet, "/api/me/balances", nil, bearer(token(t, sender, "")))
	require.Equal(t, http.StatusOK, status)
	var balances dto.BalanceResponse
	require.NoError(t, json.Unmarshal(body, &balances))
	assert.Equal(t, int64(100), balances.Coins)
}

func TestValidationErrorsAreBadRequests(t *testing.T) {
	env := newAPIEnv(t, nil)
	sender := env.account(t, "Sender")
	receiver := env.account(t, "Receiver")

	status, body := env.do(t, http.MethodPost, "/api/gifts",
		map[string]interface{}{"receiver_id": receiver, "tier": "OPAL"}, bearer(token(t, sender, "")))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), `"error":true`)

	status, _ = env.do(t, http.MethodGet, "/api/gifts/not-a-uuid", nil, bearer(token(t, sender, "")))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/api/gifts/"+uuid.NewString(), nil, bearer(token(t, sender, "")))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminAccess(t *testing.T) {
	env := newAPIEnv(t, nil)
	member := env.account(t, "Member")
	target := env.account(t, "Target")

	status, _ := env.do(t, http.MethodGet, "/api/admin/accounts/"+target.String(), nil, bearer(token(t, member, "")))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/admin/accounts/"+target.String(), nil,
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	operator := map[string]string{"X-Admin-Token": "operator-token"}
	status, body := env.do(t, http.MethodPost, "/api/admin/accounts/"+target.String()+"/ban",
		map[string]interface{}{"reason": "spam", "days": 7}, operator)
	require.Equal(t, http.StatusOK, status, string(body))
	var ban services.BanStatus
	require.NoError(t, json.Unmarshal(body, &ban))
	assert.True(t, ban.Banned)
	assert.False(t, ban.Permanent)

	status, _ = env.do(t, http.MethodPost, "/api/admin/accounts/"+target.String()+"/ban",
		map[string]interface{}{"reason": "again"}, operator)
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodGet, "/api/admin/audit?action="+models.AuditBan, nil, operator)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestPaymentWebhook(t *testing.T) {
	env := newAPIEnv(t, nil)
	payer := env.account(t, "Payer")
	event := map[string]interface{}{
		"event_id":   "evt_1",
		"account_id": payer,
		"amount":     "25.00",
		"provider":   "stripe",
	}

	status, _ := env.do(t, http.MethodPost, "/api/webhooks/payments", event,
		map[string]string{"Authorization": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	auth := map[string]string{"Authorization": "payments-secret"}
	status, body := env.do(t, http.MethodPost, "/api/webhooks/payments", event, auth)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"duplicate":false`)

	status, body = env.do(t, http.MethodPost, "/api/webhooks/payments", event, auth)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"duplicate":true`)

	b, err := env.engine.Ledger.Balances(context.Background(), payer)
	require.NoError(t, err)
	assert.True(t, b.Cash.Equal(decimal.RequireFromString("25.00")), "cash = %s", b.Cash)
}

func TestProfileCompletedPaysReferral(t *testing.T) {
	env := newAPIEnv(t, nil)
	referrer := env.account(t, "Referrer")
	referee := env.account(t, "Referee")

	acc, err := env.engine.Accounts.Get(context.Background(), referrer)
	require.NoError(t, err)
	status, body := env.do(t, http.MethodPost, "/api/referrals/apply",
		map[string]string{"code": acc.ReferralCode}, bearer(token(t, referee, "")))
	require.Equal(t, http.StatusCreated, status, string(body))

	events := map[string]string{"Authorization": "events-secret"}
	status, body = env.do(t, http.MethodPost, "/api/internal/events/profile-completed",
		map[string]interface{}{"account_id": referee}, events)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"rewarded":true`)

	b, err := env.engine.Ledger.Balances(context.Background(), referrer)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.Coins)
}

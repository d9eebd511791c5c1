package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"lrs-tracker/config"
	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/database"
	"lrs-tracker/internal/models"
	"lrs-tracker/internal/repository"
	"lrs-tracker/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	storeA *models.Store
	storeB *models.Store
}

func newTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "handler-secret",
		JWTAccessExpiration: 15 * time.Minute,
		QueryTimeout:        5 * time.Second,
	}
}

func at(day string, hour int) time.Time {
	t, err := time.Parse(models.DayFormat, day)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "lrs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	stores := repository.NewSQLStoreRepository(db.DB)
	clients := repository.NewSQLClientRepository(db.DB)
	statements := repository.NewSQLStatementRepository(db.DB)

	storeA := &models.Store{Title: "École Normale", Description: "<p>Main campus</p>"}
	storeB := &models.Store{Title: "Zeta <b>Academy</b>"}
	require.NoError(t, stores.Create(ctx, storeA))
	require.NoError(t, stores.Create(ctx, storeB))

	for _, c := range []struct{ id, lrs, role string }{
		{"admin", "", models.RoleSuper},
		{"reporting", storeA.ID.Hex(), models.RoleStore},
	} {
		hash, err := utils.HashSecret(c.id + "-secret")
		require.NoError(t, err)
		require.NoError(t, clients.Create(ctx, &models.Client{
			ClientID: c.id, SecretHash: hash, LrsID: c.lrs, Role: c.role,
		}))
	}

	mbox := func(m string) models.StatementBody {
		return models.StatementBody{Actor: models.Actor{Mbox: m}}
	}
	a, b := storeA.ID.Hex(), storeB.ID.Hex()
	require.NoError(t, statements.Insert(ctx,
		models.Statement{StoreID: a, Timestamp: at("2024-01-01", 9), Statement: mbox("mailto:a@x.com")},
		models.Statement{StoreID: a, Timestamp: at("2024-01-01", 10), Statement: mbox("mailto:a@x.com")},
		models.Statement{StoreID: a, Timestamp: at("2024-01-03", 8), Statement: models.StatementBody{Actor: models.Actor{OpenID: "u1"}}},
		models.Statement{StoreID: b, Timestamp: at("2024-01-02", 12), Statement: mbox("mailto:b@x.com")},
	))

	cfg := newTestConfig()
	svc := dashboard.NewService(statements, dashboard.WithClock(func() time.Time { return testNow }))

	r := gin.New()
	Routes{
		Config:    cfg,
		Stores:    stores,
		Health:    NewHealthHandler("sqlite", db.PingContext),
		Auth:      NewAuthHandler(cfg, clients),
		Dashboard: NewDashboardHandler(svc, cfg),
		Store:     NewStoreHandler(stores),
	}.Register(r)

	return &testEnv{router: r, storeA: storeA, storeB: storeB}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func (e *testEnv) token(t *testing.T, clientID string) string {
	t.Helper()

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientID + "-secret"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := e.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

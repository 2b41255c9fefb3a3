package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	transport "github.com/spec-kit/sweet-shop/internal/api/http"
	"github.com/spec-kit/sweet-shop/internal/api/http/handlers"
	"github.com/spec-kit/sweet-shop/internal/auth"
	"github.com/spec-kit/sweet-shop/internal/config"
	"github.com/spec-kit/sweet-shop/internal/observability"
	"github.com/spec-kit/sweet-shop/internal/repository/memory"
	"github.com/spec-kit/sweet-shop/internal/service"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	authSvc, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "router-test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}, service.AuthDependencies{
		UserRepo:    memory.NewUserRepository(),
		Revocations: auth.NewMemoryRevocationList(),
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	if _, err := authSvc.SeedAdmin(context.Background(), adminEmail, adminPassword); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	sweetSvc := service.NewSweetService(service.SweetDependencies{
		SweetRepo:         memory.NewSweetRepository(),
		Metrics:           metrics,
		Logger:            logger,
		LowStockThreshold: -1,
	})

	validator := handlers.NewValidator()
	return transport.NewApp("sweet-shop-test",
		transport.MiddlewareConfig{Logger: logger, Metrics: metrics},
		transport.RouteConfig{
			Prefix:         "/api",
			Health:         handlers.NewHealthHandler("sweet-shop", "test", nil),
			Auth:           handlers.NewAuthHandler(authSvc, validator),
			Sweets:         handlers.NewSweetsHandler(sweetSvc, validator),
			AuthMiddleware: auth.NewAuthMiddleware(authSvc),
		})
}

type response struct {
	status int
	body   []byte
}

func (r response) object(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(r.body, &out); err != nil {
		t.Fatalf("decode %q: %v", r.body, err)
	}
	return out
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return response{status: resp.StatusCode, body: data}
}

func expectStatus(t *testing.T, r response, want int) {
	t.Helper()
	if r.status != want {
		t.Fatalf("expected %d, got %d: %s", want, r.status, r.body)
	}
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	r := do(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	expectStatus(t, r, http.StatusOK)
	token, _ := r.object(t)["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %s", r.body)
	}
	return token
}

func TestEndToEndScenario(t *testing.T) {
	app := newTestApp(t)

	reg := do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "alice@example.com", "password": "pw123"})
	expectStatus(t, reg, http.StatusCreated)
	if reg.object(t)["role"] != "USER" {
		t.Fatalf("registration role: %s", reg.body)
	}

	alice := login(t, app, "alice@example.com", "pw123")
	admin := login(t, app, adminEmail, adminPassword)

	gummy := map[string]any{"name": "Gummy", "category": "Candy", "price": 2.5, "quantity": 10}
	expectStatus(t, do(t, app, http.MethodPost, "/api/sweets", alice, gummy), http.StatusForbidden)

	created := do(t, app, http.MethodPost, "/api/sweets", admin, gummy)
	expectStatus(t, created, http.StatusCreated)
	id, _ := created.object(t)["id"].(string)
	if id == "" {
		t.Fatalf("no id in %s", created.body)
	}

	purchased := do(t, app, http.MethodPost, "/api/sweets/"+id+"/purchase", alice, map[string]int{"amount": 3})
	expectStatus(t, purchased, http.StatusOK)
	if q := purchased.object(t)["quantity"]; q != float64(7) {
		t.Fatalf("quantity after purchase: %v", q)
	}

	restocked := do(t, app, http.MethodPost, "/api/sweets/"+id+"/restock", admin, map[string]int{"amount": 5})
	expectStatus(t, restocked, http.StatusOK)
	if q := restocked.object(t)["quantity"]; q != float64(12) {
		t.Fatalf("quantity after restock: %v", q)
	}

	expectStatus(t, do(t, app, http.MethodDelete, "/api/sweets/"+id, alice, nil), http.StatusForbidden)
	expectStatus(t, do(t, app, http.MethodDelete, "/api/sweets/"+id, admin, nil), http.StatusOK)
	expectStatus(t, do(t, app, http.MethodDelete, "/api/sweets/"+id, admin, nil), http.StatusNotFound)
}

func TestRoleGating(t *testing.T) {
	app := newTestApp(t)
	expectStatus(t, do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "u@example.com", "password": "pw"}), http.StatusCreated)
	user := login(t, app, "u@example.com", "pw")
	admin := login(t, app, adminEmail, adminPassword)

	created := do(t, app, http.MethodPost, "/api/sweets", admin, map[string]any{"name": "Truffle", "category": "Chocolate", "price": 3, "quantity": 4})
	expectStatus(t, created, http.StatusCreated)
	id := created.object(t)["id"].(string)

	expectStatus(t, do(t, app, http.MethodPost, "/api/sweets/"+id+"/restock", user, map[string]int{"amount": 1}), http.StatusForbidden)

	// Update is open to any authenticated role.
	updated := do(t, app, http.MethodPut, "/api/sweets/"+id, user, map[string]any{"price": 3.5})
	expectStatus(t, updated, http.StatusOK)
	if updated.object(t)["price"] != 3.5 {
		t.Fatalf("price not updated: %s", updated.body)
	}

	expectStatus(t, do(t, app, http.MethodGet, "/api/sweets", "", nil), http.StatusUnauthorized)
	expectStatus(t, do(t, app, http.MethodGet, "/api/sweets", "garbage", nil), http.StatusUnauthorized)
}

func TestErrorResponses(t *testing.T) {
	app := newTestApp(t)
	admin := login(t, app, adminEmail, adminPassword)

	created := do(t, app, http.MethodPost, "/api/sweets", admin, map[string]any{"name": "Fudge", "category": "Candy", "price": 1, "quantity": 2})
	expectStatus(t, created, http.StatusCreated)
	id := created.object(t)["id"].(string)

	short := do(t, app, http.MethodPost, "/api/sweets/"+id+"/purchase", admin, map[string]int{"amount": 3})
	expectStatus(t, short, http.StatusBadRequest)
	if body := short.object(t); body["code"] != "INSUFFICIENT_STOCK" || body["message"] == "" {
		t.Fatalf("unexpected error body %s", short.body)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing price", http.MethodPost, "/api/sweets", map[string]any{"name": "X", "category": "Candy", "quantity": 1}, http.StatusBadRequest},
		{"quantity in update", http.MethodPut, "/api/sweets/" + id, map[string]any{"quantity": 99}, http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/api/sweets/" + id + "/purchase", map[string]int{"amount": 0}, http.StatusBadRequest},
		{"unknown sweet", http.MethodPost, "/api/sweets/00000000-0000-0000-0000-000000000000/purchase", map[string]int{"amount": 1}, http.StatusNotFound},
		{"price above cap", http.MethodPost, "/api/sweets", map[string]any{"name": "X", "category": "Candy", "price": 1e11, "quantity": 1}, http.StatusBadRequest},
		{"malformed price filter", http.MethodGet, "/api/sweets?minPrice=cheap", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nothing-here", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		r := do(t, app, tc.method, tc.path, admin, tc.body)
		if r.status != tc.status {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.status, r.status, r.body)
		}
	}

	longPassword := do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "long@example.com", "password": strings.Repeat("p", 80)})
	expectStatus(t, longPassword, http.StatusBadRequest)
	if longPassword.object(t)["code"] != "VALIDATION_FAILED" {
		t.Fatalf("unexpected error body %s", longPassword.body)
	}

	bare := do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bob", "password": "pw123"})
	expectStatus(t, bare, http.StatusCreated)

	dup := do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{"email": adminEmail, "password": "x"})
	expectStatus(t, dup, http.StatusBadRequest)

	bad := do(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong"})
	expectStatus(t, bad, http.StatusUnauthorized)
	unknown := do(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "wrong"})
	expectStatus(t, unknown, http.StatusUnauthorized)
	if bad.object(t)["message"] != unknown.object(t)["message"] {
		t.Fatalf("login failures differ: %s vs %s", bad.body, unknown.body)
	}
}

func TestListFilters(t *testing.T) {
	app := newTestApp(t)
	admin := login(t, app, adminEmail, adminPassword)
	for _, s := range []map[string]any{
		{"name": "Sour Candy", "category": "Candy", "price": 5, "quantity": 1},
		{"name": "Rock Candy", "category": "Candy", "price": 12, "quantity": 1},
		{"name": "Candy Bar", "category": "Chocolate", "price": 6, "quantity": 1},
		{"name": "Jelly", "category": "Candy", "price": 10, "quantity": 1},
	} {
		expectStatus(t, do(t, app, http.MethodPost, "/api/sweets", admin, s), http.StatusCreated)
	}

	r := do(t, app, http.MethodGet, "/api/sweets?category=Candy&minPrice=5&maxPrice=10", admin, nil)
	expectStatus(t, r, http.StatusOK)
	var items []map[string]any
	if err := json.Unmarshal(r.body, &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0]["name"] != "Jelly" || items[1]["name"] != "Sour Candy" {
		t.Fatalf("unexpected filter result %s", r.body)
	}

	all := do(t, app, http.MethodGet, "/api/sweets", admin, nil)
	if err := json.Unmarshal(all.body, &items); err != nil || len(items) != 4 {
		t.Fatalf("expected full catalog, got %s", all.body)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	admin := login(t, app, adminEmail, adminPassword)

	expectStatus(t, do(t, app, http.MethodPost, "/api/auth/logout", admin, nil), http.StatusNoContent)
	expectStatus(t, do(t, app, http.MethodGet, "/api/sweets", admin, nil), http.StatusUnauthorized)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	expectStatus(t, do(t, app, http.MethodGet, "/health/live", "", nil), http.StatusOK)
	expectStatus(t, do(t, app, http.MethodGet, "/health/ready", "", nil), http.StatusOK)

	login(t, app, adminEmail, adminPassword)
	metrics := do(t, app, http.MethodGet, "/metrics", "", nil)
	expectStatus(t, metrics, http.StatusOK)
	if !strings.Contains(string(metrics.body), "sweetshop_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

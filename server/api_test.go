package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/gateway"
	"github.com/powerskills-labs/powerskills-go/internal/identity"
	"github.com/powerskills-labs/powerskills-go/internal/orchestration"
	"github.com/powerskills-labs/powerskills-go/internal/platform/auth"
	"github.com/powerskills-labs/powerskills-go/internal/skills"
)

func newTestServer(t *testing.T) (*httptest.Server, *gateway.Memory) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	gw := gateway.NewMemory()

	issuer, err := auth.NewIssuer(auth.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	deriver, err := orchestration.NewRuleDeriver(orchestration.DefaultRuleSet())
	if err != nil {
		t.Fatalf("NewRuleDeriver() error = %v", err)
	}
	executor := orchestration.NewExecutor(context.Background(), gw, logger,
		orchestration.WithStepDelay(time.Millisecond))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = executor.Shutdown(ctx)
	})

	api := newServerAPI(
		logger,
		identity.New(gw, issuer),
		skills.New(gw),
		orchestration.NewService(gw, deriver, executor, logger, false),
	)

	mux := http.NewServeMux()
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: auth.NewLocalAuthenticator(issuer),
		SkipPrefixes: []string{
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
	}.Wrap(mux)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, gw
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func registerAndLogin(t *testing.T, baseURL, email string) string {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("login returned no access token: %v", body)
	}
	return token
}

func TestAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
		"name":     "Alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d: %v", resp.StatusCode, body)
	}
	if body["role"] != "free" {
		t.Fatalf("role = %v, want free", body["role"])
	}
	if _, leaked := body["password_hash"]; leaked && body["password_hash"] != "" {
		t.Fatalf("register leaked password hash")
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password456",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	access, _ := body["access_token"].(string)
	refresh, _ := body["refresh_token"].(string)

	resp, me := doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", access, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	if me["email"] != "alice@example.com" {
		t.Fatalf("me = %v", me)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/refresh", "", map[string]any{
		"refresh_token": refresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	if body["access_token"] == "" {
		t.Fatalf("refresh returned no access token")
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}
}

func TestRequestsRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/skills", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}
}

func TestFreeRoleCannotWriteSkills(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv.URL, "free@example.com")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/skills", token, map[string]any{
		"skill_name": "Web Scraper Pro",
		"platform":   "coze",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("create skill as free status = %d, want 403", resp.StatusCode)
	}
}

func elevateRole(t *testing.T, gw *gateway.Memory, email, role string) {
	t.Helper()
	records, err := gw.Query(context.Background(), gateway.CollectionUsers, gateway.Filters{"email": email}, 0, 1)
	if err != nil || len(records) == 0 {
		t.Fatalf("lookup user: %v / %d records", err, len(records))
	}
	userID, _ := records[0]["user_id"].(string)
	if err := gw.Update(context.Background(), gateway.CollectionUsers, userID, gateway.Record{"role": role}); err != nil {
		t.Fatalf("elevate role: %v", err)
	}
}

func TestSkillCRUDOverHTTP(t *testing.T) {
	srv, gw := newTestServer(t)
	registerAndLogin(t, srv.URL, "dev@example.com")
	elevateRole(t, gw, "dev@example.com", "personal")
	// Re-login to pick up the new role's permissions.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"email":    "dev@example.com",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := body["access_token"].(string)

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/api/v1/skills", token, map[string]any{
		"skill_name":  "Web Scraper Pro",
		"platform":    "coze",
		"description": "scrapes web pages",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create skill status = %d: %v", resp.StatusCode, created)
	}
	skillID, _ := created["skill_id"].(string)

	resp, got := doJSON(t, http.MethodGet, srv.URL+"/api/v1/skills/"+skillID, token, nil)
	if resp.StatusCode != http.StatusOK || got["skill_name"] != "Web Scraper Pro" {
		t.Fatalf("get skill = %d %v", resp.StatusCode, got)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/v1/skills/"+skillID, token, map[string]any{
		"description": "scrapes and parses web pages",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update skill status = %d", resp.StatusCode)
	}

	resp, list := doJSON(t, http.MethodGet, srv.URL+"/api/v1/skills?platform=coze", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list skills status = %d", resp.StatusCode)
	}
	pagination, _ := list["pagination"].(map[string]any)
	if pagination["total"] != float64(1) {
		t.Fatalf("pagination = %v", pagination)
	}

	resp, search := doJSON(t, http.MethodGet, srv.URL+"/api/v1/skills/search?q=scraper", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	if data, _ := search["data"].([]any); len(data) != 1 {
		t.Fatalf("search data = %v", search["data"])
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/skills/"+skillID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete skill status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/skills/"+skillID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted skill status = %d, want 404", resp.StatusCode)
	}
}

func TestOrchestrationFlowOverHTTP(t *testing.T) {
	srv, gw := newTestServer(t)
	registerAndLogin(t, srv.URL, "runner@example.com")
	elevateRole(t, gw, "runner@example.com", "personal")
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"email":    "runner@example.com",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := body["access_token"].(string)

	resp, plan := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orchestrations", token, map[string]any{
		"task_description": "访问 http://example.com 并生成报告",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create plan status = %d: %v", resp.StatusCode, plan)
	}
	planID, _ := plan["plan_id"].(string)
	if plan["status"] != string(domain.PlanPendingConfirmation) {
		t.Fatalf("plan status = %v", plan["status"])
	}
	chain, _ := plan["skill_chain"].([]any)
	if len(chain) != 2 {
		t.Fatalf("chain = %v", chain)
	}

	resp, executed := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orchestrations/"+planID+"/execute", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("execute status = %d: %v", resp.StatusCode, executed)
	}
	if executed["status"] != string(domain.PlanRunning) {
		t.Fatalf("executed status = %v, want running", executed["status"])
	}
	if executed["executed_at"] == nil {
		t.Fatalf("executed_at missing")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, got := doJSON(t, http.MethodGet, srv.URL+"/api/v1/orchestrations/"+planID, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get plan status = %d", resp.StatusCode)
		}
		if got["status"] == string(domain.PlanCompleted) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/orchestrations/op_missing/execute", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("execute missing status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/orchestrations/"+planID, token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("cancel completed plan status = %d, want 400", resp.StatusCode)
	}

	resp, listBody := doJSON(t, http.MethodGet, srv.URL+"/api/v1/orchestrations?page=1&limit=20", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list plans status = %d", resp.StatusCode)
	}
	if data, _ := listBody["data"].([]any); len(data) != 1 {
		t.Fatalf("list data = %v", listBody["data"])
	}
}

func TestCancelPlanOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv.URL, "cancel@example.com")

	resp, plan := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orchestrations", token, map[string]any{
		"task_description": "随便一个任务",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create plan status = %d", resp.StatusCode)
	}
	planID, _ := plan["plan_id"].(string)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/orchestrations/"+planID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}

	resp, got := doJSON(t, http.MethodGet, srv.URL+"/api/v1/orchestrations/"+planID, token, nil)
	if resp.StatusCode != http.StatusOK || got["status"] != string(domain.PlanCancelled) {
		t.Fatalf("plan after cancel = %d %v", resp.StatusCode, got["status"])
	}
}

func TestFreeRoleCannotExecute(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv.URL, "free2@example.com")

	resp, plan := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orchestrations", token, map[string]any{
		"task_description": "生成报告",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create plan status = %d", resp.StatusCode)
	}
	planID, _ := plan["plan_id"].(string)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/orchestrations/"+planID+"/execute", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("execute as free status = %d, want 403", resp.StatusCode)
	}
}

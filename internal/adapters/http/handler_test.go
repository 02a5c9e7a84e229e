package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	cacheadapter "github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/adapters/treasury"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

type testServer struct {
	server *httptest.Server
	vault  *treasury.MemoryVault

	// The clock is read from handler goroutines, so it needs a lock.
	mu  sync.Mutex
	now time.Time
}

func (ts *testServer) clock() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.now
}

func (ts *testServer) advance(d time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.now = ts.now.Add(d)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		vault: treasury.NewMemoryVault(),
		now:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	repos := memory.NewRepositories()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			Beneficiary: "beneficiary-1",
			Token:       domain.TokenInfo{Symbol: "VFT", Decimals: 18},
		},
		Projects:     repos.Projects,
		Idempotency:  repos.Idempotency,
		Outbox:       repos.Outbox,
		Transfer:     ts.vault,
		Gate:         security.NewStaticOwnerGate("owner-1"),
		Progress:     cacheadapter.NewMemoryProgressCache(),
		DomainEvents: eventadapter.NewMemoryDomainPublisher(),
		Analytics:    eventadapter.NewMemoryAnalyticsPublisher(),
		Clock:        ts.clock,
	})
	ts.server = httptest.NewServer(NewRouter(NewHandler(svc)))
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, envelope
}

func decodeData[T any](t *testing.T, envelope map[string]json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(envelope["data"], &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

func errorCode(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(envelope["error"], &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return payload.Code
}

func TestStartProjectEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodPost, "/v1/projects", "owner-1", map[string]any{
		"target_amount":    1000,
		"duration_seconds": 3600,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	data := decodeData[struct {
		ProjectID uint64 `json:"project_id"`
		IsActive  bool   `json:"is_active"`
	}](t, envelope)
	if data.ProjectID != 0 || !data.IsActive {
		t.Fatalf("unexpected project: %+v", data)
	}

	// Not the owner: the gate maps to 403.
	resp, envelope = ts.do(t, http.MethodPost, "/v1/projects", "intruder", map[string]any{
		"target_amount":    1000,
		"duration_seconds": 3600,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if code := errorCode(t, envelope); code != "not_authorized" {
		t.Fatalf("expected not_authorized, got %q", code)
	}

	// No bearer at all: rejected before reaching the service.
	resp, _ = ts.do(t, http.MethodPost, "/v1/projects", "", map[string]any{
		"target_amount": 1000,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestContributeEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/v1/projects", "owner-1", map[string]any{
		"target_amount":    1000,
		"duration_seconds": 3600,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start project: %d", resp.StatusCode)
	}

	ts.vault.Mint("alice", 500)
	resp, envelope := ts.do(t, http.MethodPost, "/v1/projects/0/contributions", "alice", map[string]any{"amount": 400})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	data := decodeData[struct {
		Amount   uint64 `json:"amount"`
		Position int    `json:"position"`
	}](t, envelope)
	if data.Amount != 400 || data.Position != 0 {
		t.Fatalf("unexpected contribution: %+v", data)
	}

	// Zero amounts map to 400 zero_amount.
	resp, envelope = ts.do(t, http.MethodPost, "/v1/projects/0/contributions", "alice", map[string]any{"amount": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if code := errorCode(t, envelope); code != "zero_amount" {
		t.Fatalf("expected zero_amount, got %q", code)
	}

	// Unknown project maps to 404.
	resp, envelope = ts.do(t, http.MethodPost, "/v1/projects/42/contributions", "alice", map[string]any{"amount": 10})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if code := errorCode(t, envelope); code != "not_found" {
		t.Fatalf("expected not_found, got %q", code)
	}

	// Progress is public and reflects the contribution.
	resp, envelope = ts.do(t, http.MethodGet, "/v1/projects/0/progress", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	progress := decodeData[struct {
		RaisedAmount uint64 `json:"raised_amount"`
		TargetAmount uint64 `json:"target_amount"`
	}](t, envelope)
	if progress.RaisedAmount != 400 || progress.TargetAmount != 1000 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}

func TestRepayEndpointDrainsBatches(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/v1/projects", "owner-1", map[string]any{
		"target_amount":    1_000_000,
		"duration_seconds": 3600,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start project: %d", resp.StatusCode)
	}
	for i := 0; i < 3; i++ {
		who := fmt.Sprintf("backer-%d", i)
		ts.vault.Mint(who, 100)
		resp, _ := ts.do(t, http.MethodPost, "/v1/projects/0/contributions", who, map[string]any{"amount": 100})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("contribute %s: %d", who, resp.StatusCode)
		}
	}

	// Still running: repay is premature.
	resp, envelope := ts.do(t, http.MethodPost, "/v1/projects/0/repayments", "owner-1", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if code := errorCode(t, envelope); code != "campaign_still_active" {
		t.Fatalf("expected campaign_still_active, got %q", code)
	}

	ts.advance(2 * time.Hour)
	resp, envelope = ts.do(t, http.MethodPost, "/v1/projects/0/repayments", "owner-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	batch := decodeData[struct {
		FromIndex int  `json:"from_index"`
		ToIndex   int  `json:"to_index"`
		PaidCount int  `json:"paid_count"`
		Done      bool `json:"done"`
	}](t, envelope)
	if batch.FromIndex != 0 || batch.ToIndex != 3 || batch.PaidCount != 3 || !batch.Done {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	resp, envelope = ts.do(t, http.MethodGet, "/v1/projects/0", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	project := decodeData[struct {
		IsActive bool `json:"is_active"`
	}](t, envelope)
	if project.IsActive {
		t.Fatalf("drained project must be inactive")
	}
}

func TestTokenEndpointIsPublic(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodGet, "/v1/token", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	token := decodeData[struct {
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	}](t, envelope)
	if token.Symbol != "VFT" || token.Decimals != 18 {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestInvalidProjectIDParam(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodGet, "/v1/projects/not-a-number", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if code := errorCode(t, envelope); code != "invalid_input" {
		t.Fatalf("expected invalid_input, got %q", code)
	}
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/docgate/internal/auth"
	"github.com/hitoshi/docgate/internal/bridge"
	"github.com/hitoshi/docgate/internal/connector"
	"github.com/hitoshi/docgate/internal/metrics"
)

const testSecret = "router-test-secret"

// signToken はテスト用のHS256署名済みトークンを生成する。
func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestRouter(t *testing.T, backend auth.Backend, source ConnectorSource) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	return NewRouter(&RouterDeps{
		Logger:            testLogger(),
		Connectors:        source,
		AuthBackend:       backend,
		AuthMetrics:       collector,
		CORSAllowedOrigin: "http://localhost:3000",
		Metrics:           collector,
		Gatherer:          reg,
	})
}

func TestRouter_MeWithValidJWT(t *testing.T) {
	backend := auth.NewJWTBackend(auth.JWTConfig{Secret: testSecret, Strict: true}, testLogger())
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("authorization", signToken(t, jwt.MapClaims{
		"userId":         7,
		"projectId":      3,
		"organizationId": 9,
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	env := decodeBody(t, rec)
	var resp principalResponse
	if err := json.Unmarshal(env.Content, &resp); err != nil {
		t.Fatalf("failed to decode content: %v", err)
	}
	if resp.UserID != 7 || resp.ProjectID != 3 || resp.OrganizationID != 9 {
		t.Errorf("principal = %+v, want {7 3 9}", resp)
	}
}

func TestRouter_TokenBackendMissingAuthIDReturns400(t *testing.T) {
	// リモートトークンバックエンドのstrict構成でx-auth-idが欠けると
	// 400のエンベロープが返る
	authorizer := bridge.NewClient(http.DefaultClient, testLogger(), "http://auth.invalid")
	backend := auth.NewTokenBackend(authorizer, true, testLogger())
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("authorization", "opaque-token")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	env := decodeBody(t, rec)
	if env.Success {
		t.Error("Success = true, want false")
	}
	if env.Code != http.StatusBadRequest {
		t.Errorf("Code = %d, want %d", env.Code, http.StatusBadRequest)
	}
}

func TestRouter_AnonymousPrincipalGets401FromMe(t *testing.T) {
	// 非strictでは認証失敗が匿名に降格し、/meの属性取得で401になる
	backend := auth.NewJWTBackend(auth.JWTConfig{Secret: testSecret, Strict: false}, testLogger())
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("authorization", "not-a-jwt")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRouter_HealthEndpointsSkipAuth(t *testing.T) {
	backend := auth.NewJWTBackend(auth.JWTConfig{Secret: testSecret, Strict: true}, testLogger())
	index := newFakeIndex()
	index.connected = false
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{
		connector.ElasticConnectorName: index,
	}})

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("readiness reports disconnected connector", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var states map[string]readinessEntry
		if err := json.NewDecoder(rec.Body).Decode(&states); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if states["elastic_search"].IsConnected {
			t.Error("elastic_search is_connected = true, want false")
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestRouter_DocumentRoutesRequireAuth(t *testing.T) {
	backend := auth.NewJWTBackend(auth.JWTConfig{Secret: testSecret, Strict: true}, testLogger())
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{
		connector.S3ConnectorName:      newFakeStore(),
		connector.ElasticConnectorName: newFakeIndex(),
	}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil))

	// ヘッダーなしのstrict構成は400（missing key）
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRouter_AuthAttemptsCountedByResult(t *testing.T) {
	backend := auth.NewJWTBackend(auth.JWTConfig{Secret: testSecret, Strict: true}, testLogger())
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{}})

	// 成功する認証を1回
	ok := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ok.Header.Set("authorization", signToken(t, jwt.MapClaims{"userId": 7}))
	router.ServeHTTP(httptest.NewRecorder(), ok)

	// 失敗する認証を1回（strict構成でヘッダーなし）
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`docgate_auth_attempts_total{backend="jwt",result="success"} 1`,
		`docgate_auth_attempts_total{backend="jwt",result="failure"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	backend := auth.NewJWTBackend(auth.JWTConfig{Secret: testSecret, Strict: true}, testLogger())
	router := newTestRouter(t, backend, &fakeSource{connectors: map[string]connector.Connector{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/me", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

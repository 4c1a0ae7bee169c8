package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/docgate/internal/model"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

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

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	if token != "" {
		req.Header.Set("authorization", token)
	}
	return req
}

func TestJWTBackend_ValidToken_BuildsInternalUser(t *testing.T) {
	backend := NewJWTBackend(JWTConfig{Secret: testSecret}, testLogger())

	token := signToken(t, jwt.MapClaims{
		"userId":         7,
		"projectId":      3,
		"organizationId": 9,
		"exp":            time.Now().Add(time.Hour).Unix(),
	})

	authenticated, user, err := backend.Authenticate(requestWithToken(token))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !authenticated {
		t.Fatal("authenticated = false, want true")
	}

	internal, ok := user.(*model.InternalAuthenticatedUser)
	if !ok {
		t.Fatalf("user = %T, want *model.InternalAuthenticatedUser", user)
	}
	if internal.UserIDClaim != 7 || internal.ProjectIDClaim != 3 || internal.OrganizationIDClaim != 9 {
		t.Errorf("claims = %+v, want userId=7 projectId=3 organizationId=9", internal)
	}

	userID, err := user.UserID()
	if err != nil || userID != 7 {
		t.Errorf("UserID() = (%d, %v), want (7, nil)", userID, err)
	}
}

func TestJWTBackend_MissingHeader_Strict_Returns3001(t *testing.T) {
	backend := NewJWTBackend(JWTConfig{Secret: testSecret, Strict: true}, testLogger())

	_, _, err := backend.Authenticate(requestWithToken(""))

	gerr := model.AsGatewayError(err)
	if gerr == nil {
		t.Fatalf("error = %v, want *GatewayError", err)
	}
	if gerr.Numeric != model.CodeMissingAuthorizationKey {
		t.Errorf("Numeric = %d, want %d", gerr.Numeric, model.CodeMissingAuthorizationKey)
	}
	if gerr.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want 400", gerr.StatusCode)
	}
}

func TestJWTBackend_MissingUserIDClaim_Strict_Returns3002(t *testing.T) {
	backend := NewJWTBackend(JWTConfig{Secret: testSecret, Strict: true}, testLogger())

	// userId以外のクレームが揃っていても不正トークンとして扱う
	token := signToken(t, jwt.MapClaims{
		"projectId":      3,
		"organizationId": 9,
		"exp":            time.Now().Add(time.Hour).Unix(),
	})

	_, _, err := backend.Authenticate(requestWithToken(token))

	gerr := model.AsGatewayError(err)
	if gerr == nil {
		t.Fatalf("error = %v, want *GatewayError", err)
	}
	if gerr.Numeric != model.CodeInvalidAuthorizationToken {
		t.Errorf("Numeric = %d, want %d", gerr.Numeric, model.CodeInvalidAuthorizationToken)
	}
}

func TestJWTBackend_NonStrict_NeverPropagates(t *testing.T) {
	backend := NewJWTBackend(JWTConfig{Secret: testSecret, Strict: false}, testLogger())

	wrongKeyToken := func() string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": 7})
		signed, err := token.SignedString([]byte("wrong-secret"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		return signed
	}()

	tests := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage token", "not.a.jwt"},
		{"wrong signing key", wrongKeyToken},
		{"missing userId claim", signToken(t, jwt.MapClaims{"projectId": 3})},
		{"expired token", signToken(t, jwt.MapClaims{
			"userId": 7,
			"exp":    time.Now().Add(-time.Hour).Unix(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticated, user, err := backend.Authenticate(requestWithToken(tt.token))

			// 非strictではいかなる不正入力でもエラーを伝播しない
			if err != nil {
				t.Fatalf("Authenticate() error = %v, want nil", err)
			}
			if authenticated {
				t.Error("authenticated = true, want false")
			}
			if _, ok := user.(model.AnonymousUser); !ok {
				t.Errorf("user = %T, want model.AnonymousUser", user)
			}
		})
	}
}

func TestJWTBackend_DisallowedAlgorithm_Rejected(t *testing.T) {
	backend := NewJWTBackend(JWTConfig{Secret: testSecret, Strict: true}, testLogger())

	// HS384はデフォルトの許可リスト（HS256のみ）に含まれない
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{"userId": 7})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, _, authErr := backend.Authenticate(requestWithToken(signed))

	gerr := model.AsGatewayError(authErr)
	if gerr == nil {
		t.Fatalf("error = %v, want *GatewayError", authErr)
	}
	if gerr.Numeric != model.CodeInvalidAuthorizationToken {
		t.Errorf("Numeric = %d, want %d", gerr.Numeric, model.CodeInvalidAuthorizationToken)
	}
}

func TestJWTBackend_ConfigurableHeader(t *testing.T) {
	backend := NewJWTBackend(JWTConfig{
		Secret:    testSecret,
		HeaderKey: "x-internal-token",
	}, testLogger())

	token := signToken(t, jwt.MapClaims{"userId": 7})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-internal-token", token)

	authenticated, _, err := backend.Authenticate(req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !authenticated {
		t.Error("authenticated = false, want true")
	}
}

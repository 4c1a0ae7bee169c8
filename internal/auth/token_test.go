package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/docgate/internal/bridge"
	"github.com/hitoshi/docgate/internal/model"
)

// --- モック定義 ---

type mockAuthorizer struct {
	authorizeFn func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error)
	calls       int
}

func (m *mockAuthorizer) Authorize(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
	m.calls++
	if m.authorizeFn != nil {
		return m.authorizeFn(ctx, authToken, userID)
	}
	return nil, nil
}

func authorizedResult() *bridge.AuthorizeResult {
	return &bridge.AuthorizeResult{
		User: &model.Account{ID: 7, Name: "alice", Email: "alice@example.com"},
		OrganizationRole: model.OrganizationRole{
			ID: 1, OrganizationID: 9, Role: "admin", OrganizationName: "acme",
		},
		ProjectRoles: []model.ProjectRole{
			{ID: 10, ProjectID: 42, Role: "editor", ProjectName: "beta"},
		},
	}
}

func tokenRequest(authToken, authID, projectID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	if authToken != "" {
		req.Header.Set("authorization", authToken)
	}
	if authID != "" {
		req.Header.Set("x-auth-id", authID)
	}
	if projectID != "" {
		req.Header.Set("x-project-id", projectID)
	}
	return req
}

// --- テスト ---

func TestTokenBackend_Success_BuildsAuthenticatedUser(t *testing.T) {
	var gotToken, gotUserID string
	authorizer := &mockAuthorizer{
		authorizeFn: func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
			gotToken = authToken
			gotUserID = userID
			return authorizedResult(), nil
		},
	}
	backend := NewTokenBackend(authorizer, false, testLogger())

	authenticated, user, err := backend.Authenticate(tokenRequest("opaque-token", "7", ""))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !authenticated {
		t.Fatal("authenticated = false, want true")
	}

	if gotToken != "opaque-token" || gotUserID != "7" {
		t.Errorf("authorizer got (%q, %q), want (opaque-token, 7)", gotToken, gotUserID)
	}

	authUser, ok := user.(*model.AuthenticatedUser)
	if !ok {
		t.Fatalf("user = %T, want *model.AuthenticatedUser", user)
	}
	if userID, _ := authUser.UserID(); userID != 7 {
		t.Errorf("UserID() = %d, want 7", userID)
	}
	if authUser.CurrentProject != nil {
		t.Errorf("CurrentProject = %+v, want nil without x-project-id", authUser.CurrentProject)
	}
}

func TestTokenBackend_ProjectHeader_SelectsProject(t *testing.T) {
	backend := NewTokenBackend(&mockAuthorizer{
		authorizeFn: func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
			return authorizedResult(), nil
		},
	}, false, testLogger())

	_, user, err := backend.Authenticate(tokenRequest("opaque-token", "7", "42"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	authUser := user.(*model.AuthenticatedUser)
	if authUser.CurrentProject == nil || authUser.CurrentProject.ProjectID != 42 {
		t.Errorf("CurrentProject = %+v, want project 42", authUser.CurrentProject)
	}
}

func TestTokenBackend_ProjectHeader_NoMatch_Tolerated(t *testing.T) {
	backend := NewTokenBackend(&mockAuthorizer{
		authorizeFn: func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
			return authorizedResult(), nil
		},
	}, false, testLogger())

	// 一致しないプロジェクトIDはエラーにしない
	authenticated, user, err := backend.Authenticate(tokenRequest("opaque-token", "7", "99"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !authenticated {
		t.Fatal("authenticated = false, want true")
	}

	authUser := user.(*model.AuthenticatedUser)
	if authUser.CurrentProject != nil {
		t.Errorf("CurrentProject = %+v, want nil", authUser.CurrentProject)
	}
}

func TestTokenBackend_MissingHeaders_Strict_Returns3001(t *testing.T) {
	tests := []struct {
		name      string
		authToken string
		authID    string
	}{
		{"missing authorization", "", "7"},
		{"missing x-auth-id", "opaque-token", ""},
		{"missing both", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authorizer := &mockAuthorizer{}
			backend := NewTokenBackend(authorizer, true, testLogger())

			_, _, err := backend.Authenticate(tokenRequest(tt.authToken, tt.authID, ""))

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
			// ヘッダー不足時はリモート解決を呼ばない
			if authorizer.calls != 0 {
				t.Errorf("authorizer calls = %d, want 0", authorizer.calls)
			}
		})
	}
}

func TestTokenBackend_BridgeFailure_Strict_Returns3002(t *testing.T) {
	backend := NewTokenBackend(&mockAuthorizer{
		authorizeFn: func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
			return nil, model.NewBridgeClientError("auth-bridge", "connection refused")
		},
	}, true, testLogger())

	_, _, err := backend.Authenticate(tokenRequest("opaque-token", "7", ""))

	gerr := model.AsGatewayError(err)
	if gerr == nil {
		t.Fatalf("error = %v, want *GatewayError", err)
	}
	// リモート失敗はinvalid-authorization-tokenに変換され、生のエラーは漏れない
	if gerr.Numeric != model.CodeInvalidAuthorizationToken {
		t.Errorf("Numeric = %d, want %d", gerr.Numeric, model.CodeInvalidAuthorizationToken)
	}
	if gerr.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", gerr.StatusCode)
	}
}

func TestTokenBackend_EmptyUserPayload_Strict_Returns3002(t *testing.T) {
	tests := []struct {
		name   string
		result *bridge.AuthorizeResult
	}{
		{"nil result", nil},
		{"result without user", &bridge.AuthorizeResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewTokenBackend(&mockAuthorizer{
				authorizeFn: func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
					return tt.result, nil
				},
			}, true, testLogger())

			_, _, err := backend.Authenticate(tokenRequest("opaque-token", "7", ""))

			gerr := model.AsGatewayError(err)
			if gerr == nil {
				t.Fatalf("error = %v, want *GatewayError", err)
			}
			if gerr.Numeric != model.CodeInvalidAuthorizationToken {
				t.Errorf("Numeric = %d, want %d", gerr.Numeric, model.CodeInvalidAuthorizationToken)
			}
		})
	}
}

func TestTokenBackend_NonStrict_DegradesToAnonymous(t *testing.T) {
	tests := []struct {
		name       string
		authorizer *mockAuthorizer
		authToken  string
		authID     string
	}{
		{
			"missing headers",
			&mockAuthorizer{},
			"", "",
		},
		{
			"bridge failure",
			&mockAuthorizer{
				authorizeFn: func(ctx context.Context, authToken, userID string) (*bridge.AuthorizeResult, error) {
					return nil, model.NewBridgeInternalError("auth-bridge", "boom")
				},
			},
			"opaque-token", "7",
		},
		{
			"empty payload",
			&mockAuthorizer{},
			"opaque-token", "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewTokenBackend(tt.authorizer, false, testLogger())

			authenticated, user, err := backend.Authenticate(tokenRequest(tt.authToken, tt.authID, ""))
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

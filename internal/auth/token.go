package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/docgate/internal/bridge"
	"github.com/hitoshi/docgate/internal/model"
)

// 不透明トークン認証で参照するヘッダー名。
const (
	authorizationHeaderKey = "authorization"
	authIDHeaderKey        = "x-auth-id"
	projectHeaderKey       = "x-project-id"
)

// TokenBackend は不透明トークンを外部認証サービスに委譲して解決する
// 認証バックエンド。
type TokenBackend struct {
	authorizer bridge.Authorizer
	strict     bool
	logger     *slog.Logger
}

// NewTokenBackend はTokenBackendを生成する。
// strictがfalseの場合、すべての認証失敗は(false, AnonymousUser)に降格する。
func NewTokenBackend(authorizer bridge.Authorizer, strict bool, logger *slog.Logger) *TokenBackend {
	return &TokenBackend{
		authorizer: authorizer,
		strict:     strict,
		logger:     logger,
	}
}

// Name はバックエンド識別名を返す。
func (b *TokenBackend) Name() string {
	return "token"
}

// Authenticate はauthorizationヘッダーの不透明トークンを
// 外部認証サービスに解決させてプリンシパルを構築する。
// x-project-idヘッダーがある場合はそのプロジェクトを事前選択する。
func (b *TokenBackend) Authenticate(r *http.Request) (bool, model.User, error) {
	user, gerr := b.resolve(r)
	if gerr != nil {
		b.logger.Debug("token authentication failed",
			slog.String("error", gerr.Error()),
		)
		return degrade(b.strict, gerr)
	}
	return true, user, nil
}

// resolve はヘッダー検査、外部解決、プリンシパル構築を行う。
func (b *TokenBackend) resolve(r *http.Request) (model.User, *model.GatewayError) {
	authToken := r.Header.Get(authorizationHeaderKey)
	authID := r.Header.Get(authIDHeaderKey)
	if authToken == "" || authID == "" {
		return nil, model.NewMissingAuthorizationKeyError("token-auth")
	}

	result, err := b.authorizer.Authorize(r.Context(), authToken, authID)
	if err != nil {
		// リモート側の失敗理由はメッセージに畳み込み、
		// 生のトランスポートエラーをそのまま上位に渡さない
		return nil, model.NewInvalidAuthorizationTokenError(
			fmt.Sprintf("Token request is not valid. %v", err))
	}

	if result == nil || result.User == nil {
		return nil, model.NewInvalidAuthorizationTokenError("illegal token payload.")
	}

	user := &model.AuthenticatedUser{
		Account:          *result.User,
		Token:            result.Token,
		OrganizationRole: result.OrganizationRole,
		ProjectRoles:     result.ProjectRoles,
	}

	// x-project-idがあればプロジェクトを事前選択する。
	// 一致するプロジェクトがない場合もエラーにしない。
	if projectID := r.Header.Get(projectHeaderKey); projectID != "" {
		user.SelectProject(projectID)
	}

	return user, nil
}

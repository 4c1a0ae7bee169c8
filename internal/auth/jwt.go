package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/docgate/internal/model"
)

// DefaultJWTHeader はベアラートークンを読み取るデフォルトのヘッダー名。
const DefaultJWTHeader = "authorization"

// JWTConfig はJWT認証バックエンドの設定。
type JWTConfig struct {
	// HeaderKey はトークンを読み取るヘッダー名。空の場合はDefaultJWTHeader。
	HeaderKey string
	// Secret は署名検証に使用する共有シークレット。
	Secret string
	// Algorithms は許可する署名アルゴリズムのリスト。空の場合はHS256のみ。
	Algorithms []string
	// Strict がtrueの場合、認証失敗はエラーとして伝播する。
	// falseの場合は(false, AnonymousUser)に降格する。
	Strict bool
}

// JWTBackend はローカルでJWTを検証する認証バックエンド。
// ネットワークI/Oを行わない低レイテンシ経路であり、クレームが既に
// 信頼されているサービス間呼び出しに適する。
type JWTBackend struct {
	config JWTConfig
	logger *slog.Logger
}

// NewJWTBackend はJWTBackendを生成する。未指定の設定はデフォルト値で補完する。
func NewJWTBackend(config JWTConfig, logger *slog.Logger) *JWTBackend {
	if config.HeaderKey == "" {
		config.HeaderKey = DefaultJWTHeader
	}
	if len(config.Algorithms) == 0 {
		config.Algorithms = []string{"HS256"}
	}
	return &JWTBackend{config: config, logger: logger}
}

// Name はバックエンド識別名を返す。
func (b *JWTBackend) Name() string {
	return "jwt"
}

// Authenticate はリクエストヘッダーのJWTを検証してプリンシパルを構築する。
func (b *JWTBackend) Authenticate(r *http.Request) (bool, model.User, error) {
	user, gerr := b.verify(r)
	if gerr != nil {
		b.logger.Debug("jwt authentication failed",
			slog.String("error", gerr.Error()),
		)
		return degrade(b.config.Strict, gerr)
	}
	return true, user, nil
}

// verify はトークンの検証とクレームからのプリンシパル構築を行う。
func (b *JWTBackend) verify(r *http.Request) (model.User, *model.GatewayError) {
	raw := r.Header.Get(b.config.HeaderKey)
	if raw == "" {
		return nil, model.NewMissingAuthorizationKeyError("JWT")
	}

	token, err := jwt.Parse(raw,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(b.config.Secret), nil
		},
		jwt.WithValidMethods(b.config.Algorithms),
	)
	if err != nil {
		// デコード失敗の理由をメッセージに含める
		return nil, model.NewInvalidAuthorizationTokenError(
			fmt.Sprintf("unable to decode given token. %v", err))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.NewInvalidAuthorizationTokenError("invalid token payload.")
	}

	userID := claimInt64(claims, "userId")
	if userID == 0 {
		return nil, model.NewInvalidAuthorizationTokenError("invalid token payload.")
	}

	return &model.InternalAuthenticatedUser{
		UserIDClaim:         userID,
		ProjectIDClaim:      claimInt64(claims, "projectId"),
		OrganizationIDClaim: claimInt64(claims, "organizationId"),
	}, nil
}

// claimInt64 は数値クレームをint64として読み取る。
// 存在しない、または数値でないクレームは0を返す。
func claimInt64(claims jwt.MapClaims, key string) int64 {
	switch v := claims[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/docgate/internal/auth"
	"github.com/hitoshi/docgate/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var principalContextKey = contextKey("principal")

// AuthMetrics は認証試行の結果を記録するインターフェース。
// metrics.Collectorが実装する。
type AuthMetrics interface {
	RecordAuthAttempt(backend string, result string)
}

// NewAuthMiddleware は認証バックエンドでリクエストを認証し、
// 解決したプリンシパルをリクエストコンテキストに注入するミドルウェアを返す。
// バックエンドがエラーを返した場合（strictモード）は統一エンベロープで
// そのステータスコードを返す。
// metricsがnilでない場合、試行の結果をsuccess/degraded/failureとして記録する。
func NewAuthMiddleware(backend auth.Backend, metrics AuthMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authenticated, principal, err := backend.Authenticate(r)
			if metrics != nil {
				metrics.RecordAuthAttempt(backend.Name(), authResult(authenticated, err))
			}
			if err != nil {
				WriteGatewayError(w, err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), authenticated, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authResult は認証結果をメトリクスのresultラベル値に変換する。
func authResult(authenticated bool, err error) string {
	switch {
	case err != nil:
		return "failure"
	case authenticated:
		return "success"
	default:
		return "degraded"
	}
}

// principalEntry は認証結果とプリンシパルの組。
type principalEntry struct {
	authenticated bool
	principal     model.User
}

// ContextWithPrincipal はコンテキストにプリンシパルを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, authenticated bool, principal model.User) context.Context {
	return context.WithValue(ctx, principalContextKey, principalEntry{
		authenticated: authenticated,
		principal:     principal,
	})
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (model.User, error) {
	entry, ok := ctx.Value(principalContextKey).(principalEntry)
	if !ok || entry.principal == nil {
		return nil, model.NewInvalidAuthorizationTokenError("no principal attached to request.")
	}
	return entry.principal, nil
}

// AuthenticatedFromContext は認証済みプリンシパルのみを取得する。
// 匿名プリンシパルのリクエストにはInvalid-Authorization-Tokenを返す。
// 権限を要求するハンドラはこちらを使う。
func AuthenticatedFromContext(ctx context.Context) (model.User, error) {
	entry, ok := ctx.Value(principalContextKey).(principalEntry)
	if !ok || entry.principal == nil {
		return nil, model.NewInvalidAuthorizationTokenError("no principal attached to request.")
	}
	if !entry.authenticated {
		return nil, model.NewInvalidAuthorizationTokenError("request is not authenticated.")
	}
	return entry.principal, nil
}

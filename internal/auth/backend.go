// Package auth はリクエスト認証バックエンドを提供する。
// JWTのローカル検証と、不透明トークンの外部サービスへの委譲の
// 2つの交換可能な戦略を実装する。
package auth

import (
	"net/http"

	"github.com/hitoshi/docgate/internal/model"
)

// Backend は認証戦略のインターフェース。
// Authenticateは(認証済みか, プリンシパル)の正規化されたペアを返す。
// 非strict設定のバックエンドは認証失敗を(false, AnonymousUser)に
// 降格させ、エラーを返さない。strict設定では型付きエラーを返し、
// リクエストはそのステータスコードで中断される。
type Backend interface {
	Authenticate(r *http.Request) (bool, model.User, error)
	// Name はメトリクスのラベルに使用するバックエンド識別名を返す。
	Name() string
}

// degrade は認証失敗をstrict設定に従って処理する共通ヘルパー。
// strictならエラーを伝播し、そうでなければ匿名プリンシパルに降格する。
func degrade(strict bool, gerr *model.GatewayError) (bool, model.User, error) {
	if strict {
		return false, nil, gerr
	}
	return false, model.AnonymousUser{}, nil
}

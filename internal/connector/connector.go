// Package connector は外部リソース（データベース、キャッシュ、検索エンジン、
// クラウドAPI）への長寿命接続ハンドルとそのレジストリを提供する。
// 各コネクタはプロセス起動時に構築され、リクエストは参照を借用するだけで
// 所有権を持たない。
package connector

import "context"

// Connector は外部リソース接続の共通のライフサイクルを定義する。
type Connector interface {
	// Connect は接続を確立する。接続済みのインスタンスへの2回目の呼び出しは
	// 何もしない（冪等）。
	Connect(ctx context.Context) error
	// Disconnect は接続を解放する。
	Disconnect(ctx context.Context) error
	// Name はレジストリでの登録名を返す。
	Name() string
	// IsConnected はリソースへの疎通確認の結果を返す。
	// readinessプローブから呼び出される。失敗してもエラーにせずfalseを返す。
	IsConnected(ctx context.Context) bool
}

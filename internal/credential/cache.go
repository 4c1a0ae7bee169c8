// Package credential は一時クラウド認証情報の時間制限付きキャッシュを提供する。
// セッション名ごとに解決済み認証情報を保持し、短寿命トークンの再発行を抑える。
package credential

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxAge はキャッシュエントリの最大保持期間。
// これを超えたエントリは存在しないものとして扱う。
const DefaultMaxAge = 600 * time.Second

// Credentials は一時クラウド認証情報を表す。
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
}

// ResolveFunc は実際のネットワーク往復で認証情報を解決する関数。
// キャッシュミス時にのみ呼び出される。
type ResolveFunc func(ctx context.Context) (Credentials, error)

type entry struct {
	creds    Credentials
	issuedAt time.Time
}

// Cache はセッション名をキーとする認証情報キャッシュ。
// 複数のリクエストから並行に使用しても安全。
// 期限切れエントリは次のルックアップ時に削除される（遅延削除）。
// バックグラウンドでの掃き出しは行わない。
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	maxAge  time.Duration
	now     func() time.Time
}

// NewCache はデフォルトの最大保持期間でCacheを生成する。
func NewCache() *Cache {
	return NewCacheWithClock(DefaultMaxAge, time.Now)
}

// NewCacheWithClock は最大保持期間と時刻関数を指定してCacheを生成する。
// テストで時刻を差し替えるために使用する。
func NewCacheWithClock(maxAge time.Duration, now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		maxAge:  maxAge,
		now:     now,
	}
}

// GetOrResolve はsessionNameの有効なエントリがあればそれを返し、
// なければresolveを呼び出して結果をキャッシュして返す。
// resolveが失敗した場合はキャッシュを変更せずエラーをそのまま返す。
// resolve実行中はロックを保持しないため、同一キーに対する解決が
// 重複して実行されることがある（後勝ちで上書きされる）。
func (c *Cache) GetOrResolve(ctx context.Context, sessionName string, resolve ResolveFunc) (Credentials, error) {
	if creds, ok := c.lookup(sessionName); ok {
		return creds, nil
	}

	creds, err := resolve(ctx)
	if err != nil {
		return Credentials{}, err
	}

	c.mu.Lock()
	c.entries[sessionName] = entry{creds: creds, issuedAt: c.now()}
	c.mu.Unlock()

	return creds, nil
}

// lookup は有効なエントリを返す。期限切れエントリはこの時点で削除する。
func (c *Cache) lookup(sessionName string) (Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionName]
	if !ok {
		return Credentials{}, false
	}
	if c.now().Sub(e.issuedAt) < c.maxAge {
		return e.creds, true
	}

	// 遅延削除
	delete(c.entries, sessionName)
	return Credentials{}, false
}

// Len は現在保持しているエントリ数を返す。テスト用。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package connector

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/docgate/internal/model"
)

// RedisConfig はRedisコネクタの設定。
type RedisConfig struct {
	// Addr は"host:port"形式のアドレス。
	Addr string
	// Password は認証パスワード。空の場合は認証なし。
	Password string
	// DB は使用するデータベース番号。
	DB int
}

// RedisConnector はRedisへの接続ハンドル。
type RedisConnector struct {
	name   string
	config RedisConfig

	mu     sync.Mutex
	client *redis.Client
}

// NewRedisConnector はRedisConnectorを生成する。接続はConnectまで行わない。
func NewRedisConnector(name string, config RedisConfig) *RedisConnector {
	return &RedisConnector{name: name, config: config}
}

// Connect はRedisクライアントを生成する。接続済みの場合は何もしない。
func (c *RedisConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.config.Addr,
		Password: c.config.Password,
		DB:       c.config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return model.NewConnectorClientFailureError(c.name, err.Error())
	}
	c.client = client
	return nil
}

// Disconnect はRedisクライアントを閉じる。
func (c *RedisConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return model.NewConnectorInternalFailureError(c.name, err.Error())
	}
	c.client = nil
	return nil
}

// Name は登録名を返す。
func (c *RedisConnector) Name() string {
	return c.name
}

// IsConnected はPINGでRedisへの疎通を確認する。
func (c *RedisConnector) IsConnected(ctx context.Context) bool {
	client := c.getClient()
	if client == nil {
		return false
	}
	return client.Ping(ctx).Err() == nil
}

// Get はキーの値を返す。キーが存在しない場合は("", false, nil)を返す。
func (c *RedisConnector) Get(ctx context.Context, key string) (string, bool, error) {
	client := c.getClient()
	if client == nil {
		return "", false, model.NewConnectorClientFailureError(c.name, "not connected")
	}

	value, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, model.NewConnectorInternalFailureError(c.name, err.Error())
	}
	return value, true, nil
}

// Set はキーに値をTTL付きで設定する。
func (c *RedisConnector) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	client := c.getClient()
	if client == nil {
		return model.NewConnectorClientFailureError(c.name, "not connected")
	}

	if err := client.Set(ctx, key, value, ttl).Err(); err != nil {
		return model.NewConnectorInternalFailureError(c.name, err.Error())
	}
	return nil
}

func (c *RedisConnector) getClient() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

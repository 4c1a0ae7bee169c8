package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/docgate/internal/credential"
	"github.com/hitoshi/docgate/internal/model"
)

// レジストリでの各コネクタの登録名。
const (
	PostgresConnectorName = "postgres"
	RedisConnectorName    = "redis"
	ElasticConnectorName  = "elastic_search"
	S3ConnectorName       = "s3"
	STSConnectorName      = "sts"
)

// RegistryConfig は有効化するコネクタの設定。
// nilのフィールドに対応するコネクタは登録されない。
type RegistryConfig struct {
	Postgres *PostgresConfig
	Redis    *RedisConfig
	Elastic  *ElasticConfig
	AWS      *AWSConfig
}

// Registry は有効化されたコネクタの集合を保持し、名前による解決を提供する。
// プロセス起動時に1回構築され、全コネクタの所有権をプロセス終了まで持つ。
// リクエストはResolveで参照を借用する。
type Registry struct {
	logger     *slog.Logger
	connectors map[string]Connector
}

// NewRegistry は設定からレジストリを構築する。
// 設定ブロックとコンストラクタの対応は明示的な列挙で行い、
// 型のリフレクションは使用しない。
func NewRegistry(config RegistryConfig, logger *slog.Logger, metrics CredentialCacheMetrics) *Registry {
	r := &Registry{
		logger:     logger,
		connectors: make(map[string]Connector),
	}

	if config.Postgres != nil {
		r.register(NewPostgresConnector(PostgresConnectorName, *config.Postgres))
	}
	if config.Redis != nil {
		r.register(NewRedisConnector(RedisConnectorName, *config.Redis))
	}
	if config.Elastic != nil {
		r.register(NewElasticConnector(ElasticConnectorName, *config.Elastic))
	}
	if config.AWS != nil {
		// S3とSTSは同じAWS設定を共有する
		r.register(NewS3Connector(S3ConnectorName, *config.AWS))
		r.register(NewSTSConnector(STSConnectorName, *config.AWS,
			credential.NewCache(), logger, metrics))
	}

	return r
}

func (r *Registry) register(c Connector) {
	r.connectors[c.Name()] = c
	r.logger.Info("connector registered",
		slog.String("connector", c.Name()),
	)
}

// Resolve は登録名でコネクタを解決する。
// 未登録の名前の場合はconnector-not-thereエラーを返し、
// メッセージに登録済みのキー一覧を含める（シークレットは含まない）。
func (r *Registry) Resolve(name string) (Connector, error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, model.NewConnectorNotThereError(name,
			fmt.Sprintf("%s is not enabled. registered connectors: %s",
				name, strings.Join(r.Names(), ", ")))
	}
	return c, nil
}

// All は登録済みの全コネクタを名前順で返す。readinessプローブが使用する。
func (r *Registry) All() []Connector {
	all := make([]Connector, 0, len(r.connectors))
	for _, name := range r.Names() {
		all = append(all, r.connectors[name])
	}
	return all
}

// Names は登録済みのコネクタ名をソート済みで返す。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConnectAll は全コネクタの接続を確立する。
// 個々の失敗はログに記録して続行する。失敗したリソースは
// readinessプローブで未接続として報告される。
func (r *Registry) ConnectAll(ctx context.Context) {
	for _, c := range r.All() {
		if err := c.Connect(ctx); err != nil {
			r.logger.Error("connector connect failed",
				slog.String("connector", c.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// DisconnectAll は全コネクタの接続を解放する。
func (r *Registry) DisconnectAll(ctx context.Context) {
	for _, c := range r.All() {
		if err := c.Disconnect(ctx); err != nil {
			r.logger.Error("connector disconnect failed",
				slog.String("connector", c.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

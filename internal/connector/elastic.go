package connector

import (
	"context"
	"io"
	"sync"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/hitoshi/docgate/internal/model"
)

// ElasticConfig はElasticsearchコネクタの設定。
type ElasticConfig struct {
	// URL はElasticsearchのエンドポイントURL。
	URL string
	// Username と Password は基本認証の資格情報。空の場合は認証なし。
	Username string
	Password string
}

// ElasticConnector はElasticsearchへの接続ハンドル。
// ドキュメントのインデックス・検索のパススルー操作を提供する。
type ElasticConnector struct {
	name   string
	config ElasticConfig

	mu     sync.Mutex
	client *elasticsearch.Client
}

// NewElasticConnector はElasticConnectorを生成する。接続はConnectまで行わない。
func NewElasticConnector(name string, config ElasticConfig) *ElasticConnector {
	return &ElasticConnector{name: name, config: config}
}

// Connect はElasticsearchクライアントを生成する。接続済みの場合は何もしない。
func (c *ElasticConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{c.config.URL},
		Username:  c.config.Username,
		Password:  c.config.Password,
	})
	if err != nil {
		return model.NewConnectorClientFailureError(c.name, err.Error())
	}
	c.client = client
	return nil
}

// Disconnect はクライアント参照を破棄する。
// HTTPベースのクライアントのため、明示的に閉じる接続はない。
func (c *ElasticConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
	return nil
}

// Name は登録名を返す。
func (c *ElasticConnector) Name() string {
	return c.name
}

// IsConnected はPingでクラスタへの疎通を確認する。
func (c *ElasticConnector) IsConnected(ctx context.Context) bool {
	client := c.getClient()
	if client == nil {
		return false
	}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// Index はドキュメントを指定インデックスに格納する。
func (c *ElasticConnector) Index(ctx context.Context, index, docID string, body io.Reader) error {
	client := c.getClient()
	if client == nil {
		return model.NewConnectorClientFailureError(c.name, "not connected")
	}

	res, err := client.Index(index, body,
		client.Index.WithDocumentID(docID),
		client.Index.WithContext(ctx),
	)
	if err != nil {
		return model.NewConnectorClientFailureError(c.name, err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return model.NewConnectorInternalFailureError(c.name, res.String())
	}
	return nil
}

// GetDocument はドキュメントを取得する。
// 存在しない場合は(nil, false, nil)を返す。
func (c *ElasticConnector) GetDocument(ctx context.Context, index, docID string) ([]byte, bool, error) {
	client := c.getClient()
	if client == nil {
		return nil, false, model.NewConnectorClientFailureError(c.name, "not connected")
	}

	res, err := client.Get(index, docID, client.Get.WithContext(ctx))
	if err != nil {
		return nil, false, model.NewConnectorClientFailureError(c.name, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, model.NewConnectorInternalFailureError(c.name, res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, model.NewConnectorInternalFailureError(c.name, err.Error())
	}
	return raw, true, nil
}

// Search は検索クエリを実行して生のレスポンスボディを返す。
func (c *ElasticConnector) Search(ctx context.Context, index string, query io.Reader) ([]byte, error) {
	client := c.getClient()
	if client == nil {
		return nil, model.NewConnectorClientFailureError(c.name, "not connected")
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(query),
	)
	if err != nil {
		return nil, model.NewConnectorClientFailureError(c.name, err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, model.NewConnectorInternalFailureError(c.name, res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, model.NewConnectorInternalFailureError(c.name, err.Error())
	}
	return raw, nil
}

func (c *ElasticConnector) getClient() *elasticsearch.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

package connector

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hitoshi/docgate/internal/model"
)

// S3Connector はS3バケットへの接続ハンドル。
// オブジェクトの格納・取得のパススルー操作を提供する。
type S3Connector struct {
	name   string
	config AWSConfig

	mu     sync.Mutex
	client *s3.Client
}

// NewS3Connector はS3Connectorを生成する。接続はConnectまで行わない。
func NewS3Connector(name string, config AWSConfig) *S3Connector {
	return &S3Connector{name: name, config: config}
}

// Connect はS3クライアントを生成する。接続済みの場合は何もしない。
func (c *S3Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	awsCfg, err := loadAWSConfig(ctx, c.config)
	if err != nil {
		return model.NewConnectorClientFailureError(c.name, err.Error())
	}
	c.client = s3.NewFromConfig(awsCfg)
	return nil
}

// Disconnect はクライアント参照を破棄する。
func (c *S3Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
	return nil
}

// Name は登録名を返す。
func (c *S3Connector) Name() string {
	return c.name
}

// IsConnected はHeadBucketでバケットへの疎通を確認する。
func (c *S3Connector) IsConnected(ctx context.Context) bool {
	client := c.getClient()
	if client == nil {
		return false
	}

	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	return err == nil
}

// PutObject はオブジェクトをバケットに格納する。
// SDKのエラーは型付きコネクタエラーに変換して返す。
func (c *S3Connector) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	client := c.getClient()
	if client == nil {
		return model.NewConnectorClientFailureError(c.name, "not connected")
	}

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return model.NewConnectorClientFailureError(c.name, err.Error())
	}
	return nil
}

// GetObject はオブジェクトのボディを返す。呼び出し側でCloseすること。
func (c *S3Connector) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	client := c.getClient()
	if client == nil {
		return nil, model.NewConnectorClientFailureError(c.name, "not connected")
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, model.NewConnectorClientFailureError(c.name, err.Error())
	}
	return out.Body, nil
}

func (c *S3Connector) getClient() *s3.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

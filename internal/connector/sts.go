package connector

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"

	"github.com/hitoshi/docgate/internal/credential"
	"github.com/hitoshi/docgate/internal/model"
)

// CredentialCacheMetrics は資格情報キャッシュのヒット・ミスを記録する
// インターフェース。metrics.Collectorが実装する。
type CredentialCacheMetrics interface {
	RecordCredentialCacheHit()
	RecordCredentialCacheMiss()
}

// stsAPI はSTSConnectorが使用するSTS操作の境界。
// sts.Clientが実装する。テストではフェイクに差し替える。
type stsAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// STSConnector はAWS STSへの接続ハンドル。
// セッション名ごとの一時資格情報を発行し、キャッシュする。
// ロールARNが設定されている場合はAssumeRoleで一時資格情報を発行し、
// 未設定の場合は基底の資格情報をそのまま返す。
type STSConnector struct {
	name    string
	config  AWSConfig
	cache   *credential.Cache
	logger  *slog.Logger
	metrics CredentialCacheMetrics

	mu     sync.Mutex
	awsCfg *aws.Config
	client stsAPI
}

// NewSTSConnector はSTSConnectorを生成する。接続はConnectまで行わない。
// metricsはnilでもよい。
func NewSTSConnector(name string, config AWSConfig, cache *credential.Cache, logger *slog.Logger, metrics CredentialCacheMetrics) *STSConnector {
	return &STSConnector{
		name:    name,
		config:  config,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Connect はSTSクライアントを生成する。接続済みの場合は何もしない。
func (c *STSConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	awsCfg, err := loadAWSConfig(ctx, c.config)
	if err != nil {
		return model.NewConnectorClientFailureError(c.name, err.Error())
	}
	c.awsCfg = &awsCfg
	c.client = sts.NewFromConfig(awsCfg)
	return nil
}

// Disconnect はクライアント参照を破棄する。
func (c *STSConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awsCfg = nil
	c.client = nil
	return nil
}

// Name は登録名を返す。
func (c *STSConnector) Name() string {
	return c.name
}

// IsConnected はGetCallerIdentityでSTSへの疎通を確認する。
func (c *STSConnector) IsConnected(ctx context.Context) bool {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return false
	}
	_, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	return err == nil
}

// TemporaryCredentials はsessionNameに対する一時資格情報を返す。
// 有効なキャッシュエントリがあればネットワーク往復なしで返す。
// 解決の失敗はすべて型付きコネクタエラーに変換され、キャッシュされない。
func (c *STSConnector) TemporaryCredentials(ctx context.Context, sessionName string) (credential.Credentials, error) {
	if err := c.Connect(ctx); err != nil {
		return credential.Credentials{}, err
	}

	resolved := false
	creds, err := c.cache.GetOrResolve(ctx, sessionName, func(ctx context.Context) (credential.Credentials, error) {
		resolved = true
		return c.resolve(ctx, sessionName)
	})
	if err != nil {
		return credential.Credentials{}, err
	}

	if c.metrics != nil {
		if resolved {
			c.metrics.RecordCredentialCacheMiss()
		} else {
			c.metrics.RecordCredentialCacheHit()
		}
	}
	return creds, nil
}

// resolve はSTSへの実際のネットワーク往復で資格情報を解決する。
func (c *STSConnector) resolve(ctx context.Context, sessionName string) (credential.Credentials, error) {
	c.mu.Lock()
	awsCfg := c.awsCfg
	client := c.client
	c.mu.Unlock()

	if c.config.AssumeRoleARN == "" {
		// ロール未設定時は基底の資格情報をそのまま返す
		c.logger.Debug("assume role not configured, returning base credentials",
			slog.String("session_name", sessionName),
		)
		base, err := awsCfg.Credentials.Retrieve(ctx)
		if err != nil {
			return credential.Credentials{}, model.NewConnectorClientFailureError(c.name, err.Error())
		}
		return credential.Credentials{
			AccessKey:    base.AccessKeyID,
			SecretKey:    base.SecretAccessKey,
			SessionToken: base.SessionToken,
			Region:       c.config.Region,
		}, nil
	}

	c.logger.Debug("assuming role for temporary credentials",
		slog.String("role_arn", c.config.AssumeRoleARN),
		slog.String("session_name", sessionName),
	)

	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(c.config.AssumeRoleARN),
		RoleSessionName: aws.String(sessionName),
	})
	if err != nil {
		message := err.Error()
		var regionErr *ststypes.RegionDisabledException
		if errors.As(err, &regionErr) {
			message = "Illegal region for sts."
		}
		return credential.Credentials{}, model.NewConnectorClientFailureError(c.name, message)
	}

	return credential.Credentials{
		AccessKey:    aws.ToString(out.Credentials.AccessKeyId),
		SecretKey:    aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken: aws.ToString(out.Credentials.SessionToken),
		Region:       c.config.Region,
	}, nil
}

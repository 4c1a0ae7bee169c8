package connector

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSConfig はAWS系コネクタ（S3、STS）で共有する設定。
type AWSConfig struct {
	// Region はAWSリージョン。
	Region string
	// AccessKeyID と SecretAccessKey は静的な資格情報。
	// 両方が空の場合はSDKのデフォルトの資格情報チェーンを使用する。
	AccessKeyID     string
	SecretAccessKey string
	// AssumeRoleARN が設定されている場合、STSコネクタはこのロールを
	// 引き受けて一時資格情報を発行する。
	AssumeRoleARN string
	// Bucket はS3コネクタが使用するバケット名。
	Bucket string
}

// loadAWSConfig はSDKのaws.Configを構築する。
func loadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

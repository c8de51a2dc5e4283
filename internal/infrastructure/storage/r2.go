// Package storage 提供对象存储实现，用于发布导出文档
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"content-factory-ai/internal/config"
)

var tracer = otel.Tracer("storage")

// ObjectPutter S3 PutObject 能力，便于测试替换
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Client Cloudflare R2（S3 兼容）客户端
type R2Client struct {
	s3        ObjectPutter
	bucket    string
	publicURL string
}

// NewR2Client 创建 R2 客户端
func NewR2Client(ctx context.Context, cfg *config.R2Config) (*R2Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("r2 configuration incomplete")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return NewR2ClientWith(client, cfg.Bucket, cfg.PublicURL), nil
}

// NewR2ClientWith 使用已有的 S3 客户端
func NewR2ClientWith(client ObjectPutter, bucket, publicURL string) *R2Client {
	return &R2Client{
		s3:        client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Upload 上传对象并返回公开访问地址
func (c *R2Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "storage.R2Client.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.bucket", c.bucket),
		attribute.String("storage.key", key),
	)

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload to r2: %w", err)
	}
	return c.PublicURL(key), nil
}

// PublicURL 对象的公开地址，未配置 CDN 域名时退回存储桶地址
func (c *R2Client) PublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", c.bucket, key)
}

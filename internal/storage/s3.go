package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Options S3 兼容存储（AWS、R2、MinIO）的连接参数
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Prefix 所有对象键的前缀，例如 generated_docs
	Prefix string
}

// objectAPI S3Store 用到的 s3.Client 方法子集
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store 把报表保存到对象存储
type S3Store struct {
	client objectAPI
	bucket string
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewS3Store 使用静态凭证创建客户端；Endpoint 非空时指向自定义的 S3 兼容服务
func NewS3Store(ctx context.Context, opts S3Options, logger *zap.Logger) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 reports backend requires S3_BUCKET")
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
					if service == s3.ServiceID {
						return aws.Endpoint{URL: opts.Endpoint, SigningRegion: region}, nil
					}
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				},
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.Endpoint != ""
	})
	return newS3Store(client, opts.Bucket, opts.Prefix, logger), nil
}

func newS3Store(client objectAPI, bucket, prefix string, logger *zap.Logger) *S3Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
		now:    time.Now,
	}
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Save 上传报表，返回完整对象键
func (s *S3Store) Save(ctx context.Context, name string, date time.Time, ext string, content []byte) (string, error) {
	key := s.objectKey(ObjectKey(name, date, s.now(), ext))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}
	s.logger.Info("report archived", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(content)))
	return key, nil
}

// Prune 分页列出前缀下的对象，删除 LastModified 早于 cutoff 的
func (s *S3Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	removed := 0
	pages := s3.NewListObjectsV2Paginator(s.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("list reports: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil {
				return removed, fmt.Errorf("delete report %s: %w", aws.ToString(obj.Key), err)
			}
			removed++
		}
	}

	s.logger.Info("reports pruned", zap.String("bucket", s.bucket), zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	return removed, nil
}

func contentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "csv":
		return "text/csv; charset=utf-8"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

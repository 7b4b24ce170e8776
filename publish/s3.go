package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"acceptance/config"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads the report and its JSON sidecar under
// <prefix>/<suite>/<file>.
type S3Sink struct {
	bucket   string
	prefix   string
	uploader uploader
}

func NewS3Sink(ctx context.Context, cfg config.S3Config) (*S3Sink, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	})
	return &S3Sink{bucket: cfg.Bucket, prefix: cfg.Prefix, uploader: manager.NewUploader(client)}, nil
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Publish(ctx context.Context, a Artifact) error {
	if a.ReportPath == "" {
		return nil
	}
	files := []string{a.ReportPath}
	sidecar := strings.TrimSuffix(a.ReportPath, filepath.Ext(a.ReportPath)) + ".json"
	if _, err := os.Stat(sidecar); err == nil {
		files = append(files, sidecar)
	}
	for _, f := range files {
		if err := s.upload(ctx, ResolveKey(s.prefix, path.Join(a.Suite, filepath.Base(f))), f); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Sink) upload(ctx context.Context, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Sink) Close() error { return nil }

// ResolveKey joins prefix and key with forward slashes.
func ResolveKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}

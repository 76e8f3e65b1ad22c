package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vantegra/fieldgo/internal/config"
)

// PresignExpiry is how long generated upload and download URLs stay valid.
const PresignExpiry = 15 * time.Minute

// Presigner hands out short-lived S3 URLs so photo bytes never pass
// through the API server.
type Presigner struct {
	client *s3.PresignClient
	bucket string
}

// NewPresigner builds the S3 presign client. Endpoint is optional and
// points at MinIO or another S3-compatible store when set.
func NewPresigner(ctx context.Context, cfg config.StorageConfig) (*Presigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{
		client: s3.NewPresignClient(client),
		bucket: cfg.Bucket,
	}, nil
}

// PresignUpload returns a URL the mobile client can PUT one photo to.
func (p *Presigner) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	req, err := p.client.PresignPutObject(ctx, input, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignDownload returns a URL that serves one stored photo.
func (p *Presigner) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

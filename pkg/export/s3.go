package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/config"
)

// Archiver stores an export document and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

// objectPutter is the subset of the S3 client the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes exports to an S3-compatible bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Archiver creates an archiver from the export config. If an endpoint
// is set, path-style addressing is enabled (for MinIO and similar).
func NewS3Archiver(ctx context.Context, cfg config.ExportConfig, logger *zap.Logger) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Archiver(s3.NewFromConfig(awsCfg, s3opts...), cfg.S3Bucket, cfg.S3Prefix, logger), nil
}

func newS3Archiver(client objectPutter, bucket, prefix string, logger *zap.Logger) *S3Archiver {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, logger: logger.Named("export")}
}

// Archive uploads data as <prefix><name> and returns the s3:// location.
func (a *S3Archiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	key := a.prefix + name
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	a.logger.Info("Export archived",
		zap.String("location", location),
		zap.Int("bytes", len(data)))
	return location, nil
}

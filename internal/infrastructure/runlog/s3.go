package runlog

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// ObjectPutter is the slice of the S3 API the mirror needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads run records to s3://bucket/prefix/<file name>.
type S3Mirror struct {
	client ObjectPutter
	bucket string
	prefix string
}

var _ ports.RunLogger = (*S3Mirror)(nil)

// NewS3Mirror uses an existing client.
func NewS3Mirror(client ObjectPutter, bucket, prefix string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix}
}

// DialS3Mirror builds a client from the default AWS credential chain.
func DialS3Mirror(ctx context.Context, region, bucket, prefix string) (*S3Mirror, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Mirror(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// Log uploads the record and returns its s3 URI.
func (m *S3Mirror) Log(ctx context.Context, record domain.RunRecord) (string, error) {
	data, err := Encode(record)
	if err != nil {
		return "", err
	}
	key := path.Join(m.prefix, FileName(record))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload run record to s3://%s/%s: %w", m.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}

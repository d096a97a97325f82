package templates

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DirSource reads template archives from a local directory as <key>.tgz.
type DirSource struct {
	Dir string
}

func (s DirSource) Fetch(_ context.Context, key string) ([]byte, error) {
	path := filepath.Join(s.Dir, key+".tgz")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template file '%s' not found: %w", key, err)
	}
	return data, nil
}

// S3Source reads template archives from an S3 bucket as <key>.tgz objects.
type S3Source struct {
	client *s3.Client
	bucket string
}

// NewS3Source builds an S3-backed source using the default AWS config chain.
func NewS3Source(ctx context.Context, bucket string) (*S3Source, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Source{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key + ".tgz"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read template object: %w", err)
	}
	return data, nil
}

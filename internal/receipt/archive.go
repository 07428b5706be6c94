package receipt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive keeps a copy of uploaded receipt images.
type Archive interface {
	Put(ctx context.Context, key, contentType string, image []byte) error
}

// ObjectPutter is the part of the S3 client the archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores receipt images in an S3 (or S3-compatible) bucket.
type S3Archive struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Archive creates an archive writing to bucket under prefix.
func NewS3Archive(client ObjectPutter, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Put uploads image under key.
func (a *S3Archive) Put(ctx context.Context, key, contentType string, image []byte) error {
	if strings.Contains(key, "..") {
		return fmt.Errorf("invalid archive key %q", key)
	}
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(image),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(image))),
	})
	if err != nil {
		return fmt.Errorf("s3 put object failed: %w", err)
	}
	return nil
}

// Package upload issues presigned URLs so browsers can PUT receipt images
// straight to object storage without routing bytes through the API.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// URLSigner produces a presigned upload URL for a storage key.
type URLSigner interface {
	UploadURL(ctx context.Context, key, contentType string) (string, error)
}

// Key builds the storage key for a new receipt upload. Uploads are
// namespaced per owner and receipt; the trailing UUID keeps re-uploads from
// clobbering each other.
func Key(owner, receiptID string) string {
	return fmt.Sprintf("receipts/%s/%s/%s", owner, receiptID, uuid.New().String())
}

// S3Signer signs upload URLs against an S3 bucket.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

// NewS3Signer creates an S3Signer for the given bucket. URLs expire after
// expiry; zero means 15 minutes.
func NewS3Signer(cfg aws.Config, bucket string, expiry time.Duration) *S3Signer {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3Signer{
		presign: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:  bucket,
		expiry:  expiry,
	}
}

// UploadURL returns a presigned PUT URL bound to the key and content type.
func (s *S3Signer) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", errors.Wrap(err, "presign put object")
	}
	return req.URL, nil
}

// StaticSigner returns deterministic fake URLs for stub mode, where no
// object storage is reachable and uploads are never actually performed.
type StaticSigner struct {
	BaseURL string
}

// UploadURL returns BaseURL/key.
func (s StaticSigner) UploadURL(_ context.Context, key, _ string) (string, error) {
	return s.BaseURL + "/" + key, nil
}

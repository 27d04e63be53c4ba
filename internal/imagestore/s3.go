package imagestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 stores profile images in a bucket under profile/<accountID>/ keys.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3-backed image store, configured for S3-compatible
// endpoints (DigitalOcean Spaces, minio).
func NewS3(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*S3, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID && endpoint != "" {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		}
		return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3{client: client, bucket: bucket}, nil
}

func (s *S3) keyPrefix(accountID string) string {
	return fmt.Sprintf("profile/%s/", accountID)
}

// EnsureDirectory is a no-op: S3 prefixes need no creation.
func (s *S3) EnsureDirectory(ctx context.Context, accountID string) error {
	return nil
}

// Write uploads the file under the account's key prefix.
func (s *S3) Write(ctx context.Context, accountID, filename string, data io.Reader) error {
	key := s.keyPrefix(accountID) + filename
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// RemoveMatching deletes objects under the account's prefix whose filename
// starts with prefix.
func (s *S3) RemoveMatching(ctx context.Context, accountID, prefix string) error {
	return s.deleteByPrefix(ctx, accountID, func(name string) bool {
		return strings.HasPrefix(name, prefix)
	})
}

// DeleteDirectory removes every object under the account's prefix.
func (s *S3) DeleteDirectory(ctx context.Context, accountID string) error {
	return s.deleteByPrefix(ctx, accountID, func(string) bool { return true })
}

func (s *S3) deleteByPrefix(ctx context.Context, accountID string, match func(name string) bool) error {
	keyPrefix := s.keyPrefix(accountID)

	listResult, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	if err != nil {
		return fmt.Errorf("failed to list objects for deletion: %w", err)
	}

	var objectsToDelete []types.ObjectIdentifier
	for _, obj := range listResult.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), keyPrefix)
		if match(name) {
			objectsToDelete = append(objectsToDelete, types.ObjectIdentifier{Key: obj.Key})
		}
	}
	if len(objectsToDelete) == 0 {
		return nil
	}

	_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objectsToDelete},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	return nil
}

package adapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/m-mizutani/goerr/v2"
)

// S3Config holds the S3 connection settings
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// Endpoint overrides the AWS endpoint for S3 compatible services (MinIO,
	// R2, LocalStack). Path style addressing is used when it is set.
	Endpoint string
}

// Validate checks required fields
func (c S3Config) Validate() error {
	switch {
	case c.Region == "":
		return goerr.Wrap(model.ErrStorage, "s3 region is required")
	case c.AccessKeyID == "":
		return goerr.Wrap(model.ErrStorage, "s3 access key id is required")
	case c.SecretAccessKey == "":
		return goerr.Wrap(model.ErrStorage, "s3 secret access key is required")
	case c.BucketName == "":
		return goerr.Wrap(model.ErrStorage, "s3 bucket name is required")
	}
	return nil
}

// s3Store implements ObjectStore using Amazon S3
type s3Store struct {
	bucketName string
	client     *s3.Client
	presigner  *s3.PresignClient
}

// NewS3 creates a new S3 backed ObjectStore with static credentials
func NewS3(ctx context.Context, cfg S3Config) (ObjectStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Store{
		bucketName: cfg.BucketName,
		client:     client,
		presigner:  s3.NewPresignClient(client),
	}, nil
}

func (s *s3Store) Store(ctx context.Context, id model.ConversationID, content string) (model.ContentKey, error) {
	key := model.NewContentKey(id)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key.String()),
		Body:          strings.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(htmlContentType),
	})
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to put object", goerr.V("key", key))
	}

	return key, nil
}

func (s *s3Store) GetContent(ctx context.Context, key model.ContentKey) (string, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", goerr.Wrap(model.ErrNotFound, "content not found", goerr.V("key", key))
		}
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to get object", goerr.V("key", key))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to read object body", goerr.V("key", key))
	}

	return string(data), nil
}

func (s *s3Store) SignedReadURL(ctx context.Context, key model.ContentKey, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key.String()),
	}, s3.WithPresignExpires(normalizeExpiry(expiry)))
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to presign object", goerr.V("key", key))
	}

	return req.URL, nil
}

func (s *s3Store) Delete(ctx context.Context, key model.ContentKey) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		return goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to delete object", goerr.V("key", key))
	}
	return nil
}

func (s *s3Store) Close() error {
	return nil
}

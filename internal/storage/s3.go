package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sdko-org/get2put/internal/config"
)

type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
}

func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.S3Region),
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}

	return &S3Storage{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.S3Bucket,
	}, nil
}

func recordKey(tunnelID string) string {
	return fmt.Sprintf("tunnels/%s.json", tunnelID)
}

func (s *S3Storage) PutRecord(ctx context.Context, rec EndpointRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode endpoint record: %w", err)
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(recordKey(rec.TunnelID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

func (s *S3Storage) GetRecord(ctx context.Context, tunnelID string) (*EndpointRecord, error) {
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(recordKey(tunnelID)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get endpoint record: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rec EndpointRecord
	if err := json.Unmarshal(content, &rec); err != nil {
		return nil, fmt.Errorf("decode endpoint record: %w", err)
	}
	return &rec, nil
}

package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/shared/constant"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const (
	otelAttrObjectKey = "object_key"
	otelAttrBucket    = "bucket"
)

// S3 stores objects in the configured bucket of an S3 compatible store.
type S3 interface {
	PutJSON(ctx context.Context, key string, value any) error
	Put(ctx context.Context, key, contentType string, data []byte) error
	UploadFileBytes(ctx context.Context, directory, fileName, contentType string, fileData []byte) (url string, err error)
	DeleteFile(ctx context.Context, directory, objectName string) error
	GetObjectNameFromURL(directory, url string) (objectName string)
}

type s3Impl struct {
	client  *s3.Client
	bucket  string
	baseURL string
	otel    otel.Otel
}

func New(cfg *config.Config, otel otel.Otel) S3 {
	staticProvider := credentials.NewStaticCredentialsProvider(
		cfg.External.S3.AccessKeyID,
		cfg.External.S3.SecretAccessKey,
		"",
	)

	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithCredentialsProvider(staticProvider),
		awsConfig.WithRegion(cfg.External.S3.Region),
	)
	if err != nil {
		log.Err(err).Msg("Error loading AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.External.S3.APIEndpoint != constant.Empty {
			o.BaseEndpoint = aws.String(cfg.External.S3.APIEndpoint)
		}

		o.UsePathStyle = true
	})

	baseURL := cfg.External.S3.PublicDomain
	if baseURL == constant.Empty {
		baseURL = cfg.External.S3.APIEndpoint + "/" + cfg.External.S3.BucketName
	}

	return &s3Impl{
		client:  client,
		bucket:  cfg.External.S3.BucketName,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		otel:    otel,
	}
}

func (svc *s3Impl) PutJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", key, err)
	}

	return svc.Put(ctx, key, constant.ContentTypeJSON, data)
}

func (svc *s3Impl) Put(ctx context.Context, key, contentType string, data []byte) (err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".s3.Put")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: key,
		otelAttrBucket:    svc.bucket,
	})

	_, err = svc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(svc.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return nil
}

// UploadFileBytes stores fileData under directory and returns its public URL.
func (svc *s3Impl) UploadFileBytes(ctx context.Context, directory, fileName, contentType string, fileData []byte) (url string, err error) {
	objectKey := path.Join(directory, fileName)

	if err = svc.Put(ctx, objectKey, contentType, fileData); err != nil {
		return constant.Empty, err
	}

	return svc.baseURL + "/" + objectKey, nil
}

func (svc *s3Impl) DeleteFile(ctx context.Context, directory, objectName string) (err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".s3.DeleteFile")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	objectKey := path.Join(directory, objectName)

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: objectKey,
		otelAttrBucket:    svc.bucket,
	})

	_, err = svc.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(svc.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("failed to delete file from S3")

		return fmt.Errorf("failed to delete %s from S3: %w", objectKey, err)
	}

	return nil
}

// GetObjectNameFromURL reverses UploadFileBytes. URLs outside directory yield "".
func (svc *s3Impl) GetObjectNameFromURL(directory, url string) (objectName string) {
	objectName, found := strings.CutPrefix(url, svc.baseURL+"/"+directory+"/")
	if !found || strings.Contains(objectName, "/") {
		return constant.Empty
	}

	return objectName
}

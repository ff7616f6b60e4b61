package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config descreve o bucket de destino (AWS, MinIO ou R2).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader implementa Upload usando o SDK da AWS.
type S3Uploader struct {
	bucket string
	client putObjectAPI
}

// NewS3Uploader cria um uploader pronto para enviar arquivos ao bucket configurado.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: carregar configuração aws: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{bucket: cfg.Bucket, client: client}, nil
}

// Upload envia o objeto para o bucket configurado.
func (u *S3Uploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, errors.New("storage: chave do objeto obrigatória")
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	params := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(strings.TrimLeft(input.Key, "/")),
		Body:          bytes.NewReader(input.Body),
		ContentLength: aws.Int64(int64(len(input.Body))),
		ContentType:   aws.String(contentType),
	}
	if input.CacheControl != "" {
		params.CacheControl = aws.String(input.CacheControl)
	}

	out, err := u.client.PutObject(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("storage: upload %s: %w", input.Key, err)
	}

	return &UploadResult{Key: aws.ToString(params.Key), ETag: strings.Trim(aws.ToString(out.ETag), `"`)}, nil
}

func (c S3Config) validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("storage: bucket obrigatório")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("storage: região obrigatória")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("storage: access key e secret key devem ser informadas juntas")
	}
	return nil
}

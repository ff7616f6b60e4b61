package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured indica que nenhum bucket de backup foi configurado.
var ErrNotConfigured = errors.New("storage: backup não configurado")

// NoopUploader ocupa o lugar do S3 quando o backup está desligado.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, fmt.Errorf("%w: %s descartado", ErrNotConfigured, input.Key)
}

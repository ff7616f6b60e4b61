package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// BackupKey monta a chave do objeto de backup para o instante now.
func BackupKey(prefix, dbPath string, now time.Time) string {
	now = now.UTC()
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	name := fmt.Sprintf("%s-%s.json", base, now.Format("20060102T150405Z"))
	return path.Join(strings.Trim(prefix, "/"), now.Format("2006/01/02"), name)
}

// BackupFile envia uma cópia do documento em dbPath.
func BackupFile(ctx context.Context, up Uploader, dbPath, prefix string, now time.Time) (*UploadResult, error) {
	body, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: ler %s: %w", dbPath, err)
	}
	return up.Upload(ctx, UploadInput{
		Key:          BackupKey(prefix, dbPath, now),
		Body:         body,
		ContentType:  "application/json",
		CacheControl: "no-store",
	})
}

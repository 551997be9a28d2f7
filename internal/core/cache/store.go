package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store 擷取結果緩存介面，memory 與 redis 後端共用
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Stats() map[string]interface{}
	Close() error
}

// Key 由來源原始輸入產生緩存鍵
func Key(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return "extract:" + hex.EncodeToString(hash[:])
}

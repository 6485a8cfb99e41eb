// Package media stores generated artifacts (synthesized audio, uploaded
// samples) and resolves the public URLs handed to the avatar provider.
package media

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Blob is one stored artifact.
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
}

// Store persists and serves media blobs by key.
type Store interface {
	Put(ctx context.Context, blob Blob) error
	Get(ctx context.Context, key string) (Blob, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = fmt.Errorf("media: blob not found")

// NewStore creates a badger-backed store when a directory is configured,
// otherwise in-memory.
func NewStore(dir string) (Store, error) {
	if strings.TrimSpace(dir) == "" {
		return NewInMemoryStore(), nil
	}
	return NewBadgerStore(dir)
}

// AudioKey builds a unique object key for a relayed audio blob. The prefix
// groups provider-bound audio under one namespace.
func AudioKey() string {
	return fmt.Sprintf("tavus-audio/audio-%d-%s.mp3", time.Now().UnixMilli(), randSuffix(7))
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// PublicURL resolves the externally reachable URL for a stored key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + key
}

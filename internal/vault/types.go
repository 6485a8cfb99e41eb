// Package vault persists per-user reflection history: every mirror or
// soulcast exchange a user chooses to keep.
package vault

import (
	"context"
	"errors"
	"time"
)

// Session types.
const (
	TypeMirror   = "mirror"
	TypeSoulcast = "soulcast"
)

// Session is one saved exchange.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	Input        string    `json:"input"`
	Response     string    `json:"response"`
	Emotion      string    `json:"emotion,omitempty"`
	SoulName     string    `json:"soul_name,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	AudioKey     string    `json:"audio_key,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter narrows a listing. Zero value lists everything.
type Filter struct {
	Type  string
	Limit int
}

// ErrNotFound is returned when a session id does not exist for the user.
var ErrNotFound = errors.New("vault: session not found")

// Store persists and retrieves sessions. Listings are most recent first.
type Store interface {
	Save(ctx context.Context, session Session) (Session, error)
	List(ctx context.Context, userID string, filter Filter) ([]Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
	Close() error
}

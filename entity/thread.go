package entity

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	titleMaxLen   = 50
	titleEllipsis = "..."
)

// Thread is one persisted conversation, owned by exactly one user. The
// client generates ThreadKey; every lookup is scoped by
// (ThreadKey, UserID).
type Thread struct {
	gorm.Model

	ThreadKey string `gorm:"uniqueIndex:idx_threads_key_user"`
	UserID    string `gorm:"uniqueIndex:idx_threads_key_user;index"`
	UserEmail string
	Title     string

	Messages []Message `gorm:"foreignKey:ThreadID"`
}

type Message struct {
	gorm.Model

	ThreadID uint   `gorm:"index"`
	Role     string `json:"role"`
	Content  string `json:"content"`

	// Attachment records that an image accompanied the turn. Only
	// metadata is kept; image bytes never reach the store.
	Attachment datatypes.JSONType[Attachment] `json:"-"`
}

type Attachment struct {
	MIMEType  string `json:"mimeType,omitempty"`
	SizeBytes int    `json:"sizeBytes,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DeriveTitle truncates the first user message to the thread title. It
// is computed once at creation and never again.
func DeriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= titleMaxLen {
		return firstMessage
	}
	return string(runes[:titleMaxLen]) + titleEllipsis
}

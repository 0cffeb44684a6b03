// internal/models/message.go
package models

import (
	"encoding/base64"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Media is an inline image kept with a transcript message.
type Media struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// DataURL renders the media as a data: URL.
func (m *Media) DataURL() string {
	return "data:" + m.MimeType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// Message is one transcript entry. Transcripts are append-only.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Image     *Media    `json:"image,omitempty"`
	IsAudio   bool      `json:"is_audio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

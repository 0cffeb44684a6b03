// internal/gpt/provider.go
package gpt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutri-bot/config"
)

var ErrEmptyResponse = errors.New("no response from AI API")

// Blob is binary media sent inline with a message.
type Blob struct {
	MimeType string
	Data     []byte
}

// Part is one element of an outgoing message: inline media or text.
type Part struct {
	Inline *Blob
	Text   string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func InlinePart(mimeType string, data []byte) Part {
	return Part{Inline: &Blob{MimeType: mimeType, Data: data}}
}

// Conversation is a handle on server- or client-side chat history.
type Conversation interface {
	Send(ctx context.Context, parts []Part) (string, error)
}

// Provider opens conversations seeded with a system context.
type Provider interface {
	CreateConversation(ctx context.Context, systemContext string) (Conversation, error)
}

// New builds the provider selected in the AI config section.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch strings.ToLower(cfg.AI.Provider) {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.AI.APIKey, cfg.AI.Model)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.AI.APIKey).
			WithModel(cfg.AI.Model).
			WithTranscriptionModel(cfg.AI.TranscriptionModel).
			WithSampling(cfg.AI.MaxTokens, cfg.AI.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

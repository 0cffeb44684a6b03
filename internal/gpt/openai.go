// internal/gpt/openai.go
package gpt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sashabaranov/go-openai"

	"nutri-bot/internal/models"
)

// OpenAIProvider keeps conversation history on the client side, since chat
// completions are stateless.
type OpenAIProvider struct {
	client             *openai.Client
	model              string
	transcriptionModel string
	maxTokens          int
	temperature        float32
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey))
}

func NewOpenAIProviderWithConfig(cfg openai.ClientConfig) *OpenAIProvider {
	return &OpenAIProvider{
		client:             openai.NewClientWithConfig(cfg),
		model:              openai.GPT4o,
		transcriptionModel: openai.Whisper1,
		maxTokens:          1024,
		temperature:        0.7,
	}
}

func (p *OpenAIProvider) WithModel(model string) *OpenAIProvider {
	if model != "" {
		p.model = model
	}
	return p
}

func (p *OpenAIProvider) WithTranscriptionModel(model string) *OpenAIProvider {
	if model != "" {
		p.transcriptionModel = model
	}
	return p
}

func (p *OpenAIProvider) WithSampling(maxTokens int, temperature float32) *OpenAIProvider {
	if maxTokens > 0 {
		p.maxTokens = maxTokens
	}
	p.temperature = temperature
	return p
}

func (p *OpenAIProvider) CreateConversation(_ context.Context, systemContext string) (Conversation, error) {
	return &openaiConversation{
		provider: p,
		history: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemContext,
			},
		},
	}, nil
}

type openaiConversation struct {
	provider *OpenAIProvider

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

func (c *openaiConversation) Send(ctx context.Context, parts []Part) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userMsg, err := c.provider.userMessage(ctx, parts)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       c.provider.model,
		Messages:    append(append([]openai.ChatCompletionMessage{}, c.history...), userMsg),
		MaxTokens:   c.provider.maxTokens,
		Temperature: c.provider.temperature,
	}

	resp, err := c.provider.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	reply := resp.Choices[0].Message.Content
	c.history = append(c.history, userMsg, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	return reply, nil
}

// userMessage turns parts into one multi-content user message. Images travel
// as data URLs; audio is transcribed first because chat completions take no
// audio input on the default models.
func (p *OpenAIProvider) userMessage(ctx context.Context, parts []Part) (openai.ChatCompletionMessage, error) {
	content := make([]openai.ChatMessagePart, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.Inline == nil:
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		case strings.HasPrefix(part.Inline.MimeType, "image/"):
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    (*models.Media)(part.Inline).DataURL(),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		case strings.HasPrefix(part.Inline.MimeType, "audio/"):
			text, err := p.transcribe(ctx, part.Inline)
			if err != nil {
				return openai.ChatCompletionMessage{}, err
			}
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: "Transcrição do áudio: " + text,
			})
		default:
			return openai.ChatCompletionMessage{}, fmt.Errorf("unsupported media type %q", part.Inline.MimeType)
		}
	}

	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: content,
	}, nil
}

func (p *OpenAIProvider) transcribe(ctx context.Context, blob *Blob) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.transcriptionModel,
		FilePath: "voice" + audioExtension(blob.MimeType),
		Reader:   bytes.NewReader(blob.Data),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

// audioExtension picks a file extension the transcription endpoint
// recognizes; it infers the format from the name.
func audioExtension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	if m := mimetype.Lookup(strings.TrimSpace(base)); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".ogg"
}

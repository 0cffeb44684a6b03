// internal/gpt/gemini.go
package gpt

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

// CreateConversation opens a chat whose history is kept by the chat handle.
func (p *GeminiProvider) CreateConversation(ctx context.Context, systemContext string) (Conversation, error) {
	chat, err := p.client.Chats.Create(ctx, p.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemContext, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("GenAI chat create failed: %w", err)
	}
	return &geminiConversation{chat: chat}, nil
}

type geminiConversation struct {
	mu   sync.Mutex
	chat *genai.Chat
}

func (c *geminiConversation) Send(ctx context.Context, parts []Part) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.chat.SendMessage(ctx, toGenAIParts(parts)...)
	if err != nil {
		return "", fmt.Errorf("GenAI send failed: %w", err)
	}
	return resp.Text(), nil
}

func toGenAIParts(parts []Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Inline != nil {
			out = append(out, *genai.NewPartFromBytes(p.Inline.Data, p.Inline.MimeType))
			continue
		}
		out = append(out, *genai.NewPartFromText(p.Text))
	}
	return out
}

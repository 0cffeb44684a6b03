package gpt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type recordedMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type fakeOpenAI struct {
	mu             sync.Mutex
	requests       [][]recordedMessage
	transcriptions int
	reply          string
	status         int
}

func (f *fakeOpenAI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []recordedMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.mu.Lock()
		f.requests = append(f.requests, body.Messages)
		status := f.status
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": f.reply},
			}},
		})
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.transcriptions++
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"comi duas maçãs"}`)
	})
	return mux
}

func newTestOpenAI(t *testing.T, fake *fakeOpenAI) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIProviderWithConfig(cfg).WithModel("gpt-test")
}

func TestOpenAIConversation_KeepsHistory(t *testing.T) {
	fake := &fakeOpenAI{reply: "Olá!"}
	p := newTestOpenAI(t, fake)

	conv, err := p.CreateConversation(context.Background(), "system context")
	require.NoError(t, err)

	reply, err := conv.Send(context.Background(), []Part{TextPart("Hello")})
	require.NoError(t, err)
	assert.Equal(t, "Olá!", reply)

	_, err = conv.Send(context.Background(), []Part{TextPart("Again")})
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	first, second := fake.requests[0], fake.requests[1]
	require.Len(t, first, 2)
	assert.Equal(t, "system", first[0].Role)
	assert.JSONEq(t, `"system context"`, string(first[0].Content))
	assert.Equal(t, "user", first[1].Role)

	require.Len(t, second, 4, "system, user, assistant, user")
	assert.Equal(t, "assistant", second[2].Role)
	assert.JSONEq(t, `"Olá!"`, string(second[2].Content))
}

func TestOpenAIConversation_ImageAsDataURL(t *testing.T) {
	fake := &fakeOpenAI{reply: "~500 kcal"}
	p := newTestOpenAI(t, fake)
	conv, err := p.CreateConversation(context.Background(), "sys")
	require.NoError(t, err)

	_, err = conv.Send(context.Background(), []Part{
		InlinePart("image/jpeg", []byte("jpeg-bytes")),
		TextPart("Analisa"),
	})
	require.NoError(t, err)

	content := string(fake.requests[0][1].Content)
	assert.Contains(t, content, `"type":"image_url"`)
	assert.Contains(t, content, "data:image/jpeg;base64,anBlZy1ieXRlcw==")
	assert.Contains(t, content, `"text":"Analisa"`)
	assert.Zero(t, fake.transcriptions)
}

func TestOpenAIConversation_AudioIsTranscribed(t *testing.T) {
	fake := &fakeOpenAI{reply: "Registado"}
	p := newTestOpenAI(t, fake)
	conv, err := p.CreateConversation(context.Background(), "sys")
	require.NoError(t, err)

	_, err = conv.Send(context.Background(), []Part{
		InlinePart("audio/ogg", []byte("ogg-bytes")),
		TextPart("Ouve"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.transcriptions)
	assert.Contains(t, string(fake.requests[0][1].Content), "comi duas maçãs")
}

func TestOpenAIConversation_ErrorKeepsHistoryClean(t *testing.T) {
	fake := &fakeOpenAI{status: http.StatusInternalServerError}
	p := newTestOpenAI(t, fake)
	conv, err := p.CreateConversation(context.Background(), "sys")
	require.NoError(t, err)

	_, err = conv.Send(context.Background(), []Part{TextPart("Hello")})
	require.Error(t, err)

	fake.mu.Lock()
	fake.status = 0
	fake.reply = "ok"
	fake.mu.Unlock()

	_, err = conv.Send(context.Background(), []Part{TextPart("Hello")})
	require.NoError(t, err)
	assert.Len(t, fake.requests[1], 2, "failed turn must not be kept in history")
}

func TestOpenAIConversation_UnsupportedMedia(t *testing.T) {
	p := newTestOpenAI(t, &fakeOpenAI{})
	conv, err := p.CreateConversation(context.Background(), "sys")
	require.NoError(t, err)

	_, err = conv.Send(context.Background(), []Part{InlinePart("application/pdf", []byte("%PDF"))})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported media type"))
}

func TestAudioExtension(t *testing.T) {
	assert.Equal(t, ".webm", audioExtension("audio/webm"))
	assert.Equal(t, ".ogg", audioExtension("audio/x-unknown"))
	assert.NotEmpty(t, audioExtension("audio/ogg; codecs=opus"))
}

func TestToGenAIParts(t *testing.T) {
	parts := toGenAIParts([]Part{
		InlinePart("image/png", []byte{0x89, 0x50}),
		TextPart("Analisa esta refeição"),
	})
	require.Len(t, parts, 2)

	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte{0x89, 0x50}, parts[0].InlineData.Data)
	assert.Equal(t, "Analisa esta refeição", parts[1].Text)
	assert.Equal(t, (*genai.Blob)(nil), parts[1].InlineData)
}

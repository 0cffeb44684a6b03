package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nutri-bot/internal/assistant"
)

const (
	recordingText = "🎙️ A gravar… Envie uma ou mais notas de voz e toque em Parar quando terminar."
	pickerText    = "📷 Envie uma foto da sua refeição."

	// Telegram voice notes are always OGG/Opus.
	voiceMimeType = "audio/ogg"

	maxDownloadSize = 20 << 20
)

// photoPicker shows a photo request; the next photo message in the chat completes it.
type photoPicker struct {
	bot    *TelegramBot
	chatID int64

	mu   sync.Mutex
	open bool
}

func (p *photoPicker) Open(_ context.Context, accept string) error {
	msg := tgbotapi.NewMessage(p.chatID, pickerText)
	msg.ReplyMarkup = pickerKeyboard()
	if _, err := p.bot.api.Send(msg); err != nil {
		return fmt.Errorf("show photo picker: %w", err)
	}

	p.mu.Lock()
	p.open = true
	p.mu.Unlock()
	p.bot.logger.Debugw("Photo picker opened", "chat_id", p.chatID, "accept", accept)
	return nil
}

// close reports whether the picker was open.
func (p *photoPicker) close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.open
	p.open = false
	return was
}

// voiceRecorder turns the voice notes sent while recording into data chunks.
// Notes are buffered by message ID and handed over in that order on flush,
// whatever order their downloads finish in.
type voiceRecorder struct {
	bot    *TelegramBot
	chatID int64

	mu       sync.Mutex
	settled  *sync.Cond
	onData   func([]byte)
	mimeType string
	quiet    bool
	gen      int
	inflight int
	pending  map[int]voiceNote
}

type voiceNote struct {
	data     []byte
	mimeType string
}

func (r *voiceRecorder) Start(_ context.Context, onData func([]byte)) (assistant.Stream, error) {
	r.mu.Lock()
	quiet := r.quiet
	r.quiet = false
	r.mu.Unlock()

	if !quiet {
		msg := tgbotapi.NewMessage(r.chatID, recordingText)
		msg.ReplyMarkup = recordingKeyboard()
		if _, err := r.bot.api.Send(msg); err != nil {
			return nil, fmt.Errorf("show recording prompt: %w", err)
		}
	}

	r.mu.Lock()
	r.gen++
	r.onData = onData
	r.mimeType = ""
	r.pending = nil
	r.mu.Unlock()
	return &voiceStream{rec: r}, nil
}

// skipPrompt makes the next Start silent, for a note that was recorded already.
func (r *voiceRecorder) skipPrompt(skip bool) {
	r.mu.Lock()
	r.quiet = skip
	r.mu.Unlock()
}

// track registers a note whose download is starting. It reports false when
// no recording is running; otherwise add must follow with the same generation.
func (r *voiceRecorder) track() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onData == nil {
		return 0, false
	}
	r.inflight++
	return r.gen, true
}

// add completes a tracked note. A nil chunk marks a failed download.
func (r *voiceRecorder) add(gen, messageID int, chunk []byte, mimeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	if r.settled != nil {
		r.settled.Broadcast()
	}
	if chunk == nil || gen != r.gen || r.onData == nil {
		return
	}
	if r.pending == nil {
		r.pending = make(map[int]voiceNote)
	}
	r.pending[messageID] = voiceNote{data: chunk, mimeType: mimeType}
}

// flush waits for tracked downloads and delivers the buffered notes by message ID.
func (r *voiceRecorder) flush() {
	r.mu.Lock()
	if r.settled == nil {
		r.settled = sync.NewCond(&r.mu)
	}
	for r.inflight > 0 {
		r.settled.Wait()
	}
	ids := make([]int, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	notes := make([]voiceNote, 0, len(ids))
	for _, id := range ids {
		notes = append(notes, r.pending[id])
	}
	r.pending = nil
	onData := r.onData
	if len(notes) > 0 && r.mimeType == "" {
		r.mimeType = notes[0].mimeType
	}
	r.mu.Unlock()

	if onData == nil {
		return
	}
	for _, n := range notes {
		onData(n.data)
	}
}

type voiceStream struct {
	rec *voiceRecorder
}

func (s *voiceStream) MimeType() string {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	if s.rec.mimeType == "" {
		return voiceMimeType
	}
	return s.rec.mimeType
}

func (s *voiceStream) Stop() error {
	s.rec.mu.Lock()
	s.rec.onData = nil
	s.rec.pending = nil
	s.rec.mu.Unlock()
	return nil
}

type chatNotifier struct {
	bot    *TelegramBot
	chatID int64
}

func (n *chatNotifier) Notify(_ context.Context, text string) {
	n.bot.sendText(n.chatID, "⚠️ "+text)
}

// download fetches a file the user sent through the Bot API file endpoint.
func (t *TelegramBot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("read file: larger than %d bytes", maxDownloadSize)
	}
	return data, nil
}

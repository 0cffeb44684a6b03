// Package assistant manages one conversation with the AI nutritionist: the
// transcript, staged photo/voice attachments and the single in-flight send.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"nutri-bot/internal/gpt"
	"nutri-bot/internal/models"
	"nutri-bot/pkg/logger"
)

// Mode is a capture intent requested by the session's owner.
type Mode string

const (
	ModePlain Mode = "plain"
	ModeVoice Mode = "voice"
	ModePhoto Mode = "photo"
)

type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindAudio AttachmentKind = "audio"
)

// DefaultAudioMimeType is used when a microphone stream does not report one.
const DefaultAudioMimeType = "audio/webm"

// Attachment is captured media waiting for the next send.
type Attachment struct {
	Data     []byte
	MimeType string
	Kind     AttachmentKind
}

var (
	ErrNothingToSend      = errors.New("assistant: nothing to send")
	ErrNotInitialized     = errors.New("assistant: conversation not initialized")
	ErrBusy               = errors.New("assistant: a message is already being sent")
	ErrAlreadyRecording   = errors.New("assistant: capture already in progress")
	ErrNotRecording       = errors.New("assistant: not recording")
	ErrCaptureFailed      = errors.New("assistant: capture failed")
	ErrCaptureUnavailable = errors.New("assistant: capture device unavailable")
	ErrNoProvider         = errors.New("assistant: no AI provider configured")
)

type captureState int

const (
	captureIdle captureState = iota
	captureStarting
	captureRecording
)

type Config struct {
	Profile     models.Profile
	Provider    gpt.Provider
	Picker      Picker
	Microphone  Microphone
	Notifier    Notifier
	InitialMode Mode
	// OnModeReset acknowledges a consumed capture intent back to the owner.
	OnModeReset func()
	Logger      *logger.Logger
}

type Session struct {
	profile     models.Profile
	provider    gpt.Provider
	picker      Picker
	mic         Microphone
	notifier    Notifier
	onModeReset func()
	log         *logger.Logger
	now         func() time.Time

	initOnce sync.Once
	initErr  error
	sendGate *semaphore.Weighted

	mu          sync.Mutex
	conv        gpt.Conversation
	mode        Mode
	modePending bool
	modeActive  bool
	draft       string
	attachment  *Attachment
	capture     captureState
	stream      Stream
	chunks      [][]byte
	loading     bool
	messages    []models.Message
}

func NewSession(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	s := &Session{
		profile:     cfg.Profile.Clone(),
		provider:    cfg.Provider,
		picker:      cfg.Picker,
		mic:         cfg.Microphone,
		notifier:    cfg.Notifier,
		onModeReset: cfg.OnModeReset,
		log:         log,
		now:         time.Now,
		sendGate:    semaphore.NewWeighted(1),
		mode:        ModePlain,
	}
	s.messages = []models.Message{s.newMessage(models.RoleAssistant, Greeting(s.profile))}
	s.Request(cfg.InitialMode)
	return s
}

// Init creates the conversation handle. Only the first call does any work;
// after a failure the session can never send and must be replaced.
func (s *Session) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.provider == nil {
			s.initErr = ErrNoProvider
			return
		}
		conv, err := s.provider.CreateConversation(ctx, SystemContext(s.profile))
		if err != nil {
			s.log.Errorw("Failed to initialize chat", "error", err)
			s.initErr = fmt.Errorf("create conversation: %w", err)
			return
		}
		s.mu.Lock()
		s.conv = conv
		s.mu.Unlock()
	})
	return s.initErr
}

// Request records a capture intent. A plain intent records nothing.
func (s *Session) Request(mode Mode) {
	if mode == "" || mode == ModePlain {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.modePending = true
	s.modeActive = false
}

// PendingMode returns the intent that has not been acknowledged yet.
func (s *Session) PendingMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.modePending {
		return ModePlain
	}
	return s.mode
}

// Activate consumes the pending intent once: voice starts recording, photo
// opens the picker. Repeated calls before the acknowledgment do nothing.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	if !s.modePending || s.modeActive {
		s.mu.Unlock()
		return nil
	}
	s.modeActive = true
	mode := s.mode
	s.mu.Unlock()

	switch mode {
	case ModeVoice:
		return s.StartRecording(ctx)
	case ModePhoto:
		return s.AttachPhoto(ctx)
	}
	return nil
}

// ackMode tells the owner the pending intent was resolved.
func (s *Session) ackMode() {
	s.mu.Lock()
	if !s.modePending {
		s.mu.Unlock()
		return
	}
	s.modePending = false
	s.modeActive = false
	s.mode = ModePlain
	reset := s.onModeReset
	s.mu.Unlock()

	if reset != nil {
		reset()
	}
}

func (s *Session) captureFailed(ctx context.Context, notice string, cause error) error {
	s.log.Warnw("Capture failed", "error", cause)
	if s.notifier != nil {
		s.notifier.Notify(ctx, notice)
	}
	s.ackMode()
	return fmt.Errorf("%w: %w", ErrCaptureFailed, cause)
}

// AttachPhoto opens the picker for a meal photo.
func (s *Session) AttachPhoto(ctx context.Context) error {
	s.mu.Lock()
	busy := s.capture != captureIdle
	s.mu.Unlock()
	if busy {
		return ErrAlreadyRecording
	}

	if s.picker == nil {
		return s.captureFailed(ctx, PickerErrorText, ErrCaptureUnavailable)
	}
	if err := s.picker.Open(ctx, AcceptImages); err != nil {
		return s.captureFailed(ctx, PickerErrorText, err)
	}
	return nil
}

// PhotoSelected stages the picked file. An empty mime type is sniffed from the data.
func (s *Session) PhotoSelected(data []byte, mimeType string) error {
	if len(data) == 0 {
		s.PhotoCancelled()
		return nil
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	s.mu.Lock()
	if s.capture != captureIdle {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	s.attachment = &Attachment{Data: data, MimeType: mimeType, Kind: KindImage}
	s.mu.Unlock()

	s.ackMode()
	return nil
}

// PhotoCancelled resolves a picker that was closed without a file.
func (s *Session) PhotoCancelled() {
	s.ackMode()
}

// StartRecording acquires the microphone. Only one recording may run.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.capture != captureIdle {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	s.capture = captureStarting
	s.chunks = nil
	s.mu.Unlock()

	if s.mic == nil {
		s.resetCapture()
		return s.captureFailed(ctx, MicrophoneErrorText, ErrCaptureUnavailable)
	}

	stream, err := s.mic.Start(ctx, s.onAudioData)
	if err != nil {
		s.resetCapture()
		return s.captureFailed(ctx, MicrophoneErrorText, err)
	}

	s.mu.Lock()
	if s.capture != captureStarting {
		// Cancelled while the device was being acquired.
		s.mu.Unlock()
		s.release(stream)
		return nil
	}
	s.capture = captureRecording
	s.stream = stream
	s.mu.Unlock()
	return nil
}

func (s *Session) onAudioData(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == captureIdle {
		return
	}
	s.chunks = append(s.chunks, bytes.Clone(chunk))
}

// StopRecording finalizes the buffered audio into a staged attachment and
// releases the microphone.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	if s.capture != captureRecording {
		s.mu.Unlock()
		return ErrNotRecording
	}
	stream := s.stream
	data := bytes.Join(s.chunks, nil)
	s.capture = captureIdle
	s.stream = nil
	s.chunks = nil
	if len(data) > 0 {
		mimeType := stream.MimeType()
		if mimeType == "" {
			mimeType = DefaultAudioMimeType
		}
		s.attachment = &Attachment{Data: data, MimeType: mimeType, Kind: KindAudio}
	}
	s.mu.Unlock()

	s.release(stream)
	s.ackMode()
	return nil
}

// CancelAttachment drops the staged attachment and any recording in progress.
func (s *Session) CancelAttachment() {
	s.mu.Lock()
	s.attachment = nil
	stream := s.stream
	s.capture = captureIdle
	s.stream = nil
	s.chunks = nil
	s.mu.Unlock()

	if stream != nil {
		s.release(stream)
	}
	s.ackMode()
}

func (s *Session) resetCapture() {
	s.mu.Lock()
	s.capture = captureIdle
	s.chunks = nil
	s.mu.Unlock()
}

func (s *Session) release(stream Stream) {
	if err := stream.Stop(); err != nil {
		s.log.Warnw("Failed to release microphone", "error", err)
	}
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Attachment returns a copy of the staged attachment, if any.
func (s *Session) Attachment() (Attachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attachment == nil {
		return Attachment{}, false
	}
	a := *s.attachment
	a.Data = bytes.Clone(a.Data)
	return a, true
}

func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture != captureIdle
}

// Loading reports whether a send is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Ready reports whether the conversation handle exists.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv != nil
}

func (s *Session) Profile() models.Profile {
	return s.profile.Clone()
}

// Messages returns the transcript in display order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// turn is a validated outgoing message.
type turn struct {
	conv    gpt.Conversation
	display models.Message
	parts   []gpt.Part
}

// validate checks the send preconditions and builds the turn. Callers hold s.mu.
func (s *Session) validate(text string) (turn, error) {
	hasText := strings.TrimSpace(text) != ""
	att := s.attachment

	if !hasText && att == nil {
		return turn{}, ErrNothingToSend
	}
	if s.conv == nil {
		return turn{}, ErrNotInitialized
	}

	t := turn{conv: s.conv, display: s.newMessage(models.RoleUser, text)}
	if att != nil {
		t.parts = append(t.parts, gpt.InlinePart(att.MimeType, att.Data))
		switch att.Kind {
		case KindImage:
			t.display.Image = &models.Media{MimeType: att.MimeType, Data: att.Data}
		case KindAudio:
			t.display.IsAudio = true
		}
		if !hasText {
			t.display.Text = placeholder(att.Kind)
		}
	}
	if hasText {
		t.parts = append(t.parts, gpt.TextPart(text))
	} else {
		t.parts = append(t.parts, gpt.TextPart(defaultPrompt(att.Kind)))
	}
	return t, nil
}

// Send dispatches the draft and staged attachment. It returns the assistant
// reply appended to the transcript; endpoint failures become an error reply
// rather than an error. Only the precondition errors are returned.
func (s *Session) Send(ctx context.Context) (models.Message, error) {
	return s.send(ctx, func() string { return s.draft }, true)
}

// SendText dispatches text with the staged attachment, bypassing the draft.
// A rejected call changes nothing, so the text cannot leak into a later send.
func (s *Session) SendText(ctx context.Context, text string) (models.Message, error) {
	return s.send(ctx, func() string { return text }, false)
}

// send runs one turn under the single-flight gate. text is read with s.mu held.
func (s *Session) send(ctx context.Context, text func() string, fromDraft bool) (models.Message, error) {
	if !s.sendGate.TryAcquire(1) {
		return models.Message{}, ErrBusy
	}
	defer s.sendGate.Release(1)

	s.mu.Lock()
	t, err := s.validate(text())
	if err != nil {
		s.mu.Unlock()
		return models.Message{}, err
	}
	s.messages = append(s.messages, t.display)
	if fromDraft {
		s.draft = ""
	}
	s.attachment = nil
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	reply, err := t.conv.Send(ctx, t.parts)
	switch {
	case err != nil:
		s.log.Errorw("Error sending message", "error", err)
		reply = SendErrorText
	case strings.TrimSpace(reply) == "":
		reply = EmptyReplyText
	}

	msg := s.newMessage(models.RoleAssistant, reply)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

func (s *Session) newMessage(role models.Role, text string) models.Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return models.Message{
		ID:        id.String(),
		Role:      role,
		Text:      text,
		CreatedAt: s.now(),
	}
}

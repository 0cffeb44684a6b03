package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nutri-bot/config"
	"nutri-bot/internal/app"
	"nutri-bot/internal/gpt"
	"nutri-bot/internal/models"
	"nutri-bot/pkg/logger"
)

const typingInterval = 4 * time.Second

// botAPI is the part of the Bot API client the handlers use.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// chat is everything one Telegram chat owns: its shell and capture adapters.
type chat struct {
	id     int64
	shell  *app.Shell
	picker *photoPicker
	mic    *voiceRecorder
}

type TelegramBot struct {
	bot            *tgbotapi.BotAPI
	api            botAPI
	provider       gpt.Provider
	finalizeDelay  time.Duration
	logger         *logger.Logger
	httpClient     *http.Client
	typingInterval time.Duration
	chats          map[int64]*chat
	stateMutex     sync.RWMutex
	handlers       sync.WaitGroup
}

func NewTelegramBot(cfg *config.Config, provider gpt.Provider, logger *logger.Logger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.Debug = cfg.Telegram.Debug

	logger.Infow("Authorized on Telegram", "username", bot.Self.UserName)

	t := newTelegramBot(bot, provider, cfg.Onboarding.FinalizeDelay, logger)
	t.bot = bot
	return t, nil
}

func newTelegramBot(api botAPI, provider gpt.Provider, finalizeDelay time.Duration, logger *logger.Logger) *TelegramBot {
	return &TelegramBot{
		api:            api,
		provider:       provider,
		finalizeDelay:  finalizeDelay,
		logger:         logger,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		typingInterval: typingInterval,
		chats:          make(map[int64]*chat),
	}
}

// Start begins receiving updates from Telegram via polling
func (t *TelegramBot) Start(ctx context.Context) error {
	t.logger.Info("Removing any existing webhook")
	_, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.bot.GetUpdatesChan(updateConfig)

	t.logger.Info("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		t.handlers.Add(1)
		go func(update tgbotapi.Update) {
			defer t.handlers.Done()
			defer func() {
				if r := recover(); r != nil {
					t.logger.Errorw("Recovered from panic while processing update", "error", r)
				}
			}()

			t.handleUpdate(ctx, update)
		}(update)
	}
}

func (t *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	t.logger.Debugw("Received update", "update_id", update.UpdateID)

	switch {
	case update.Message != nil:
		t.logger.Infow("Received message",
			"chat_id", update.Message.Chat.ID,
			"from", userName(update.Message.From))

		if update.Message.IsCommand() {
			t.handleCommand(ctx, update.Message)
		} else {
			t.handleMessage(ctx, update.Message)
		}
	case update.CallbackQuery != nil:
		t.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

// Stop stops polling and waits for the handlers in flight.
func (t *TelegramBot) Stop(ctx context.Context) error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		t.handlers.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (t *TelegramBot) chatFor(chatID int64) (*chat, bool) {
	t.stateMutex.RLock()
	defer t.stateMutex.RUnlock()
	c, ok := t.chats[chatID]
	return c, ok
}

// openChat returns the chat's state, creating a fresh onboarding for new chats.
func (t *TelegramBot) openChat(chatID int64) (c *chat, created bool) {
	t.stateMutex.Lock()
	defer t.stateMutex.Unlock()

	if c, ok := t.chats[chatID]; ok {
		return c, false
	}

	c = &chat{
		id:     chatID,
		picker: &photoPicker{bot: t, chatID: chatID},
		mic:    &voiceRecorder{bot: t, chatID: chatID},
	}
	c.shell = app.NewShell(app.Options{
		Provider: t.provider,
		Capture: app.Capture{
			Picker:     c.picker,
			Microphone: c.mic,
			Notifier:   &chatNotifier{bot: t, chatID: chatID},
		},
		FinalizeDelay: t.finalizeDelay,
		OnReady: func(p models.Profile) {
			t.sendMain(chatID, app.DashboardText(p))
		},
		Logger: t.logger.Named("app").With("chat_id", chatID),
	})
	t.chats[chatID] = c
	return c, true
}

// Stats is a snapshot of the chats the bot is serving.
type Stats struct {
	Chats      int `json:"chats"`
	Onboarding int `json:"onboarding"`
	Main       int `json:"main"`
	Sessions   int `json:"sessions"`
	InFlight   int `json:"in_flight"`
}

func (t *TelegramBot) Stats() Stats {
	t.stateMutex.RLock()
	defer t.stateMutex.RUnlock()

	s := Stats{Chats: len(t.chats)}
	for _, c := range t.chats {
		if c.shell.Screen() == app.ScreenMain {
			s.Main++
		} else {
			s.Onboarding++
		}
		if sess := c.shell.Session(); sess != nil {
			s.Sessions++
			if sess.Loading() {
				s.InFlight++
			}
		}
	}
	return s
}

func (t *TelegramBot) sendText(chatID int64, text string) {
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		t.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (t *TelegramBot) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (t *TelegramBot) sendMain(chatID int64, text string) {
	t.sendWithKeyboard(chatID, text, mainKeyboard())
}

// keepTyping shows the typing indicator until stop is called.
func (t *TelegramBot) keepTyping(ctx context.Context, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.typingInterval)
		defer ticker.Stop()
		for {
			if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
				t.logger.Debugw("Failed to send typing action", "chat_id", chatID, "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}

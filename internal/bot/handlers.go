package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nutri-bot/internal/app"
	"nutri-bot/internal/assistant"
	"nutri-bot/internal/models"
	"nutri-bot/internal/onboarding"
)

const (
	helpText = "Sou o NutriAI, o seu assistente de nutrição.\n\n" +
		"/start - configurar o perfil\n" +
		"/painel - resumo diário\n" +
		"/assistente - conversar com o assistente\n" +
		"/foto - registar uma refeição com foto\n" +
		"/voz - registar uma refeição por voz\n" +
		"/perfil - ver o seu perfil\n" +
		"/novo_chat - começar uma nova conversa"

	startFirstText   = "Use /start para começar."
	onboardingText   = "Conclua primeiro a configuração do perfil."
	unknownText      = "Comando desconhecido. Use /help para ver os comandos."
	useButtonsText   = "Use os botões da mensagem acima para responder."
	basicInfoHint    = "Envie três números: idade, peso e altura (ex: 30 70 175)."
	basicRangeText   = "Valores fora dos limites: idade de 18 a 99, peso de 40 a 200 kg, altura de 140 a 220 cm."
	unsupportedText  = "Envie uma mensagem de texto, uma foto ou uma nota de voz."
	recordingHint    = "Está a gravar. Envie notas de voz ou toque em Parar."
	busyText         = "Ainda estou a responder à mensagem anterior. Aguarde um momento."
	nothingText      = "Escreva uma mensagem ou anexe uma foto ou áudio."
	unavailableText  = "O assistente não está disponível de momento. Use /novo_chat para tentar novamente."
	downloadFailText = "Não foi possível obter o ficheiro. Tente novamente."
	photoStagedText  = "📷 Foto anexada. Escreva uma mensagem sobre a refeição ou toque em Enviar."
	audioStagedText  = "🎤 Áudio pronto. Escreva uma mensagem ou toque em Enviar."
	noAudioText      = "Nenhum áudio foi gravado."
	noteAddedText    = "Nota de voz adicionada. Toque em Parar quando terminar."
	photoCancelText  = "Foto cancelada."
	removedText      = "Anexo removido."
	assistantText    = "💬 Em que posso ajudar?"

	attachmentPendingText = "Já tem um anexo por enviar. Toque em Enviar ou Remover antes de mandar uma nota de voz."

	gateNotice     = "Selecione uma opção para continuar."
	consentNotice  = "Aceite o consentimento e escolha uma voz para continuar."
	staleNotice    = "Este passo já não está ativo."
	finishedNotice = "A configuração já foi concluída."
	invalidNotice  = "Opção inválida."
	noRecordNotice = "Não há gravação em curso."
)

var commandActions = map[string]string{
	"painel":     cbDashboard,
	"assistente": cbAssistant,
	"perfil":     cbProfile,
	"foto":       cbPhoto,
	"voz":        cbVoice,
}

func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	chatID := message.Chat.ID

	t.logger.Infow("Handling command", "command", command, "chat_id", chatID)

	switch command {
	case "start":
		c, _ := t.openChat(chatID)
		if p, ok := c.shell.Profile(); ok {
			_ = c.shell.SetView(app.ViewDashboard)
			t.sendMain(chatID, app.DashboardText(p))
			return
		}
		t.renderWizard(c, 0)

	case "help":
		t.sendText(chatID, helpText)

	case "novo_chat":
		c, ok := t.mainChat(chatID)
		if !ok {
			return
		}
		c.picker.close()
		c.shell.ResetSession()
		t.handleAppAction(ctx, c, cbAssistant)

	default:
		action, known := commandActions[command]
		if !known {
			t.sendText(chatID, unknownText)
			return
		}
		if c, ok := t.mainChat(chatID); ok {
			if notice := t.handleAppAction(ctx, c, action); notice != "" {
				t.sendText(chatID, notice)
			}
		}
	}
}

// mainChat returns the chat if onboarding is over, telling the user otherwise.
func (t *TelegramBot) mainChat(chatID int64) (*chat, bool) {
	c, ok := t.chatFor(chatID)
	if !ok {
		t.sendText(chatID, startFirstText)
		return nil, false
	}
	if c.shell.Screen() != app.ScreenMain {
		t.sendText(chatID, onboardingText)
		return nil, false
	}
	return c, true
}

func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	c, ok := t.chatFor(message.Chat.ID)
	if !ok {
		t.sendText(message.Chat.ID, startFirstText)
		return
	}

	if c.shell.Screen() == app.ScreenOnboarding {
		t.handleWizardText(c, message.Text)
		return
	}

	switch {
	case message.Voice != nil:
		t.handleVoice(ctx, c, message.MessageID, message.Voice.FileID, message.Voice.MimeType)
	case message.Audio != nil:
		t.handleVoice(ctx, c, message.MessageID, message.Audio.FileID, message.Audio.MimeType)
	case len(message.Photo) > 0:
		largest := message.Photo[len(message.Photo)-1]
		t.handlePhoto(ctx, c, largest.FileID, "", message.Caption)
	case message.Document != nil && strings.HasPrefix(message.Document.MimeType, "image/"):
		t.handlePhoto(ctx, c, message.Document.FileID, message.Document.MimeType, message.Caption)
	case strings.TrimSpace(message.Text) != "":
		t.handleChatText(ctx, c, message.Text)
	default:
		t.sendText(c.id, unsupportedText)
	}
}

func (t *TelegramBot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	t.logger.Infow("Received callback query",
		"from", userName(query.From),
		"data", query.Data)

	notice := ""
	defer func() {
		if _, err := t.api.Request(tgbotapi.NewCallback(query.ID, notice)); err != nil {
			t.logger.Warnw("Failed to answer callback query", "error", err)
		}
	}()

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	c, ok := t.chatFor(chatID)
	if !ok {
		notice = startFirstText
		return
	}

	if strings.HasPrefix(query.Data, "wiz:") {
		notice = t.applyWizardCallback(c, query.Data)
		t.renderWizard(c, query.Message.MessageID)
		return
	}

	if c.shell.Screen() != app.ScreenMain {
		notice = onboardingText
		return
	}
	notice = t.handleAppAction(ctx, c, query.Data)
}

// applyWizardCallback applies a wizard button and returns the notice to show, if any.
func (t *TelegramBot) applyWizardCallback(c *chat, data string) string {
	w := c.shell.Wizard()

	var err error
	switch data {
	case cbWizardStart:
		w.Start()
	case cbWizardBack:
		w.Back()
	case cbWizardNext:
		if !w.Next() {
			if w.Finished() {
				return finishedNotice
			}
			if w.Step() == onboarding.StepConsent {
				return consentNotice
			}
			return gateNotice
		}
	case cbWizardConsent:
		err = w.SetConsent(!w.Draft().GDPRConsent)
	default:
		prefix, index, ok := splitOption(data)
		if !ok {
			return invalidNotice
		}
		err = t.applyWizardOption(w, prefix, index)
	}

	switch {
	case errors.Is(err, onboarding.ErrNotEditable):
		return staleNotice
	case errors.Is(err, onboarding.ErrFinished):
		return finishedNotice
	case err != nil:
		return invalidNotice
	}
	return ""
}

func (t *TelegramBot) applyWizardOption(w *onboarding.Wizard, prefix string, index int) error {
	switch prefix {
	case cbWizardGoal:
		if g, ok := option(models.Goals, index); ok {
			return w.SetGoal(g)
		}
	case cbWizardAct:
		if a, ok := option(models.ActivityLevels, index); ok {
			return w.SetActivityLevel(a)
		}
	case cbWizardDiet:
		if d, ok := option(models.DietaryOptions, index); ok {
			return w.ToggleRestriction(d)
		}
	case cbWizardMot:
		if m, ok := option(models.Motivations, index); ok {
			return w.SetMotivation(m)
		}
	case cbWizardVoice:
		if v, ok := option(models.VoicePreferences, index); ok {
			return w.SetVoicePreference(v)
		}
	}
	return onboarding.ErrInvalidOption
}

// renderWizard edits the wizard message in place, or sends a new one when messageID is 0.
func (t *TelegramBot) renderWizard(c *chat, messageID int) {
	w := c.shell.Wizard()
	text := app.StepText(w)
	kb := wizardKeyboard(w)

	var msg tgbotapi.Chattable
	switch {
	case messageID == 0:
		m := tgbotapi.NewMessage(c.id, text)
		if kb != nil {
			m.ReplyMarkup = *kb
		}
		msg = m
	case kb == nil:
		msg = tgbotapi.NewEditMessageText(c.id, messageID, text)
	default:
		msg = tgbotapi.NewEditMessageTextAndMarkup(c.id, messageID, text, *kb)
	}

	if _, err := t.api.Send(msg); err != nil {
		// Telegram rejects edits that change nothing.
		t.logger.Debugw("Failed to render wizard", "chat_id", c.id, "step", w.Step(), "error", err)
	}
}

func (t *TelegramBot) handleWizardText(c *chat, text string) {
	w := c.shell.Wizard()
	text = strings.TrimSpace(text)

	switch w.Step() {
	case onboarding.StepBasicInfo:
		age, weight, height, err := parseBasicInfo(text)
		if err != nil {
			t.sendText(c.id, basicInfoHint)
			return
		}
		if !models.InRange(age, models.MinAge, models.MaxAge) ||
			!models.InRange(weight, models.MinWeight, models.MaxWeight) ||
			!models.InRange(height, models.MinHeight, models.MaxHeight) {
			t.sendText(c.id, basicRangeText)
			return
		}
		if err := errors.Join(w.SetAge(age), w.SetWeight(weight), w.SetHeight(height)); err != nil {
			t.logger.Warnw("Failed to update basic info", "chat_id", c.id, "error", err)
			t.sendText(c.id, staleNotice)
			return
		}
		t.renderWizard(c, 0)

	case onboarding.StepRestrictions:
		if err := w.AddRestriction(text); err != nil {
			t.sendText(c.id, invalidNotice)
			return
		}
		t.renderWizard(c, 0)

	default:
		t.sendText(c.id, useButtonsText)
	}
}

// handleAppAction runs a main-app button or command. The returned text is a
// short notice for the callback answer.
func (t *TelegramBot) handleAppAction(ctx context.Context, c *chat, action string) string {
	switch action {
	case cbDashboard:
		p, _ := c.shell.Profile()
		_ = c.shell.SetView(app.ViewDashboard)
		t.sendMain(c.id, app.DashboardText(p))

	case cbProfile:
		p, _ := c.shell.Profile()
		_ = c.shell.SetView(app.ViewProfile)
		t.sendMain(c.id, app.ProfileText(p))

	case cbAssistant:
		existed := c.shell.Session() != nil
		t.openSession(ctx, c, assistant.ModePlain)
		if existed {
			t.sendText(c.id, assistantText)
		}

	case cbVoice:
		t.openSession(ctx, c, assistant.ModeVoice)

	case cbPhoto:
		t.openSession(ctx, c, assistant.ModePhoto)

	case cbRecordStop:
		sess := c.shell.Session()
		if sess == nil {
			return noRecordNotice
		}
		c.mic.flush()
		if err := sess.StopRecording(); err != nil {
			return noRecordNotice
		}
		if _, ok := sess.Attachment(); ok {
			t.sendWithKeyboard(c.id, audioStagedText, attachmentKeyboard())
		} else {
			t.sendText(c.id, noAudioText)
		}

	case cbPickerCancel:
		c.picker.close()
		if sess := c.shell.Session(); sess != nil {
			sess.PhotoCancelled()
		}
		t.sendText(c.id, photoCancelText)

	case cbAttachCancel:
		c.picker.close()
		if sess := c.shell.Session(); sess != nil {
			sess.CancelAttachment()
		}
		t.sendText(c.id, removedText)

	case cbAttachSend:
		if sess := c.shell.Session(); sess != nil {
			t.sendToAssistant(ctx, c, sess.Send)
		}

	default:
		return invalidNotice
	}
	return ""
}

// openSession shows the assistant with the given intent. The greeting is sent
// when the session is created, before any capture prompt.
func (t *TelegramBot) openSession(ctx context.Context, c *chat, mode assistant.Mode) *assistant.Session {
	created := c.shell.Session() == nil
	if created {
		p, _ := c.shell.Profile()
		t.sendText(c.id, assistant.Greeting(p))
	}

	sess, err := c.shell.OpenAssistant(ctx, mode)
	if sess == nil {
		return nil
	}
	if err != nil {
		t.logger.Warnw("Assistant opened with errors", "chat_id", c.id, "mode", mode, "error", err)
		if created && !sess.Ready() {
			t.sendText(c.id, unavailableText)
		}
	}
	return sess
}

func (t *TelegramBot) handleChatText(ctx context.Context, c *chat, text string) {
	sess := t.openSession(ctx, c, assistant.ModePlain)
	if sess == nil {
		return
	}
	if sess.Recording() {
		t.sendText(c.id, recordingHint)
		return
	}
	t.sendToAssistant(ctx, c, func(ctx context.Context) (models.Message, error) {
		return sess.SendText(ctx, text)
	})
}

// handleVoice adds the note to a running recording, or sends it as a
// complete voice message otherwise.
func (t *TelegramBot) handleVoice(ctx context.Context, c *chat, messageID int, fileID, mimeType string) {
	sess := t.openSession(ctx, c, assistant.ModePlain)
	if sess == nil {
		return
	}
	if mimeType == "" {
		mimeType = voiceMimeType
	}

	gen, recording := c.mic.track()
	data, err := t.download(ctx, fileID)
	if recording {
		c.mic.add(gen, messageID, data, mimeType)
	}
	if err != nil {
		t.logger.Errorw("Failed to download voice note", "chat_id", c.id, "error", err)
		t.sendText(c.id, downloadFailText)
		return
	}
	if recording {
		t.sendWithKeyboard(c.id, noteAddedText, recordingKeyboard())
		return
	}

	if _, staged := sess.Attachment(); staged {
		t.sendWithKeyboard(c.id, attachmentPendingText, attachmentKeyboard())
		return
	}

	c.mic.skipPrompt(true)
	err = sess.StartRecording(ctx)
	c.mic.skipPrompt(false)
	if err != nil {
		return
	}
	if gen, ok := c.mic.track(); ok {
		c.mic.add(gen, messageID, data, mimeType)
	}
	c.mic.flush()
	if err := sess.StopRecording(); err != nil {
		t.logger.Warnw("Failed to finish voice note", "chat_id", c.id, "error", err)
		return
	}
	t.sendToAssistant(ctx, c, sess.Send)
}

func (t *TelegramBot) handlePhoto(ctx context.Context, c *chat, fileID, mimeType, caption string) {
	sess := t.openSession(ctx, c, assistant.ModePlain)
	if sess == nil {
		return
	}
	if sess.Recording() {
		t.sendText(c.id, recordingHint)
		return
	}

	data, err := t.download(ctx, fileID)
	if err != nil {
		t.logger.Errorw("Failed to download photo", "chat_id", c.id, "error", err)
		if c.picker.close() {
			sess.PhotoCancelled()
		}
		t.sendText(c.id, downloadFailText)
		return
	}

	c.picker.close()
	if err := sess.PhotoSelected(data, mimeType); err != nil {
		t.sendText(c.id, recordingHint)
		return
	}

	if strings.TrimSpace(caption) != "" {
		t.sendToAssistant(ctx, c, func(ctx context.Context) (models.Message, error) {
			return sess.SendText(ctx, caption)
		})
		return
	}
	t.sendWithKeyboard(c.id, photoStagedText, attachmentKeyboard())
}

// sendToAssistant runs one send and reports its outcome in the chat.
func (t *TelegramBot) sendToAssistant(ctx context.Context, c *chat, send func(context.Context) (models.Message, error)) {
	stop := t.keepTyping(ctx, c.id)
	reply, err := send(ctx)
	stop()

	switch {
	case errors.Is(err, assistant.ErrBusy):
		t.sendText(c.id, busyText)
	case errors.Is(err, assistant.ErrNothingToSend):
		t.sendText(c.id, nothingText)
	case errors.Is(err, assistant.ErrNotInitialized):
		t.sendText(c.id, unavailableText)
	case err != nil:
		t.logger.Errorw("Unexpected send error", "chat_id", c.id, "error", err)
	default:
		t.sendText(c.id, reply.Text)
	}
}

package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nutri-bot/internal/models"
	"nutri-bot/internal/onboarding"
)

// Callback data. Option callbacks carry the option index, never the label,
// to stay within Telegram's 64-byte limit.
const (
	cbWizardStart   = "wiz:start"
	cbWizardNext    = "wiz:next"
	cbWizardBack    = "wiz:back"
	cbWizardConsent = "wiz:consent"
	cbWizardGoal    = "wiz:goal:"
	cbWizardAct     = "wiz:act:"
	cbWizardDiet    = "wiz:diet:"
	cbWizardMot     = "wiz:mot:"
	cbWizardVoice   = "wiz:voice:"

	cbDashboard = "app:dashboard"
	cbAssistant = "app:assistant"
	cbProfile   = "app:profile"
	cbVoice     = "app:voice"
	cbPhoto     = "app:photo"

	cbRecordStop   = "rec:stop"
	cbPickerCancel = "pick:cancel"
	cbAttachCancel = "att:cancel"
	cbAttachSend   = "att:send"
)

// splitOption splits "wiz:goal:2" into ("wiz:goal:", 2).
func splitOption(data string) (prefix string, index int, ok bool) {
	i := strings.LastIndexByte(data, ':')
	if i < 0 || i == len(data)-1 {
		return data, 0, false
	}
	n, err := strconv.Atoi(data[i+1:])
	if err != nil || n < 0 {
		return data, 0, false
	}
	return data[:i+1], n, true
}

func option[T any](options []T, index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(options) {
		return zero, false
	}
	return options[index], true
}

func mark(selected bool, label string) string {
	if selected {
		return "✅ " + label
	}
	return label
}

func choiceRows[T ~string](prefix string, options []T, current T) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for i, o := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(o == current, string(o)), prefix+strconv.Itoa(i)),
		))
	}
	return rows
}

func navRow(w *onboarding.Wizard, nextLabel string) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	if w.CanGoBack() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Voltar", cbWizardBack))
	}
	return append(row, tgbotapi.NewInlineKeyboardButtonData(nextLabel+" ➡️", cbWizardNext))
}

// wizardKeyboard renders the controls of the current step. Finishing has none.
func wizardKeyboard(w *onboarding.Wizard) *tgbotapi.InlineKeyboardMarkup {
	step := w.Step()
	draft := w.Draft()

	var rows [][]tgbotapi.InlineKeyboardButton
	switch step {
	case onboarding.StepWelcome:
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Começar", cbWizardStart),
		))
		return &kb
	case onboarding.StepFinishing:
		return nil
	case onboarding.StepGoal:
		rows = choiceRows(cbWizardGoal, models.Goals, draft.Goal)
	case onboarding.StepActivity:
		rows = choiceRows(cbWizardAct, models.ActivityLevels, draft.ActivityLevel)
	case onboarding.StepRestrictions:
		for i, o := range models.DietaryOptions {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(mark(draft.HasRestriction(o), o), cbWizardDiet+strconv.Itoa(i)),
			))
		}
	case onboarding.StepMotivation:
		rows = choiceRows(cbWizardMot, models.Motivations, draft.Motivation)
	case onboarding.StepConsent:
		consent := "⬜ Aceito"
		if draft.GDPRConsent {
			consent = "☑️ Aceito"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(consent, cbWizardConsent),
		))
		rows = append(rows, choiceRows(cbWizardVoice, models.VoicePreferences, draft.VoicePreference)...)
	}

	label := "Continuar"
	if step == onboarding.StepSummary {
		label = "Concluir"
	}
	rows = append(rows, navRow(w, label))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func mainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎤 Voz", cbVoice),
			tgbotapi.NewInlineKeyboardButtonData("📷 Foto", cbPhoto),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Painel", cbDashboard),
			tgbotapi.NewInlineKeyboardButtonData("💬 Assistente", cbAssistant),
			tgbotapi.NewInlineKeyboardButtonData("👤 Perfil", cbProfile),
		),
	)
}

func recordingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏹ Parar", cbRecordStop),
		tgbotapi.NewInlineKeyboardButtonData("✖ Cancelar", cbAttachCancel),
	))
}

func pickerKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖ Cancelar", cbPickerCancel),
	))
}

func attachmentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📤 Enviar", cbAttachSend),
		tgbotapi.NewInlineKeyboardButtonData("✖ Remover", cbAttachCancel),
	))
}

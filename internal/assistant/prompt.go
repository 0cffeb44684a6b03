package assistant

import (
	"fmt"
	"strings"

	"nutri-bot/internal/models"
)

// User-facing strings. The product speaks European Portuguese.
const (
	PhotoPlaceholder = "📷 [Foto]"
	AudioPlaceholder = "🎤 [Áudio]"

	ImagePrompt = "Analisa esta refeição, estima as calorias e regista-a no meu diário."
	AudioPrompt = "Ouve este registo e adiciona ao meu diário."

	EmptyReplyText = "Recebido!"
	SendErrorText  = "Ocorreu um erro. Tenta novamente."

	MicrophoneErrorText = "Não foi possível aceder ao microfone."
	PickerErrorText     = "Não foi possível abrir a galeria."
)

// SystemContext builds the instruction that seeds the conversation.
func SystemContext(p models.Profile) string {
	return fmt.Sprintf(`És um nutricionista e personal trainer experiente.
O teu cliente tem o seguinte perfil:
- Idade: %d anos
- Peso: %d kg
- Objetivo: %s
- Restrições: %s

Responde sempre em Português de Portugal.

CAPACIDADES ESPECIAIS:
1. ANÁLISE DE IMAGEM: Se o utilizador enviar uma foto de comida, identifica os alimentos, estima calorias e macronutrientes (proteína, carbs, gordura) aproximados. Dá um feedback construtivo.
2. ANÁLISE DE ÁUDIO: Se o utilizador enviar um áudio, transcreve mentalmente o que foi dito e processa o pedido (ex: registar refeição).

Sê conciso. Usa emojis.`, p.Age, p.Weight, p.Goal, p.RestrictionsLabel())
}

// Greeting is the assistant message every transcript starts with.
func Greeting(p models.Profile) string {
	return fmt.Sprintf("Olá! Sou o teu assistente NutriAI. Vejo que o teu objetivo é **%s**. "+
		"Podes enviar fotos das tuas refeições ou usar a voz para registar alimentos!",
		strings.ToLower(string(p.Goal)))
}

func placeholder(kind AttachmentKind) string {
	if kind == KindImage {
		return PhotoPlaceholder
	}
	return AudioPlaceholder
}

func defaultPrompt(kind AttachmentKind) string {
	if kind == KindImage {
		return ImagePrompt
	}
	return AudioPrompt
}

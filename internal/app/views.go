package app

import (
	"fmt"
	"strings"

	"nutri-bot/internal/models"
	"nutri-bot/internal/onboarding"
)

const (
	WelcomeTitle = "Bem-vindo(a) ao NutriAI"
	WelcomeText  = "A sua jornada para uma vida mais saudável começa agora, com a ajuda da inteligência artificial."

	ConsentText = "Aceito o tratamento dos meus dados de saúde (voz, fotos, hábitos) para receber " +
		"recomendações personalizadas, conforme o RGPD."

	FinishingTitle = "Configuração concluída!"
	FinishingText  = "As suas recomendações personalizadas já estão prontas. Vamos começar a sua jornada!"
)

var stepQuestions = map[onboarding.Step]string{
	onboarding.StepBasicInfo:    "Vamos começar com alguns dados básicos para personalizar a sua experiência.",
	onboarding.StepGoal:         "Qual é o seu principal objetivo neste momento?",
	onboarding.StepActivity:     "Como descreveria o seu nível de atividade física semanal?",
	onboarding.StepRestrictions: "Tem alguma restrição ou preferência alimentar? Selecione todas as que se aplicam.",
	onboarding.StepMotivation:   "O que mais o/a motiva a focar-se na sua saúde e bem-estar?",
	onboarding.StepConsent:      "Para uma experiência personalizada, precisamos do seu consentimento.",
	onboarding.StepSummary:      "Confirme se as suas informações estão corretas. Estamos quase a terminar!",
}

// StepText renders the heading, progress and question of the current wizard step.
func StepText(w *onboarding.Wizard) string {
	step := w.Step()
	switch step {
	case onboarding.StepWelcome:
		return WelcomeTitle + "\n\n" + WelcomeText
	case onboarding.StepFinishing:
		return "✅ " + FinishingTitle + "\n\n" + FinishingText
	}

	cur, total := w.Progress()
	draft := w.Draft()

	var b strings.Builder
	fmt.Fprintf(&b, "Passo %d de %d · %s\n\n", cur, total, step.Title())
	b.WriteString(stepQuestions[step])

	switch step {
	case onboarding.StepBasicInfo:
		fmt.Fprintf(&b, "\n\nIdade: %d anos\nPeso: %d kg\nAltura: %d cm", draft.Age, draft.Weight, draft.Height)
		fmt.Fprintf(&b, "\n\nEnvie \"idade peso altura\" para alterar (ex: 30 70 175).")
	case onboarding.StepRestrictions:
		fmt.Fprintf(&b, "\n\nSelecionadas: %s\nPode também escrever outra restrição.", draft.RestrictionsLabel())
	case onboarding.StepConsent:
		b.WriteString("\n\n" + ConsentText)
		b.WriteString("\n\nQual a sua preferência para a voz do assistente IA?")
	case onboarding.StepSummary:
		b.WriteString("\n\n" + SummaryText(draft))
	}
	return b.String()
}

func SummaryText(p models.Profile) string {
	return fmt.Sprintf("Objetivo: %s\nNível de Atividade: %s\nDados: %d anos, %d kg, %d cm\nRestrições: %s\nMotivação: %s\nVoz do Assistente: %s",
		p.Goal, p.ActivityLevel, p.Age, p.Weight, p.Height, p.RestrictionsLabel(), p.Motivation, p.VoicePreference)
}

// Dashboard figures are fixed placeholders until nutrition tracking exists.
const (
	dashboardConsumed = 1250
	dashboardTarget   = 2000
	dashboardPercent  = 62
)

func DashboardText(p models.Profile) string {
	var b strings.Builder
	b.WriteString("📊 Resumo Diário\n")
	b.WriteString("Olá! Veja como está o seu progresso hoje.\n\n")
	fmt.Fprintf(&b, "Calorias Consumidas: %d / %d kcal (%d%%)\n", dashboardConsumed, dashboardTarget, dashboardPercent)
	b.WriteString("Proteína 80g · Carbs 110g · Gordura 45g\n\n")
	fmt.Fprintf(&b, "🎯 Objetivo: %s\n\n", p.Goal)
	b.WriteString("🥗 Recomendação do Dia: Salada de Quinoa e Abacate\n")
	b.WriteString("Uma ótima opção para o almoço, rica em fibras e gorduras saudáveis.\n\n")
	b.WriteString("💧 Dica Rápida: Não se esqueça de beber pelo menos 2L de água hoje para se manter hidratado(a)!\n\n")
	b.WriteString("Registar Refeição: adicione a sua última refeição de forma rápida.")
	return b.String()
}

func ProfileText(p models.Profile) string {
	return fmt.Sprintf("👤 Utilizador NutriAI\n\nO Meu Plano\nObjetivo: %s\nNível de Atividade: %s\nPeso: %d kg\nAltura: %d cm\nRestrições: %s",
		p.Goal, p.ActivityLevel, p.Weight, p.Height, p.RestrictionsLabel())
}

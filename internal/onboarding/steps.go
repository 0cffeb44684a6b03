package onboarding

import "nutri-bot/internal/models"

type Step int

const (
	StepWelcome Step = iota
	StepBasicInfo
	StepGoal
	StepActivity
	StepRestrictions
	StepMotivation
	StepConsent
	StepSummary
	StepFinishing
)

// TotalSteps is the number of data steps between Welcome and Finishing.
const TotalSteps = 7

type gate func(p *models.Profile) bool

type transition struct {
	title string
	next  Step
	prev  Step
	gate  gate
}

// transitions is the whole navigation graph. prev == the step itself means
// going back is not offered; a nil gate means the step never blocks.
var transitions = map[Step]transition{
	StepWelcome: {
		next: StepBasicInfo,
		prev: StepWelcome,
	},
	StepBasicInfo: {
		title: "Sobre si",
		next:  StepGoal,
		prev:  StepBasicInfo,
	},
	StepGoal: {
		title: "O seu objetivo",
		next:  StepActivity,
		prev:  StepBasicInfo,
		gate:  func(p *models.Profile) bool { return p.Goal != "" },
	},
	StepActivity: {
		title: "Nível de atividade",
		next:  StepRestrictions,
		prev:  StepGoal,
		gate:  func(p *models.Profile) bool { return p.ActivityLevel != "" },
	},
	StepRestrictions: {
		title: "Preferências alimentares",
		next:  StepMotivation,
		prev:  StepActivity,
	},
	StepMotivation: {
		title: "A sua motivação",
		next:  StepConsent,
		prev:  StepRestrictions,
		gate:  func(p *models.Profile) bool { return p.Motivation != "" },
	},
	StepConsent: {
		title: "Privacidade e preferências",
		next:  StepSummary,
		prev:  StepMotivation,
		gate:  func(p *models.Profile) bool { return p.GDPRConsent && p.VoicePreference != "" },
	},
	StepSummary: {
		title: "Resumo e confirmação",
		next:  StepFinishing,
		prev:  StepConsent,
	},
	StepFinishing: {
		next: StepFinishing,
		prev: StepFinishing,
	},
}

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepBasicInfo:
		return "basic_info"
	case StepGoal:
		return "goal"
	case StepActivity:
		return "activity"
	case StepRestrictions:
		return "restrictions"
	case StepMotivation:
		return "motivation"
	case StepConsent:
		return "consent"
	case StepSummary:
		return "summary"
	case StepFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Title is the heading shown for data steps; empty for Welcome and Finishing.
func (s Step) Title() string {
	return transitions[s].title
}

// IsDataStep reports whether s is one of the numbered collection steps.
func (s Step) IsDataStep() bool {
	return s >= StepBasicInfo && s <= StepSummary
}

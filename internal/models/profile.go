// internal/models/profile.go
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Goal string

const (
	GoalLoseWeight Goal = "Perder peso"
	GoalMaintain   Goal = "Manter"
	GoalGainMuscle Goal = "Ganhar massa"
)

var Goals = []Goal{GoalLoseWeight, GoalMaintain, GoalGainMuscle}

type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "Sedentário"
	ActivityModerate  ActivityLevel = "Moderado"
	ActivityIntense   ActivityLevel = "Intenso"
)

var ActivityLevels = []ActivityLevel{ActivitySedentary, ActivityModerate, ActivityIntense}

type Motivation string

const (
	MotivationHealth     Motivation = "Saúde"
	MotivationAesthetics Motivation = "Estética"
	MotivationEnergy     Motivation = "Energia"
	MotivationWellbeing  Motivation = "Bem-estar"
)

var Motivations = []Motivation{MotivationHealth, MotivationAesthetics, MotivationEnergy, MotivationWellbeing}

type VoicePreference string

const (
	VoiceFeminine  VoicePreference = "Feminina"
	VoiceMasculine VoicePreference = "Masculina"
	VoiceNeutral   VoicePreference = "Neutra"
)

var VoicePreferences = []VoicePreference{VoiceFeminine, VoiceMasculine, VoiceNeutral}

// DietaryOptions are the restrictions offered as chips. Any other label is accepted too.
var DietaryOptions = []string{"Vegetariano", "Vegan", "Sem glúten", "Sem lactose", "Alergia a nozes"}

// Bounds of the numeric profile fields.
const (
	MinAge    = 18
	MaxAge    = 99
	MinWeight = 40
	MaxWeight = 200
	MinHeight = 140
	MaxHeight = 220
)

var ErrProfileIncomplete = errors.New("profile incomplete")

type Profile struct {
	Age                     int             `json:"age"`
	Gender                  string          `json:"gender"`
	Weight                  int             `json:"weight"`
	Height                  int             `json:"height"`
	Goal                    Goal            `json:"goal,omitempty"`
	ActivityLevel           ActivityLevel   `json:"activity_level,omitempty"`
	DietaryRestrictions     []string        `json:"dietary_restrictions"`
	Motivation              Motivation      `json:"motivation,omitempty"`
	HealthyEatingPerception int             `json:"healthy_eating_perception"`
	StressLevel             int             `json:"stress_level"`
	GDPRConsent             bool            `json:"gdpr_consent"`
	VoicePreference         VoicePreference `json:"voice_preference,omitempty"`
}

// DefaultProfile is the draft a fresh wizard starts from.
func DefaultProfile() Profile {
	return Profile{
		Age:                     30,
		Gender:                  "Prefiro não dizer",
		Weight:                  70,
		Height:                  175,
		DietaryRestrictions:     []string{},
		HealthyEatingPerception: 3,
		StressLevel:             3,
	}
}

// Clone returns a deep copy that shares no memory with p.
func (p Profile) Clone() Profile {
	p.DietaryRestrictions = append([]string{}, p.DietaryRestrictions...)
	return p
}

// Complete reports the first field that still blocks a finished profile.
func (p Profile) Complete() error {
	switch {
	case p.Goal == "":
		return fmt.Errorf("%w: goal not set", ErrProfileIncomplete)
	case p.ActivityLevel == "":
		return fmt.Errorf("%w: activity level not set", ErrProfileIncomplete)
	case p.Motivation == "":
		return fmt.Errorf("%w: motivation not set", ErrProfileIncomplete)
	case p.VoicePreference == "":
		return fmt.Errorf("%w: voice preference not set", ErrProfileIncomplete)
	case !p.GDPRConsent:
		return fmt.Errorf("%w: consent not given", ErrProfileIncomplete)
	}
	return nil
}

func (p Profile) HasRestriction(label string) bool {
	return slices.Contains(p.DietaryRestrictions, label)
}

// RestrictionsLabel joins the restrictions for display, "Nenhuma" when there are none.
func (p Profile) RestrictionsLabel() string {
	if len(p.DietaryRestrictions) == 0 {
		return "Nenhuma"
	}
	return strings.Join(p.DietaryRestrictions, ", ")
}

func InRange(value, lo, hi int) bool {
	return value >= lo && value <= hi
}

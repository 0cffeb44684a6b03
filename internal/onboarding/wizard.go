// Package onboarding implements the linear profile wizard: a welcome screen,
// seven data steps and a finishing step that hands the profile to its owner.
package onboarding

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"nutri-bot/internal/models"
)

// DefaultFinalizeDelay is how long the finishing screen stays up before the
// profile is emitted.
const DefaultFinalizeDelay = 2 * time.Second

var (
	ErrNotEditable   = errors.New("onboarding: field is not editable on the current step")
	ErrOutOfRange    = errors.New("onboarding: value out of range")
	ErrInvalidOption = errors.New("onboarding: invalid option")
	ErrFinished      = errors.New("onboarding: wizard already finished")
)

// CompletionFunc receives the finalized profile. It is called at most once per wizard.
type CompletionFunc func(models.Profile)

type Option func(*Wizard)

func WithFinalizeDelay(d time.Duration) Option {
	return func(w *Wizard) {
		if d >= 0 {
			w.finalizeDelay = d
		}
	}
}

type Wizard struct {
	mu            sync.Mutex
	step          Step
	draft         models.Profile
	finalizeDelay time.Duration
	onComplete    CompletionFunc
	dispatched    bool
}

func New(onComplete CompletionFunc, opts ...Option) *Wizard {
	w := &Wizard{
		step:          StepWelcome,
		draft:         models.DefaultProfile(),
		finalizeDelay: DefaultFinalizeDelay,
		onComplete:    onComplete,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the profile being edited.
func (w *Wizard) Draft() models.Profile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Clone()
}

// Progress returns the current data step and the total, for progress bars.
func (w *Wizard) Progress() (current, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return min(int(w.step), TotalSteps), TotalSteps
}

// Finished reports whether the wizard reached the finishing step.
func (w *Wizard) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step == StepFinishing
}

func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canAdvance()
}

func (w *Wizard) canAdvance() bool {
	if w.step == StepFinishing {
		return false
	}
	t := transitions[w.step]
	return t.gate == nil || t.gate(&w.draft)
}

func (w *Wizard) CanGoBack() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return transitions[w.step].prev != w.step
}

// Start leaves the welcome screen. It is a no-op anywhere else.
func (w *Wizard) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepWelcome {
		return false
	}
	w.step = transitions[StepWelcome].next
	return true
}

// Next moves one step forward when the current step's gate passes.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.canAdvance() {
		return false
	}
	w.step = transitions[w.step].next
	if w.step == StepFinishing {
		w.enterFinishing()
	}
	return true
}

// Back moves one step backwards. Field values are kept.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := transitions[w.step].prev
	if prev == w.step {
		return false
	}
	w.step = prev
	return true
}

// enterFinishing freezes the draft and schedules the single completion.
// Callers hold w.mu.
func (w *Wizard) enterFinishing() {
	if w.dispatched {
		return
	}
	w.dispatched = true

	snapshot := w.draft.Clone()
	if w.onComplete == nil {
		return
	}
	emit := w.onComplete
	time.AfterFunc(w.finalizeDelay, func() { emit(snapshot) })
}

func (w *Wizard) SetAge(age int) error {
	return w.edit(StepBasicInfo, func(p *models.Profile) error {
		if !models.InRange(age, models.MinAge, models.MaxAge) {
			return ErrOutOfRange
		}
		p.Age = age
		return nil
	})
}

func (w *Wizard) SetWeight(weight int) error {
	return w.edit(StepBasicInfo, func(p *models.Profile) error {
		if !models.InRange(weight, models.MinWeight, models.MaxWeight) {
			return ErrOutOfRange
		}
		p.Weight = weight
		return nil
	})
}

func (w *Wizard) SetHeight(height int) error {
	return w.edit(StepBasicInfo, func(p *models.Profile) error {
		if !models.InRange(height, models.MinHeight, models.MaxHeight) {
			return ErrOutOfRange
		}
		p.Height = height
		return nil
	})
}

func (w *Wizard) SetGoal(goal models.Goal) error {
	return w.edit(StepGoal, func(p *models.Profile) error {
		if !slices.Contains(models.Goals, goal) {
			return ErrInvalidOption
		}
		p.Goal = goal
		return nil
	})
}

func (w *Wizard) SetActivityLevel(level models.ActivityLevel) error {
	return w.edit(StepActivity, func(p *models.Profile) error {
		if !slices.Contains(models.ActivityLevels, level) {
			return ErrInvalidOption
		}
		p.ActivityLevel = level
		return nil
	})
}

// ToggleRestriction adds the label when absent and removes it when present.
func (w *Wizard) ToggleRestriction(label string) error {
	label = strings.TrimSpace(label)
	return w.edit(StepRestrictions, func(p *models.Profile) error {
		if label == "" {
			return ErrInvalidOption
		}
		if i := slices.Index(p.DietaryRestrictions, label); i >= 0 {
			p.DietaryRestrictions = slices.Delete(p.DietaryRestrictions, i, i+1)
			return nil
		}
		p.DietaryRestrictions = append(p.DietaryRestrictions, label)
		return nil
	})
}

// AddRestriction adds a free-text label; duplicates are ignored.
func (w *Wizard) AddRestriction(label string) error {
	label = strings.TrimSpace(label)
	return w.edit(StepRestrictions, func(p *models.Profile) error {
		if label == "" {
			return ErrInvalidOption
		}
		if !slices.Contains(p.DietaryRestrictions, label) {
			p.DietaryRestrictions = append(p.DietaryRestrictions, label)
		}
		return nil
	})
}

func (w *Wizard) SetMotivation(m models.Motivation) error {
	return w.edit(StepMotivation, func(p *models.Profile) error {
		if !slices.Contains(models.Motivations, m) {
			return ErrInvalidOption
		}
		p.Motivation = m
		return nil
	})
}

func (w *Wizard) SetConsent(consent bool) error {
	return w.edit(StepConsent, func(p *models.Profile) error {
		p.GDPRConsent = consent
		return nil
	})
}

func (w *Wizard) SetVoicePreference(v models.VoicePreference) error {
	return w.edit(StepConsent, func(p *models.Profile) error {
		if !slices.Contains(models.VoicePreferences, v) {
			return ErrInvalidOption
		}
		p.VoicePreference = v
		return nil
	})
}

// edit applies fn to the draft if owner is the current step.
func (w *Wizard) edit(owner Step, fn func(p *models.Profile) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepFinishing {
		return ErrFinished
	}
	if w.step != owner {
		return ErrNotEditable
	}
	return fn(&w.draft)
}

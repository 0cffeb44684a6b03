// Package app is the per-user composition root: it runs the onboarding wizard,
// switches permanently to the main app once the profile is emitted and owns
// the assistant session.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"nutri-bot/internal/assistant"
	"nutri-bot/internal/gpt"
	"nutri-bot/internal/models"
	"nutri-bot/internal/onboarding"
	"nutri-bot/pkg/logger"
)

type Screen int

const (
	ScreenOnboarding Screen = iota
	ScreenMain
)

func (s Screen) String() string {
	if s == ScreenMain {
		return "main"
	}
	return "onboarding"
}

// View is a tab of the main app.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewAssistant View = "assistant"
	ViewProfile   View = "profile"
)

var ErrOnboardingPending = errors.New("app: onboarding not finished")

// Capture bundles the host's media collaborators handed to every session.
type Capture struct {
	Picker     assistant.Picker
	Microphone assistant.Microphone
	Notifier   assistant.Notifier
}

type Options struct {
	Provider gpt.Provider
	Capture  Capture
	// FinalizeDelay overrides the wizard's finishing delay when positive.
	FinalizeDelay time.Duration
	// OnReady is called once, after the switch to the main app.
	OnReady func(models.Profile)
	Logger  *logger.Logger
}

type Shell struct {
	opts   Options
	log    *logger.Logger
	wizard *onboarding.Wizard

	mu          sync.Mutex
	screen      Screen
	view        View
	profile     models.Profile
	pendingMode assistant.Mode
	session     *assistant.Session
}

func NewShell(opts Options) *Shell {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	s := &Shell{
		opts:        opts,
		log:         log,
		screen:      ScreenOnboarding,
		view:        ViewDashboard,
		pendingMode: assistant.ModePlain,
	}

	var wopts []onboarding.Option
	if opts.FinalizeDelay > 0 {
		wopts = append(wopts, onboarding.WithFinalizeDelay(opts.FinalizeDelay))
	}
	s.wizard = onboarding.New(s.complete, wopts...)
	return s
}

func (s *Shell) complete(p models.Profile) {
	s.mu.Lock()
	if s.screen == ScreenMain {
		s.mu.Unlock()
		return
	}
	s.profile = p
	s.screen = ScreenMain
	s.view = ViewDashboard
	onReady := s.opts.OnReady
	s.mu.Unlock()

	s.log.Infow("Onboarding complete", "goal", p.Goal, "activity", p.ActivityLevel)
	if onReady != nil {
		onReady(p.Clone())
	}
}

func (s *Shell) Wizard() *onboarding.Wizard {
	return s.wizard
}

func (s *Shell) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetView switches the main-app tab.
func (s *Shell) SetView(v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenMain {
		return ErrOnboardingPending
	}
	s.view = v
	return nil
}

// Profile returns the frozen profile once onboarding is over.
func (s *Shell) Profile() (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenMain {
		return models.Profile{}, false
	}
	return s.profile.Clone(), true
}

// PendingMode is the capture intent not yet acknowledged by the session.
func (s *Shell) PendingMode() assistant.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingMode
}

// Session returns the current assistant session, or nil before the assistant is first opened.
func (s *Shell) Session() *assistant.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// OpenAssistant shows the assistant tab with the given capture intent. The
// session is created on first use and initialized at most once; the intent is
// activated even when initialization failed, since capture does not need the
// conversation handle.
func (s *Shell) OpenAssistant(ctx context.Context, mode assistant.Mode) (*assistant.Session, error) {
	if mode == "" {
		mode = assistant.ModePlain
	}

	s.mu.Lock()
	if s.screen != ScreenMain {
		s.mu.Unlock()
		return nil, ErrOnboardingPending
	}
	s.view = ViewAssistant
	if mode != assistant.ModePlain {
		s.pendingMode = mode
	}
	sess := s.session
	created := sess == nil
	if created {
		sess = assistant.NewSession(assistant.Config{
			Profile:     s.profile,
			Provider:    s.opts.Provider,
			Picker:      s.opts.Capture.Picker,
			Microphone:  s.opts.Capture.Microphone,
			Notifier:    s.opts.Capture.Notifier,
			InitialMode: mode,
			OnModeReset: s.resetMode,
			Logger:      s.log.Named("assistant"),
		})
		s.session = sess
	}
	s.mu.Unlock()

	if !created {
		sess.Request(mode)
	}

	initErr := sess.Init(ctx)
	return sess, errors.Join(initErr, sess.Activate(ctx))
}

// ResetSession drops the current session, releasing any capture it holds. The
// next OpenAssistant starts a fresh conversation.
func (s *Shell) ResetSession() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess != nil {
		sess.CancelAttachment()
	}
	s.resetMode()
}

func (s *Shell) resetMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingMode = assistant.ModePlain
}

package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nutri-bot/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// walkTo drives a fresh wizard to the requested step, filling every gate on the way.
func walkTo(t *testing.T, w *Wizard, target Step) {
	t.Helper()
	if w.Step() == StepWelcome && target > StepWelcome {
		require.True(t, w.Start())
	}
	for w.Step() < target {
		switch w.Step() {
		case StepGoal:
			require.NoError(t, w.SetGoal(models.GoalLoseWeight))
		case StepActivity:
			require.NoError(t, w.SetActivityLevel(models.ActivityModerate))
		case StepMotivation:
			require.NoError(t, w.SetMotivation(models.MotivationHealth))
		case StepConsent:
			require.NoError(t, w.SetConsent(true))
			require.NoError(t, w.SetVoicePreference(models.VoiceNeutral))
		}
		require.True(t, w.Next(), "advance from %s", w.Step())
	}
	require.Equal(t, target, w.Step())
}

func TestWizard_StartsAtWelcome(t *testing.T) {
	w := New(nil)
	assert.Equal(t, StepWelcome, w.Step())
	assert.False(t, w.CanGoBack())

	assert.True(t, w.Start())
	assert.Equal(t, StepBasicInfo, w.Step())
	assert.False(t, w.Start(), "start is only valid on the welcome screen")
}

func TestWizard_BackAtFirstDataStepIsNoop(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepBasicInfo)

	assert.False(t, w.CanGoBack())
	assert.False(t, w.Back())
	assert.Equal(t, StepBasicInfo, w.Step())
}

func TestWizard_BackPreservesValues(t *testing.T) {
	for target := StepGoal; target <= StepSummary; target++ {
		t.Run(target.String(), func(t *testing.T) {
			w := New(nil)
			require.True(t, w.Start())
			require.NoError(t, w.SetAge(42))
			require.NoError(t, w.SetWeight(81))
			walkTo(t, w, target)

			before := w.Draft()
			require.True(t, w.Back())
			assert.Equal(t, target-1, w.Step())
			assert.Equal(t, before, w.Draft())
			assert.Equal(t, 42, w.Draft().Age)

			require.True(t, w.Next(), "gates stay satisfied after going back")
			assert.Equal(t, target, w.Step())
		})
	}
}

func TestWizard_GoalGate(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepGoal)

	assert.False(t, w.CanAdvance())
	assert.False(t, w.Next())
	assert.Equal(t, StepGoal, w.Step())

	require.NoError(t, w.SetGoal(models.GoalGainMuscle))
	assert.True(t, w.Next())
	assert.Equal(t, StepActivity, w.Step())
}

func TestWizard_ActivityAndMotivationGates(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepActivity)
	assert.False(t, w.Next())

	walkTo(t, w, StepMotivation)
	assert.False(t, w.Next())
	assert.Equal(t, StepMotivation, w.Step())
}

func TestWizard_ConsentGateRequiresConsent(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepConsent)

	require.NoError(t, w.SetVoicePreference(models.VoiceFeminine))
	assert.False(t, w.Next(), "voice preference alone must not pass")
	assert.Equal(t, StepConsent, w.Step())

	require.NoError(t, w.SetConsent(true))
	require.NoError(t, w.SetConsent(false))
	assert.False(t, w.Next())

	require.NoError(t, w.SetConsent(true))
	assert.True(t, w.Next())
	assert.Equal(t, StepSummary, w.Step())
}

func TestWizard_ConsentGateRequiresVoice(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepConsent)

	require.NoError(t, w.SetConsent(true))
	assert.False(t, w.Next())
}

func TestWizard_UngatedSteps(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepBasicInfo)
	assert.True(t, w.CanAdvance())

	walkTo(t, w, StepRestrictions)
	assert.True(t, w.CanAdvance(), "restrictions may stay empty")
}

func TestWizard_FieldOwnership(t *testing.T) {
	w := New(nil)
	assert.ErrorIs(t, w.SetAge(40), ErrNotEditable)

	walkTo(t, w, StepBasicInfo)
	assert.ErrorIs(t, w.SetGoal(models.GoalMaintain), ErrNotEditable)
	assert.ErrorIs(t, w.SetConsent(true), ErrNotEditable)
	assert.ErrorIs(t, w.ToggleRestriction("Vegan"), ErrNotEditable)
}

func TestWizard_RangesAndOptions(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepBasicInfo)

	assert.ErrorIs(t, w.SetAge(17), ErrOutOfRange)
	assert.ErrorIs(t, w.SetAge(100), ErrOutOfRange)
	assert.ErrorIs(t, w.SetWeight(39), ErrOutOfRange)
	assert.ErrorIs(t, w.SetHeight(221), ErrOutOfRange)
	require.NoError(t, w.SetAge(18))
	require.NoError(t, w.SetWeight(200))
	require.NoError(t, w.SetHeight(140))

	d := w.Draft()
	assert.Equal(t, 18, d.Age)
	assert.Equal(t, 200, d.Weight)
	assert.Equal(t, 140, d.Height)

	walkTo(t, w, StepGoal)
	assert.ErrorIs(t, w.SetGoal("Correr maratona"), ErrInvalidOption)
}

func TestWizard_RestrictionsToggleKeepsOrder(t *testing.T) {
	w := New(nil)
	walkTo(t, w, StepRestrictions)

	require.NoError(t, w.ToggleRestriction("Vegan"))
	require.NoError(t, w.ToggleRestriction("Sem glúten"))
	require.NoError(t, w.AddRestriction("Sem açúcar"))
	require.NoError(t, w.AddRestriction("Vegan"))
	assert.Equal(t, []string{"Vegan", "Sem glúten", "Sem açúcar"}, w.Draft().DietaryRestrictions)

	require.NoError(t, w.ToggleRestriction("Vegan"))
	assert.Equal(t, []string{"Sem glúten", "Sem açúcar"}, w.Draft().DietaryRestrictions)

	assert.ErrorIs(t, w.AddRestriction("   "), ErrInvalidOption)
}

func TestWizard_CompletesExactlyOnce(t *testing.T) {
	done := make(chan models.Profile, 4)
	w := New(func(p models.Profile) { done <- p }, WithFinalizeDelay(10*time.Millisecond))

	walkTo(t, w, StepSummary)
	require.True(t, w.Next())
	assert.Equal(t, StepFinishing, w.Step())
	assert.True(t, w.Finished())

	// Finishing is terminal: neither direction re-enters it.
	assert.False(t, w.Next())
	assert.False(t, w.Back())
	assert.ErrorIs(t, w.SetAge(50), ErrFinished)

	var got models.Profile
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion was not emitted")
	}

	require.NoError(t, got.Complete())
	assert.Equal(t, models.GoalLoseWeight, got.Goal)
	assert.Equal(t, models.ActivityModerate, got.ActivityLevel)
	assert.Equal(t, models.MotivationHealth, got.Motivation)
	assert.Equal(t, models.VoiceNeutral, got.VoicePreference)
	assert.True(t, got.GDPRConsent)

	select {
	case <-done:
		t.Fatal("completion emitted twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWizard_CompletionWaitsForDelay(t *testing.T) {
	done := make(chan models.Profile, 1)
	w := New(func(p models.Profile) { done <- p }, WithFinalizeDelay(100*time.Millisecond))
	walkTo(t, w, StepSummary)

	start := time.Now()
	require.True(t, w.Next())
	<-done
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWizard_SnapshotIsFrozen(t *testing.T) {
	done := make(chan models.Profile, 1)
	w := New(func(p models.Profile) { done <- p }, WithFinalizeDelay(0))
	walkTo(t, w, StepSummary)
	require.True(t, w.Next())

	p := <-done
	p.DietaryRestrictions = append(p.DietaryRestrictions, "mutated")
	assert.NotContains(t, w.Draft().DietaryRestrictions, "mutated")
}

func TestWizard_Progress(t *testing.T) {
	w := New(nil)
	cur, total := w.Progress()
	assert.Equal(t, 0, cur)
	assert.Equal(t, TotalSteps, total)

	walkTo(t, w, StepMotivation)
	cur, _ = w.Progress()
	assert.Equal(t, 5, cur)
	assert.Equal(t, "A sua motivação", w.Step().Title())
}

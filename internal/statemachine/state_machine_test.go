package statemachine

import (
	"strings"
	"testing"

	"avigoBot/internal/domain/models"
)

func TestOnboardingTransitions(t *testing.T) {
	sm := NewStateMachine()

	path := []models.Step{
		models.StepIdle,
		models.StepChooseLanguage,
		models.StepAskName,
		models.StepAskPhone,
		models.StepIdle,
	}

	for i := 0; i < len(path)-1; i++ {
		if !sm.CanTransition(path[i], path[i+1]) {
			t.Errorf("transition %s -> %s should be allowed", path[i], path[i+1])
		}
	}
}

func TestEditLanguageReentersAskName(t *testing.T) {
	sm := NewStateMachine()

	// Выбор языка при онбординге и при редактировании ведет на один и тот же шаг
	if !sm.CanTransition(models.StepChooseLanguage, models.StepAskName) {
		t.Error("choose_language -> ask_name should be allowed")
	}
	if !sm.CanTransition(models.StepEditLanguage, models.StepAskName) {
		t.Error("edit_language -> ask_name should be allowed")
	}
	if sm.CanTransition(models.StepEditLanguage, models.StepAskPhone) {
		t.Error("edit_language -> ask_phone should not be allowed")
	}
}

func TestFeedbackTransitions(t *testing.T) {
	sm := NewStateMachine()

	if !sm.CanTransition(models.StepIdle, models.StepAwaitingFeedback) {
		t.Error("idle -> awaiting_feedback should be allowed")
	}
	if !sm.CanTransition(models.StepAwaitingFeedback, models.StepIdle) {
		t.Error("awaiting_feedback -> idle should be allowed")
	}
}

func TestInvalidTransitionReturnsError(t *testing.T) {
	sm := NewStateMachine()

	if err := sm.Transition(models.StepChooseLanguage, models.StepAskPhone); err == nil {
		t.Error("choose_language -> ask_phone should be rejected")
	}
	if err := sm.Transition(models.StepAskPhone, models.StepAwaitingFeedback); err == nil {
		t.Error("ask_phone -> awaiting_feedback should be rejected")
	}
}

// Текст ошибки называет разрешенные из текущего шага переходы
func TestInvalidTransitionErrorListsAllowedSteps(t *testing.T) {
	sm := NewStateMachine()

	err := sm.Transition(models.StepAwaitingFeedback, models.StepAskName)
	if err == nil {
		t.Fatal("awaiting_feedback -> ask_name should be rejected")
	}
	if !strings.Contains(err.Error(), string(models.StepIdle)) {
		t.Errorf("error should list allowed steps, got %q", err.Error())
	}
}

func TestStaleLanguageCallbackStaysIdle(t *testing.T) {
	sm := NewStateMachine()

	if !sm.CanTransition(models.StepIdle, models.StepIdle) {
		t.Error("idle -> idle should be allowed for stale language callbacks")
	}
}

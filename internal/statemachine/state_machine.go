package statemachine

import (
	"fmt"
	"sync"

	"avigoBot/internal/domain/models"
)

// Transition описывает переход из одного шага диалога в другой
type Transition struct {
	From models.Step
	To   models.Step
}

// StateMachine проверяет допустимость переходов между шагами диалога.
// Новый шаг нельзя добавить незаметно: переход, которого нет в таблице,
// возвращает ошибку вместо молчаливого игнорирования.
type StateMachine struct {
	transitions map[Transition]bool
	mu          sync.RWMutex
}

// NewStateMachine создает state machine с таблицей разрешенных переходов
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[Transition]bool),
	}

	allowedTransitions := []Transition{
		// Первый контакт: неполный профиль отправляет на выбор языка
		{models.StepIdle, models.StepChooseLanguage},

		// Онбординг: язык -> имя -> телефон -> главное меню
		{models.StepChooseLanguage, models.StepAskName},
		{models.StepAskName, models.StepAskPhone},
		{models.StepAskName, models.StepIdle}, // телефон уже известен
		{models.StepAskPhone, models.StepIdle},

		// Редактирование из главного меню
		{models.StepIdle, models.StepAskName},      // edit_name
		{models.StepIdle, models.StepAskPhone},     // edit_phone
		{models.StepIdle, models.StepEditLanguage}, // edit_lang
		{models.StepEditLanguage, models.StepAskName},
		{models.StepEditLanguage, models.StepIdle}, // повторный /start с полным профилем

		// Обратная связь
		{models.StepIdle, models.StepAwaitingFeedback},
		{models.StepAwaitingFeedback, models.StepIdle},

		// Повторный /start с неполным профилем начинает онбординг заново
		{models.StepChooseLanguage, models.StepChooseLanguage},
		{models.StepAskName, models.StepChooseLanguage},
		{models.StepAskPhone, models.StepChooseLanguage},
		{models.StepEditLanguage, models.StepChooseLanguage},
		{models.StepAwaitingFeedback, models.StepChooseLanguage},

		// Устаревшее нажатие языковой кнопки в главном меню
		{models.StepIdle, models.StepIdle},
	}

	for _, t := range allowedTransitions {
		sm.transitions[t] = true
	}

	return sm
}

// CanTransition проверяет, возможен ли переход из текущего шага в новый
func (sm *StateMachine) CanTransition(from, to models.Step) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.transitions[Transition{from, to}]
}

// Transition выполняет проверку перехода и возвращает ошибку, если он запрещен
func (sm *StateMachine) Transition(from, to models.Step) error {
	if !sm.CanTransition(from, to) {
		return fmt.Errorf(
			"invalid transition from %s to %s (allowed: %v)",
			from, to, sm.GetAllowedTransitions(from),
		)
	}

	return nil
}

// GetAllowedTransitions возвращает список разрешенных переходов из шага
func (sm *StateMachine) GetAllowedTransitions(from models.Step) []models.Step {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var allowed []models.Step
	for t := range sm.transitions {
		if t.From == from {
			allowed = append(allowed, t.To)
		}
	}

	return allowed
}

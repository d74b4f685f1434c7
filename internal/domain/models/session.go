package models

// Step представляет текущий шаг диалога с пользователем
type Step string

const (
	StepIdle             Step = "idle"
	StepChooseLanguage   Step = "choose_language"
	StepEditLanguage     Step = "edit_language"
	StepAskName          Step = "ask_name"
	StepAskPhone         Step = "ask_phone"
	StepAwaitingFeedback Step = "awaiting_feedback"
)

// Session представляет состояние диалога одного пользователя.
// Хранится только в session store: отсутствующая сессия эквивалентна
// сессии на шаге idle без черновика заказа.
type Session struct {
	TgUserID int64       `json:"tg_user_id"`
	Step     Step        `json:"step"`
	Draft    *DraftOrder `json:"draft,omitempty"`
}

// NewSession возвращает сессию в начальном состоянии
func NewSession(tgUserID int64) *Session {
	return &Session{
		TgUserID: tgUserID,
		Step:     StepIdle,
	}
}

package session

import (
	"context"
	"sync"

	"avigoBot/internal/domain/models"
)

// Store - хранилище сессий диалога, по одной на пользователя.
// Отсутствующая сессия эквивалентна сессии на шаге idle без черновика,
// поэтому Get никогда не возвращает nil-сессию.
//
// Контроллер диалога и reconciler платежей - единственные писатели;
// обработка событий одного пользователя не параллелится, поэтому
// достаточно потокобезопасности на уровне ключей.
type Store interface {
	Get(ctx context.Context, tgUserID int64) (*models.Session, error)
	Put(ctx context.Context, session *models.Session) error
}

// MemoryStore хранит сессии в памяти процесса
type MemoryStore struct {
	sessions map[int64]models.Session
	mu       sync.RWMutex
}

// NewMemoryStore создает in-memory хранилище сессий
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]models.Session),
	}
}

// Get возвращает копию сессии пользователя либо новую сессию на шаге idle
func (s *MemoryStore) Get(_ context.Context, tgUserID int64) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tgUserID]
	if !ok {
		return models.NewSession(tgUserID), nil
	}

	// Копируем, чтобы изменения до Put не были видны другим читателям
	out := sess
	if sess.Draft != nil {
		draft := *sess.Draft
		out.Draft = &draft
	}

	return &out, nil
}

// Put сохраняет сессию пользователя
func (s *MemoryStore) Put(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	if session.Draft != nil {
		draft := *session.Draft
		stored.Draft = &draft
	}
	s.sessions[session.TgUserID] = stored

	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"avigoBot/internal/domain/models"
	repo "avigoBot/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileStorage хранит профили пользователей в PostgreSQL
type ProfileStorage struct {
	db *pgxpool.Pool
}

func NewProfileStorage(pool *pgxpool.Pool) *ProfileStorage {
	return &ProfileStorage{db: pool}
}

// Profile возвращает профиль пользователя по tg_user_id
func (s *ProfileStorage) Profile(ctx context.Context, tgUserID int64) (*models.UserProfile, error) {
	query := `SELECT tg_user_id, full_name, phone, language, created_at, updated_at
	          FROM users WHERE tg_user_id = $1`

	var u models.UserProfile
	err := s.db.QueryRow(ctx, query, tgUserID).Scan(
		&u.TgUserID,
		&u.FullName,
		&u.Phone,
		&u.Language,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &u, nil
}

// UpsertLanguage создает профиль с языком либо обновляет язык существующего.
// Один атомарный upsert: профиль создается лениво при первом выборе языка.
func (s *ProfileStorage) UpsertLanguage(ctx context.Context, tgUserID int64, lang models.Language) error {
	query := `
		INSERT INTO users (tg_user_id, language, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (tg_user_id)
		DO UPDATE SET language = EXCLUDED.language, updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query, tgUserID, lang)
	if err != nil {
		return fmt.Errorf("failed to upsert language: %w", err)
	}

	return nil
}

// UpdateFullName обновляет имя пользователя
func (s *ProfileStorage) UpdateFullName(ctx context.Context, tgUserID int64, fullName string) error {
	query := `UPDATE users SET full_name = $1, updated_at = NOW() WHERE tg_user_id = $2`

	_, err := s.db.Exec(ctx, query, fullName, tgUserID)
	if err != nil {
		return fmt.Errorf("failed to update full name: %w", err)
	}

	return nil
}

// UpdatePhone обновляет номер телефона пользователя
func (s *ProfileStorage) UpdatePhone(ctx context.Context, tgUserID int64, phone string) error {
	query := `UPDATE users SET phone = $1, updated_at = NOW() WHERE tg_user_id = $2`

	_, err := s.db.Exec(ctx, query, phone, tgUserID)
	if err != nil {
		return fmt.Errorf("failed to update phone: %w", err)
	}

	return nil
}

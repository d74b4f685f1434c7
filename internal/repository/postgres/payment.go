package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avigoBot/internal/domain/models"
	repo "avigoBot/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PendingPaymentStorage хранит ожидающие Click-оплаты в PostgreSQL
type PendingPaymentStorage struct {
	db *pgxpool.Pool
}

func NewPendingPaymentStorage(pool *pgxpool.Pool) *PendingPaymentStorage {
	return &PendingPaymentStorage{db: pool}
}

// CreatePending записывает ожидающую оплату. Повторная выдача ссылки по
// тому же черновику перезаписывает запись под новым токеном, старая
// остается до истечения ttl и вычищается в Consume.
func (s *PendingPaymentStorage) CreatePending(ctx context.Context, pending *models.PendingPayment) error {
	query := `
		INSERT INTO pending_payments (token, tg_user_id, items, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO NOTHING
	`

	_, err := s.db.Exec(
		ctx,
		query,
		pending.Token,
		pending.TgUserID,
		pending.Items,
		pending.Amount,
		pending.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending payment: %w", err)
	}

	return nil
}

// Consume атомарно удаляет запись по токену и возвращает ее.
// DELETE ... RETURNING гарантирует, что два конкурентных callback-а с
// одним токеном получат запись не более одного раза. Просроченные записи
// удаляются, но считаются отсутствующими.
func (s *PendingPaymentStorage) Consume(ctx context.Context, token string, ttl time.Duration) (*models.PendingPayment, error) {
	query := `
		DELETE FROM pending_payments
		WHERE token = $1
		RETURNING token, tg_user_id, items, amount, created_at
	`

	var p models.PendingPayment
	err := s.db.QueryRow(ctx, query, token).Scan(
		&p.Token,
		&p.TgUserID,
		&p.Items,
		&p.Amount,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to consume pending payment: %w", err)
	}

	if ttl > 0 && time.Since(p.CreatedAt) > ttl {
		return nil, repo.ErrPendingNotFound
	}

	return &p, nil
}

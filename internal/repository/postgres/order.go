package postgres

import (
	"context"
	"fmt"

	"avigoBot/internal/domain/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStorage хранит подтвержденные заказы в PostgreSQL.
// Таблица append-only: записи не обновляются и не удаляются.
type OrderStorage struct {
	db *pgxpool.Pool
}

func NewOrderStorage(pool *pgxpool.Pool) *OrderStorage {
	return &OrderStorage{db: pool}
}

// SaveOrder записывает подтвержденный заказ и возвращает сгенерированный id
func (s *OrderStorage) SaveOrder(ctx context.Context, order *models.ConfirmedOrder) (int64, error) {
	query := `
		INSERT INTO orders (tg_user_id, items, amount, method, trans_id, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRow(
		ctx,
		query,
		order.TgUserID,
		order.Items,
		order.Amount,
		order.Method,
		order.TransID,
		order.ConfirmedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save order: %w", err)
	}

	return id, nil
}

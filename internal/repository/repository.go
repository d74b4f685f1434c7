package repository

import (
	"context"
	"errors"
	"time"

	"avigoBot/internal/domain/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrPendingNotFound = errors.New("pending payment not found")
)

// ProfileRepository - долговременное хранилище профилей пользователей
type ProfileRepository interface {
	// Profile возвращает профиль либо ErrProfileNotFound
	Profile(ctx context.Context, tgUserID int64) (*models.UserProfile, error)
	// UpsertLanguage создает профиль с выбранным языком либо обновляет
	// язык существующего. Одна атомарная операция, не create-then-update.
	UpsertLanguage(ctx context.Context, tgUserID int64, lang models.Language) error
	UpdateFullName(ctx context.Context, tgUserID int64, fullName string) error
	UpdatePhone(ctx context.Context, tgUserID int64, phone string) error
}

// OrderRepository - append-only журнал подтвержденных заказов
type OrderRepository interface {
	// SaveOrder записывает подтвержденный заказ и возвращает его id
	SaveOrder(ctx context.Context, order *models.ConfirmedOrder) (int64, error)
}

// PendingPaymentRepository - хранилище ожидающих Click-оплат.
// Запись создается при выдаче платежной ссылки и потребляется webhook-ом
// ровно один раз: повторный Consume по тому же токену возвращает
// ErrPendingNotFound, что и дает идемпотентность callback-а.
type PendingPaymentRepository interface {
	CreatePending(ctx context.Context, pending *models.PendingPayment) error
	// Consume атомарно удаляет и возвращает запись по токену.
	// Записи старше ttl считаются отсутствующими.
	Consume(ctx context.Context, token string, ttl time.Duration) (*models.PendingPayment, error)
}

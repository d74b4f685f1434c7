package models

import (
	"time"
)

// PaymentMethod представляет способ оплаты подтвержденного заказа
type PaymentMethod string

const (
	// PaymentMethodInvoice - оплата через Telegram-инвойс внутри чата
	PaymentMethodInvoice PaymentMethod = "invoice"
	// PaymentMethodClick - оплата через редирект на платежную страницу Click
	PaymentMethodClick PaymentMethod = "click"
	// PaymentMethodCash - оплата наличными при доставке
	PaymentMethodCash PaymentMethod = "cash"
)

// DraftOrder представляет неподтвержденный заказ, ожидающий выбора оплаты.
// У пользователя одновременно существует не более одного черновика: новый
// заказ из mini-app молча заменяет неоплаченный предыдущий.
type DraftOrder struct {
	Items string `json:"items"`
	Price int64  `json:"price"`
}

// ConfirmedOrder представляет подтвержденный заказ. Запись создается
// ровно один раз и после этого не изменяется.
type ConfirmedOrder struct {
	ID          int64         `db:"id"`
	TgUserID    int64         `db:"tg_user_id"`
	Items       string        `db:"items"`
	Amount      int64         `db:"amount"`
	Method      PaymentMethod `db:"method"`
	TransID     string        `db:"trans_id"`
	ConfirmedAt time.Time     `db:"confirmed_at"`
}

// PendingPayment представляет ожидающую оплату по Click-редиректу.
// Ключ - токен транзакции order_<userId>_<timestamp>, который webhook
// получает обратно в merchant_trans_id. Запись потребляется ровно один
// раз; просроченные записи считаются отсутствующими.
type PendingPayment struct {
	Token     string    `db:"token"`
	TgUserID  int64     `db:"tg_user_id"`
	Items     string    `db:"items"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"avigoBot/internal/i18n"
	"avigoBot/internal/pkg/logger/sl"
	orderservice "avigoBot/internal/service/order"
)

// UserNotifier отправляет пользователю сообщение об итоге оплаты
type UserNotifier interface {
	SendText(chatID int64, text string) error
}

// PaymentHandler принимает HTTP-callback-и платежного шлюза Click
type PaymentHandler struct {
	log    *slog.Logger
	orders *orderservice.Service
	notify UserNotifier
}

func NewPaymentHandler(log *slog.Logger, orders *orderservice.Service, notify UserNotifier) *PaymentHandler {
	return &PaymentHandler{
		log:    log,
		orders: orders,
		notify: notify,
	}
}

// ClickCallback обрабатывает POST /payment/callback.
// Шлюз повторяет доставку при не-2xx ответе, поэтому ответы строго двух
// видов: "OK" - callback принят (включая неуспешный статус и уже
// потребленный токен), "Error" - тело не разобрано или токен не наш.
func (h *PaymentHandler) ClickCallback(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ClickCallback"

	log := h.log.With(slog.String("op", op))

	var req orderservice.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode callback body", sl.Err(err))
		writeError(w)
		return
	}

	out, err := h.orders.ClickCallback(r.Context(), req)
	if err != nil {
		if errors.Is(err, orderservice.ErrBadToken) {
			log.Error("callback with malformed token", slog.String("token", req.MerchantTransID))
			writeError(w)
			return
		}
		log.Error("failed to process callback", sl.Err(err))
		writeError(w)
		return
	}

	if out.Kind == orderservice.OutcomeConfirmed && out.Order != nil {
		if err := h.notify.SendText(out.Order.TgUserID, i18n.T(out.Lang, i18n.KeyPaymentOK)); err != nil {
			log.Error("failed to notify user about payment", sl.Err(err))
		}
	}

	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte("Error"))
}

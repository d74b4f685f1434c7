package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"avigoBot/internal/domain/models"
	"avigoBot/internal/pkg/logger/sl"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Config - операционные получатели уведомлений о заказах.
// Нулевой chat id означает, что получатель не настроен.
type Config struct {
	AdminChatID   int64 `yaml:"admin_chat_id" env:"ADMIN_CHAT_ID"`
	KitchenChatID int64 `yaml:"kitchen_chat_id" env:"KITCHEN_CHAT_ID"`
}

// Client рассылает сообщения через Telegram: сводки о подтвержденных
// заказах операционным получателям, пересылку обратной связи
// администратору и прямые сообщения пользователям.
type Client struct {
	bot *tgbotapi.BotAPI
	log *slog.Logger
	cfg Config
}

func New(bot *tgbotapi.BotAPI, log *slog.Logger, cfg Config) *Client {
	return &Client{
		bot: bot,
		log: log,
		cfg: cfg,
	}
}

// OrderConfirmed отправляет сводку заказа каждому настроенному получателю.
// Ошибка доставки одному получателю логируется и не мешает остальным:
// заказ уже записан, откатывать нечего.
func (c *Client) OrderConfirmed(_ context.Context, order *models.ConfirmedOrder, profile *models.UserProfile) {
	const op = "notify.OrderConfirmed"

	log := c.log.With(slog.String("op", op), slog.Int64("orderUser", order.TgUserID))

	summary := formatOrderSummary(order, profile)

	for _, chatID := range []int64{c.cfg.AdminChatID, c.cfg.KitchenChatID} {
		if chatID == 0 {
			continue
		}
		if err := c.SendText(chatID, summary); err != nil {
			log.Error("failed to notify recipient", slog.Int64("chatID", chatID), sl.Err(err))
		}
	}
}

// ForwardFeedback пересылает обращение пользователя администратору
// с приложенными данными профиля
func (c *Client) ForwardFeedback(profile *models.UserProfile, text string) error {
	const op = "notify.ForwardFeedback"

	if c.cfg.AdminChatID == 0 {
		return nil
	}

	msg := fmt.Sprintf(
		"📩 TAKLIF:\n👤 %s\n📞 %s\n📝 %s",
		orDash(profile.FullName),
		orDash(profile.Phone),
		text,
	)

	if err := c.SendText(c.cfg.AdminChatID, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SendText отправляет текстовое сообщение в чат по идентификатору
func (c *Client) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func formatOrderSummary(order *models.ConfirmedOrder, profile *models.UserProfile) string {
	var b strings.Builder

	b.WriteString("🛒 YANGI BUYURTMA #")
	b.WriteString(fmt.Sprintf("%d", order.ID))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("👤 %s\n", orDash(profile.FullName)))
	b.WriteString(fmt.Sprintf("📞 %s\n", orDash(profile.Phone)))
	b.WriteString(fmt.Sprintf("🍟 %s\n", order.Items))
	b.WriteString(fmt.Sprintf("💰 %d so'm\n", order.Amount))
	b.WriteString(fmt.Sprintf("💳 %s\n", methodLabel(order.Method)))
	b.WriteString(fmt.Sprintf("🕐 %s", order.ConfirmedAt.Format("02.01.2006 15:04")))

	return b.String()
}

func methodLabel(method models.PaymentMethod) string {
	switch method {
	case models.PaymentMethodInvoice:
		return "Telegram invoice"
	case models.PaymentMethodClick:
		return "Click"
	case models.PaymentMethodCash:
		return "Naqd / наличные"
	default:
		return string(method)
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "—"
	}
	return *s
}

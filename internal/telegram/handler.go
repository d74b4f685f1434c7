package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"avigoBot/internal/domain/models"
	"avigoBot/internal/i18n"
	"avigoBot/internal/notify"
	"avigoBot/internal/pkg/logger/sl"
	botservice "avigoBot/internal/service/bot"
	orderservice "avigoBot/internal/service/order"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Config struct {
	BotToken      string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ProviderToken string `yaml:"provider_token" env:"TELEGRAM_PROVIDER_TOKEN"`
	Currency      string `yaml:"currency" env:"TELEGRAM_CURRENCY" env-default:"UZS"`
	WebAppURL     string `yaml:"web_app_url" env:"WEB_APP_URL"`
}

// NewBot создает Telegram-бота по токену
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return bot, nil
}

// Handler принимает обновления Telegram и транслирует их в вызовы
// контроллера диалога и сервиса заказов, а их ответы - обратно в
// сообщения и клавиатуры
type Handler struct {
	bot      *tgbotapi.BotAPI
	log      *slog.Logger
	cfg      Config
	botSvc   *botservice.Service
	orderSvc *orderservice.Service
	notifier *notify.Client
	km       *KeyboardManager
}

func NewHandler(
	log *slog.Logger,
	cfg Config,
	bot *tgbotapi.BotAPI,
	botSvc *botservice.Service,
	orderSvc *orderservice.Service,
	notifier *notify.Client,
) *Handler {
	return &Handler{
		bot:      bot,
		log:      log,
		cfg:      cfg,
		botSvc:   botSvc,
		orderSvc: orderSvc,
		notifier: notifier,
		km:       NewKeyboardManager(cfg.WebAppURL),
	}
}

// Таймаут long-poll-а getUpdates в секундах
const updatesTimeout = 60

// Start запускает обработку обновлений от Telegram
func (h *Handler) Start(ctx context.Context) error {
	const op = "telegram.Start"

	h.log.Info("telegram bot started", slog.String("account", h.bot.Self.UserName))

	offset := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, webAppData, err := h.fetchUpdates(offset)
		if err != nil {
			h.log.Error("failed to fetch updates", slog.String("op", op), sl.Err(err))
			time.Sleep(3 * time.Second)
			continue
		}

		for i := range updates {
			update := updates[i]
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go h.handleUpdate(ctx, update, webAppData[update.UpdateID])
		}
	}
}

// fetchUpdates выполняет getUpdates напрямую: помимо декодирования в типы
// библиотеки, из сырого ответа извлекается message.web_app_data, которое
// библиотека при декодировании теряет
func (h *Handler) fetchUpdates(offset int) ([]tgbotapi.Update, map[int]string, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", updatesTimeout)

	resp, err := h.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get updates: %w", err)
	}

	var updates []tgbotapi.Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal updates: %w", err)
	}

	return updates, extractWebAppData(resp.Result), nil
}

// extractWebAppData собирает update_id -> message.web_app_data.data
// из сырого ответа getUpdates
func extractWebAppData(result []byte) map[int]string {
	var raw []struct {
		UpdateID int `json:"update_id"`
		Message  *struct {
			WebAppData *struct {
				Data string `json:"data"`
			} `json:"web_app_data"`
		} `json:"message"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil
	}

	data := make(map[int]string)
	for _, u := range raw {
		if u.Message != nil && u.Message.WebAppData != nil {
			data[u.UpdateID] = u.Message.WebAppData.Data
		}
	}

	return data
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update, webAppPayload string) {
	switch {
	case update.PreCheckoutQuery != nil:
		h.handlePreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message, webAppPayload)
	}
}

// handlePreCheckout принимает pre-checkout безусловно: проверка
// черновика здесь не выполняется
func (h *Handler) handlePreCheckout(q *tgbotapi.PreCheckoutQuery) {
	const op = "telegram.handlePreCheckout"

	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: q.ID,
		OK:                 true,
	}
	if _, err := h.bot.Request(answer); err != nil {
		h.log.Error("failed to answer pre-checkout", slog.String("op", op), sl.Err(err))
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message, webAppPayload string) {
	const op = "telegram.handleMessage"

	tgUserID := message.From.ID
	chatID := message.Chat.ID

	log := h.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID))

	switch {
	case message.SuccessfulPayment != nil:
		h.handleInvoicePaid(ctx, tgUserID, chatID)

	case webAppPayload != "":
		h.handleWebAppOrder(ctx, tgUserID, chatID, webAppPayload)

	case message.Contact != nil:
		reply, err := h.botSvc.Contact(ctx, tgUserID, message.Contact.PhoneNumber)
		if err != nil {
			log.Error("failed to handle contact", sl.Err(err))
			h.sendFailure(ctx, chatID)
			return
		}
		h.render(ctx, tgUserID, chatID, reply)

	case message.IsCommand():
		if message.Command() != "start" {
			return
		}
		reply, err := h.botSvc.Start(ctx, tgUserID)
		if err != nil {
			log.Error("failed to handle start", sl.Err(err))
			h.sendFailure(ctx, chatID)
			return
		}
		h.render(ctx, tgUserID, chatID, reply)

	case message.Text != "":
		reply, err := h.botSvc.Text(ctx, tgUserID, message.Text)
		if err != nil {
			log.Error("failed to handle text", sl.Err(err))
			h.sendFailure(ctx, chatID)
			return
		}
		h.render(ctx, tgUserID, chatID, reply)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	const op = "telegram.handleCallback"

	tgUserID := cq.From.ID
	chatID := tgUserID
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
	}

	log := h.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID), slog.String("data", cq.Data))

	if _, err := h.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Error("failed to answer callback", sl.Err(err))
	}

	var (
		reply botservice.Reply
		err   error
	)

	switch {
	case strings.HasPrefix(cq.Data, CallbackLangPrefix):
		lang, ok := models.ParseLanguage(strings.TrimPrefix(cq.Data, CallbackLangPrefix))
		if !ok {
			return
		}
		reply, err = h.botSvc.SelectLanguage(ctx, tgUserID, lang)

	case cq.Data == CallbackEditName:
		reply, err = h.botSvc.EditName(ctx, tgUserID)

	case cq.Data == CallbackEditPhone:
		reply, err = h.botSvc.EditPhone(ctx, tgUserID)

	case cq.Data == CallbackEditLang:
		reply, err = h.botSvc.EditLanguage(ctx, tgUserID)

	case cq.Data == CallbackPayClick:
		h.handlePayInvoice(ctx, tgUserID, chatID)
		return

	case cq.Data == CallbackPayCash:
		h.handlePayCash(ctx, tgUserID, chatID)
		return

	default:
		return
	}

	if err != nil {
		log.Error("failed to handle callback", sl.Err(err))
		h.sendFailure(ctx, chatID)
		return
	}

	h.render(ctx, tgUserID, chatID, reply)
}

// handlePayInvoice выставляет Telegram-инвойс по текущему черновику.
// При отказе платформы черновик не очищается: пользователь повторяет
// выбор способа оплаты.
func (h *Handler) handlePayInvoice(ctx context.Context, tgUserID, chatID int64) {
	const op = "telegram.handlePayInvoice"

	log := h.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID))

	params, err := h.orderSvc.Invoice(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, orderservice.ErrNoDraft) {
			h.sendText(chatID, i18n.T(models.DefaultLanguage, i18n.KeyOrderNotFound))
			return
		}
		log.Error("failed to prepare invoice", sl.Err(err))
		h.sendFailure(ctx, chatID)
		return
	}

	invoice := tgbotapi.NewInvoice(
		chatID,
		i18n.T(params.Lang, i18n.KeyInvoiceTitle),
		params.Items,
		params.Payload,
		h.cfg.ProviderToken,
		"",
		h.cfg.Currency,
		[]tgbotapi.LabeledPrice{
			{Label: i18n.T(params.Lang, i18n.KeyInvoiceLabel), Amount: int(params.Amount * 100)},
		},
	)

	if _, err := h.bot.Send(invoice); err != nil {
		log.Error("failed to send invoice", sl.Err(err))
		h.sendText(chatID, i18n.T(params.Lang, i18n.KeyOrderFailed))
	}
}

func (h *Handler) handlePayCash(ctx context.Context, tgUserID, chatID int64) {
	const op = "telegram.handlePayCash"

	out, err := h.orderSvc.ConfirmCash(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, orderservice.ErrNoDraft) {
			h.sendText(chatID, i18n.T(models.DefaultLanguage, i18n.KeyOrderNotFound))
			return
		}
		h.log.Error("failed to confirm cash order", slog.String("op", op), sl.Err(err))
		h.sendFailure(ctx, chatID)
		return
	}

	h.renderOutcome(ctx, tgUserID, chatID, out)
}

// handleInvoicePaid обрабатывает событие успешной оплаты инвойса.
// Дубликат события не находит черновика и отвечает "заказ не найден".
func (h *Handler) handleInvoicePaid(ctx context.Context, tgUserID, chatID int64) {
	const op = "telegram.handleInvoicePaid"

	out, err := h.orderSvc.InvoicePaid(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, orderservice.ErrNoDraft) {
			h.sendText(chatID, i18n.T(models.DefaultLanguage, i18n.KeyOrderNotFound))
			return
		}
		h.log.Error("failed to handle paid invoice", slog.String("op", op), sl.Err(err))
		h.sendFailure(ctx, chatID)
		return
	}

	h.renderOutcome(ctx, tgUserID, chatID, out)
}

func (h *Handler) handleWebAppOrder(ctx context.Context, tgUserID, chatID int64, raw string) {
	const op = "telegram.handleWebAppOrder"

	out, err := h.orderSvc.NewOrder(ctx, tgUserID, raw)
	if err != nil {
		h.log.Error("failed to handle web app order", slog.String("op", op), sl.Err(err))
		h.sendFailure(ctx, chatID)
		return
	}

	h.renderOutcome(ctx, tgUserID, chatID, out)
}

// render превращает семантический ответ контроллера диалога в сообщение
func (h *Handler) render(ctx context.Context, tgUserID, chatID int64, reply botservice.Reply) {
	switch reply.Kind {
	case botservice.ReplyNone:
		return

	case botservice.ReplyChooseLanguage:
		h.send(chatID, i18n.ChooseLanguagePrompt, h.km.LanguageInline())

	case botservice.ReplyWelcomeBack:
		text := i18n.Replace(i18n.T(reply.Lang, i18n.KeyWelcomeBack), map[string]string{
			"name": derefOr(reply.Profile.FullName, "—"),
		})
		h.send(chatID, text, h.km.MainMenu(reply.Lang))

	case botservice.ReplyAskName:
		h.send(chatID, i18n.T(reply.Lang, i18n.KeyWelcome), h.km.Remove())

	case botservice.ReplyAskPhone:
		h.send(chatID, i18n.T(reply.Lang, i18n.KeyAskPhone), h.km.ContactRequest(reply.Lang))

	case botservice.ReplySaved:
		h.send(chatID, i18n.T(reply.Lang, i18n.KeyDone), h.km.MainMenu(reply.Lang))

	case botservice.ReplySettings:
		text := i18n.Replace(i18n.T(reply.Lang, i18n.KeyCurrentData), map[string]string{
			"name":  derefOr(reply.Profile.FullName, "—"),
			"phone": derefOr(reply.Profile.Phone, "—"),
			"lang":  i18n.LanguageNames[reply.Lang],
		})
		h.send(chatID, text, h.km.SettingsInline(reply.Lang))

	case botservice.ReplyFeedbackPrompt:
		h.send(chatID, i18n.T(reply.Lang, i18n.KeyFeedbackPrompt), h.km.Remove())

	case botservice.ReplyFeedbackForwarded:
		if err := h.notifier.ForwardFeedback(reply.Profile, reply.Feedback); err != nil {
			h.log.Error("failed to forward feedback", sl.Err(err))
		}
		h.send(chatID, i18n.T(reply.Lang, i18n.KeyDone), h.km.MainMenu(reply.Lang))

	case botservice.ReplyOpenMenu:
		h.send(chatID, i18n.T(reply.Lang, i18n.KeyOpenMenu), h.km.WebAppMenu(reply.Lang, tgUserID))
	}
}

// renderOutcome превращает результат операции с заказом в сообщение
func (h *Handler) renderOutcome(ctx context.Context, tgUserID, chatID int64, out orderservice.Outcome) {
	switch out.Kind {
	case orderservice.OutcomeChoosePayment:
		h.send(chatID, i18n.T(out.Lang, i18n.KeyChoosePayment), h.km.PaymentInline(out.Lang))

	case orderservice.OutcomeConfirmed:
		key := i18n.KeyOrderAccepted
		if out.Order != nil && out.Order.Method != models.PaymentMethodCash {
			key = i18n.KeyPaymentOK
		}
		h.send(chatID, i18n.T(out.Lang, key), h.km.MainMenu(out.Lang))

	case orderservice.OutcomePaymentURL:
		h.send(chatID, i18n.T(out.Lang, i18n.KeyPayURL), h.km.PaymentURLButton(out.Lang, out.URL))

	case orderservice.OutcomeIgnored:
		return
	}
}

// sendFailure отправляет общий ответ об ошибке, после которого
// пользователь может просто повторить действие
func (h *Handler) sendFailure(ctx context.Context, chatID int64) {
	h.sendText(chatID, i18n.T(models.DefaultLanguage, i18n.KeyOrderFailed))
}

func (h *Handler) send(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		h.log.Error("failed to send message", slog.Int64("chatID", chatID), sl.Err(err))
	}
}

func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.log.Error("failed to send message", slog.Int64("chatID", chatID), sl.Err(err))
	}
}

func derefOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

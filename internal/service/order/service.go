package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"avigoBot/internal/domain/models"
	"avigoBot/internal/pkg/logger/sl"
	"avigoBot/internal/repository"
	"avigoBot/internal/session"

	"github.com/google/uuid"
)

var (
	// ErrNoDraft - у пользователя нет неоплаченного черновика. Дубликат
	// события оплаты после успешного подтверждения попадает сюда и
	// становится no-op, а не вторым заказом.
	ErrNoDraft = errors.New("no draft order")
	// ErrBadPayload - payload из mini-app не разбирается или неполон
	ErrBadPayload = errors.New("malformed order payload")
	// ErrBadToken - merchant_trans_id не соответствует формату order_<id>_<ts>
	ErrBadToken = errors.New("malformed transaction token")
)

// ClickConfig - параметры внешнего платежного шлюза Click
type ClickConfig struct {
	BaseURL    string        `yaml:"base_url" env:"CLICK_BASE_URL" env-default:"https://my.click.uz/services/pay"`
	PendingTTL time.Duration `yaml:"pending_ttl" env:"CLICK_PENDING_TTL" env-default:"24h"`
}

// OutcomeKind - вид результата операции с заказом
type OutcomeKind int

const (
	// OutcomeChoosePayment - черновик сохранен, нужно показать выбор оплаты
	OutcomeChoosePayment OutcomeKind = iota
	// OutcomeConfirmed - заказ подтвержден и записан
	OutcomeConfirmed
	// OutcomePaymentURL - выдана ссылка на оплату через Click
	OutcomePaymentURL
	// OutcomeIgnored - событие корректно, но действий не требует
	// (callback со статусом неуспеха или уже потребленным токеном)
	OutcomeIgnored
)

// Outcome - результат операции с заказом для слоя представления
type Outcome struct {
	Kind    OutcomeKind
	Lang    models.Language
	Amount  int64
	URL     string
	Order   *models.ConfirmedOrder
	Profile *models.UserProfile
}

// InvoiceParams - параметры Telegram-инвойса по текущему черновику
type InvoiceParams struct {
	Payload string
	Items   string
	Amount  int64
	Lang    models.Language
}

// CallbackRequest - тело HTTP-callback-а от Click
type CallbackRequest struct {
	ClickTransID    int64   `json:"click_trans_id"`
	MerchantTransID string  `json:"merchant_trans_id"`
	Amount          float64 `json:"amount"`
	Status          int     `json:"status"`
}

// Статус успешной оплаты в callback-е Click
const callbackStatusSuccess = 1

// Префикс токена транзакции: order_<tgUserID>_<unix timestamp>
const tokenPrefix = "order_"

// Notifier рассылает уведомление о подтвержденном заказе операционным
// получателям. Ошибки доставки нотификатор логирует сам и наружу не
// поднимает: заказ уже записан.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.ConfirmedOrder, profile *models.UserProfile)
}

// webAppOrder - payload из mini-app, вложенный JSON-строкой в web_app_data.
// TotalPrice - указатель: отсутствующая цена отличается от нулевой.
type webAppOrder struct {
	Action     string   `json:"action"`
	Items      string   `json:"items"`
	TotalPrice *float64 `json:"total_price"`
	Method     string   `json:"method,omitempty"`
}

// Service - прием заказов из mini-app и сведение двух независимых путей
// оплаты к ровно одному подтверждению заказа
type Service struct {
	log      *slog.Logger
	orders   repository.OrderRepository
	pending  repository.PendingPaymentRepository
	profiles repository.ProfileRepository
	sessions session.Store
	notifier Notifier
	click    ClickConfig
	now      func() time.Time
}

func New(
	log *slog.Logger,
	orders repository.OrderRepository,
	pending repository.PendingPaymentRepository,
	profiles repository.ProfileRepository,
	sessions session.Store,
	notifier Notifier,
	click ClickConfig,
) *Service {
	return &Service{
		log:      log,
		orders:   orders,
		pending:  pending,
		profiles: profiles,
		sessions: sessions,
		notifier: notifier,
		click:    click,
		now:      time.Now,
	}
}

// NewOrder принимает заказ из mini-app. Новый черновик безусловно
// замещает неоплаченный предыдущий в любом шаге диалога. Если payload
// уже содержит способ оплаты, выбор пропускается.
func (s *Service) NewOrder(ctx context.Context, tgUserID int64, raw string) (Outcome, error) {
	const op = "orderservice.NewOrder"

	log := s.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID))

	var payload webAppOrder
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrBadPayload)
	}
	if payload.Action != "new_order" || payload.Items == "" ||
		payload.TotalPrice == nil || *payload.TotalPrice < 0 {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrBadPayload)
	}

	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	draft := &models.DraftOrder{
		Items: payload.Items,
		Price: int64(*payload.TotalPrice),
	}
	sess.Draft = draft
	if err := s.sessions.Put(ctx, sess); err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("draft order stored", slog.Int64("amount", draft.Price))

	switch payload.Method {
	case "cash":
		return s.ConfirmCash(ctx, tgUserID)
	case "click":
		return s.ClickURL(ctx, tgUserID)
	default:
		lang, err := s.userLang(ctx, tgUserID)
		if err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", op, err)
		}
		return Outcome{Kind: OutcomeChoosePayment, Lang: lang, Amount: draft.Price}, nil
	}
}

// Invoice возвращает параметры Telegram-инвойса по текущему черновику.
// Черновик не очищается: при отказе платформы пользователь повторяет
// выбор способа оплаты.
func (s *Service) Invoice(ctx context.Context, tgUserID int64) (InvoiceParams, error) {
	const op = "orderservice.Invoice"

	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return InvoiceParams{}, fmt.Errorf("%s: %w", op, err)
	}
	if sess.Draft == nil {
		return InvoiceParams{}, fmt.Errorf("%s: %w", op, ErrNoDraft)
	}

	lang, err := s.userLang(ctx, tgUserID)
	if err != nil {
		return InvoiceParams{}, fmt.Errorf("%s: %w", op, err)
	}

	return InvoiceParams{
		Payload: fmt.Sprintf("pay_%d_%d", tgUserID, s.now().Unix()),
		Items:   sess.Draft.Items,
		Amount:  sess.Draft.Price,
		Lang:    lang,
	}, nil
}

// InvoicePaid обрабатывает событие успешной оплаты инвойса.
// Дубликат события не находит черновика и возвращает ErrNoDraft.
func (s *Service) InvoicePaid(ctx context.Context, tgUserID int64) (Outcome, error) {
	const op = "orderservice.InvoicePaid"

	return s.confirmDraft(ctx, op, tgUserID, models.PaymentMethodInvoice, uuid.NewString())
}

// ConfirmCash подтверждает заказ с оплатой наличными при доставке
func (s *Service) ConfirmCash(ctx context.Context, tgUserID int64) (Outcome, error) {
	const op = "orderservice.ConfirmCash"

	return s.confirmDraft(ctx, op, tgUserID, models.PaymentMethodCash, uuid.NewString())
}

// ClickURL выдает ссылку на оплату через Click. Ожидающая оплата
// записывается durable-хранилищем под токеном order_<uid>_<ts>: callback
// сверяется с ней, а не с живой сессией, и переживает замену черновика.
func (s *Service) ClickURL(ctx context.Context, tgUserID int64) (Outcome, error) {
	const op = "orderservice.ClickURL"

	log := s.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID))

	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if sess.Draft == nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrNoDraft)
	}

	token := fmt.Sprintf("%s%d_%d", tokenPrefix, tgUserID, s.now().Unix())

	err = s.pending.CreatePending(ctx, &models.PendingPayment{
		Token:     token,
		TgUserID:  tgUserID,
		Items:     sess.Draft.Items,
		Amount:    sess.Draft.Price,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{}
	q.Set("merchant_trans_id", token)
	q.Set("amount", strconv.FormatInt(sess.Draft.Price, 10))

	lang, err := s.userLang(ctx, tgUserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("click payment url issued", slog.String("token", token))

	return Outcome{
		Kind:   OutcomePaymentURL,
		Lang:   lang,
		Amount: sess.Draft.Price,
		URL:    s.click.BaseURL + "?" + q.Encode(),
	}, nil
}

// ClickCallback обрабатывает HTTP-callback от Click. Идемпотентность
// дает потребление pending-записи: повторный callback с тем же токеном
// записи не находит и возвращает OutcomeIgnored.
func (s *Service) ClickCallback(ctx context.Context, req CallbackRequest) (Outcome, error) {
	const op = "orderservice.ClickCallback"

	log := s.log.With(slog.String("op", op), slog.String("token", req.MerchantTransID))

	tgUserID, err := parseToken(req.MerchantTransID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if req.Status != callbackStatusSuccess {
		log.Info("callback with non-success status", slog.Int("status", req.Status))
		return Outcome{Kind: OutcomeIgnored}, nil
	}

	pending, err := s.pending.Consume(ctx, req.MerchantTransID, s.click.PendingTTL)
	if err != nil {
		if errors.Is(err, repository.ErrPendingNotFound) {
			log.Info("callback for consumed or expired token")
			return Outcome{Kind: OutcomeIgnored}, nil
		}
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	order := &models.ConfirmedOrder{
		TgUserID:    tgUserID,
		Items:       pending.Items,
		Amount:      pending.Amount,
		Method:      models.PaymentMethodClick,
		TransID:     strconv.FormatInt(req.ClickTransID, 10),
		ConfirmedAt: s.now(),
	}

	profile, err := s.confirm(ctx, order)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	// Черновик в сессии очищается, только если он все еще тот же самый:
	// пользователь мог успеть отправить новый заказ до прихода callback-а
	sess, err := s.sessions.Get(ctx, tgUserID)
	if err == nil && sess.Draft != nil &&
		sess.Draft.Items == pending.Items && sess.Draft.Price == pending.Amount {
		sess.Draft = nil
		if err := s.sessions.Put(ctx, sess); err != nil {
			log.Error("failed to clear draft after callback", sl.Err(err))
		}
	}

	return Outcome{
		Kind:    OutcomeConfirmed,
		Lang:    profile.Lang(),
		Amount:  order.Amount,
		Order:   order,
		Profile: profile,
	}, nil
}

// confirmDraft выполняет Confirm по текущему черновику сессии.
// Черновик очищается сразу после записи заказа, до рассылки уведомлений:
// повторное событие оплаты черновика уже не найдет.
func (s *Service) confirmDraft(ctx context.Context, op string, tgUserID int64, method models.PaymentMethod, transID string) (Outcome, error) {
	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if sess.Draft == nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, ErrNoDraft)
	}

	order := &models.ConfirmedOrder{
		TgUserID:    tgUserID,
		Items:       sess.Draft.Items,
		Amount:      sess.Draft.Price,
		Method:      method,
		TransID:     transID,
		ConfirmedAt: s.now(),
	}

	id, err := s.orders.SaveOrder(ctx, order)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	order.ID = id

	sess.Draft = nil
	if err := s.sessions.Put(ctx, sess); err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	profile, err := s.fanOut(ctx, order)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("order confirmed",
		slog.String("op", op),
		slog.Int64("tgUserID", tgUserID),
		slog.String("method", string(method)),
		slog.Int64("amount", order.Amount),
	)

	return Outcome{
		Kind:    OutcomeConfirmed,
		Lang:    profile.Lang(),
		Amount:  order.Amount,
		Order:   order,
		Profile: profile,
	}, nil
}

// confirm записывает заказ и запускает рассылку (путь callback-а,
// черновик сессии здесь не участвует)
func (s *Service) confirm(ctx context.Context, order *models.ConfirmedOrder) (*models.UserProfile, error) {
	id, err := s.orders.SaveOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	order.ID = id

	return s.fanOut(ctx, order)
}

func (s *Service) fanOut(ctx context.Context, order *models.ConfirmedOrder) (*models.UserProfile, error) {
	profile, err := s.profiles.Profile(ctx, order.TgUserID)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
		profile = &models.UserProfile{TgUserID: order.TgUserID, Language: models.DefaultLanguage}
	}

	s.notifier.OrderConfirmed(ctx, order, profile)

	return profile, nil
}

func (s *Service) userLang(ctx context.Context, tgUserID int64) (models.Language, error) {
	profile, err := s.profiles.Profile(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return models.DefaultLanguage, nil
		}
		return "", err
	}

	return profile.Lang(), nil
}

// parseToken извлекает идентификатор пользователя из токена транзакции
// вида order_<tgUserID>_<timestamp>
func parseToken(token string) (int64, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return 0, ErrBadToken
	}

	parts := strings.Split(strings.TrimPrefix(token, tokenPrefix), "_")
	if len(parts) != 2 {
		return 0, ErrBadToken
	}

	tgUserID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, ErrBadToken
	}

	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, ErrBadToken
	}

	return tgUserID, nil
}

package orderservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"avigoBot/internal/domain/models"
	"avigoBot/internal/repository"
	"avigoBot/internal/session"
)

type fakeOrders struct {
	saved []*models.ConfirmedOrder
}

func (f *fakeOrders) SaveOrder(_ context.Context, order *models.ConfirmedOrder) (int64, error) {
	o := *order
	f.saved = append(f.saved, &o)
	return int64(len(f.saved)), nil
}

type fakePending struct {
	rows map[string]*models.PendingPayment
}

func newFakePending() *fakePending {
	return &fakePending{rows: make(map[string]*models.PendingPayment)}
}

func (f *fakePending) CreatePending(_ context.Context, p *models.PendingPayment) error {
	row := *p
	f.rows[p.Token] = &row
	return nil
}

func (f *fakePending) Consume(_ context.Context, token string, ttl time.Duration) (*models.PendingPayment, error) {
	row, ok := f.rows[token]
	if !ok {
		return nil, repository.ErrPendingNotFound
	}
	delete(f.rows, token)
	if ttl > 0 && time.Since(row.CreatedAt) > ttl {
		return nil, repository.ErrPendingNotFound
	}
	return row, nil
}

type fakeProfiles struct {
	profiles map[int64]*models.UserProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[int64]*models.UserProfile)}
}

func (f *fakeProfiles) Profile(_ context.Context, tgUserID int64) (*models.UserProfile, error) {
	p, ok := f.profiles[tgUserID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) UpsertLanguage(_ context.Context, tgUserID int64, lang models.Language) error {
	p, ok := f.profiles[tgUserID]
	if !ok {
		p = &models.UserProfile{TgUserID: tgUserID}
		f.profiles[tgUserID] = p
	}
	p.Language = lang
	return nil
}

func (f *fakeProfiles) UpdateFullName(_ context.Context, tgUserID int64, name string) error {
	f.profiles[tgUserID].FullName = &name
	return nil
}

func (f *fakeProfiles) UpdatePhone(_ context.Context, tgUserID int64, phone string) error {
	f.profiles[tgUserID].Phone = &phone
	return nil
}

type fakeNotifier struct {
	notified []*models.ConfirmedOrder
}

func (f *fakeNotifier) OrderConfirmed(_ context.Context, order *models.ConfirmedOrder, _ *models.UserProfile) {
	f.notified = append(f.notified, order)
}

type fixture struct {
	svc      *Service
	orders   *fakeOrders
	pending  *fakePending
	sessions *session.MemoryStore
	notifier *fakeNotifier
}

func newFixture() *fixture {
	orders := &fakeOrders{}
	pending := newFakePending()
	profiles := newFakeProfiles()
	sessions := session.NewMemoryStore()
	notifier := &fakeNotifier{}

	name := "Ali Valiyev"
	phone := "+998901234567"
	profiles.profiles[42] = &models.UserProfile{
		TgUserID: 42,
		FullName: &name,
		Phone:    &phone,
		Language: models.LanguageUz,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(log, orders, pending, profiles, sessions, notifier, ClickConfig{
		BaseURL:    "https://my.click.uz/services/pay",
		PendingTTL: 24 * time.Hour,
	})

	return &fixture{svc: svc, orders: orders, pending: pending, sessions: sessions, notifier: notifier}
}

func TestNewOrderStoresDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeChoosePayment {
		t.Errorf("got outcome %d, want choose payment", out.Kind)
	}

	sess, _ := f.sessions.Get(ctx, 42)
	if sess.Draft == nil || sess.Draft.Items != "Burger x2" || sess.Draft.Price != 50000 {
		t.Errorf("draft not stored: %+v", sess.Draft)
	}
}

func TestNewOrderReplacesUnresolvedDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Lavash","total_price":30000}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Старый черновик недостижим: подтверждается только новый
	out, err := f.svc.ConfirmCash(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Order.Items != "Burger x2" || out.Order.Amount != 50000 {
		t.Errorf("confirmed wrong draft: %+v", out.Order)
	}
	if len(f.orders.saved) != 1 {
		t.Errorf("got %d orders, want 1", len(f.orders.saved))
	}
}

func TestNewOrderMalformedPayloadLeavesSessionUnchanged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []string{
		`not json at all`,
		`{"action":"something_else","items":"Burger","total_price":100}`,
		`{"action":"new_order","total_price":100}`,
		`{"action":"new_order","items":"Burger","total_price":-5}`,
		`{"action":"new_order","items":"Burger x2"}`, // цена отсутствует, а не равна нулю
	}

	for _, raw := range cases {
		if _, err := f.svc.NewOrder(ctx, 42, raw); !errors.Is(err, ErrBadPayload) {
			t.Errorf("payload %q: got %v, want ErrBadPayload", raw, err)
		}
	}

	sess, _ := f.sessions.Get(ctx, 42)
	if sess.Draft != nil {
		t.Errorf("session changed by malformed payload: %+v", sess.Draft)
	}
}

// Сгенерированный базой id попадает в заказ до рассылки: сводка для
// операторов ссылается на настоящий номер заказа
func TestConfirmCarriesGeneratedOrderID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := f.svc.ConfirmCash(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Order.ID != 1 {
		t.Errorf("outcome order id = %d, want 1", out.Order.ID)
	}
	if len(f.notifier.notified) != 1 {
		t.Fatalf("notifier got %d orders, want 1", len(f.notifier.notified))
	}
	if f.notifier.notified[0].ID != 1 {
		t.Errorf("notifier got order id = %d, want 1", f.notifier.notified[0].ID)
	}
}

func TestConfirmCashCreatesOneOrderAndClearsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := f.svc.ConfirmCash(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeConfirmed {
		t.Errorf("got outcome %d, want confirmed", out.Kind)
	}

	if len(f.orders.saved) != 1 {
		t.Fatalf("got %d orders, want 1", len(f.orders.saved))
	}
	saved := f.orders.saved[0]
	if saved.Method != models.PaymentMethodCash || saved.Amount != 50000 || saved.TgUserID != 42 {
		t.Errorf("unexpected order: %+v", saved)
	}

	sess, _ := f.sessions.Get(ctx, 42)
	if sess.Draft != nil {
		t.Error("draft should be cleared after confirm")
	}
	if len(f.notifier.notified) != 1 {
		t.Errorf("got %d notifications, want 1", len(f.notifier.notified))
	}

	// Повторное подтверждение не находит черновика
	if _, err := f.svc.ConfirmCash(ctx, 42); !errors.Is(err, ErrNoDraft) {
		t.Errorf("duplicate confirm: got %v, want ErrNoDraft", err)
	}
	if len(f.orders.saved) != 1 {
		t.Errorf("duplicate confirm created order: %d", len(f.orders.saved))
	}
}

func TestNewOrderWithCashMethodConfirmsImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000,"method":"cash"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeConfirmed {
		t.Errorf("got outcome %d, want confirmed", out.Kind)
	}
	if len(f.orders.saved) != 1 || f.orders.saved[0].Method != models.PaymentMethodCash {
		t.Errorf("unexpected orders: %+v", f.orders.saved)
	}
}

func TestInvoicePaidIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params, err := f.svc.Invoice(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(params.Payload, "pay_42_") {
		t.Errorf("unexpected invoice payload: %s", params.Payload)
	}
	if params.Amount != 50000 {
		t.Errorf("unexpected invoice amount: %d", params.Amount)
	}

	// Выдача инвойса черновик не очищает: пользователь может повторить
	sess, _ := f.sessions.Get(ctx, 42)
	if sess.Draft == nil {
		t.Fatal("draft should survive invoice issuance")
	}

	if _, err := f.svc.InvoicePaid(ctx, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Дубликат события успеха - no-op, а не второй заказ
	if _, err := f.svc.InvoicePaid(ctx, 42); !errors.Is(err, ErrNoDraft) {
		t.Errorf("duplicate success event: got %v, want ErrNoDraft", err)
	}

	if len(f.orders.saved) != 1 {
		t.Fatalf("got %d orders, want exactly 1", len(f.orders.saved))
	}
	if f.orders.saved[0].Method != models.PaymentMethodInvoice || f.orders.saved[0].TgUserID != 42 {
		t.Errorf("unexpected order: %+v", f.orders.saved[0])
	}
}

func TestClickURLWritesPendingPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000,"method":"click"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.pending.rows) != 1 {
		t.Fatalf("got %d pending rows, want 1", len(f.pending.rows))
	}
	for token, row := range f.pending.rows {
		if !strings.HasPrefix(token, "order_42_") {
			t.Errorf("unexpected token: %s", token)
		}
		if row.Amount != 50000 || row.Items != "Burger x2" {
			t.Errorf("unexpected pending row: %+v", row)
		}
	}
}

func TestClickURLContainsTokenAndAmount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000,"method":"click"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomePaymentURL {
		t.Fatalf("got outcome %d, want payment url", out.Kind)
	}
	if !strings.Contains(out.URL, "merchant_trans_id=order_42_") {
		t.Errorf("url missing token: %s", out.URL)
	}
	if !strings.Contains(out.URL, "amount=50000") {
		t.Errorf("url missing amount: %s", out.URL)
	}
}

func TestClickCallbackConfirmsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000,"method":"click"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var token string
	for tok := range f.pending.rows {
		token = tok
	}

	req := CallbackRequest{ClickTransID: 777, MerchantTransID: token, Amount: 50000, Status: 1}

	out, err := f.svc.ClickCallback(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeConfirmed {
		t.Fatalf("got outcome %d, want confirmed", out.Kind)
	}
	if out.Order.Method != models.PaymentMethodClick || out.Order.TransID != "777" {
		t.Errorf("unexpected order: %+v", out.Order)
	}

	// Черновик очищен, потому что он все еще соответствовал pending-записи
	sess, _ := f.sessions.Get(ctx, 42)
	if sess.Draft != nil {
		t.Error("matching draft should be cleared by callback")
	}

	// Повторный callback с тем же токеном - no-op
	out, err = f.svc.ClickCallback(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeIgnored {
		t.Errorf("duplicate callback: got outcome %d, want ignored", out.Kind)
	}
	if len(f.orders.saved) != 1 {
		t.Errorf("got %d orders, want exactly 1", len(f.orders.saved))
	}
}

func TestClickCallbackSurvivesDraftOverwrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Burger x2","total_price":50000,"method":"click"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var token string
	for tok := range f.pending.rows {
		token = tok
	}

	// Пользователь успевает отправить новый заказ до прихода callback-а
	if _, err := f.svc.NewOrder(ctx, 42, `{"action":"new_order","items":"Shashlik","total_price":80000}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := f.svc.ClickCallback(ctx, CallbackRequest{ClickTransID: 1, MerchantTransID: token, Amount: 50000, Status: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeConfirmed {
		t.Fatalf("got outcome %d, want confirmed", out.Kind)
	}

	// Подтвержден оплаченный заказ, а новый черновик не тронут
	if f.orders.saved[0].Items != "Burger x2" {
		t.Errorf("confirmed wrong order: %+v", f.orders.saved[0])
	}
	sess, _ := f.sessions.Get(ctx, 42)
	if sess.Draft == nil || sess.Draft.Items != "Shashlik" {
		t.Errorf("new draft should survive callback: %+v", sess.Draft)
	}
}

func TestClickCallbackNonSuccessStatusIsIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.svc.ClickCallback(ctx, CallbackRequest{MerchantTransID: "order_42_1000", Status: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeIgnored {
		t.Errorf("got outcome %d, want ignored", out.Kind)
	}
	if len(f.orders.saved) != 0 {
		t.Errorf("non-success status created orders: %d", len(f.orders.saved))
	}
}

func TestClickCallbackMalformedToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bad := []string{"payment_42_1000", "order_", "order_abc_1000", "order_42", "order_42_xx"}
	for _, token := range bad {
		if _, err := f.svc.ClickCallback(ctx, CallbackRequest{MerchantTransID: token, Status: 1}); !errors.Is(err, ErrBadToken) {
			t.Errorf("token %q: got %v, want ErrBadToken", token, err)
		}
	}
}

func TestClickCallbackExpiredPendingIsIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	token := fmt.Sprintf("order_42_%d", time.Now().Add(-48*time.Hour).Unix())
	f.pending.rows[token] = &models.PendingPayment{
		Token:     token,
		TgUserID:  42,
		Items:     "Burger x2",
		Amount:    50000,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}

	out, err := f.svc.ClickCallback(ctx, CallbackRequest{MerchantTransID: token, Status: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != OutcomeIgnored {
		t.Errorf("got outcome %d, want ignored", out.Kind)
	}
	if len(f.orders.saved) != 0 {
		t.Errorf("expired pending created orders: %d", len(f.orders.saved))
	}
}

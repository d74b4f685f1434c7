package app

import (
	"log/slog"
	"time"

	httpapp "avigoBot/internal/app/http"
	"avigoBot/internal/http/handler"
	"avigoBot/internal/notify"
	"avigoBot/internal/repository/postgres"
	botservice "avigoBot/internal/service/bot"
	orderservice "avigoBot/internal/service/order"
	"avigoBot/internal/session"
	"avigoBot/internal/telegram"
)

// App - собранное приложение: Telegram-бот и HTTP-сервер для
// callback-ов платежного шлюза
type App struct {
	Telegram   *telegram.Handler
	HTTPServer *httpapp.App
}

func New(
	log *slog.Logger,
	telegramConfig telegram.Config,
	postgresConfig *postgres.Config,
	redisAddr string,
	sessionTTL time.Duration,
	httpConfig httpapp.Config,
	clickConfig orderservice.ClickConfig,
	notifyConfig notify.Config,
) *App {
	postgresConn, err := postgres.NewConnPool(postgresConfig)
	if err != nil {
		panic(err)
	}

	profiles := postgres.NewProfileStorage(postgresConn)
	orders := postgres.NewOrderStorage(postgresConn)
	pending := postgres.NewPendingPaymentStorage(postgresConn)

	sessions := newSessionStore(redisAddr, sessionTTL)

	bot, err := telegram.NewBot(telegramConfig.BotToken)
	if err != nil {
		panic(err)
	}

	notifier := notify.New(bot, log, notifyConfig)

	botService := botservice.New(log, profiles, sessions)
	orderService := orderservice.New(log, orders, pending, profiles, sessions, notifier, clickConfig)

	tgHandler := telegram.NewHandler(log, telegramConfig, bot, botService, orderService, notifier)

	paymentHandler := handler.NewPaymentHandler(log, orderService, notifier)
	httpApp := httpapp.New(log, httpConfig, paymentHandler)

	return &App{
		Telegram:   tgHandler,
		HTTPServer: httpApp,
	}
}

// newSessionStore выбирает хранилище сессий. Пустой addr означает, что
// сессии живут в памяти процесса: достаточно для единственного
// экземпляра бота.
func newSessionStore(addr string, ttl time.Duration) session.Store {
	if addr == "" {
		return session.NewMemoryStore()
	}

	store, err := session.NewRedisStore(addr, ttl)
	if err != nil {
		panic(err)
	}

	return store
}

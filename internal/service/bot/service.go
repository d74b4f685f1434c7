package botservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"avigoBot/internal/domain/models"
	"avigoBot/internal/i18n"
	"avigoBot/internal/pkg/logger/sl"
	"avigoBot/internal/repository"
	"avigoBot/internal/session"
	"avigoBot/internal/statemachine"
)

// ReplyKind - семантический вид ответа контроллера диалога.
// Telegram-слой отображает его в текст и клавиатуру.
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	ReplyChooseLanguage
	ReplyWelcomeBack
	ReplyAskName
	ReplyAskPhone
	ReplySaved
	ReplySettings
	ReplyFeedbackPrompt
	ReplyFeedbackForwarded
	ReplyOpenMenu
)

// Reply - результат обработки события диалога
type Reply struct {
	Kind    ReplyKind
	Lang    models.Language
	Profile *models.UserProfile
	// Feedback - текст обращения пользователя для пересылки администратору
	Feedback string
}

// Service - контроллер диалога: онбординг, редактирование профиля,
// обратная связь и разбор команд главного меню. Заказы и оплату
// контроллер не трогает.
type Service struct {
	log      *slog.Logger
	profiles repository.ProfileRepository
	sessions session.Store
	sm       *statemachine.StateMachine
}

func New(log *slog.Logger, profiles repository.ProfileRepository, sessions session.Store) *Service {
	return &Service{
		log:      log,
		profiles: profiles,
		sessions: sessions,
		sm:       statemachine.NewStateMachine(),
	}
}

// Start обрабатывает /start: пользователей с полным профилем встречает
// главное меню, остальных - выбор языка
func (s *Service) Start(ctx context.Context, tgUserID int64) (Reply, error) {
	const op = "botservice.Start"

	log := s.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID))

	profile, err := s.profile(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	if profile.IsComplete() {
		if err := s.setStep(ctx, tgUserID, models.StepIdle); err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}
		return Reply{Kind: ReplyWelcomeBack, Lang: profile.Lang(), Profile: profile}, nil
	}

	if err := s.setStep(ctx, tgUserID, models.StepChooseLanguage); err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("onboarding started")

	return Reply{Kind: ReplyChooseLanguage, Lang: profile.Lang()}, nil
}

// SelectLanguage обрабатывает выбор языка. Профиль создается лениво,
// одним атомарным upsert-ом. Из онбординга и из редактирования языка
// переход один и тот же - на ввод имени; устаревшее нажатие кнопки в
// любом другом шаге просто сохраняет язык.
func (s *Service) SelectLanguage(ctx context.Context, tgUserID int64, lang models.Language) (Reply, error) {
	const op = "botservice.SelectLanguage"

	if err := s.profiles.UpsertLanguage(ctx, tgUserID, lang); err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	if sess.Step == models.StepChooseLanguage || sess.Step == models.StepEditLanguage {
		sess.Step = models.StepAskName
		if err := s.sessions.Put(ctx, sess); err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}
		return Reply{Kind: ReplyAskName, Lang: lang}, nil
	}

	sess.Step = models.StepIdle
	if err := s.sessions.Put(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	return Reply{Kind: ReplySaved, Lang: lang}, nil
}

// Text обрабатывает свободный текст в зависимости от шага диалога
func (s *Service) Text(ctx context.Context, tgUserID int64, text string) (Reply, error) {
	const op = "botservice.Text"

	log := s.log.With(slog.String("op", op), slog.Int64("tgUserID", tgUserID))

	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	profile, err := s.profile(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}
	lang := profile.Lang()

	switch sess.Step {
	case models.StepAskName:
		if err := s.profiles.UpdateFullName(ctx, tgUserID, text); err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}

		if profile.Phone == nil || *profile.Phone == "" {
			if err := s.transition(ctx, sess, models.StepAskPhone); err != nil {
				return Reply{}, fmt.Errorf("%s: %w", op, err)
			}
			return Reply{Kind: ReplyAskPhone, Lang: lang}, nil
		}

		if err := s.transition(ctx, sess, models.StepIdle); err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}
		return Reply{Kind: ReplySaved, Lang: lang}, nil

	case models.StepAwaitingFeedback:
		if err := s.transition(ctx, sess, models.StepIdle); err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("feedback received")

		return Reply{Kind: ReplyFeedbackForwarded, Lang: lang, Profile: profile, Feedback: text}, nil

	case models.StepIdle:
		return s.menuCommand(ctx, sess, profile, text)

	default:
		// На шагах, ожидающих кнопку или контакт, свободный текст игнорируется
		return Reply{Kind: ReplyNone, Lang: lang}, nil
	}
}

// Contact обрабатывает отправку контакта. Телефон сохраняется на шаге
// ask_phone и в главном меню; на остальных шагах (язык еще не выбран,
// идет ввод имени) событие игнорируется без изменения профиля.
func (s *Service) Contact(ctx context.Context, tgUserID int64, phone string) (Reply, error) {
	const op = "botservice.Contact"

	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	if sess.Step != models.StepAskPhone && sess.Step != models.StepIdle {
		profile, err := s.profile(ctx, tgUserID)
		if err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}
		return Reply{Kind: ReplyNone, Lang: profile.Lang()}, nil
	}

	if err := s.profiles.UpdatePhone(ctx, tgUserID, phone); err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.setStep(ctx, tgUserID, models.StepIdle); err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	profile, err := s.profile(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	return Reply{Kind: ReplySaved, Lang: profile.Lang()}, nil
}

// EditName переводит диалог на повторный ввод имени
func (s *Service) EditName(ctx context.Context, tgUserID int64) (Reply, error) {
	return s.edit(ctx, tgUserID, models.StepAskName, ReplyAskName)
}

// EditPhone переводит диалог на повторную отправку телефона
func (s *Service) EditPhone(ctx context.Context, tgUserID int64) (Reply, error) {
	return s.edit(ctx, tgUserID, models.StepAskPhone, ReplyAskPhone)
}

// EditLanguage переводит диалог на повторный выбор языка
func (s *Service) EditLanguage(ctx context.Context, tgUserID int64) (Reply, error) {
	return s.edit(ctx, tgUserID, models.StepEditLanguage, ReplyChooseLanguage)
}

func (s *Service) edit(ctx context.Context, tgUserID int64, step models.Step, kind ReplyKind) (Reply, error) {
	const op = "botservice.edit"

	if err := s.setStep(ctx, tgUserID, step); err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	profile, err := s.profile(ctx, tgUserID)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", op, err)
	}

	return Reply{Kind: kind, Lang: profile.Lang()}, nil
}

// menuCommand разбирает текст в главном меню по набору кнопок текущего
// языка. Нераспознанный текст - определенное поведение: нет ни перехода,
// ни ответа.
func (s *Service) menuCommand(ctx context.Context, sess *models.Session, profile *models.UserProfile, text string) (Reply, error) {
	const op = "botservice.menuCommand"

	lang := profile.Lang()

	switch i18n.MenuCommand(lang, text) {
	case i18n.CommandOrder:
		return Reply{Kind: ReplyOpenMenu, Lang: lang}, nil

	case i18n.CommandSettings:
		return Reply{Kind: ReplySettings, Lang: lang, Profile: profile}, nil

	case i18n.CommandFeedback:
		if err := s.transition(ctx, sess, models.StepAwaitingFeedback); err != nil {
			return Reply{}, fmt.Errorf("%s: %w", op, err)
		}
		return Reply{Kind: ReplyFeedbackPrompt, Lang: lang}, nil

	default:
		return Reply{Kind: ReplyNone, Lang: lang}, nil
	}
}

// profile возвращает профиль пользователя; отсутствующий профиль - это
// пустой профиль с языком по умолчанию, не ошибка
func (s *Service) profile(ctx context.Context, tgUserID int64) (*models.UserProfile, error) {
	profile, err := s.profiles.Profile(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return &models.UserProfile{TgUserID: tgUserID, Language: models.DefaultLanguage}, nil
		}
		return nil, err
	}

	return profile, nil
}

func (s *Service) transition(ctx context.Context, sess *models.Session, to models.Step) error {
	if err := s.sm.Transition(sess.Step, to); err != nil {
		return err
	}

	from := sess.Step
	sess.Step = to
	if err := s.sessions.Put(ctx, sess); err != nil {
		return err
	}

	s.log.Debug("step transition",
		slog.Int64("tgUserID", sess.TgUserID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	return nil
}

func (s *Service) setStep(ctx context.Context, tgUserID int64, to models.Step) error {
	sess, err := s.sessions.Get(ctx, tgUserID)
	if err != nil {
		return err
	}

	if sess.Step == to {
		return nil
	}

	if err := s.transition(ctx, sess, to); err != nil {
		s.log.Error("failed to transition", sl.Err(err))
		return err
	}

	return nil
}

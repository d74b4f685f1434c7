package telegram

import (
	"fmt"

	"avigoBot/internal/domain/models"
	"avigoBot/internal/i18n"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback-данные inline-кнопок
const (
	CallbackLangPrefix = "lang_"
	CallbackEditName   = "edit_name"
	CallbackEditPhone  = "edit_phone"
	CallbackEditLang   = "edit_lang"
	CallbackPayClick   = "pay_click"
	CallbackPayCash    = "pay_cash"
)

// action - одна inline-кнопка: ключ строки i18n и callback-данные
type action struct {
	key  string
	data string
}

// Декларативные описания меню: порядок строк задает порядок кнопок
var (
	settingsMenu = [][]action{
		{{key: i18n.KeyEditName, data: CallbackEditName}},
		{{key: i18n.KeyEditPhone, data: CallbackEditPhone}},
		{{key: i18n.KeyEditLang, data: CallbackEditLang}},
	}

	paymentMenu = [][]action{
		{{key: i18n.KeyPayClick, data: CallbackPayClick}},
		{{key: i18n.KeyPayCash, data: CallbackPayCash}},
	}

	settingsIcons = map[string]string{
		i18n.KeyEditName:  "👤 ",
		i18n.KeyEditPhone: "📞 ",
		i18n.KeyEditLang:  "🌐 ",
	}
)

// KeyboardManager строит клавиатуры из декларативных таблиц меню
type KeyboardManager struct {
	webAppURL string
}

// NewKeyboardManager создает менеджер клавиатур.
// webAppURL - адрес mini-app с меню заведения.
func NewKeyboardManager(webAppURL string) *KeyboardManager {
	return &KeyboardManager{webAppURL: webAppURL}
}

// MainMenu возвращает reply-клавиатуру главного меню на языке пользователя
func (km *KeyboardManager) MainMenu(lang models.Language) tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, i18n.KeyOrder)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, i18n.KeyFeedback)),
			tgbotapi.NewKeyboardButton(i18n.T(lang, i18n.KeySettings)),
		),
	)
	keyboard.ResizeKeyboard = true

	return keyboard
}

// LanguageInline возвращает двуязычную клавиатуру выбора языка
func (km *KeyboardManager) LanguageInline() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.LanguageNames[models.LanguageUz], CallbackLangPrefix+string(models.LanguageUz)),
			tgbotapi.NewInlineKeyboardButtonData(i18n.LanguageNames[models.LanguageRu], CallbackLangPrefix+string(models.LanguageRu)),
		),
	)
}

// SettingsInline возвращает клавиатуру редактирования профиля
func (km *KeyboardManager) SettingsInline(lang models.Language) tgbotapi.InlineKeyboardMarkup {
	return buildInline(lang, settingsMenu, settingsIcons)
}

// PaymentInline возвращает клавиатуру выбора способа оплаты
func (km *KeyboardManager) PaymentInline(lang models.Language) tgbotapi.InlineKeyboardMarkup {
	return buildInline(lang, paymentMenu, nil)
}

// ContactRequest возвращает клавиатуру запроса контакта
func (km *KeyboardManager) ContactRequest(lang models.Language) tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(i18n.T(lang, i18n.KeySendPhone)),
		),
	)
	keyboard.ResizeKeyboard = true
	keyboard.OneTimeKeyboard = true

	return keyboard
}

// Типы web_app-кнопки Bot API. В используемой версии библиотеки их нет,
// поэтому reply_markup собирается вручную: библиотека сериализует
// переданное значение в JSON как есть.
type WebAppInfo struct {
	URL string `json:"url"`
}

type WebAppButton struct {
	Text   string     `json:"text"`
	WebApp WebAppInfo `json:"web_app"`
}

type WebAppKeyboard struct {
	InlineKeyboard [][]WebAppButton `json:"inline_keyboard"`
}

// WebAppMenu возвращает кнопку, открывающую mini-app с меню
func (km *KeyboardManager) WebAppMenu(lang models.Language, tgUserID int64) WebAppKeyboard {
	url := fmt.Sprintf("%s?userId=%d", km.webAppURL, tgUserID)

	return WebAppKeyboard{
		InlineKeyboard: [][]WebAppButton{{
			{Text: i18n.T(lang, i18n.KeyMenuButton), WebApp: WebAppInfo{URL: url}},
		}},
	}
}

// PaymentURLButton возвращает кнопку-ссылку на платежную страницу Click
func (km *KeyboardManager) PaymentURLButton(lang models.Language, url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(i18n.T(lang, i18n.KeyPayClick), url),
		),
	)
}

// Remove убирает reply-клавиатуру
func (km *KeyboardManager) Remove() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}

func buildInline(lang models.Language, menu [][]action, icons map[string]string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu))
	for _, menuRow := range menu {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(menuRow))
		for _, a := range menuRow {
			label := icons[a.key] + i18n.T(lang, a.key)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, a.data))
		}
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

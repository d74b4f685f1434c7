package i18n

import (
	"strings"

	"avigoBot/internal/domain/models"
)

// Command представляет команду главного меню, распознанную по тексту кнопки
type Command string

const (
	CommandNone     Command = ""
	CommandOrder    Command = "order"
	CommandSettings Command = "settings"
	CommandFeedback Command = "feedback"
)

// Ключи строк интерфейса
const (
	KeyWelcome        = "welcome"
	KeyWelcomeBack    = "welcome_back"
	KeyAskPhone       = "ask_phone"
	KeyOrder          = "order"
	KeySettings       = "settings"
	KeyFeedback       = "feedback"
	KeyDone           = "done"
	KeyCurrentData    = "current_data"
	KeyEditName       = "edit_name"
	KeyEditPhone      = "edit_phone"
	KeyEditLang       = "edit_lang"
	KeyFeedbackPrompt = "feedback_prompt"
	KeyOpenMenu       = "open_menu"
	KeyMenuButton     = "menu_button"
	KeySendPhone      = "send_phone"
	KeyChoosePayment  = "choose_payment"
	KeyPayClick       = "pay_click"
	KeyPayCash        = "pay_cash"
	KeyPayURL         = "pay_url"
	KeyInvoiceTitle   = "invoice_title"
	KeyInvoiceLabel   = "invoice_label"
	KeyOrderAccepted  = "order_accepted"
	KeyPaymentOK      = "payment_ok"
	KeyOrderNotFound  = "order_not_found"
	KeyOrderFailed    = "order_failed"
)

var messages = map[models.Language]map[string]string{
	models.LanguageUz: {
		KeyWelcome:        "Xush kelibsiz! Ism-familiyangizni kiriting:",
		KeyWelcomeBack:    "Xush kelibsiz, {name}!",
		KeyAskPhone:       "Telefon raqamingizni yuboring:",
		KeyOrder:          "🍟 Buyurtma berish",
		KeySettings:       "⚙️ Sozlamalar",
		KeyFeedback:       "📩 Takliflar",
		KeyDone:           "✅ Ma'lumotlar saqlandi!",
		KeyCurrentData:    "📝 Sizning ma'lumotlaringiz:\n\n👤 Ism: {name}\n📞 Tel: {phone}\n🌐 Til: {lang}",
		KeyEditName:       "Ismni o'zgartirish",
		KeyEditPhone:      "Nomerni o'zgartirish",
		KeyEditLang:       "Tilni o'zgartirish",
		KeyFeedbackPrompt: "Xabaringizni yozing:",
		KeyOpenMenu:       "Menyuni oching:",
		KeyMenuButton:     "🍟 Menyu",
		KeySendPhone:      "📱 Telefon yuborish",
		KeyChoosePayment:  "To'lov usulini tanlang:",
		KeyPayClick:       "💳 Click orqali to'lash",
		KeyPayCash:        "💵 Naqd pul",
		KeyPayURL:         "To'lov uchun havolaga o'ting:",
		KeyInvoiceTitle:   "Buyurtma to'lovi",
		KeyInvoiceLabel:   "Jami",
		KeyOrderAccepted:  "✅ Buyurtmangiz qabul qilindi!",
		KeyPaymentOK:      "✅ To'lov qabul qilindi! Buyurtmangiz tayyorlanmoqda.",
		KeyOrderNotFound:  "Buyurtma topilmadi. Menyudan qaytadan tanlang.",
		KeyOrderFailed:    "Xatolik yuz berdi. Qaytadan urinib ko'ring.",
	},
	models.LanguageRu: {
		KeyWelcome:        "Добро пожаловать! Введите имя и фамилию:",
		KeyWelcomeBack:    "Добро пожаловать, {name}!",
		KeyAskPhone:       "Отправьте ваш номер телефона:",
		KeyOrder:          "🍟 Заказать",
		KeySettings:       "⚙️ Настройки",
		KeyFeedback:       "📩 Жалобы",
		KeyDone:           "✅ Данные сохранены!",
		KeyCurrentData:    "📝 Ваши данные:\n\n👤 Имя: {name}\n📞 Тел: {phone}\n🌐 Язык: {lang}",
		KeyEditName:       "Изменить имя",
		KeyEditPhone:      "Изменить номер",
		KeyEditLang:       "Изменить язык",
		KeyFeedbackPrompt: "Напишите ваше сообщение:",
		KeyOpenMenu:       "Откройте меню:",
		KeyMenuButton:     "🍟 Меню",
		KeySendPhone:      "📱 Отправить телефон",
		KeyChoosePayment:  "Выберите способ оплаты:",
		KeyPayClick:       "💳 Оплатить через Click",
		KeyPayCash:        "💵 Наличные",
		KeyPayURL:         "Перейдите по ссылке для оплаты:",
		KeyInvoiceTitle:   "Оплата заказа",
		KeyInvoiceLabel:   "Итого",
		KeyOrderAccepted:  "✅ Ваш заказ принят!",
		KeyPaymentOK:      "✅ Оплата получена! Ваш заказ готовится.",
		KeyOrderNotFound:  "Заказ не найден. Выберите заново из меню.",
		KeyOrderFailed:    "Произошла ошибка. Попробуйте еще раз.",
	},
}

// LanguageNames отображает язык в название для настроек
var LanguageNames = map[models.Language]string{
	models.LanguageUz: "O'zbekcha 🇺🇿",
	models.LanguageRu: "Русский 🇷🇺",
}

// ChooseLanguagePrompt показывается до того, как язык известен
const ChooseLanguagePrompt = "Tilni tanlang / Выберите язык:"

// T возвращает строку по ключу для языка. Для неизвестного языка
// используется язык по умолчанию.
func T(lang models.Language, key string) string {
	table, ok := messages[lang]
	if !ok {
		table = messages[models.DefaultLanguage]
	}
	return table[key]
}

// Replace подставляет значения плейсхолдеров вида {name} в строку
func Replace(s string, pairs map[string]string) string {
	for k, v := range pairs {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

// MenuCommand сопоставляет текст сообщения с кнопкой главного меню на
// языке пользователя. Нераспознанный текст - не команда: CommandNone.
func MenuCommand(lang models.Language, text string) Command {
	switch text {
	case T(lang, KeyOrder):
		return CommandOrder
	case T(lang, KeySettings):
		return CommandSettings
	case T(lang, KeyFeedback):
		return CommandFeedback
	default:
		return CommandNone
	}
}

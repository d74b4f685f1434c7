package models

import (
	"time"
)

// Language представляет язык интерфейса пользователя
type Language string

const (
	LanguageUz Language = "uz"
	LanguageRu Language = "ru"
)

// DefaultLanguage используется, пока пользователь не выбрал язык
const DefaultLanguage = LanguageUz

// ParseLanguage возвращает язык по коду из callback-данных (lang_uz / lang_ru)
func ParseLanguage(code string) (Language, bool) {
	switch Language(code) {
	case LanguageUz:
		return LanguageUz, true
	case LanguageRu:
		return LanguageRu, true
	default:
		return "", false
	}
}

// UserProfile представляет профиль пользователя Telegram
type UserProfile struct {
	TgUserID  int64     `db:"tg_user_id"`
	FullName  *string   `db:"full_name"`
	Phone     *string   `db:"phone"`
	Language  Language  `db:"language"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsComplete сообщает, заполнен ли профиль (имя и телефон)
func (u *UserProfile) IsComplete() bool {
	return u != nil && u.FullName != nil && *u.FullName != "" && u.Phone != nil && *u.Phone != ""
}

// Lang возвращает язык профиля либо язык по умолчанию
func (u *UserProfile) Lang() Language {
	if u == nil || u.Language == "" {
		return DefaultLanguage
	}
	return u.Language
}

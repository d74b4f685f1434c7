package i18n

import (
	"testing"

	"avigoBot/internal/domain/models"
)

func TestMenuCommandMatchesPerLanguage(t *testing.T) {
	if got := MenuCommand(models.LanguageUz, "🍟 Buyurtma berish"); got != CommandOrder {
		t.Errorf("uz order button: got %q", got)
	}
	if got := MenuCommand(models.LanguageRu, "⚙️ Настройки"); got != CommandSettings {
		t.Errorf("ru settings button: got %q", got)
	}
	if got := MenuCommand(models.LanguageUz, "📩 Takliflar"); got != CommandFeedback {
		t.Errorf("uz feedback button: got %q", got)
	}
}

func TestMenuCommandUnmatchedTextIsNotACommand(t *testing.T) {
	if got := MenuCommand(models.LanguageUz, "hello"); got != CommandNone {
		t.Errorf("unmatched text: got %q, want none", got)
	}
	// Кнопка другого языка не распознается
	if got := MenuCommand(models.LanguageUz, "🍟 Заказать"); got != CommandNone {
		t.Errorf("ru button with uz profile: got %q, want none", got)
	}
}

func TestReplaceSubstitutesPlaceholders(t *testing.T) {
	got := Replace(T(models.LanguageUz, KeyWelcomeBack), map[string]string{"name": "Ali Valiyev"})
	want := "Xush kelibsiz, Ali Valiyev!"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUnknownLanguageFallsBackToDefault(t *testing.T) {
	if got := T(models.Language("en"), KeyDone); got != T(models.DefaultLanguage, KeyDone) {
		t.Errorf("unknown language should fall back to default, got %q", got)
	}
}

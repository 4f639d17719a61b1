package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

type I18n struct {
	fallback     domain.Language
	translations map[domain.Language]map[string]string
	surahs       map[domain.Language][]string
}

var _ domain.I18nPort = (*I18n)(nil)

type translationFile struct {
	Messages map[string]string `yaml:"messages"`
	Surahs   []string          `yaml:"surahs"`
}

// Languages lists the locales loaded from disk
var Languages = []domain.Language{domain.LangEnglish, domain.LangArabic, domain.LangRussian}

// NewI18n loads <lang>.yaml for every supported language. Missing keys and
// surah names fall back to the fallback language.
func NewI18n(localesDir string, fallback domain.Language) (*I18n, error) {
	i18n := &I18n{
		fallback:     fallback,
		translations: make(map[domain.Language]map[string]string),
		surahs:       make(map[domain.Language][]string),
	}

	for _, lang := range Languages {
		filename := filepath.Join(localesDir, string(lang)+".yaml")
		if err := i18n.loadTranslations(lang, filename); err != nil {
			return nil, fmt.Errorf("load %s translations: %w", lang, err)
		}
	}

	if _, ok := i18n.translations[fallback]; !ok {
		return nil, fmt.Errorf("unsupported fallback language %q", fallback)
	}

	return i18n, nil
}

func (i *I18n) loadTranslations(lang domain.Language, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var tf translationFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	i.translations[lang] = tf.Messages
	i.surahs[lang] = tf.Surahs

	return nil
}

// Get retrieves a translated message, formatting it with args when given
func (i *I18n) Get(lang domain.Language, key string, args ...interface{}) string {
	msg, ok := i.translations[lang][key]
	if !ok {
		msg, ok = i.translations[i.fallback][key]
	}
	if !ok {
		return key
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	return msg
}

// GetSurahName retrieves the localized name of a Surah
func (i *I18n) GetSurahName(lang domain.Language, surahNumber int) string {
	surahs, ok := i.surahs[lang]
	if !ok || surahNumber < 1 || surahNumber > len(surahs) {
		surahs = i.surahs[i.fallback]
	}

	if surahNumber >= 1 && surahNumber <= len(surahs) {
		return strings.TrimSpace(surahs[surahNumber-1])
	}

	if s, ok := domain.SurahByNumber(surahNumber); ok {
		return s.Name
	}
	return fmt.Sprintf("Surah %d", surahNumber)
}

// FormatSurahButton formats a surah button text with number and name
func FormatSurahButton(lang domain.Language, i18n domain.I18nPort, surahNumber int) string {
	return fmt.Sprintf("%d. %s", surahNumber, i18n.GetSurahName(lang, surahNumber))
}

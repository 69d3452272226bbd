// Package i18n provides translation lookup for user-facing text.
// Locale catalogs are JSON documents embedded at build time, one file per
// module, with nested keys addressed in dot notation.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed locales
var localeFS embed.FS

// Supported locales.
const (
	LocalePTBR = "pt-BR"
	LocaleENUS = "en-US"

	DefaultLocale = LocalePTBR
)

var supportedLocales = []string{LocalePTBR, LocaleENUS}

// Translator resolves translation keys for one locale. A key with no
// translation resolves to the key itself, so missing catalog entries
// degrade to readable identifiers instead of failing.
type Translator struct {
	locale  string
	modules map[string]map[string]any
}

// New loads every module catalog for the locale. An empty locale selects
// the default; an unsupported one is an error.
func New(locale string) (*Translator, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	if !isSupported(locale) {
		return nil, fmt.Errorf("unsupported locale %q (supported: %s)", locale, strings.Join(supportedLocales, ", "))
	}

	dir := "locales/" + locale
	entries, err := localeFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read locale %s: %w", locale, err)
	}

	t := &Translator{locale: locale, modules: make(map[string]map[string]any, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := localeFS.ReadFile(dir + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s/%s: %w", locale, name, err)
		}
		var catalog map[string]any
		if err := json.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("parse catalog %s/%s: %w", locale, name, err)
		}
		t.modules[strings.TrimSuffix(name, ".json")] = catalog
	}
	return t, nil
}

// Locale returns the translator's locale code.
func (t *Translator) Locale() string { return t.locale }

// T resolves a dot-notation key in a module catalog. Unknown modules,
// missing keys, and non-string values all resolve to the key itself.
func (t *Translator) T(module, key string) string {
	catalog, ok := t.modules[module]
	if !ok {
		return key
	}

	var value any = catalog
	for _, part := range strings.Split(key, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return key
		}
		value, ok = m[part]
		if !ok {
			return key
		}
	}

	s, ok := value.(string)
	if !ok {
		return key
	}
	return s
}

// Tf resolves a key and interpolates {name} placeholders from params.
func (t *Translator) Tf(module, key string, params map[string]string) string {
	s := t.T(module, key)
	for name, v := range params {
		s = strings.ReplaceAll(s, "{"+name+"}", v)
	}
	return s
}

func isSupported(locale string) bool {
	for _, l := range supportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

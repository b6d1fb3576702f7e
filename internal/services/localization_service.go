package services

import (
	"fmt"
	"strings"
	"sync"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/data/embedded"
	"chatwidget/internal/logger"
)

// LocalizationService resolves message templates by key for the active
// language. Tables are data assets embedded in the binary, not program
// logic; the service only does lookup and placeholder substitution.
type LocalizationService struct {
	initialized bool

	mu     sync.RWMutex
	code   string
	table  map[string]string
	tables map[string]map[string]string
}

// NewLocalizationService creates a new LocalizationService instance.
func NewLocalizationService() *LocalizationService {
	return &LocalizationService{
		initialized: false,
		tables:      make(map[string]map[string]string),
	}
}

// Name returns the service name "localization" for registration.
func (l *LocalizationService) Name() string {
	return "localization"
}

// Initialize loads the table for the configured language, falling back to
// the default language if the configured code has no embedded table.
func (l *LocalizationService) Initialize() error {
	code := widgetcontext.GetGlobalContext().Language()
	if !l.loadTable(code) {
		logger.Warn("No locale table for configured language, falling back", "language", code)
		if !l.loadTable("es") {
			return fmt.Errorf("default locale table missing")
		}
	}
	l.initialized = true
	return nil
}

// SetLanguage switches the active string table. Unknown codes are a no-op
// returning false.
func (l *LocalizationService) SetLanguage(code string) bool {
	if !l.initialized {
		return false
	}
	if !l.loadTable(code) {
		return false
	}
	widgetcontext.GetGlobalContext().SetLanguage(code)
	return true
}

// Language returns the code of the active table.
func (l *LocalizationService) Language() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.code
}

// AvailableLanguages lists the codes with embedded tables.
func (l *LocalizationService) AvailableLanguages() []string {
	return embedded.AvailableLocales()
}

// Get returns the template for the given key, or the key itself when
// missing so that a typo surfaces visibly instead of rendering nothing.
func (l *LocalizationService) Get(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if text, ok := l.table[key]; ok {
		return text
	}
	logger.Warn("Missing localization key", "key", key, "language", l.code)
	return key
}

// Format resolves the key and substitutes {placeholder} occurrences from
// vars.
func (l *LocalizationService) Format(key string, vars map[string]string) string {
	text := l.Get(key)
	if len(vars) == 0 {
		return text
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// loadTable fetches (and memoizes) the table for code, making it active on
// success.
func (l *LocalizationService) loadTable(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if table, ok := l.tables[code]; ok {
		l.code = code
		l.table = table
		return true
	}

	table, err := embedded.LoadLocale(code)
	if err != nil {
		return false
	}
	l.tables[code] = table
	l.code = code
	l.table = table
	return true
}

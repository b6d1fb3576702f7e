// Package widgettypes defines configuration types for the chat widget core.
package widgettypes

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// OnboardingTemplate selects between the minimal name-only registration flow
// and the richer multi-step flow with FAQ browsing.
type OnboardingTemplate string

// Supported onboarding templates.
const (
	OnboardingBasic    OnboardingTemplate = "basic"
	OnboardingAdvanced OnboardingTemplate = "advanced"
)

// Config is the immutable construction-time configuration of the widget.
// BaseURL and APIKey are mandatory; their absence is a construction error
// and no partial widget is usable. Runtime-tunable values (question length,
// language, cache enablement) are copied into live state at construction
// and mutated there, never here.
type Config struct {
	BaseURL string `validate:"required,url"`
	APIKey  string `validate:"required"`
	Tenant  string

	// Feature flags.
	Register bool
	Cache    bool
	TestMode bool
	Stream   bool
	DevMode  bool
	Show     bool

	Onboarding OnboardingTemplate `validate:"omitempty,oneof=basic advanced"`

	// Display and timing parameters.
	ReminderTimeout          time.Duration `validate:"min=0"`
	MaxQuestionLength        int           `validate:"min=1"`
	CacheExpiration          time.Duration `validate:"min=0"`
	StreamCharDelay          time.Duration `validate:"min=0"`
	RegistrationConfirmDelay time.Duration `validate:"min=0"`

	// Localization language code ("es", "en").
	Language string

	// CacheDir overrides where the persistent cache entry lives. Empty means
	// the user config directory.
	CacheDir string

	// User and bot identity defaults, optionally overridden by the backend.
	User User
	Bot  Bot
}

// Default timing and sizing values. The registration confirmation delay is a
// config value rather than a hard-coded pause: the basic flow historically
// re-enabled input immediately while the richer flow waited 1.5s.
const (
	DefaultMaxQuestionLength        = 500
	DefaultCacheExpiration          = 24 * time.Hour
	DefaultReminderTimeout          = 60 * time.Second
	DefaultStreamCharDelay          = 30 * time.Millisecond
	DefaultRegistrationConfirmDelay = 1500 * time.Millisecond
	DefaultLanguage                 = "es"
)

// DefaultConfig returns a Config populated with defaults for everything
// except the mandatory BaseURL and APIKey.
func DefaultConfig() Config {
	return Config{
		Cache:                    true,
		Show:                     true,
		Onboarding:               OnboardingBasic,
		ReminderTimeout:          DefaultReminderTimeout,
		MaxQuestionLength:        DefaultMaxQuestionLength,
		CacheExpiration:          DefaultCacheExpiration,
		StreamCharDelay:          DefaultStreamCharDelay,
		RegistrationConfirmDelay: DefaultRegistrationConfirmDelay,
		Language:                 DefaultLanguage,
		User: User{
			Name:  DefaultUserName,
			Email: "test@mail.com",
			Photo: "img/user_icon.png",
		},
		Bot: Bot{
			Name:  "Bot",
			Photo: "img/bot_icon.png",
		},
	}
}

// ApplyDefaults fills zero-valued optional fields with their defaults.
// Boolean flags are left untouched; callers starting from DefaultConfig
// already have the right values.
func (c *Config) ApplyDefaults() {
	if c.Onboarding == "" {
		c.Onboarding = OnboardingBasic
	}
	if c.MaxQuestionLength == 0 {
		c.MaxQuestionLength = DefaultMaxQuestionLength
	}
	if c.CacheExpiration == 0 {
		c.CacheExpiration = DefaultCacheExpiration
	}
	if c.ReminderTimeout == 0 {
		c.ReminderTimeout = DefaultReminderTimeout
	}
	if c.StreamCharDelay == 0 {
		c.StreamCharDelay = DefaultStreamCharDelay
	}
	if c.RegistrationConfirmDelay == 0 {
		c.RegistrationConfirmDelay = DefaultRegistrationConfirmDelay
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.User.Name == "" {
		c.User.Name = DefaultUserName
	}
	if c.Bot.Name == "" {
		c.Bot.Name = "Bot"
	}
}

var configValidator = validator.New()

// Validate checks the configuration for construction errors. It is the only
// error path allowed to escape widget construction.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid widget configuration: %w", err)
	}
	return nil
}

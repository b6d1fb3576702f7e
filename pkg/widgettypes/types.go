// Package widgettypes defines the shared data model for the chat widget core.
// This file contains the conversation types: messages, users, licensing and
// the screen state that governs which part of the widget is active.
package widgettypes

import "time"

// Sender identifies the origin of a transcript message.
const (
	FromUser = "user"
	FromBot  = "bot"
)

// DefaultUserName is the sentinel name assigned until onboarding captures a
// real display name.
const DefaultUserName = "Usuario"

// MessageFlags carries the presentation and routing hints attached to a
// transcript message. All flags default to false; omitempty keeps cached
// transcripts compact.
type MessageFlags struct {
	IsWelcome          bool `json:"is_welcome,omitempty"`
	IsError            bool `json:"is_error,omitempty"`
	IsStreaming        bool `json:"is_streaming,omitempty"`
	IsRegistration     bool `json:"is_registration,omitempty"`
	ShowRetry          bool `json:"show_retry,omitempty"`
	ShowWelcomeButtons bool `json:"show_welcome_buttons,omitempty"`
	ShowOptionsButtons bool `json:"show_options_buttons,omitempty"`
	IsReminder         bool `json:"is_reminder,omitempty"`
	IsLimitReached     bool `json:"is_limit_reached,omitempty"`
}

// Message represents a single entry in the ordered conversation transcript.
// Insertion order is display order; messages are append-only except for the
// in-place text mutation performed by the streaming reveal.
type Message struct {
	ID    string       `json:"id"`
	From  string       `json:"from"`
	Text  string       `json:"text"`
	Time  time.Time    `json:"time"`
	Flags MessageFlags `json:"flags,omitempty"`
}

// User holds the identity of the person chatting with the widget.
// Name starts as the sentinel and is mutated only during onboarding.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
}

// Bot holds the bot identity, optionally overridden by the backend during
// registration.
type Bot struct {
	Name           string `json:"name"`
	Photo          string `json:"photo"`
	InitialMessage string `json:"initial_message,omitempty"`
}

// License is received from the backend and governs footer visibility and
// whether the registration feature may activate. The client only assigns it.
type License struct {
	Name       string `json:"name"`
	Logo       string `json:"logo"`
	Active     bool   `json:"active"`
	URL        string `json:"url"`
	ShowFooter bool   `json:"showFooter"`
}

// FAQ is a question/answer pair offered during advanced onboarding.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Product is a browsable catalog entry returned by the backend.
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Screen identifies which widget screen is active. Exactly one screen is
// active at a time; transitions are one-directional except Error, which can
// return to any screen through a retry.
type Screen string

// The four conversation screens.
const (
	ScreenRegistration       Screen = "registration"
	ScreenAdvancedOnboarding Screen = "advanced_onboarding"
	ScreenChat               Screen = "chat"
	ScreenError              Screen = "error"
)

// OnboardingOption is the binary choice presented at step 1 of advanced
// onboarding.
type OnboardingOption string

// Advanced onboarding step-1 choices.
const (
	OnboardingOptionFAQ       OnboardingOption = "faq"
	OnboardingOptionStartChat OnboardingOption = "start_chat"
)

// CacheEntry is the JSON-serialized unit of session continuity persisted
// between page loads. An entry whose age meets or exceeds Expiration is
// treated as absent.
type CacheEntry struct {
	Session    string        `json:"session"`
	Registered bool          `json:"registered"`
	User       User          `json:"user"`
	Bot        Bot           `json:"bot"`
	License    License       `json:"license"`
	Messages   []Message     `json:"messages,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Expiration time.Duration `json:"expiration"`
}

// Expired reports whether the entry is stale relative to now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) >= e.Expiration
}

// RegistrationStatus is the plain snapshot returned by the public
// GetRegistrationStatus operation.
type RegistrationStatus struct {
	RegisterOption  bool   `json:"register_option"`
	Registered      bool   `json:"registered"`
	HasSession      bool   `json:"has_session"`
	LicenseActive   bool   `json:"license_active"`
	WelcomeMessages int    `json:"welcome_messages"`
	UserName        string `json:"user_name"`
	UserEmail       string `json:"user_email"`
}

// CacheStatus is the plain snapshot returned by the public GetCacheStatus
// operation.
type CacheStatus struct {
	Enabled    bool `json:"enabled"`
	Exists     bool `json:"exists"`
	Expired    bool `json:"expired"`
	AgeMinutes int  `json:"age_minutes"`
	Messages   int  `json:"messages"`
	Registered bool `json:"registered"`
}

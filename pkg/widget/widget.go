// Package widget is the public entry point of the embeddable chat widget
// core. A Widget wires the context, the service registry and the state
// machine together and exposes the operations a host front-end drives.
package widget

import (
	"fmt"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/logger"
	"chatwidget/internal/services"
	"chatwidget/internal/statemachine"
	"chatwidget/internal/testutils"
	"chatwidget/pkg/widgettypes"
)

// Widget is one embedded chat client. Only a single instance may be active
// per process; constructing a new one replaces the previous instance's
// global state.
type Widget struct {
	machine *statemachine.Machine
}

// New validates the configuration, installs fresh global state, initializes
// all services and acquires a session. Configuration errors abort before any
// global state is touched; a failed backend handshake does not fail
// construction, it lands the widget on the error screen instead.
func New(cfg widgettypes.Config) (*Widget, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := widgetcontext.New()
	ctx.SetConfig(cfg)
	widgetcontext.SetGlobalContext(ctx)
	services.SetGlobalRegistry(services.NewRegistry())
	if cfg.TestMode {
		testutils.Reset()
	}

	registry := services.GetGlobalRegistry()
	for _, svc := range []widgettypes.Service{
		services.NewBackendClient(),
		services.NewCacheService(),
		services.NewLocalizationService(),
		services.NewSessionService(),
		services.NewMessageService(),
	} {
		if err := registry.RegisterService(svc); err != nil {
			return nil, err
		}
	}
	if err := registry.InitializeAll(); err != nil {
		return nil, fmt.Errorf("widget initialization failed: %w", err)
	}

	w := &Widget{machine: statemachine.New()}

	session, err := services.GetSessionService()
	if err != nil {
		return nil, err
	}
	if err := session.InitializeSession(); err != nil {
		logger.Warn("Session acquisition failed, error screen active", "error", err)
	}
	return w, nil
}

// SetRenderer attaches the presentation observer and immediately replays the
// current state so a late-attached renderer starts in sync.
func (w *Widget) SetRenderer(r widgettypes.Renderer) {
	ctx := widgetcontext.GetGlobalContext()
	ctx.SetRenderer(r)
	if r != nil {
		r.OnScreenChanged(ctx.Screen())
		r.OnVisibilityChanged(ctx.Visible())
		r.OnInputEnabledChanged(ctx.InputEnabled())
		r.OnTranscriptChanged(ctx.Messages())
	}
}

// SendMessage submits free-text input to the active screen. It reports
// whether the input was accepted.
func (w *Widget) SendMessage(text string) bool {
	return w.machine.SubmitInput(text)
}

// SelectOnboardingOption resolves the advanced-onboarding choice step.
func (w *Widget) SelectOnboardingOption(option widgettypes.OnboardingOption) bool {
	return w.machine.SelectOption(option)
}

// Retry re-runs session acquisition from the error screen.
func (w *Widget) Retry() error {
	return w.machine.Retry()
}

// ClearHistory wipes the transcript and the persisted entry and reseeds the
// initial screen. Calling it repeatedly is harmless.
func (w *Widget) ClearHistory() {
	session, err := services.GetSessionService()
	if err != nil {
		return
	}
	if msg, err := services.GetMessageService(); err == nil {
		msg.CancelReminder()
	}
	session.ClearHistory()
}

// ToggleVisibility flips the panel open or closed and returns the new state.
// Hiding the panel disarms a pending idle reminder.
func (w *Widget) ToggleVisibility() bool {
	visible := widgetcontext.GetGlobalContext().ToggleVisible()
	if !visible {
		if msg, err := services.GetMessageService(); err == nil {
			msg.CancelReminder()
		}
	}
	return visible
}

// Visible reports whether the panel is open.
func (w *Widget) Visible() bool {
	return widgetcontext.GetGlobalContext().Visible()
}

// Screen returns the active conversation screen.
func (w *Widget) Screen() widgettypes.Screen {
	return widgetcontext.GetGlobalContext().Screen()
}

// Messages returns a snapshot of the transcript.
func (w *Widget) Messages() []widgettypes.Message {
	return widgetcontext.GetGlobalContext().Messages()
}

// InputEnabled reports whether free-text input is currently accepted.
func (w *Widget) InputEnabled() bool {
	return widgetcontext.GetGlobalContext().InputEnabled()
}

// Typing reports whether the bot typing indicator is active.
func (w *Widget) Typing() bool {
	return widgetcontext.GetGlobalContext().Typing()
}

// GetRegistrationStatus returns a plain snapshot of the registration state
// for host-page diagnostics.
func (w *Widget) GetRegistrationStatus() widgettypes.RegistrationStatus {
	ctx := widgetcontext.GetGlobalContext()
	user := ctx.User()
	return widgettypes.RegistrationStatus{
		RegisterOption:  ctx.Config().Register,
		Registered:      ctx.Registered(),
		HasSession:      ctx.Session() != "",
		LicenseActive:   ctx.License().Active,
		WelcomeMessages: ctx.WelcomeMessageCount(),
		UserName:        user.Name,
		UserEmail:       user.Email,
	}
}

// GetCacheStatus returns a plain snapshot of the persisted entry.
func (w *Widget) GetCacheStatus() widgettypes.CacheStatus {
	cache, err := services.GetCacheService()
	if err != nil {
		return widgettypes.CacheStatus{}
	}
	return cache.Status()
}

// SetMaxQuestionLength updates the live question-length limit. Values below 1
// are rejected and reported as false.
func (w *Widget) SetMaxQuestionLength(n int) bool {
	return widgetcontext.GetGlobalContext().SetMaxQuestionLength(n)
}

// SetLanguage switches the localization language. Unknown codes are a no-op
// reported as false.
func (w *Widget) SetLanguage(code string) bool {
	loc, err := services.GetLocalizationService()
	if err != nil {
		return false
	}
	return loc.SetLanguage(code)
}

// SetCacheEnabled toggles persistence at runtime. Disabling deletes the
// stored entry immediately.
func (w *Widget) SetCacheEnabled(enabled bool) {
	ctx := widgetcontext.GetGlobalContext()
	ctx.SetCacheEnabled(enabled)
	cache, err := services.GetCacheService()
	if err != nil {
		return
	}
	if enabled {
		if session, err := services.GetSessionService(); err == nil {
			session.Persist()
		}
	} else {
		cache.Clear()
	}
}

package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/logger"
	"chatwidget/internal/testutils"
	"chatwidget/pkg/widgettypes"
)

// SessionService drives the widget lifecycle: session acquisition (from cache
// or the registration handshake), the initial screen decision, error-screen
// recovery and history clearing. It owns no state itself; everything lives in
// the widget context.
type SessionService struct {
	initialized bool
	log         *log.Logger
}

// NewSessionService creates a new SessionService instance.
func NewSessionService() *SessionService {
	return &SessionService{
		initialized: false,
		log:         logger.NewStyledLogger("Session"),
	}
}

// Name returns the service name "session" for registration.
func (s *SessionService) Name() string {
	return "session"
}

// Initialize marks the service ready. Session acquisition is a separate step
// so the facade can finish wiring the renderer first.
func (s *SessionService) Initialize() error {
	s.initialized = true
	return nil
}

// InitializeSession brings the widget to a usable state: restore from cache
// when possible, otherwise perform the registration handshake. On backend
// failure the widget lands on the error screen with a retry affordance; the
// error is also returned for logging by the caller.
func (s *SessionService) InitializeSession() error {
	if !s.initialized {
		return fmt.Errorf("session service not initialized")
	}

	ctx := widgetcontext.GetGlobalContext()

	if ctx.IsTestMode() {
		s.startTestSession(ctx)
		return nil
	}

	if s.restoreFromCache(ctx) {
		return nil
	}

	return s.register(ctx)
}

// Retry leaves the error screen and re-runs session acquisition. Stale error
// messages are dropped first so failed retries never accumulate in the
// transcript; safe to call repeatedly.
func (s *SessionService) Retry() error {
	ctx := widgetcontext.GetGlobalContext()
	if ctx.Screen() != widgettypes.ScreenError {
		return nil
	}

	ctx.ClearMessages()
	if loc, err := GetLocalizationService(); err == nil {
		ctx.AppendMessage(widgettypes.Message{
			From: widgettypes.FromBot,
			Text: loc.Get("retrying"),
		})
	}
	return s.InitializeSession()
}

// ClearHistory discards the session entirely: transcript, persisted entry and
// session token all go, and session acquisition runs again from scratch, the
// same path as a first load.
func (s *SessionService) ClearHistory() {
	ctx := widgetcontext.GetGlobalContext()

	if cache, err := GetCacheService(); err == nil {
		cache.Clear()
	}

	ctx.ClearMessages()
	ctx.SetSession("")
	ctx.SetRegistered(false)
	cfgUser := ctx.Config().User
	ctx.SetUser(cfgUser)
	ctx.SetRegistrationCompleted(cfgUser.Name != "" && cfgUser.Name != widgettypes.DefaultUserName)
	ctx.SetOnboardingStep(0)

	if err := s.InitializeSession(); err != nil {
		s.log.Warn("Session re-acquisition after history clear failed", "error", err)
	}
	s.log.Debug("History cleared", "session", ctx.Session() != "")
}

// Persist writes the current conversation state through the cache service.
// The message pipeline calls this after every completed exchange.
func (s *SessionService) Persist() {
	s.persist(widgetcontext.GetGlobalContext())
}

// startTestSession synthesizes a local session with no backend involved.
// Cache persistence is skipped so test runs never touch real entries.
func (s *SessionService) startTestSession(ctx *widgetcontext.WidgetContext) {
	ctx.SetSession(testutils.GenerateSessionToken(ctx))
	ctx.SetRegistered(true)
	ctx.SetLicense(widgettypes.License{Name: "test", Active: true})
	s.seedInitialScreen(ctx)
	s.log.Debug("Test session started", "session", ctx.Session())
}

// restoreFromCache rehydrates the conversation from a persisted entry.
// Reports whether a usable entry was found.
func (s *SessionService) restoreFromCache(ctx *widgetcontext.WidgetContext) bool {
	cache, err := GetCacheService()
	if err != nil {
		return false
	}
	entry, ok := cache.Load()
	if !ok || entry.Session == "" {
		return false
	}

	ctx.SetSession(entry.Session)
	ctx.SetRegistered(entry.Registered)
	ctx.SetUser(entry.User)
	ctx.SetBot(entry.Bot)
	ctx.SetLicense(entry.License)
	ctx.RestoreMessages(entry.Messages)
	ctx.SetRegistrationCompleted(entry.User.Name != "" && entry.User.Name != widgettypes.DefaultUserName)

	if ctx.RegistrationCompleted() {
		ctx.SetScreen(widgettypes.ScreenChat)
	} else {
		s.seedInitialScreen(ctx)
	}
	s.log.Debug("Session restored from cache",
		"messages", len(entry.Messages),
		"registered", entry.Registered)
	return true
}

// register performs the backend handshake and applies its result.
func (s *SessionService) register(ctx *widgetcontext.WidgetContext) error {
	backend, err := GetBackendClient()
	if err != nil {
		return err
	}

	resp, err := backend.Register(context.Background())
	if err != nil {
		s.enterErrorScreen(ctx)
		return err
	}

	ctx.SetSession(resp.Session)
	ctx.SetLicense(resp.License)
	ctx.SetRegistered(resp.License.Active && ctx.Config().Register)
	if resp.Chatbot != nil {
		ctx.SetBot(*resp.Chatbot)
	}
	ctx.SetFAQs(resp.FAQs)
	ctx.SetProducts(resp.Products)

	s.seedInitialScreen(ctx)
	s.persist(ctx)
	return nil
}

// enterErrorScreen transitions to the error screen with a localized
// explanation that keeps the bot identity visible. The transcript is cleared
// first; the error screen shows only the failure explanation.
func (s *SessionService) enterErrorScreen(ctx *widgetcontext.WidgetContext) {
	ctx.ClearMessages()
	loc, err := GetLocalizationService()
	if err == nil {
		ctx.AppendMessage(widgettypes.Message{
			From: widgettypes.FromBot,
			Text: loc.Format("bot_info_error", map[string]string{"bot": ctx.Bot().Name}),
			Flags: widgettypes.MessageFlags{
				IsError:   true,
				ShowRetry: true,
			},
		})
	}
	ctx.SetScreen(widgettypes.ScreenError)
}

// seedInitialScreen routes to the first screen after session acquisition and
// plants the matching welcome message. A user name configured up front skips
// name capture entirely.
func (s *SessionService) seedInitialScreen(ctx *widgetcontext.WidgetContext) {
	loc, err := GetLocalizationService()
	if err != nil {
		ctx.SetScreen(widgettypes.ScreenChat)
		return
	}

	name := ctx.User().Name
	if name != "" && name != widgettypes.DefaultUserName {
		ctx.SetRegistrationCompleted(true)
	}

	if ctx.RegistrationCompleted() {
		ctx.SetScreen(widgettypes.ScreenChat)
		ctx.AppendWelcomeMessage(widgettypes.Message{
			From: widgettypes.FromBot,
			Text: loc.Format("initial_greeting", map[string]string{
				"name": ctx.User().Name,
				"bot":  ctx.Bot().Name,
			}),
		})
		return
	}

	if ctx.Config().Onboarding == widgettypes.OnboardingAdvanced {
		ctx.SetOnboardingStep(0)
		ctx.SetScreen(widgettypes.ScreenAdvancedOnboarding)
	} else {
		ctx.SetScreen(widgettypes.ScreenRegistration)
	}
	ctx.AppendWelcomeMessage(widgettypes.Message{
		From: widgettypes.FromBot,
		Text: loc.Get("welcome_registration"),
	})
}

// persist snapshots the conversation into the cache.
func (s *SessionService) persist(ctx *widgetcontext.WidgetContext) {
	if ctx.IsTestMode() {
		return
	}
	cache, err := GetCacheService()
	if err != nil {
		return
	}
	cache.Save(widgettypes.CacheEntry{
		Session:    ctx.Session(),
		Registered: ctx.Registered(),
		User:       ctx.User(),
		Bot:        ctx.Bot(),
		License:    ctx.License(),
		Messages:   ctx.Messages(),
	})
}

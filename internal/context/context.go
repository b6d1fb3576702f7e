// Package context provides the central state holder for the chat widget.
// All conversation state lives here rather than in service instances, so
// services stay stateless and the state machine can be tested headlessly.
package context

import (
	"sync"

	"chatwidget/pkg/widgettypes"
)

// WidgetContext holds the complete runtime state of one widget instance:
// session, identity, transcript, active screen and UI flags. A single
// logical writer is assumed (the browser-style event loop); the mutex
// protects against the streaming goroutine and deferred timers.
type WidgetContext struct {
	mu sync.RWMutex

	cfg      widgettypes.Config
	testMode bool

	// Session state
	session               string
	registered            bool
	registrationCompleted bool

	// Identity and licensing
	user    widgettypes.User
	bot     widgettypes.Bot
	license widgettypes.License

	// Conversation state
	messages       []widgettypes.Message
	screen         widgettypes.Screen
	onboardingStep int

	// UI flags
	loading      bool
	typing       bool
	visible      bool
	inputEnabled bool
	limitReached bool

	// Catalog data returned by registration
	faqs     []widgettypes.FAQ
	products []widgettypes.Product

	// Runtime-tunable copies of config values
	maxQuestionLength int
	language          string
	cacheEnabled      bool

	renderer widgettypes.Renderer
}

// New creates an empty WidgetContext with conservative defaults. Callers
// normally follow up with SetConfig.
func New() *WidgetContext {
	return &WidgetContext{
		screen:            widgettypes.ScreenRegistration,
		messages:          make([]widgettypes.Message, 0),
		maxQuestionLength: widgettypes.DefaultMaxQuestionLength,
		language:          widgettypes.DefaultLanguage,
		inputEnabled:      true,
	}
}

// SetConfig installs the construction-time configuration and seeds the
// runtime-tunable copies from it.
func (w *WidgetContext) SetConfig(cfg widgettypes.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cfg = cfg
	w.testMode = cfg.TestMode
	w.user = cfg.User
	w.bot = cfg.Bot
	w.visible = cfg.Show
	w.maxQuestionLength = cfg.MaxQuestionLength
	w.language = cfg.Language
	w.cacheEnabled = cfg.Cache
}

// Config returns the frozen construction-time configuration.
func (w *WidgetContext) Config() widgettypes.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// IsTestMode reports whether deterministic test mode is active.
func (w *WidgetContext) IsTestMode() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.testMode
}

// SetTestMode toggles deterministic test mode.
func (w *WidgetContext) SetTestMode(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.testMode = enabled
}

// Session returns the backend session token, empty until acquired.
func (w *WidgetContext) Session() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session
}

// SetSession stores the backend session token.
func (w *WidgetContext) SetSession(session string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = session
}

// Registered reports whether the license/register handshake succeeded.
func (w *WidgetContext) Registered() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.registered
}

// SetRegistered updates the registered flag.
func (w *WidgetContext) SetRegistered(registered bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registered = registered
}

// RegistrationCompleted reports whether the user finished the name-capture
// flow. This is the single eligibility rule for showing the registration
// screen: it is shown iff this is false.
func (w *WidgetContext) RegistrationCompleted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.registrationCompleted
}

// SetRegistrationCompleted updates the onboarding completion flag.
func (w *WidgetContext) SetRegistrationCompleted(done bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registrationCompleted = done
}

// User returns the current user identity.
func (w *WidgetContext) User() widgettypes.User {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.user
}

// SetUser replaces the user identity.
func (w *WidgetContext) SetUser(user widgettypes.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.user = user
}

// SetUserName updates only the display name, the one field onboarding
// mutates.
func (w *WidgetContext) SetUserName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.user.Name = name
}

// Bot returns the bot identity.
func (w *WidgetContext) Bot() widgettypes.Bot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bot
}

// SetBot replaces the bot identity (backend override).
func (w *WidgetContext) SetBot(bot widgettypes.Bot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bot = bot
}

// License returns the backend-issued license.
func (w *WidgetContext) License() widgettypes.License {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.license
}

// SetLicense stores the backend-issued license.
func (w *WidgetContext) SetLicense(license widgettypes.License) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.license = license
}

// Screen returns the active conversation screen.
func (w *WidgetContext) Screen() widgettypes.Screen {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.screen
}

// SetScreen transitions the active screen and notifies the renderer.
func (w *WidgetContext) SetScreen(screen widgettypes.Screen) {
	w.mu.Lock()
	changed := w.screen != screen
	w.screen = screen
	r := w.renderer
	w.mu.Unlock()

	if changed && r != nil {
		r.OnScreenChanged(screen)
	}
}

// OnboardingStep returns the current advanced-onboarding step (0 = name,
// 1 = choice).
func (w *WidgetContext) OnboardingStep() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.onboardingStep
}

// SetOnboardingStep advances the advanced-onboarding flow.
func (w *WidgetContext) SetOnboardingStep(step int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onboardingStep = step
}

// Loading reports whether a send is in flight.
func (w *WidgetContext) Loading() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loading
}

// BeginSend atomically sets the loading flag. It returns false if a send is
// already in flight, enforcing the one-outstanding-send rule.
func (w *WidgetContext) BeginSend() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loading {
		return false
	}
	w.loading = true
	return true
}

// EndSend clears the loading flag.
func (w *WidgetContext) EndSend() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = false
}

// SetLoading overrides the loading flag directly. Tests use this to probe
// the in-flight guard.
func (w *WidgetContext) SetLoading(loading bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = loading
}

// Typing reports whether the bot typing indicator is shown.
func (w *WidgetContext) Typing() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.typing
}

// SetTyping toggles the bot typing indicator and notifies the renderer.
func (w *WidgetContext) SetTyping(typing bool) {
	w.mu.Lock()
	changed := w.typing != typing
	w.typing = typing
	r := w.renderer
	w.mu.Unlock()

	if changed && r != nil {
		r.OnTypingChanged(typing)
	}
}

// Visible reports whether the chat panel is shown.
func (w *WidgetContext) Visible() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.visible
}

// SetVisible sets panel visibility and notifies the renderer.
func (w *WidgetContext) SetVisible(visible bool) {
	w.mu.Lock()
	changed := w.visible != visible
	w.visible = visible
	r := w.renderer
	w.mu.Unlock()

	if changed && r != nil {
		r.OnVisibilityChanged(visible)
	}
}

// ToggleVisible flips panel visibility and returns the new state.
func (w *WidgetContext) ToggleVisible() bool {
	w.mu.Lock()
	w.visible = !w.visible
	visible := w.visible
	r := w.renderer
	w.mu.Unlock()

	if r != nil {
		r.OnVisibilityChanged(visible)
	}
	return visible
}

// InputEnabled reports whether free-text input is accepted.
func (w *WidgetContext) InputEnabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.inputEnabled
}

// SetInputEnabled toggles free-text input and notifies the renderer.
func (w *WidgetContext) SetInputEnabled(enabled bool) {
	w.mu.Lock()
	changed := w.inputEnabled != enabled
	w.inputEnabled = enabled
	r := w.renderer
	w.mu.Unlock()

	if changed && r != nil {
		r.OnInputEnabledChanged(enabled)
	}
}

// LimitReached reports whether the backend signaled the quota condition.
// Once set, input stays disabled for the rest of the session.
func (w *WidgetContext) LimitReached() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.limitReached
}

// SetLimitReached marks the session as quota-limited.
func (w *WidgetContext) SetLimitReached(reached bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limitReached = reached
}

// FAQs returns the FAQ catalog received during registration.
func (w *WidgetContext) FAQs() []widgettypes.FAQ {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]widgettypes.FAQ, len(w.faqs))
	copy(out, w.faqs)
	return out
}

// SetFAQs stores the FAQ catalog.
func (w *WidgetContext) SetFAQs(faqs []widgettypes.FAQ) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.faqs = faqs
}

// Products returns the product catalog received during registration.
func (w *WidgetContext) Products() []widgettypes.Product {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]widgettypes.Product, len(w.products))
	copy(out, w.products)
	return out
}

// SetProducts stores the product catalog.
func (w *WidgetContext) SetProducts(products []widgettypes.Product) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.products = products
}

// MaxQuestionLength returns the live question-length limit in runes.
func (w *WidgetContext) MaxQuestionLength() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.maxQuestionLength
}

// SetMaxQuestionLength updates the live limit. Values below 1 are rejected.
func (w *WidgetContext) SetMaxQuestionLength(n int) bool {
	if n <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxQuestionLength = n
	return true
}

// Language returns the active localization language code.
func (w *WidgetContext) Language() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.language
}

// SetLanguage updates the active language code. Callers validate the code
// against the localization tables first.
func (w *WidgetContext) SetLanguage(code string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.language = code
}

// CacheEnabled reports whether persistence is active.
func (w *WidgetContext) CacheEnabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cacheEnabled
}

// SetCacheEnabled toggles persistence at runtime.
func (w *WidgetContext) SetCacheEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cacheEnabled = enabled
}

// SetRenderer installs the presentation observer. Pass nil to detach.
func (w *WidgetContext) SetRenderer(r widgettypes.Renderer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renderer = r
}

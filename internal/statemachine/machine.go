// Package statemachine implements the conversation state machine of the chat
// widget. Exactly one screen is active at a time; free-text input is routed
// by the active screen after a uniform validation pass.
package statemachine

import (
	"strings"
	"time"
	"unicode/utf8"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/logger"
	"chatwidget/internal/services"
	"chatwidget/pkg/widgettypes"
)

// Machine routes user actions to the per-screen handlers. It holds no state
// of its own; the active screen and all conversation data live in the widget
// context.
type Machine struct{}

// New creates a state machine.
func New() *Machine {
	return &Machine{}
}

// SubmitInput validates free-text input and routes it to the active screen's
// handler. It reports whether the input was accepted. Rejections leave the
// conversation state untouched, except that an empty line during name capture
// draws the localized retry prompt.
func (m *Machine) SubmitInput(text string) bool {
	ctx := widgetcontext.GetGlobalContext()

	text = strings.TrimSpace(text)
	if !ctx.InputEnabled() || ctx.LimitReached() {
		return false
	}
	if text == "" {
		m.promptNameRetry(ctx)
		return false
	}
	if ctx.Loading() {
		logger.Debug("Input rejected, send in flight")
		return false
	}
	if utf8.RuneCountInString(text) > ctx.MaxQuestionLength() {
		logger.Debug("Input rejected, question too long",
			"length", utf8.RuneCountInString(text),
			"max", ctx.MaxQuestionLength())
		return false
	}

	switch ctx.Screen() {
	case widgettypes.ScreenRegistration:
		return m.handleNameCapture(ctx, text, widgettypes.ScreenChat)
	case widgettypes.ScreenAdvancedOnboarding:
		if ctx.OnboardingStep() != 0 {
			// Step 1 is button-only.
			return false
		}
		return m.handleNameCapture(ctx, text, widgettypes.ScreenAdvancedOnboarding)
	case widgettypes.ScreenChat:
		return m.handleChat(text)
	default:
		// The error screen accepts no free text, only Retry.
		return false
	}
}

// SelectOption resolves the button choice at step 1 of advanced onboarding.
// Reports whether the selection was applied.
func (m *Machine) SelectOption(option widgettypes.OnboardingOption) bool {
	ctx := widgetcontext.GetGlobalContext()
	if ctx.Screen() != widgettypes.ScreenAdvancedOnboarding || ctx.OnboardingStep() != 1 {
		return false
	}

	loc, err := services.GetLocalizationService()
	if err != nil {
		return false
	}

	switch option {
	case widgettypes.OnboardingOptionFAQ:
		m.presentFAQs(ctx, loc)
	case widgettypes.OnboardingOptionStartChat:
	default:
		return false
	}

	ctx.SetInputEnabled(true)
	m.enterChat(ctx, loc)
	return true
}

// Retry recovers from the error screen by re-running session acquisition.
func (m *Machine) Retry() error {
	session, err := services.GetSessionService()
	if err != nil {
		return err
	}
	return session.Retry()
}

// handleNameCapture finishes the name step shared by both onboarding flows.
// The typed name is echoed as a user turn, confirmed by the bot, and after
// the configured confirmation pause the flow advances: the basic flow goes to
// chat, the advanced flow to its choice step.
func (m *Machine) handleNameCapture(ctx *widgetcontext.WidgetContext, name string, next widgettypes.Screen) bool {
	loc, err := services.GetLocalizationService()
	if err != nil {
		return false
	}

	ctx.AppendMessage(widgettypes.Message{
		From:  widgettypes.FromUser,
		Text:  name,
		Flags: widgettypes.MessageFlags{IsRegistration: true},
	})
	ctx.SetUserName(name)
	ctx.SetRegistered(true)
	ctx.SetRegistrationCompleted(true)
	ctx.AppendMessage(widgettypes.Message{
		From:  widgettypes.FromBot,
		Text:  loc.Format("registration_confirmed", map[string]string{"name": name}),
		Flags: widgettypes.MessageFlags{IsRegistration: true},
	})

	advance := func() {
		if next == widgettypes.ScreenAdvancedOnboarding {
			m.enterChoiceStep(ctx, loc)
		} else {
			m.enterChat(ctx, loc)
		}
		ctx.SetInputEnabled(ctx.Screen() != widgettypes.ScreenAdvancedOnboarding)
		m.persist()
	}

	delay := ctx.Config().RegistrationConfirmDelay
	if ctx.IsTestMode() || delay <= 0 {
		advance()
		return true
	}

	ctx.SetInputEnabled(false)
	time.AfterFunc(delay, advance)
	return true
}

// promptNameRetry answers an empty submission during name capture with the
// localized retry prompt. Outside name capture an empty line is dropped
// silently.
func (m *Machine) promptNameRetry(ctx *widgetcontext.WidgetContext) {
	capturing := ctx.Screen() == widgettypes.ScreenRegistration ||
		(ctx.Screen() == widgettypes.ScreenAdvancedOnboarding && ctx.OnboardingStep() == 0)
	if !capturing || ctx.Loading() {
		return
	}
	loc, err := services.GetLocalizationService()
	if err != nil {
		return
	}
	ctx.AppendMessage(widgettypes.Message{
		From:  widgettypes.FromBot,
		Text:  loc.Get("registration_prompt_retry"),
		Flags: widgettypes.MessageFlags{IsRegistration: true},
	})
}

// enterChoiceStep shows the binary FAQ/chat choice of advanced onboarding.
func (m *Machine) enterChoiceStep(ctx *widgetcontext.WidgetContext, loc *services.LocalizationService) {
	ctx.SetOnboardingStep(1)
	ctx.AppendMessage(widgettypes.Message{
		From: widgettypes.FromBot,
		Text: loc.Get("onboarding_choice") + "\n" +
			"1) " + loc.Get("onboarding_option_faq") + "\n" +
			"2) " + loc.Get("onboarding_option_chat"),
		Flags: widgettypes.MessageFlags{ShowOptionsButtons: true},
	})
	ctx.SetScreen(widgettypes.ScreenAdvancedOnboarding)
}

// enterChat transitions to the chat screen with a personalized greeting.
func (m *Machine) enterChat(ctx *widgetcontext.WidgetContext, loc *services.LocalizationService) {
	ctx.SetScreen(widgettypes.ScreenChat)
	ctx.AppendMessage(widgettypes.Message{
		From: widgettypes.FromBot,
		Text: loc.Format("initial_greeting", map[string]string{
			"name": ctx.User().Name,
			"bot":  ctx.Bot().Name,
		}),
	})
}

// presentFAQs appends the FAQ catalog as bot turns.
func (m *Machine) presentFAQs(ctx *widgetcontext.WidgetContext, loc *services.LocalizationService) {
	faqs := ctx.FAQs()
	if len(faqs) == 0 {
		ctx.AppendMessage(widgettypes.Message{
			From: widgettypes.FromBot,
			Text: loc.Get("faq_empty"),
		})
		return
	}

	ctx.AppendMessage(widgettypes.Message{
		From: widgettypes.FromBot,
		Text: loc.Get("faq_intro"),
	})
	for _, faq := range faqs {
		ctx.AppendMessage(widgettypes.Message{
			From: widgettypes.FromBot,
			Text: faq.Question + "\n" + faq.Answer,
		})
	}
}

// handleChat forwards a validated question to the message pipeline.
func (m *Machine) handleChat(text string) bool {
	msgService, err := services.GetMessageService()
	if err != nil {
		return false
	}
	return msgService.Send(text)
}

func (m *Machine) persist() {
	if session, err := services.GetSessionService(); err == nil {
		session.Persist()
	}
}

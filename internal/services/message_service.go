package services

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/logger"
	"chatwidget/pkg/widgettypes"
)

// MessageService runs the message pipeline: append the user turn, obtain the
// bot answer (backend or canned), reveal it, persist, and arm the idle
// reminder. One send may be outstanding at a time; the pipeline owns the
// loading flag for its whole duration.
type MessageService struct {
	initialized bool
	responder   *CannedResponder
	log         *log.Logger

	reminderMu    sync.Mutex
	reminderTimer *time.Timer
}

// NewMessageService creates a new MessageService instance.
func NewMessageService() *MessageService {
	return &MessageService{
		initialized: false,
		responder:   NewCannedResponder(),
		log:         logger.NewStyledLogger("Message"),
	}
}

// Name returns the service name "message" for registration.
func (m *MessageService) Name() string {
	return "message"
}

// Initialize marks the service ready.
func (m *MessageService) Initialize() error {
	m.initialized = true
	return nil
}

// Responder exposes the test-mode responder so front-ends can tune its
// simulated thinking delay.
func (m *MessageService) Responder() *CannedResponder {
	return m.responder
}

// Send runs the full pipeline for an already-validated question. It returns
// false without side effects when a send is in flight or the quota limit has
// been hit; the caller treats false as "input rejected".
func (m *MessageService) Send(text string) bool {
	if !m.initialized {
		return false
	}

	ctx := widgetcontext.GetGlobalContext()
	if ctx.LimitReached() {
		return false
	}
	if !ctx.BeginSend() {
		m.log.Debug("Send rejected, another send in flight")
		return false
	}

	m.CancelReminder()
	ctx.AppendMessage(widgettypes.Message{
		From: widgettypes.FromUser,
		Text: text,
	})
	ctx.SetTyping(true)

	if ctx.IsTestMode() {
		m.deliver(ctx, m.responder.Respond(text), widgettypes.MessageFlags{})
		return true
	}

	if !ctx.Registered() {
		if loc, err := GetLocalizationService(); err == nil {
			m.deliver(ctx, loc.Get("not_registered"), widgettypes.MessageFlags{})
		} else {
			m.finish(ctx)
		}
		return true
	}

	go m.exchange(ctx, text)
	return true
}

// exchange performs the backend round trip and routes the three outcomes:
// answer, limit signal and failure.
func (m *MessageService) exchange(ctx *widgetcontext.WidgetContext, text string) {
	backend, err := GetBackendClient()
	if err != nil {
		m.deliverError(ctx)
		return
	}

	resp, err := backend.SendMessage(context.Background(), ctx.Session(), text, ctx.User().Name)
	if err != nil {
		m.log.Error("Message exchange failed", "error", err)
		m.deliverError(ctx)
		return
	}

	if resp.IsLimitReached() {
		m.deliverLimit(ctx)
		return
	}
	m.deliver(ctx, resp.Answer, widgettypes.MessageFlags{})
}

// deliver reveals the bot answer, optionally streamed, then finishes the
// pipeline. In test mode the reveal is synchronous with no delays so tests
// observe the final state directly.
func (m *MessageService) deliver(ctx *widgetcontext.WidgetContext, answer string, flags widgettypes.MessageFlags) {
	cfg := ctx.Config()
	if !cfg.Stream || flags.IsError || flags.IsLimitReached {
		ctx.AppendMessage(widgettypes.Message{
			From:  widgettypes.FromBot,
			Text:  answer,
			Flags: flags,
		})
		m.finish(ctx)
		return
	}

	flags.IsStreaming = true
	msg := ctx.AppendMessage(widgettypes.Message{
		From:  widgettypes.FromBot,
		Flags: flags,
	})

	delay := cfg.StreamCharDelay
	if ctx.IsTestMode() {
		delay = 0
	}
	m.streamReveal(ctx, msg.ID, answer, delay)
}

// streamReveal grows one transcript message rune by rune, clearing the
// streaming flag with the final write.
func (m *MessageService) streamReveal(ctx *widgetcontext.WidgetContext, id, answer string, delay time.Duration) {
	runes := []rune(answer)
	for i := 1; i < len(runes); i++ {
		ctx.UpdateMessageText(id, string(runes[:i]), true)
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	ctx.UpdateMessageText(id, answer, false)
	m.finish(ctx)
}

// deliverError appends the localized failure answer with a retry affordance.
func (m *MessageService) deliverError(ctx *widgetcontext.WidgetContext) {
	text := "answer_error"
	if loc, err := GetLocalizationService(); err == nil {
		text = loc.Get("answer_error")
	}
	m.deliver(ctx, text, widgettypes.MessageFlags{IsError: true, ShowRetry: true})
}

// deliverLimit applies the quota signal: the explanation message, the sticky
// limit flag and a permanently disabled input.
func (m *MessageService) deliverLimit(ctx *widgetcontext.WidgetContext) {
	text := "limit_reached"
	if loc, err := GetLocalizationService(); err == nil {
		text = loc.Get("limit_reached")
	}
	ctx.SetLimitReached(true)
	ctx.SetInputEnabled(false)
	m.deliver(ctx, text, widgettypes.MessageFlags{IsLimitReached: true})
	m.log.Debug("Message limit reached, input disabled")
}

// finish closes the pipeline: typing off, loading released, state persisted
// and the idle reminder armed.
func (m *MessageService) finish(ctx *widgetcontext.WidgetContext) {
	ctx.SetTyping(false)
	ctx.EndSend()

	if session, err := GetSessionService(); err == nil {
		session.Persist()
	}
	m.ScheduleReminder()
}

// ScheduleReminder arms the single-shot idle reminder. Any previously armed
// reminder is replaced; the reminder is only armed while the panel is open
// and never fires after the limit is reached, outside the chat screen, or
// into a hidden panel.
func (m *MessageService) ScheduleReminder() {
	ctx := widgetcontext.GetGlobalContext()
	timeout := ctx.Config().ReminderTimeout
	if timeout <= 0 || ctx.LimitReached() || !ctx.Visible() {
		return
	}

	m.reminderMu.Lock()
	defer m.reminderMu.Unlock()
	if m.reminderTimer != nil {
		m.reminderTimer.Stop()
	}
	m.reminderTimer = time.AfterFunc(timeout, m.fireReminder)
}

// CancelReminder disarms a pending reminder. Called when the user sends a
// message or hides the panel.
func (m *MessageService) CancelReminder() {
	m.reminderMu.Lock()
	defer m.reminderMu.Unlock()
	if m.reminderTimer != nil {
		m.reminderTimer.Stop()
		m.reminderTimer = nil
	}
}

func (m *MessageService) fireReminder() {
	ctx := widgetcontext.GetGlobalContext()
	if ctx.Screen() != widgettypes.ScreenChat || ctx.LimitReached() || ctx.Loading() || !ctx.Visible() {
		return
	}

	text := "reminder"
	if loc, err := GetLocalizationService(); err == nil {
		text = loc.Format("reminder", map[string]string{"name": ctx.User().Name})
	}
	ctx.AppendMessage(widgettypes.Message{
		From:  widgettypes.FromBot,
		Text:  text,
		Flags: widgettypes.MessageFlags{IsReminder: true},
	})
}

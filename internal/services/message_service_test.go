package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/pkg/widgettypes"
)

func messageForTest(t *testing.T) *MessageService {
	t.Helper()
	msg, err := GetMessageService()
	require.NoError(t, err)
	return msg
}

func answerServer(t *testing.T, response map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != messagePath {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)
	return server
}

func chatContext(t *testing.T, cfg widgettypes.Config) *widgetcontext.WidgetContext {
	t.Helper()
	ctx := setupTest(t, cfg)
	ctx.SetSession("srv-session")
	ctx.SetRegistered(true)
	ctx.SetUserName("Ana")
	ctx.SetRegistrationCompleted(true)
	ctx.SetScreen(widgettypes.ScreenChat)
	return ctx
}

func waitForIdle(t *testing.T, ctx *widgetcontext.WidgetContext) {
	t.Helper()
	require.Eventually(t, func() bool { return !ctx.Loading() }, 2*time.Second, 5*time.Millisecond)
}

func TestSendTestModeAppendsBothTurns(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	cfg.Stream = false
	ctx := chatContext(t, cfg)

	require.True(t, messageForTest(t).Send("hola"))

	messages := ctx.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, widgettypes.FromUser, messages[0].From)
	assert.Equal(t, "hola", messages[0].Text)
	assert.Equal(t, widgettypes.FromBot, messages[1].From)
	assert.NotEmpty(t, messages[1].Text)
	assert.False(t, ctx.Loading())
	assert.False(t, ctx.Typing())
}

func TestSendRejectedWhileInFlight(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	ctx := chatContext(t, cfg)
	msg := messageForTest(t)

	ctx.SetLoading(true)
	assert.False(t, msg.Send("hola"))
	assert.Equal(t, 0, ctx.MessageCount(), "rejected send must not append anything")
}

func TestSendRejectedAfterLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	ctx := chatContext(t, cfg)
	ctx.SetLimitReached(true)

	assert.False(t, messageForTest(t).Send("hola"))
	assert.Equal(t, 0, ctx.MessageCount())
}

func TestSendStreamingMutatesSingleMessage(t *testing.T) {
	server := answerServer(t, map[string]interface{}{"answer": "Hi"})

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.Stream = true
	cfg.StreamCharDelay = 0
	ctx := chatContext(t, cfg)

	require.True(t, messageForTest(t).Send("hello"))
	waitForIdle(t, ctx)

	messages := ctx.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Hi", messages[1].Text)
	assert.False(t, messages[1].Flags.IsStreaming)
}

func TestSendBackendFailureAppendsErrorAnswer(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.Stream = false
	ctx := chatContext(t, cfg)

	require.True(t, messageForTest(t).Send("hola"))
	waitForIdle(t, ctx)

	last, ok := ctx.LastMessage()
	require.True(t, ok)
	assert.True(t, last.Flags.IsError)
	assert.True(t, last.Flags.ShowRetry)
	assert.False(t, ctx.LimitReached(), "a failure is not a limit signal")
}

func TestSendLimitSignalDisablesInputPermanently(t *testing.T) {
	server := answerServer(t, map[string]interface{}{"type": "limit_reached"})

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.Stream = false
	ctx := chatContext(t, cfg)
	msg := messageForTest(t)

	require.True(t, msg.Send("hola"))
	waitForIdle(t, ctx)

	require.True(t, ctx.LimitReached())
	assert.False(t, ctx.InputEnabled())
	last, ok := ctx.LastMessage()
	require.True(t, ok)
	assert.True(t, last.Flags.IsLimitReached)

	count := ctx.MessageCount()
	assert.False(t, msg.Send("otra"), "no sends after the limit")
	assert.Equal(t, count, ctx.MessageCount())
}

func TestSendUnregisteredGetsLocalNotice(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stream = false
	ctx := chatContext(t, cfg)
	ctx.SetRegistered(false)

	require.True(t, messageForTest(t).Send("hola"))
	waitForIdle(t, ctx)

	messages := ctx.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, widgettypes.FromBot, messages[1].From)
	assert.Contains(t, messages[1].Text, "registro")
}

func TestReminderFiresOnceAfterIdle(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	cfg.Stream = false
	cfg.ReminderTimeout = 20 * time.Millisecond
	ctx := chatContext(t, cfg)
	msg := messageForTest(t)

	require.True(t, msg.Send("hola"))
	require.Eventually(t, func() bool {
		last, ok := ctx.LastMessage()
		return ok && last.Flags.IsReminder
	}, 2*time.Second, 5*time.Millisecond)

	last, _ := ctx.LastMessage()
	assert.Contains(t, last.Text, "Ana")

	count := ctx.MessageCount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, count, ctx.MessageCount(), "the reminder is single-shot")
}

func TestReminderCancelledByNextSend(t *testing.T) {
	server := answerServer(t, map[string]interface{}{"answer": "respuesta"})

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.Stream = false
	cfg.ReminderTimeout = 50 * time.Millisecond
	ctx := chatContext(t, cfg)
	msg := messageForTest(t)

	require.True(t, msg.Send("primera"))
	waitForIdle(t, ctx)
	require.True(t, msg.Send("segunda"))
	waitForIdle(t, ctx)

	time.Sleep(20 * time.Millisecond)
	for _, m := range ctx.Messages() {
		if m.Flags.IsReminder {
			t.Fatal("reminder fired although the user kept chatting")
		}
	}
}

func TestReminderSuppressedWhilePanelHidden(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	cfg.Stream = false
	cfg.ReminderTimeout = 20 * time.Millisecond
	ctx := chatContext(t, cfg)
	ctx.SetVisible(false)

	require.True(t, messageForTest(t).Send("hola"))

	time.Sleep(80 * time.Millisecond)
	for _, m := range ctx.Messages() {
		assert.False(t, m.Flags.IsReminder, "no reminder while the panel is hidden")
	}
}

func TestCancelReminderStopsPendingTimer(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	cfg.Stream = false
	cfg.ReminderTimeout = 30 * time.Millisecond
	ctx := chatContext(t, cfg)
	msg := messageForTest(t)

	require.True(t, msg.Send("hola"))
	msg.CancelReminder()

	time.Sleep(80 * time.Millisecond)
	for _, m := range ctx.Messages() {
		assert.False(t, m.Flags.IsReminder)
	}
}

func TestPipelinePersistsAfterExchange(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "ok"})
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.Stream = false
	cfg.ReminderTimeout = time.Hour
	ctx := chatContext(t, cfg)

	require.True(t, messageForTest(t).Send("hola"))
	waitForIdle(t, ctx)
	require.Eventually(t, func() bool {
		cache, err := GetCacheService()
		if err != nil {
			return false
		}
		entry, ok := cache.Load()
		return ok && len(entry.Messages) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

package context

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/pkg/widgettypes"
)

func newTestContext() *WidgetContext {
	ctx := New()
	cfg := widgettypes.DefaultConfig()
	cfg.BaseURL = "http://localhost"
	cfg.APIKey = "key"
	cfg.TestMode = true
	ctx.SetConfig(cfg)
	return ctx
}

func TestBeginSendGuard(t *testing.T) {
	ctx := newTestContext()

	assert.True(t, ctx.BeginSend())
	assert.True(t, ctx.Loading())
	assert.False(t, ctx.BeginSend(), "second send must be rejected while in flight")

	ctx.EndSend()
	assert.False(t, ctx.Loading())
	assert.True(t, ctx.BeginSend())
}

func TestAppendMessageAssignsIdentityAndOrder(t *testing.T) {
	ctx := newTestContext()

	first := ctx.AppendMessage(widgettypes.Message{From: widgettypes.FromUser, Text: "hola"})
	second := ctx.AppendMessage(widgettypes.Message{From: widgettypes.FromBot, Text: "hola!"})

	require.NotEmpty(t, first.ID)
	require.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Time.IsZero())

	messages := ctx.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "hola", messages[0].Text)
	assert.Equal(t, "hola!", messages[1].Text)
}

func TestAppendWelcomeMessageDeduplicates(t *testing.T) {
	ctx := newTestContext()

	assert.True(t, ctx.AppendWelcomeMessage(widgettypes.Message{From: widgettypes.FromBot, Text: "bienvenido"}))
	assert.False(t, ctx.AppendWelcomeMessage(widgettypes.Message{From: widgettypes.FromBot, Text: "bienvenido otra vez"}))

	assert.Equal(t, 1, ctx.WelcomeMessageCount())
	assert.Equal(t, 1, ctx.MessageCount())
}

func TestAppendWelcomeMessageConcurrentCallers(t *testing.T) {
	ctx := newTestContext()

	var wg sync.WaitGroup
	var inserted atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.AppendWelcomeMessage(widgettypes.Message{From: widgettypes.FromBot, Text: "bienvenido"}) {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, inserted.Load())
	assert.Equal(t, 1, ctx.WelcomeMessageCount())
	assert.Equal(t, 1, ctx.MessageCount())
}

func TestUpdateMessageText(t *testing.T) {
	ctx := newTestContext()
	msg := ctx.AppendMessage(widgettypes.Message{From: widgettypes.FromBot, Flags: widgettypes.MessageFlags{IsStreaming: true}})

	require.True(t, ctx.UpdateMessageText(msg.ID, "partial", true))
	require.True(t, ctx.UpdateMessageText(msg.ID, "full answer", false))
	assert.False(t, ctx.UpdateMessageText("no-such-id", "x", false))

	last, ok := ctx.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "full answer", last.Text)
	assert.False(t, last.Flags.IsStreaming)
	assert.Equal(t, 1, ctx.MessageCount(), "streaming must mutate one entry, not append")
}

func TestRestoreAndClearMessages(t *testing.T) {
	ctx := newTestContext()
	ctx.RestoreMessages([]widgettypes.Message{
		{ID: "a", From: widgettypes.FromUser, Text: "q"},
		{ID: "b", From: widgettypes.FromBot, Text: "a"},
	})
	assert.Equal(t, 2, ctx.MessageCount())

	ctx.ClearMessages()
	assert.Equal(t, 0, ctx.MessageCount())
	_, ok := ctx.LastMessage()
	assert.False(t, ok)
}

func TestSetMaxQuestionLength(t *testing.T) {
	ctx := newTestContext()

	assert.True(t, ctx.SetMaxQuestionLength(10))
	assert.Equal(t, 10, ctx.MaxQuestionLength())

	assert.False(t, ctx.SetMaxQuestionLength(0))
	assert.False(t, ctx.SetMaxQuestionLength(-5))
	assert.Equal(t, 10, ctx.MaxQuestionLength(), "rejected values must not change the limit")
}

type recordingRenderer struct {
	transcripts int
	screens     []widgettypes.Screen
	visible     []bool
}

func (r *recordingRenderer) OnTranscriptChanged([]widgettypes.Message)  { r.transcripts++ }
func (r *recordingRenderer) OnScreenChanged(s widgettypes.Screen)       { r.screens = append(r.screens, s) }
func (r *recordingRenderer) OnTypingChanged(bool)                       {}
func (r *recordingRenderer) OnVisibilityChanged(v bool)                 { r.visible = append(r.visible, v) }
func (r *recordingRenderer) OnInputEnabledChanged(bool)                 {}

func TestRendererNotifications(t *testing.T) {
	ctx := newTestContext()
	r := &recordingRenderer{}
	ctx.SetRenderer(r)

	ctx.AppendMessage(widgettypes.Message{From: widgettypes.FromUser, Text: "hola"})
	ctx.SetScreen(widgettypes.ScreenChat)
	ctx.SetScreen(widgettypes.ScreenChat) // unchanged, no second notification
	ctx.ToggleVisible()

	assert.Equal(t, 1, r.transcripts)
	assert.Equal(t, []widgettypes.Screen{widgettypes.ScreenChat}, r.screens)
	assert.Equal(t, []bool{false}, r.visible)
}

func TestGlobalContextSingleton(t *testing.T) {
	ResetGlobalContext()
	ctx := newTestContext()
	SetGlobalContext(ctx)
	assert.Same(t, ctx, GetGlobalContext())
	ResetGlobalContext()
	assert.NotSame(t, ctx, GetGlobalContext())
}

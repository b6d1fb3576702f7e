package context

import (
	"chatwidget/pkg/widgettypes"

	"chatwidget/internal/testutils"
)

// Messages returns a snapshot copy of the full transcript.
func (w *WidgetContext) Messages() []widgettypes.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

// MessageCount returns the transcript length.
func (w *WidgetContext) MessageCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.messages)
}

// LastMessage returns a copy of the most recent message, or false if the
// transcript is empty.
func (w *WidgetContext) LastMessage() (widgettypes.Message, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.messages) == 0 {
		return widgettypes.Message{}, false
	}
	return w.messages[len(w.messages)-1], true
}

// AppendMessage adds a message to the transcript, assigning ID and timestamp
// if unset, and notifies the renderer. It returns the stored message.
func (w *WidgetContext) AppendMessage(msg widgettypes.Message) widgettypes.Message {
	w.mu.Lock()
	if msg.ID == "" {
		msg.ID = testutils.GenerateUUID(lockedModeView{w})
	}
	if msg.Time.IsZero() {
		msg.Time = testutils.GetCurrentTime(lockedModeView{w})
	}
	w.messages = append(w.messages, msg)
	snapshot := w.snapshotLocked()
	r := w.renderer
	w.mu.Unlock()

	if r != nil {
		r.OnTranscriptChanged(snapshot)
	}
	return msg
}

// AppendWelcomeMessage appends a welcome message only if no welcome message
// exists yet, preventing duplicate initial messages across screen
// transitions. The check and the insert happen under one lock, so the
// at-most-one-welcome invariant holds under concurrent callers. Reports
// whether the message was inserted.
func (w *WidgetContext) AppendWelcomeMessage(msg widgettypes.Message) bool {
	w.mu.Lock()
	if w.welcomeCountLocked() > 0 {
		w.mu.Unlock()
		return false
	}

	msg.Flags.IsWelcome = true
	if msg.ID == "" {
		msg.ID = testutils.GenerateUUID(lockedModeView{w})
	}
	if msg.Time.IsZero() {
		msg.Time = testutils.GetCurrentTime(lockedModeView{w})
	}
	w.messages = append(w.messages, msg)
	snapshot := w.snapshotLocked()
	r := w.renderer
	w.mu.Unlock()

	if r != nil {
		r.OnTranscriptChanged(snapshot)
	}
	return true
}

// WelcomeMessageCount returns the number of welcome-flagged messages.
func (w *WidgetContext) WelcomeMessageCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.welcomeCountLocked()
}

// UpdateMessageText mutates a message in place by ID, used by the streaming
// reveal so the partial answer stays a single transcript entry. Reports
// whether the message was found.
func (w *WidgetContext) UpdateMessageText(id, text string, streaming bool) bool {
	w.mu.Lock()
	found := false
	for i := range w.messages {
		if w.messages[i].ID == id {
			w.messages[i].Text = text
			w.messages[i].Flags.IsStreaming = streaming
			found = true
			break
		}
	}
	var snapshot []widgettypes.Message
	var r widgettypes.Renderer
	if found {
		snapshot = w.snapshotLocked()
		r = w.renderer
	}
	w.mu.Unlock()

	if found && r != nil {
		r.OnTranscriptChanged(snapshot)
	}
	return found
}

// ClearMessages empties the transcript and notifies the renderer.
func (w *WidgetContext) ClearMessages() {
	w.mu.Lock()
	w.messages = w.messages[:0]
	snapshot := w.snapshotLocked()
	r := w.renderer
	w.mu.Unlock()

	if r != nil {
		r.OnTranscriptChanged(snapshot)
	}
}

// RestoreMessages replaces the transcript wholesale, used when loading from
// cache.
func (w *WidgetContext) RestoreMessages(messages []widgettypes.Message) {
	w.mu.Lock()
	w.messages = make([]widgettypes.Message, len(messages))
	copy(w.messages, messages)
	snapshot := w.snapshotLocked()
	r := w.renderer
	w.mu.Unlock()

	if r != nil {
		r.OnTranscriptChanged(snapshot)
	}
}

func (w *WidgetContext) snapshotLocked() []widgettypes.Message {
	out := make([]widgettypes.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

func (w *WidgetContext) welcomeCountLocked() int {
	n := 0
	for i := range w.messages {
		if w.messages[i].Flags.IsWelcome {
			n++
		}
	}
	return n
}

// lockedModeView exposes IsTestMode without re-acquiring the context mutex,
// for use from methods that already hold it.
type lockedModeView struct{ w *WidgetContext }

func (v lockedModeView) IsTestMode() bool { return v.w.testMode }

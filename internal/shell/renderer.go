// Package shell provides the terminal front-end for the chat widget: a
// lipgloss-styled transcript renderer and an interactive input loop. It is a
// demonstration host; the widget core is presentation-agnostic.
package shell

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"chatwidget/pkg/widgettypes"
)

// TerminalRenderer prints widget state changes to a terminal. It implements
// widgettypes.Renderer and renders only the delta it is notified about; the
// transcript is reprinted in full on restore-style changes.
type TerminalRenderer struct {
	mu      sync.Mutex
	w       io.Writer
	printed int

	botStyle      lipgloss.Style
	userStyle     lipgloss.Style
	errorStyle    lipgloss.Style
	systemStyle   lipgloss.Style
	reminderStyle lipgloss.Style
}

// NewTerminalRenderer creates a renderer writing to w.
func NewTerminalRenderer(w io.Writer) *TerminalRenderer {
	return &TerminalRenderer{
		w:             w,
		botStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		userStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		systemStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		reminderStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// OnTranscriptChanged prints transcript entries added since the last call.
// Streaming updates mutate the final entry in place, so a shrinking or
// in-place change reprints just that entry's current text on completion.
func (t *TerminalRenderer) OnTranscriptChanged(messages []widgettypes.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(messages) < t.printed {
		// Transcript was cleared or restored; start over.
		t.printed = 0
		fmt.Fprintln(t.w, t.systemStyle.Render("--- conversation reset ---"))
	}

	for _, msg := range messages[t.printed:] {
		if msg.Flags.IsStreaming {
			// Partial reveal; the final notification prints the full text.
			return
		}
		t.printMessage(msg)
		t.printed++
	}
}

// OnScreenChanged announces screen transitions.
func (t *TerminalRenderer) OnScreenChanged(screen widgettypes.Screen) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.systemStyle.Render(fmt.Sprintf("[screen: %s]", screen)))
}

// OnTypingChanged shows the bot typing indicator.
func (t *TerminalRenderer) OnTypingChanged(typing bool) {
	if !typing {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.systemStyle.Render("..."))
}

// OnVisibilityChanged announces panel open/close.
func (t *TerminalRenderer) OnVisibilityChanged(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := "closed"
	if visible {
		state = "open"
	}
	fmt.Fprintln(t.w, t.systemStyle.Render("[panel "+state+"]"))
}

// OnInputEnabledChanged announces input availability.
func (t *TerminalRenderer) OnInputEnabledChanged(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !enabled {
		fmt.Fprintln(t.w, t.systemStyle.Render("[input disabled]"))
	}
}

func (t *TerminalRenderer) printMessage(msg widgettypes.Message) {
	label := t.botStyle.Render("bot")
	if msg.From == widgettypes.FromUser {
		label = t.userStyle.Render("you")
	}

	text := msg.Text
	switch {
	case msg.Flags.IsError:
		text = t.errorStyle.Render(text)
	case msg.Flags.IsReminder:
		text = t.reminderStyle.Render(text)
	case msg.Flags.IsLimitReached:
		text = t.errorStyle.Render(text)
	}
	fmt.Fprintf(t.w, "%s> %s\n", label, text)
}

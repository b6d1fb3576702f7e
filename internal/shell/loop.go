package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"chatwidget/pkg/widget"
	"chatwidget/pkg/widgettypes"
)

// Loop is the interactive terminal session driving one widget instance.
// Plain lines go to the widget as free-text input; slash commands map to the
// widget's control operations.
type Loop struct {
	widget *widget.Widget
	in     io.Reader
	out    io.Writer
}

// NewLoop creates an interactive loop around w.
func NewLoop(w *widget.Widget, in io.Reader, out io.Writer) *Loop {
	return &Loop{widget: w, in: in, out: out}
}

// Run reads lines until EOF or /quit.
func (l *Loop) Run() error {
	fmt.Fprintln(l.out, "Type a message, or /help for commands.")

	scanner := bufio.NewScanner(l.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !l.runCommand(line) {
				return nil
			}
			continue
		}

		if l.widget.Screen() == widgettypes.ScreenAdvancedOnboarding && l.selectOption(line) {
			continue
		}
		if !l.widget.SendMessage(line) {
			fmt.Fprintln(l.out, "(input rejected)")
		}
	}
	return scanner.Err()
}

// selectOption maps numeric input to the onboarding choice buttons.
func (l *Loop) selectOption(line string) bool {
	switch line {
	case "1":
		return l.widget.SelectOnboardingOption(widgettypes.OnboardingOptionFAQ)
	case "2":
		return l.widget.SelectOnboardingOption(widgettypes.OnboardingOptionStartChat)
	default:
		return false
	}
}

// runCommand executes a slash command. Returns false to exit the loop.
func (l *Loop) runCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return false
	case "/clear":
		l.widget.ClearHistory()
	case "/toggle":
		l.widget.ToggleVisibility()
	case "/retry":
		if err := l.widget.Retry(); err != nil {
			fmt.Fprintf(l.out, "retry failed: %v\n", err)
		}
	case "/lang":
		if len(fields) < 2 {
			fmt.Fprintln(l.out, "usage: /lang <code>")
			break
		}
		if !l.widget.SetLanguage(fields[1]) {
			fmt.Fprintf(l.out, "unknown language %q\n", fields[1])
		}
	case "/status":
		reg := l.widget.GetRegistrationStatus()
		cache := l.widget.GetCacheStatus()
		fmt.Fprintf(l.out, "screen=%s registered=%v session=%v user=%s\n",
			l.widget.Screen(), reg.Registered, reg.HasSession, reg.UserName)
		fmt.Fprintf(l.out, "cache: enabled=%v exists=%v expired=%v age=%dm messages=%d\n",
			cache.Enabled, cache.Exists, cache.Expired, cache.AgeMinutes, cache.Messages)
	case "/help":
		fmt.Fprintln(l.out, "commands: /clear /toggle /retry /lang <code> /status /quit")
	default:
		fmt.Fprintf(l.out, "unknown command %s (try /help)\n", fields[0])
	}
	return true
}

// Package widgettypes defines the service and rendering contracts of the
// chat widget core.
package widgettypes

// Service defines the interface all widget services implement. Services are
// registered once and initialized together after the context is configured.
type Service interface {
	Name() string
	Initialize() error
}

// ServiceRegistry provides service lookup for components that wire services
// together without importing their concrete packages.
type ServiceRegistry interface {
	GetService(name string) (Service, error)
	RegisterService(service Service) error
}

// Renderer is the swappable presentation observer. The core mutates state
// and notifies the renderer; the renderer must not call back into the widget
// from inside a notification.
type Renderer interface {
	// OnTranscriptChanged is invoked after any append or in-place mutation
	// of the transcript, with a snapshot of the full message list.
	OnTranscriptChanged(messages []Message)
	// OnScreenChanged is invoked when the active screen transitions.
	OnScreenChanged(screen Screen)
	// OnTypingChanged reports the bot "typing" indicator state.
	OnTypingChanged(typing bool)
	// OnVisibilityChanged reports panel visibility toggles.
	OnVisibilityChanged(visible bool)
	// OnInputEnabledChanged reports whether free-text input is accepted.
	OnInputEnabledChanged(enabled bool)
}

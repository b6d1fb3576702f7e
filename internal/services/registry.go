// Package services provides the stateless service layer of the chat widget:
// session acquisition, the message pipeline, persistence, localization and
// the backend client. Services read and write conversation state through the
// widget context only.
package services

import (
	"fmt"
	"sync"

	"chatwidget/internal/logger"
	"chatwidget/pkg/widgettypes"
)

// Registry manages service registration and lifecycle for widget services.
type Registry struct {
	mu       sync.RWMutex
	services map[string]widgettypes.Service
}

// NewRegistry creates a new service registry with an empty service map.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]widgettypes.Service),
	}
}

// RegisterService adds a service to the registry, returning an error if
// already registered.
func (r *Registry) RegisterService(service widgettypes.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := service.Name()
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	r.services[name] = service
	return nil
}

// GetService retrieves a service by name, returning an error if not found.
func (r *Registry) GetService(name string) (widgettypes.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	service, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s not found", name)
	}

	return service, nil
}

// InitializeAll initializes all registered services.
func (r *Registry) InitializeAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, service := range r.services {
		if err := service.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize service %s: %w", name, err)
		}
		logger.ServiceOperation(name, "initialize")
	}

	return nil
}

// GlobalRegistry is the global service registry instance used throughout the
// widget core.
var GlobalRegistry = NewRegistry()

// globalRegistryMu protects access to the GlobalRegistry variable itself
var globalRegistryMu sync.RWMutex

// GetGlobalRegistry returns the global service registry instance in a
// thread-safe manner.
func GetGlobalRegistry() *Registry {
	globalRegistryMu.RLock()
	defer globalRegistryMu.RUnlock()
	return GlobalRegistry
}

// SetGlobalRegistry sets the global service registry instance in a
// thread-safe manner. Widget construction installs a fresh registry here.
func SetGlobalRegistry(registry *Registry) {
	globalRegistryMu.Lock()
	defer globalRegistryMu.Unlock()
	GlobalRegistry = registry
}

// GetSessionService returns the registered session service, or an error if
// it is missing or of the wrong type.
func GetSessionService() (*SessionService, error) {
	service, err := GetGlobalRegistry().GetService("session")
	if err != nil {
		return nil, err
	}
	s, ok := service.(*SessionService)
	if !ok {
		return nil, fmt.Errorf("service session has unexpected type %T", service)
	}
	return s, nil
}

// GetMessageService returns the registered message pipeline service.
func GetMessageService() (*MessageService, error) {
	service, err := GetGlobalRegistry().GetService("message")
	if err != nil {
		return nil, err
	}
	s, ok := service.(*MessageService)
	if !ok {
		return nil, fmt.Errorf("service message has unexpected type %T", service)
	}
	return s, nil
}

// GetCacheService returns the registered cache/persistence service.
func GetCacheService() (*CacheService, error) {
	service, err := GetGlobalRegistry().GetService("cache")
	if err != nil {
		return nil, err
	}
	s, ok := service.(*CacheService)
	if !ok {
		return nil, fmt.Errorf("service cache has unexpected type %T", service)
	}
	return s, nil
}

// GetLocalizationService returns the registered localization service.
func GetLocalizationService() (*LocalizationService, error) {
	service, err := GetGlobalRegistry().GetService("localization")
	if err != nil {
		return nil, err
	}
	s, ok := service.(*LocalizationService)
	if !ok {
		return nil, fmt.Errorf("service localization has unexpected type %T", service)
	}
	return s, nil
}

// GetBackendClient returns the registered backend API client.
func GetBackendClient() (*BackendClient, error) {
	service, err := GetGlobalRegistry().GetService("backend")
	if err != nil {
		return nil, err
	}
	s, ok := service.(*BackendClient)
	if !ok {
		return nil, fmt.Errorf("service backend has unexpected type %T", service)
	}
	return s, nil
}

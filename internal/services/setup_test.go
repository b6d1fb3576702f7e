package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/testutils"
	"chatwidget/pkg/widgettypes"
)

// setupTest installs a fresh global context and registry with all services
// registered and initialized. State is torn down when the test ends.
func setupTest(t *testing.T, cfg widgettypes.Config) *widgetcontext.WidgetContext {
	t.Helper()

	cfg.ApplyDefaults()
	ctx := widgetcontext.New()
	ctx.SetConfig(cfg)
	widgetcontext.SetGlobalContext(ctx)
	registry := NewRegistry()
	SetGlobalRegistry(registry)
	testutils.Reset()

	for _, svc := range []widgettypes.Service{
		NewBackendClient(),
		NewCacheService(),
		NewLocalizationService(),
		NewSessionService(),
		NewMessageService(),
	} {
		require.NoError(t, registry.RegisterService(svc))
	}
	require.NoError(t, registry.InitializeAll())

	t.Cleanup(func() {
		widgetcontext.ResetGlobalContext()
		SetGlobalRegistry(NewRegistry())
	})
	return ctx
}

// testConfig returns a minimal valid configuration with caching directed at a
// temporary directory.
func testConfig(t *testing.T) widgettypes.Config {
	t.Helper()
	cfg := widgettypes.DefaultConfig()
	cfg.BaseURL = "http://localhost:8080"
	cfg.APIKey = "test-api-key"
	cfg.Tenant = "acme"
	cfg.CacheDir = t.TempDir()
	return cfg
}

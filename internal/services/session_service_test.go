package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/pkg/widgettypes"
)

func sessionForTest(t *testing.T) *SessionService {
	t.Helper()
	session, err := GetSessionService()
	require.NoError(t, err)
	return session
}

func registerServer(t *testing.T, active bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != registerPath {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"session": "srv-session",
			"license": map[string]interface{}{"name": "pro", "active": active},
			"chatbot": map[string]interface{}{"name": "Asistente"},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInitializeSessionTestMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	ctx := setupTest(t, cfg)

	require.NoError(t, sessionForTest(t).InitializeSession())

	assert.NotEmpty(t, ctx.Session())
	assert.True(t, ctx.Registered())
	assert.Equal(t, widgettypes.ScreenRegistration, ctx.Screen())
	assert.Equal(t, 1, ctx.WelcomeMessageCount())
}

func TestInitializeSessionRegisters(t *testing.T) {
	server := registerServer(t, true)

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	ctx := setupTest(t, cfg)

	require.NoError(t, sessionForTest(t).InitializeSession())

	assert.Equal(t, "srv-session", ctx.Session())
	assert.True(t, ctx.Registered())
	assert.Equal(t, "Asistente", ctx.Bot().Name)
	assert.Equal(t, widgettypes.ScreenRegistration, ctx.Screen())
}

func TestRegisteredRequiresBothLicenseAndOption(t *testing.T) {
	tests := []struct {
		name          string
		licenseActive bool
		registerFlag  bool
		expect        bool
	}{
		{"active license and register option", true, true, true},
		{"active license without register option", true, false, false},
		{"inactive license with register option", false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := registerServer(t, tt.licenseActive)

			cfg := testConfig(t)
			cfg.BaseURL = server.URL
			cfg.Register = tt.registerFlag
			ctx := setupTest(t, cfg)

			require.NoError(t, sessionForTest(t).InitializeSession())
			assert.Equal(t, tt.expect, ctx.Registered())
		})
	}
}

func TestInitializeSessionBackendFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "http://127.0.0.1:1"
	ctx := setupTest(t, cfg)

	err := sessionForTest(t).InitializeSession()
	require.Error(t, err)

	assert.Equal(t, widgettypes.ScreenError, ctx.Screen())
	assert.Equal(t, 1, ctx.MessageCount(), "the error screen shows only the failure explanation")
	last, ok := ctx.LastMessage()
	require.True(t, ok)
	assert.True(t, last.Flags.IsError)
	assert.True(t, last.Flags.ShowRetry)
}

func TestRepeatedFailedRetriesDoNotAccumulateMessages(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "http://127.0.0.1:1"
	ctx := setupTest(t, cfg)
	session := sessionForTest(t)

	require.Error(t, session.InitializeSession())
	require.Equal(t, widgettypes.ScreenError, ctx.Screen())

	require.Error(t, session.Retry())
	require.Error(t, session.Retry())

	assert.Equal(t, widgettypes.ScreenError, ctx.Screen())
	assert.Equal(t, 1, ctx.MessageCount(), "each failed cycle replaces the transcript")
	last, ok := ctx.LastMessage()
	require.True(t, ok)
	assert.True(t, last.Flags.IsError)
}

func TestInitializeSessionRestoresFromCache(t *testing.T) {
	server := registerServer(t, true)
	dir := t.TempDir()

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.CacheDir = dir
	setupTest(t, cfg)

	cache, err := GetCacheService()
	require.NoError(t, err)
	cache.Save(widgettypes.CacheEntry{
		Session:    "cached-session",
		Registered: true,
		User:       widgettypes.User{Name: "Ana"},
		Bot:        widgettypes.Bot{Name: "Asistente"},
		Messages: []widgettypes.Message{
			{ID: "1", From: widgettypes.FromUser, Text: "hola"},
			{ID: "2", From: widgettypes.FromBot, Text: "¡hola!"},
		},
	})

	cfg2 := testConfig(t)
	cfg2.BaseURL = server.URL
	cfg2.CacheDir = dir
	ctx := setupTest(t, cfg2)

	require.NoError(t, sessionForTest(t).InitializeSession())

	assert.Equal(t, "cached-session", ctx.Session())
	assert.True(t, ctx.RegistrationCompleted())
	assert.Equal(t, widgettypes.ScreenChat, ctx.Screen())
	assert.Equal(t, "Ana", ctx.User().Name)
	assert.Equal(t, 2, ctx.MessageCount())
}

func TestPreconfiguredNameSkipsRegistration(t *testing.T) {
	server := registerServer(t, true)

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.User.Name = "Carlos"
	ctx := setupTest(t, cfg)

	require.NoError(t, sessionForTest(t).InitializeSession())

	assert.True(t, ctx.RegistrationCompleted())
	assert.Equal(t, widgettypes.ScreenChat, ctx.Screen())
	last, ok := ctx.LastMessage()
	require.True(t, ok)
	assert.Contains(t, last.Text, "Carlos")
}

func TestAdvancedOnboardingInitialScreen(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	cfg.Onboarding = widgettypes.OnboardingAdvanced
	ctx := setupTest(t, cfg)

	require.NoError(t, sessionForTest(t).InitializeSession())

	assert.Equal(t, widgettypes.ScreenAdvancedOnboarding, ctx.Screen())
	assert.Equal(t, 0, ctx.OnboardingStep())
}

func TestClearHistoryIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	ctx := setupTest(t, cfg)
	session := sessionForTest(t)

	require.NoError(t, session.InitializeSession())
	ctx.AppendMessage(widgettypes.Message{From: widgettypes.FromUser, Text: "hola"})
	token := ctx.Session()

	session.ClearHistory()
	assert.Equal(t, 1, ctx.MessageCount(), "only the reseeded welcome survives")
	assert.Equal(t, 1, ctx.WelcomeMessageCount())
	assert.NotEmpty(t, ctx.Session())
	assert.NotEqual(t, token, ctx.Session(), "clearing history starts a fresh session")
	assert.False(t, ctx.RegistrationCompleted())
	assert.Equal(t, widgettypes.ScreenRegistration, ctx.Screen())

	session.ClearHistory()
	assert.Equal(t, 1, ctx.MessageCount())
	assert.Equal(t, 1, ctx.WelcomeMessageCount())
}

func TestRetryOutsideErrorScreenIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestMode = true
	ctx := setupTest(t, cfg)
	session := sessionForTest(t)

	require.NoError(t, session.InitializeSession())
	count := ctx.MessageCount()

	require.NoError(t, session.Retry())
	assert.Equal(t, count, ctx.MessageCount())
}

func TestRetryRecoversAfterBackendComesBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "http://127.0.0.1:1"
	ctx := setupTest(t, cfg)
	session := sessionForTest(t)

	require.Error(t, session.InitializeSession())
	require.Equal(t, widgettypes.ScreenError, ctx.Screen())

	server := registerServer(t, true)
	newCfg := ctx.Config()
	newCfg.BaseURL = server.URL
	ctx.SetConfig(newCfg)

	require.NoError(t, session.Retry())
	assert.Equal(t, widgettypes.ScreenRegistration, ctx.Screen())
	assert.Equal(t, "srv-session", ctx.Session())
}

func TestRestoredSentinelNameStillNeedsRegistration(t *testing.T) {
	dir := t.TempDir()
	server := registerServer(t, true)

	cfg := testConfig(t)
	cfg.BaseURL = server.URL
	cfg.CacheDir = dir
	setupTest(t, cfg)

	cache, err := GetCacheService()
	require.NoError(t, err)
	cache.Save(widgettypes.CacheEntry{
		Session: "cached-session",
		User:    widgettypes.User{Name: widgettypes.DefaultUserName},
	})

	cfg2 := testConfig(t)
	cfg2.BaseURL = server.URL
	cfg2.CacheDir = dir
	ctx := setupTest(t, cfg2)

	require.NoError(t, sessionForTest(t).InitializeSession())
	assert.False(t, ctx.RegistrationCompleted())
	assert.Equal(t, widgettypes.ScreenRegistration, ctx.Screen())
}

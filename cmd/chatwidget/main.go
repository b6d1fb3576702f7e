// Package main provides the chatwidget demo CLI: an interactive terminal
// session around the embeddable chat widget core.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chatwidget/internal/logger"
	"chatwidget/internal/services"
	"chatwidget/internal/shell"
	"chatwidget/internal/version"
	"chatwidget/pkg/widget"
	"chatwidget/pkg/widgettypes"
)

var (
	logLevel string
	logFile  string
	testMode bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatwidget",
	Short: "Chat widget - embeddable chat client demo",
	Long: `Chatwidget runs the embeddable chat client in a terminal session.
It registers against the configured backend, persists session continuity
between runs and drives the same conversation flow a web host page would.`,
	Run: runChat,
}

// chatCmd represents the chat command (explicit version of default behavior)
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Run:   runChat,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.GetInfo().String())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "Run offline with canned responses and deterministic IDs")

	rootCmd.PersistentFlags().String("base-url", "", "Backend base URL")
	rootCmd.PersistentFlags().String("api-key", "", "Backend API key")
	rootCmd.PersistentFlags().String("tenant", "", "Tenant identifier")
	rootCmd.PersistentFlags().String("lang", "", "Localization language code (es|en)")
	rootCmd.PersistentFlags().String("onboarding", "", "Onboarding template (basic|advanced)")
	rootCmd.PersistentFlags().Bool("register", true, "Enable the registration feature")
	rootCmd.PersistentFlags().Bool("stream", true, "Reveal bot answers progressively")
	rootCmd.PersistentFlags().Bool("cache", true, "Persist session continuity between runs")

	for _, flag := range []string{
		"log-level", "log-file", "test-mode",
		"base-url", "api-key", "tenant", "lang", "onboarding",
		"register", "stream", "cache",
	} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file is optional; environment variables win over it.
	_ = godotenv.Load()

	viper.SetEnvPrefix("CHATWIDGET")
	viper.AutomaticEnv()

	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

func runChat(_ *cobra.Command, _ []string) {
	logger.Info("Starting chatwidget", "version", version.GetVersion())

	cfg := widgettypes.DefaultConfig()
	cfg.BaseURL = viper.GetString("base-url")
	cfg.APIKey = viper.GetString("api-key")
	cfg.Tenant = viper.GetString("tenant")
	cfg.TestMode = viper.GetBool("test-mode")
	cfg.Register = viper.GetBool("register")
	cfg.Stream = viper.GetBool("stream")
	cfg.Cache = viper.GetBool("cache")
	if lang := viper.GetString("lang"); lang != "" {
		cfg.Language = lang
	}
	if onboarding := viper.GetString("onboarding"); onboarding != "" {
		cfg.Onboarding = widgettypes.OnboardingTemplate(onboarding)
	}
	if cfg.TestMode && cfg.BaseURL == "" {
		// Offline mode needs no real backend, but the config still
		// requires a well-formed URL and key.
		cfg.BaseURL = "http://localhost"
		if cfg.APIKey == "" {
			cfg.APIKey = "test-key"
		}
	}

	w, err := widget.New(cfg)
	if err != nil {
		logger.Fatal("Failed to construct widget", "error", err)
	}

	if cfg.TestMode {
		if msg, err := services.GetMessageService(); err == nil {
			msg.Responder().SetThinkDelay(500 * time.Millisecond)
		}
	}

	w.SetRenderer(shell.NewTerminalRenderer(os.Stdout))

	loop := shell.NewLoop(w, os.Stdin, os.Stdout)
	if err := loop.Run(); err != nil {
		logger.Fatal("Interactive session failed", "error", err)
	}
}

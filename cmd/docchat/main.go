// Command docchat is an interactive chatbot that answers questions
// grounded in PDF documents.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/docchat-dev/docchat/pkg/chat"
	"github.com/docchat-dev/docchat/pkg/config"
	"github.com/docchat-dev/docchat/pkg/llm/provider"
	"github.com/docchat-dev/docchat/pkg/pdf"
	"github.com/docchat-dev/docchat/pkg/session"
	"github.com/docchat-dev/docchat/pkg/summary"
	"github.com/docchat-dev/docchat/pkg/tokenizer"
)

// Version information (set via ldflags)
var Version = "dev"

func main() {
	var (
		configFile   string
		dataDir      string
		providerName string
		model        string
		sessionName  string
	)

	rootCmd := &cobra.Command{
		Use:     "docchat",
		Short:   "Chat with your PDF documents from the terminal",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if providerName != "" {
				cfg.Provider = providerName
			}
			if model != "" {
				cfg.Model = model
			}
			if sessionName != "" {
				cfg.DefaultSession = sessionName
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}

	defaultConfig := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultConfig = filepath.Join(home, ".docchat", "config.yaml")
	}

	rootCmd.Flags().StringVar(&configFile, "config", defaultConfig, "configuration file")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for sessions, summaries, and exports")
	rootCmd.Flags().StringVar(&providerName, "provider", "", "completion provider (openai, gemini, bedrock)")
	rootCmd.Flags().StringVar(&model, "model", "", "model identifier")
	rootCmd.Flags().StringVar(&sessionName, "session", "", "session to open at startup")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("docchat: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	tok := newTokenizer(cfg.Model)

	prov, err := newProvider(cfg)
	if err != nil {
		return err
	}

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	summaries, err := summary.NewFileStore(cfg.SummariesDir())
	if err != nil {
		return err
	}

	exporter, err := pdf.NewExporter(cfg.ExportsDir())
	if err != nil {
		return err
	}

	controller, err := chat.NewController(ctx, cfg, prov, sessions, summaries, exporter, tok)
	if err != nil {
		return err
	}

	fmt.Printf("docchat %s (provider %s, model %s)\n", Version, prov.Name(), cfg.Model)
	fmt.Println("Type /help for commands, or just ask a question.")

	return runREPL(ctx, cfg, controller)
}

func newTokenizer(model string) tokenizer.Tokenizer {
	codec, err := tokenizer.NewCodec(model)
	if err != nil {
		log.Printf("warning: token encoding unavailable, falling back to approximate counting: %v", err)
		return tokenizer.NewRuneTokenizer()
	}
	return codec
}

func newProvider(cfg *config.Config) (provider.Provider, error) {
	settings := map[string]any{}
	switch cfg.Provider {
	case "openai":
		settings["api_key"] = cfg.OpenAIKey
	case "gemini":
		settings["api_key"] = cfg.GeminiKey
	}

	prov, err := provider.New(cfg.Provider, settings)
	if err != nil {
		return nil, fmt.Errorf("initialize provider %s: %w", cfg.Provider, err)
	}

	return provider.RateLimited(prov, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), nil
}

func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.Storage.Addr,
			Password: cfg.Storage.Password,
			DB:       cfg.Storage.DB,
		})
	case "", "file":
		return session.NewFileStore(cfg.SessionsDir())
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// interruptTimeout bounds how long a final save may take on shutdown.
const interruptTimeout = 10 * time.Second

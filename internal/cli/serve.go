package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidybook/tidybook/internal/assistant"
	"github.com/tidybook/tidybook/internal/config"
	"github.com/tidybook/tidybook/internal/convo"
	"github.com/tidybook/tidybook/internal/llm"
	"github.com/tidybook/tidybook/internal/logging"
	"github.com/tidybook/tidybook/internal/store"
	"github.com/tidybook/tidybook/internal/tools"
	"github.com/tidybook/tidybook/internal/usage"
	"github.com/tidybook/tidybook/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if cfg.Model.APIKey == "" {
			return fmt.Errorf("model API key is required (set TIDYBOOK_MODEL_API_KEY or model.api_key)")
		}

		log := logging.New(os.Stderr, cfg.Logging.Level)

		db, err := store.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer db.Close()

		scheduler := store.NewScheduler(db)
		registry := tools.NewRegistry(log)
		registry.Register(tools.NewListServicesTool(scheduler))
		registry.Register(tools.NewCheckAvailabilityTool(scheduler))
		registry.Register(tools.NewBookAppointmentTool(scheduler))
		registry.Register(tools.NewCancelAppointmentTool(scheduler))

		provider := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.Model.APIKey,
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.Name,
		}, log)
		client := llm.NewRetryClient(provider, llm.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
			MaxDelay:   time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		}, log)

		convos := convo.NewStore(
			store.NewDirectory(db),
			time.Duration(cfg.Assistant.ConversationTTLMinutes)*time.Minute,
			log,
		)

		engine := assistant.New(convos, client, registry, usage.NewSQLiteRecorder(db, log), assistant.Config{
			MaxIterations: cfg.Assistant.MaxIterations,
			RecentWindow:  cfg.Assistant.RecentWindow,
			MaxTokens:     cfg.Model.MaxTokens,
		}, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := webhook.NewServer(cfg.Addr(), engine, log)
		return server.Start(ctx)
	},
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rustplugin-bot/handler"
	"rustplugin-bot/internal/integrations/openrouter"
	"rustplugin-bot/internal/integrations/paramstore"
	"rustplugin-bot/internal/integrations/telegram"
	"rustplugin-bot/internal/repository"
	"rustplugin-bot/internal/telemetry"
	"rustplugin-bot/internal/usecase"
)

const (
	modePolling = "polling"
	modeLambda  = "lambda"

	triggerAPIGateway  = "api_gateway"
	triggerFunctionURL = "function_url"

	// apiGatewayTimeout is the integration limit API Gateway enforces.
	apiGatewayTimeout = 29 * time.Second
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))})))

	runMode := envString("RUN_MODE", modePolling)
	if runMode != modePolling && runMode != modeLambda {
		slog.Error("unsupported run mode", "mode", runMode)
		os.Exit(1)
	}
	paramPrefix := os.Getenv("PARAM_PREFIX")
	pendingTable := os.Getenv("PENDING_TABLE")
	if runMode == modeLambda && pendingTable == "" {
		slog.Error("required environment variable is not set", "key", "PENDING_TABLE", "mode", runMode)
		os.Exit(1)
	}
	trigger := envString("LAMBDA_TRIGGER", triggerAPIGateway)
	if trigger != triggerAPIGateway && trigger != triggerFunctionURL {
		slog.Error("unsupported lambda trigger", "trigger", trigger)
		os.Exit(1)
	}
	completionTimeout := envDuration("COMPLETION_TIMEOUT", openrouter.DefaultTimeout)

	routerCfg := handler.Config{
		ChunkSize:         envInt("MAX_CHUNK_SIZE", 4000),
		MaxDocumentBytes:  int64(envInt("MAX_DOCUMENT_BYTES", 512*1024)),
		ExplainGenerated:  envBool("EXPLAIN_GENERATED", true),
		PendingTTL:        envDuration("PENDING_TTL", 15*time.Minute),
		GeneratedFileName: "RustPlugin.cs",
		Prompt: usecase.PromptOptions{
			MaxTokens:   envInt("MAX_TOKENS", 0),
			Temperature: envOptionalFloat("TEMPERATURE"),
		},
	}

	// ---- AWS SDK config ----
	var (
		awsCfgLoaded bool
		ssmClient    *paramstore.Client
		dynamoStore  *repository.DynamoStore
		pendingStore handler.PendingStore
	)
	if paramPrefix != "" || pendingTable != "" {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		awsCfgLoaded = true

		if paramPrefix != "" {
			ssmClient, err = paramstore.New(awsssm.NewFromConfig(cfg), paramPrefix)
			if err != nil {
				slog.Error("failed to create SSM client", "err", err)
				os.Exit(1)
			}
		}
		if pendingTable != "" {
			dynamoStore, err = repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), pendingTable)
			if err != nil {
				slog.Error("failed to create pending store", "err", err)
				os.Exit(1)
			}
			pendingStore = dynamoStore
		}
	}
	if pendingStore == nil {
		store, err := repository.NewMemoryStore(envInt("PENDING_CACHE_SIZE", 1024), routerCfg.PendingTTL)
		if err != nil {
			slog.Error("failed to create pending store", "err", err)
			os.Exit(1)
		}
		pendingStore = store
	}
	slog.Info("configuration loaded",
		"mode", runMode,
		"aws", awsCfgLoaded,
		"dynamo_pending_store", pendingTable != "",
	)

	// ---- Secrets ----
	telegramToken := secret(ctx, ssmClient, "telegram-token", "TELEGRAM_TOKEN")
	openrouterKey := secret(ctx, ssmClient, "openrouter-token", "OPENROUTER_API_KEY")

	// ---- Clients ----
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	opts := []openrouter.Option{
		openrouter.WithHTTPClient(&http.Client{Timeout: completionTimeout}),
	}
	if baseURL := os.Getenv("COMPLETION_BASE_URL"); baseURL != "" {
		opts = append(opts, openrouter.WithBaseURL(baseURL))
	}
	llm, err := openrouter.NewClient(ctx, openrouter.Config{
		APIKey:  openrouterKey,
		Model:   envString("COMPLETION_MODEL", openrouter.DefaultModel),
		Referer: envString("APP_REFERER", "https://github.com/YourRepo"),
		Title:   envString("APP_TITLE", "RustPluginBot"),
	}, opts...)
	if err != nil {
		slog.Error("failed to create completion client", "err", err)
		os.Exit(1)
	}
	slog.Info("completion client ready", "model", llm.Model())

	if err := tgbotapi.SetLogger(telegram.NewLibraryLogger(slog.Default(), telegramToken)); err != nil {
		slog.Error("failed to install Telegram library logger", "err", err)
		os.Exit(1)
	}
	bot, err := tgbotapi.NewBotAPI(telegramToken)
	if err != nil {
		slog.Error("failed to create Telegram bot", "err", telegram.RedactError(err, telegramToken))
		os.Exit(1)
	}
	messenger, err := telegram.New(bot, telegramToken, nil)
	if err != nil {
		slog.Error("failed to create Telegram client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	completion, err := usecase.NewCompletionService(llm, metrics, slog.Default())
	if err != nil {
		slog.Error("failed to create completion service", "err", err)
		os.Exit(1)
	}
	router, err := handler.NewRouter(completion, messenger, pendingStore, metrics, routerCfg, slog.Default())
	if err != nil {
		slog.Error("failed to create router", "err", err)
		os.Exit(1)
	}

	if runMode == modeLambda {
		webhook, err := handler.NewWebhook(router, os.Getenv("WEBHOOK_SECRET"), slog.Default(),
			handler.WithUpdateClaimer(dynamoStore),
		)
		if err != nil {
			slog.Error("failed to create webhook handler", "err", err)
			os.Exit(1)
		}
		if trigger == triggerFunctionURL {
			lambda.Start(webhook.HandleFunctionURL)
			return
		}
		if completionTimeout >= apiGatewayTimeout {
			slog.Warn("completions may outlast the API Gateway integration timeout; redeliveries are deduplicated but users wait for the first attempt",
				"completion_timeout", completionTimeout,
				"gateway_timeout", apiGatewayTimeout,
			)
		}
		lambda.Start(webhook.Handle)
		return
	}

	runPolling(bot, router, registry)
}

func runPolling(bot *tgbotapi.BotAPI, router *handler.Router, registry *prometheus.Registry) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if addr := envString("METRICS_ADDR", ":9090"); addr != "" {
		srv = telemetry.NewServer(addr, registry)
		go func() {
			slog.Info("metrics server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "err", err)
			}
		}()
	}

	poller, err := telegram.NewPoller(bot, envInt("POLL_TIMEOUT", 60), envInt("MAX_CONCURRENT_EVENTS", 8), slog.Default())
	if err != nil {
		slog.Error("failed to create poller", "err", err)
		os.Exit(1)
	}
	slog.Info("bot started", "username", bot.Self.UserName)
	if err := poller.Run(ctx, router.Dispatch); err != nil {
		slog.Error("poller stopped with error", "err", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown failed", "err", err)
		}
	}
}

// secret reads name from Parameter Store when a prefix is configured, and
// envKey otherwise. A missing secret is fatal.
func secret(ctx context.Context, store *paramstore.Client, name, envKey string) string {
	if store == nil {
		return mustEnv(envKey)
	}
	v, err := store.Token(ctx, name)
	if err != nil {
		slog.Error("failed to read secret", "name", name, "err", err)
		os.Exit(1)
	}
	return v
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envOptionalFloat returns nil when key is unset or unparsable, so an
// explicit 0 stays distinguishable from "use the default".
func envOptionalFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring invalid float environment variable", "key", key, "value", v)
		return nil
	}
	return &f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func logLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}

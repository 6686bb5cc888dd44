package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/qualivoice/qualivoice/internal/api"
	"github.com/qualivoice/qualivoice/internal/livekit"
	"github.com/qualivoice/qualivoice/internal/nlu"
	"github.com/qualivoice/qualivoice/internal/store"
	"github.com/qualivoice/qualivoice/internal/transfer"
	"github.com/qualivoice/qualivoice/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for QualiVoice state data
	DefaultStateDir = "/var/lib/qualivoice"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "qualivoice.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()

	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	storeOpts := buildStoreOptions(flags)
	nluOpts := buildNLUOptions(flags)
	lkOpts := buildLiveKitOptions(flags)
	smsOpts := buildSMSOptions(config)
	apiOpts := buildAPIOptions(config, flags)

	slog.Info("Bootstrapping QualiVoice with configured modules")
	slog.Debug("Module options counts",
		"store", len(storeOpts), "nlu", len(nluOpts), "livekit", len(lkOpts), "sms", len(smsOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, nluOpts, lkOpts, smsOpts, apiOpts); err != nil {
		slog.Error("QualiVoice failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("QualiVoice exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL        string
	RedisURL           string
	StateDir           string
	OpenAIKey          string
	OpenAIModel        string
	LiveKitURL         string
	LiveKitAPIKey      string
	LiveKitAPISecret   string
	BotVoice           string
	WebhookBaseURL     string
	SIPDomain          string
	TransferWebhookURL string
	SMSHandoff         bool
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	AgentPhoneNumber   string
	APIAddr            string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	redisURL    *string
	openaiKey   *string
	openaiModel *string
	livekitURL  *string
	livekitKey  *string
	livekitSecr *string
	botVoice    *string
	webhookBase *string
	apiAddr     *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		StateDir:           os.Getenv("QUALIVOICE_STATE_DIR"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		LiveKitURL:         os.Getenv("LIVEKIT_API_URL"),
		LiveKitAPIKey:      os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret:   os.Getenv("LIVEKIT_API_SECRET"),
		BotVoice:           os.Getenv("BOT_VOICE"),
		WebhookBaseURL:     os.Getenv("WEBHOOK_BASE_URL"),
		SIPDomain:          os.Getenv("SIP_DOMAIN"),
		TransferWebhookURL: os.Getenv("TRANSFER_WEBHOOK_URL"),
		SMSHandoff:         util.ParseBoolEnv("SMS_HANDOFF_ENABLED", false),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:   os.Getenv("TWILIO_FROM_NUMBER"),
		AgentPhoneNumber:   os.Getenv("AGENT_PHONE_NUMBER"),
		APIAddr:            os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No QUALIVOICE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Without any database URL, fall back to SQLite in the state directory.
	if config.DatabaseURL == "" && config.RedisURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_URL_SET", config.RedisURL != "",
		"QUALIVOICE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"LIVEKIT_API_URL", config.LiveKitURL,
		"LIVEKIT_CREDENTIALS_SET", config.LiveKitAPIKey != "" && config.LiveKitAPISecret != "",
		"WEBHOOK_BASE_URL", config.WebhookBaseURL,
		"TRANSFER_WEBHOOK_URL_SET", config.TransferWebhookURL != "",
		"SMS_HANDOFF_ENABLED", config.SMSHandoff,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for QualiVoice data (overrides $QUALIVOICE_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the call record store (overrides $DATABASE_URL)"),
		redisURL:    flag.String("redis-url", config.RedisURL, "Redis URL for the call record store (overrides $REDIS_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI model for transcript analysis (overrides $OPENAI_MODEL)"),
		livekitURL:  flag.String("livekit-url", config.LiveKitURL, "LiveKit API base URL (overrides $LIVEKIT_API_URL)"),
		livekitKey:  flag.String("livekit-api-key", config.LiveKitAPIKey, "LiveKit API key (overrides $LIVEKIT_API_KEY)"),
		livekitSecr: flag.String("livekit-api-secret", config.LiveKitAPISecret, "LiveKit API secret (overrides $LIVEKIT_API_SECRET)"),
		botVoice:    flag.String("bot-voice", config.BotVoice, "TTS voice for bot utterances (overrides $BOT_VOICE)"),
		webhookBase: flag.String("webhook-base-url", config.WebhookBaseURL, "public base URL for transcription webhooks (overrides $WEBHOOK_BASE_URL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisURL_set", *flags.redisURL != "",
		"openaiKeySet", *flags.openaiKey != "",
		"livekitURL", *flags.livekitURL,
		"webhookBase", *flags.webhookBase,
		"apiAddr", *flags.apiAddr)

	// Follow an overridden state directory when the DSN was the derived default.
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.redisURL != "" {
		return nil
	}
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	switch {
	case *flags.redisURL != "":
		slog.Debug("Configuring Redis store", "redis_url_set", true)
		storeOpts = append(storeOpts, store.WithRedisURL(*flags.redisURL))
	case store.DetectDSNType(*flags.dbDSN) == "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	case *flags.dbDSN != "":
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	default:
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildNLUOptions constructs NLU configuration options
func buildNLUOptions(flags Flags) []nlu.Option {
	var nluOpts []nlu.Option
	if *flags.openaiKey != "" {
		nluOpts = append(nluOpts, nlu.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		nluOpts = append(nluOpts, nlu.WithModel(*flags.openaiModel))
	}
	return nluOpts
}

// buildLiveKitOptions constructs voice platform configuration options
func buildLiveKitOptions(flags Flags) []livekit.Option {
	var lkOpts []livekit.Option
	if *flags.livekitURL != "" {
		lkOpts = append(lkOpts, livekit.WithBaseURL(*flags.livekitURL))
	}
	if *flags.livekitKey != "" || *flags.livekitSecr != "" {
		lkOpts = append(lkOpts, livekit.WithCredentials(*flags.livekitKey, *flags.livekitSecr))
	}
	if *flags.botVoice != "" {
		lkOpts = append(lkOpts, livekit.WithVoice(*flags.botVoice))
	}
	if *flags.webhookBase != "" {
		lkOpts = append(lkOpts, livekit.WithWebhookBaseURL(*flags.webhookBase))
	}
	return lkOpts
}

// buildSMSOptions constructs SMS hand-off configuration options. The transfer
// module also falls back to the environment; options are passed explicitly so
// the bootstrap log reflects what is configured.
func buildSMSOptions(config Config) []transfer.Option {
	var smsOpts []transfer.Option
	if !config.SMSHandoff {
		return smsOpts
	}
	if config.TwilioAccountSID != "" {
		smsOpts = append(smsOpts, transfer.WithAccountSID(config.TwilioAccountSID))
	}
	if config.TwilioAuthToken != "" {
		smsOpts = append(smsOpts, transfer.WithAuthToken(config.TwilioAuthToken))
	}
	if config.TwilioFromNumber != "" {
		smsOpts = append(smsOpts, transfer.WithFrom(config.TwilioFromNumber))
	}
	if config.AgentPhoneNumber != "" {
		smsOpts = append(smsOpts, transfer.WithAgentPhone(config.AgentPhoneNumber))
	}
	return smsOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(config Config, flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if config.SIPDomain != "" {
		apiOpts = append(apiOpts, api.WithSIPDomain(config.SIPDomain))
	}
	if config.TransferWebhookURL != "" {
		apiOpts = append(apiOpts, api.WithTransferWebhookURL(config.TransferWebhookURL))
	}
	if config.SMSHandoff {
		apiOpts = append(apiOpts, api.WithSMSHandoff())
	}
	return apiOpts
}

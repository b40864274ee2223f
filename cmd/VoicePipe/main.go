package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/BTreeMap/VoicePipe/internal/api"
	"github.com/BTreeMap/VoicePipe/internal/genai"
	"github.com/BTreeMap/VoicePipe/internal/models"
	"github.com/BTreeMap/VoicePipe/internal/speech"
	"github.com/BTreeMap/VoicePipe/internal/store"
	"github.com/BTreeMap/VoicePipe/internal/transcription"
	"github.com/BTreeMap/VoicePipe/internal/twiliowhatsapp"
	"github.com/BTreeMap/VoicePipe/internal/util"
	"github.com/joho/godotenv"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Resolve the configured persona
	persona, err := models.PersonaByName(*flags.persona)
	if err != nil {
		slog.Error("Unknown persona configured", "error", err, "persona", *flags.persona)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	twilioOpts := buildTwilioOptions(flags)
	transcriptionOpts := buildTranscriptionOptions(flags)
	speechOpts := buildSpeechOptions(flags)
	apiOpts := buildAPIOptions(flags, persona)

	slog.Info("Bootstrapping VoicePipe with configured modules", "persona", persona.Name)
	if err := api.Run(storeOpts, genaiOpts, twilioOpts, transcriptionOpts, speechOpts, apiOpts); err != nil {
		slog.Error("VoicePipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("VoicePipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL        string
	OpenAIKey          string
	TwilioSID          string
	TwilioToken        string
	Persona            string
	APIAddr            string
	StaticDir          string
	PublicBaseURL      string
	ValidateSignatures bool
}

// Flags holds command line flag values
type Flags struct {
	dbDSN              *string
	openaiKey          *string
	twilioSID          *string
	twilioToken        *string
	persona            *string
	apiAddr            *string
	staticDir          *string
	publicBaseURL      *string
	validateSignatures *bool
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
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		TwilioSID:          os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
		Persona:            os.Getenv("PERSONA"),
		APIAddr:            os.Getenv("API_ADDR"),
		StaticDir:          os.Getenv("STATIC_DIR"),
		PublicBaseURL:      os.Getenv("PUBLIC_BASE_URL"),
		ValidateSignatures: util.ParseBoolEnv("VALIDATE_TWILIO_SIGNATURE", false),
	}

	if config.Persona == "" {
		config.Persona = models.PersonaNameNutritionist
		slog.Debug("No PERSONA set, using default", "persona", config.Persona)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"TWILIO_AUTH_TOKEN_SET", config.TwilioToken != "",
		"PERSONA", config.Persona,
		"API_ADDR", config.APIAddr,
		"STATIC_DIR", config.StaticDir,
		"PUBLIC_BASE_URL", config.PublicBaseURL,
		"VALIDATE_TWILIO_SIGNATURE", config.ValidateSignatures)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:              flag.String("db-dsn", config.DatabaseURL, "database DSN for the turn store (overrides $DATABASE_URL)"),
		openaiKey:          flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		twilioSID:          flag.String("twilio-account-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken:        flag.String("twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		persona:            flag.String("persona", config.Persona, "assistant persona: nutritionist or english-tutor (overrides $PERSONA)"),
		apiAddr:            flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		staticDir:          flag.String("static-dir", config.StaticDir, "directory for generated audio files (overrides $STATIC_DIR)"),
		publicBaseURL:      flag.String("public-base-url", config.PublicBaseURL, "externally reachable base URL (overrides $PUBLIC_BASE_URL)"),
		validateSignatures: flag.Bool("validate-twilio-signature", config.ValidateSignatures, "validate X-Twilio-Signature on webhooks (overrides $VALIDATE_TWILIO_SIGNATURE)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"twilioSIDSet", *flags.twilioSID != "",
		"persona", *flags.persona,
		"apiAddr", *flags.apiAddr,
		"staticDir", *flags.staticDir,
		"publicBaseURL", *flags.publicBaseURL,
		"validateSignatures", *flags.validateSignatures)

	return flags
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will run memoryless")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildTwilioOptions constructs Twilio configuration options
func buildTwilioOptions(flags Flags) []twiliowhatsapp.Option {
	var twilioOpts []twiliowhatsapp.Option
	if *flags.twilioSID != "" {
		twilioOpts = append(twilioOpts, twiliowhatsapp.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		twilioOpts = append(twilioOpts, twiliowhatsapp.WithAuthToken(*flags.twilioToken))
	}
	return twilioOpts
}

// buildTranscriptionOptions constructs transcription configuration options
func buildTranscriptionOptions(flags Flags) []transcription.Option {
	var transcriptionOpts []transcription.Option
	if *flags.openaiKey != "" {
		transcriptionOpts = append(transcriptionOpts, transcription.WithAPIKey(*flags.openaiKey))
	}
	return transcriptionOpts
}

// buildSpeechOptions constructs speech synthesis configuration options
func buildSpeechOptions(flags Flags) []speech.Option {
	var speechOpts []speech.Option
	if *flags.openaiKey != "" {
		speechOpts = append(speechOpts, speech.WithAPIKey(*flags.openaiKey))
	}
	return speechOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, persona models.Persona) []api.Option {
	apiOpts := []api.Option{api.WithPersona(persona)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.staticDir != "" {
		apiOpts = append(apiOpts, api.WithStaticDir(*flags.staticDir))
	}
	if *flags.publicBaseURL != "" {
		apiOpts = append(apiOpts, api.WithPublicBaseURL(*flags.publicBaseURL))
	}
	if *flags.validateSignatures {
		apiOpts = append(apiOpts, api.WithSignatureValidation(true))
	}
	return apiOpts
}

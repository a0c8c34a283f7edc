package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Turn dispatch modes.
const (
	DispatchInline = "inline"
	DispatchMemory = "memory"
	DispatchSQS    = "sqs"
)

// Config holds application configuration. It is built once at startup and
// handed to every adapter and collaborator; nothing reads the environment later.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// WhatsApp Cloud API
	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppAppSecret     string
	WhatsAppVerifyToken   string

	// Telegram Bot API
	TelegramBotToken      string
	TelegramWebhookSecret string

	// AI fallback
	GoogleAPIKey    string
	GeminiModelID   string
	BedrockModelID  string
	AITimeout       time.Duration
	AIHistoryWindow int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	DocumentsBucket     string

	// Turn dispatch
	TurnDispatch  string
	TurnQueueURL  string
	WorkerCount   int
	VoiceAckDelay time.Duration

	LeadDedupePolicy string

	// Staff notifications
	NotifyEmailTo     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppVerifyToken:   getEnv("VERIFY_TOKEN", ""),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		AITimeout:       getEnvAsDuration("AI_TIMEOUT", 15*time.Second),
		AIHistoryWindow: getEnvAsInt("AI_HISTORY_WINDOW", 10),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		DocumentsBucket:     getEnv("DOCUMENTS_BUCKET", ""),

		TurnDispatch:  strings.ToLower(strings.TrimSpace(getEnv("TURN_DISPATCH", DispatchMemory))),
		TurnQueueURL:  getEnv("TURN_QUEUE_URL", ""),
		WorkerCount:   getEnvAsInt("WORKER_COUNT", 4),
		VoiceAckDelay: getEnvAsDuration("VOICE_ACK_DELAY", 2*time.Second),

		LeadDedupePolicy: strings.ToLower(strings.TrimSpace(getEnv("LEAD_DEDUPE_POLICY", "reuse_current"))),

		NotifyEmailTo:     getEnv("NOTIFY_EMAIL_TO", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Study Visa Desk"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// WhatsAppConfigured reports whether outbound WhatsApp delivery has credentials.
func (c *Config) WhatsAppConfigured() bool {
	return strings.TrimSpace(c.WhatsAppToken) != "" && strings.TrimSpace(c.WhatsAppPhoneNumberID) != ""
}

// UsesAWS reports whether any component needs an AWS SDK config.
func (c *Config) UsesAWS() bool {
	return c.BedrockModelID != "" || c.DocumentsBucket != "" || c.SESFromEmail != "" || c.TurnDispatch == DispatchSQS
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

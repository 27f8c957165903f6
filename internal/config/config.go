package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	LLM        LLMConfig
	Restaurant RestaurantConfig
	Agent      AgentConfig
	Tracing    TracingConfig
	SMTP       SMTPConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	ApiLogFilePath     string
	CorsAllowedOrigins string
	JwtSecret          string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type LLMConfig struct {
	Provider string // "ollama", "openai", "gemini" or "keyword"
	Model    string
	BaseURL  string
	APIKey   string
}

type RestaurantConfig struct {
	BaseURL      string
	Token        string
	Name         string
	Timeout      time.Duration
	RatePerSec   float64
	Burst        int
	ChannelCode  string
	LeaveConfirm bool
}

type AgentConfig struct {
	StoreBackend         string // "memory" or "redis"
	SessionTTL           time.Duration
	LockTTL              time.Duration
	LockWait             time.Duration
	InterpretTimeout     time.Duration
	ToolTimeout          time.Duration
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
	MaxSearchDays        int
	UseLLMResponses      bool
}

// SMTPConfig enables booking emails when Host is set.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ApiLogFilePath:     getEnv("API_LOG_FILE_PATH", "logs/restaurant_api.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "keyword"),
			Model:    getEnv("LLM_MODEL", "llama3"),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
			APIKey:   getEnv("LLM_API_KEY", ""),
		},
		Restaurant: RestaurantConfig{
			BaseURL:      getEnv("RESTAURANT_API_BASE_URL", "http://localhost:8547"),
			Token:        getEnv("RESTAURANT_API_TOKEN", ""),
			Name:         getEnv("RESTAURANT_NAME", "TheHungryUnicorn"),
			Timeout:      getEnvAsDuration("RESTAURANT_API_TIMEOUT", 10*time.Second),
			RatePerSec:   getEnvAsFloat("RESTAURANT_API_RATE", 5),
			Burst:        getEnvAsInt("RESTAURANT_API_BURST", 5),
			ChannelCode:  getEnv("RESTAURANT_CHANNEL_CODE", "ONLINE"),
			LeaveConfirm: getEnvAsBool("RESTAURANT_LEAVE_TIME_CONFIRMED", false),
		},
		Agent: AgentConfig{
			StoreBackend:         getEnv("AGENT_STORE_BACKEND", "memory"),
			SessionTTL:           getEnvAsDuration("AGENT_SESSION_TTL", time.Hour),
			LockTTL:              getEnvAsDuration("AGENT_LOCK_TTL", 45*time.Second),
			LockWait:             getEnvAsDuration("AGENT_LOCK_WAIT", 30*time.Second),
			InterpretTimeout:     getEnvAsDuration("AGENT_INTERPRET_TIMEOUT", 15*time.Second),
			ToolTimeout:          getEnvAsDuration("AGENT_TOOL_TIMEOUT", 10*time.Second),
			RetryMaxAttempts:     getEnvAsInt("AGENT_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialInterval: getEnvAsDuration("AGENT_RETRY_INITIAL_INTERVAL", 200*time.Millisecond),
			RetryMaxInterval:     getEnvAsDuration("AGENT_RETRY_MAX_INTERVAL", 2*time.Second),
			RetryMultiplier:      getEnvAsFloat("AGENT_RETRY_MULTIPLIER", 2.0),
			MaxSearchDays:        getEnvAsInt("MAX_AVAILABILITY_SEARCH_DAYS", 20),
			UseLLMResponses:      getEnvAsBool("AGENT_LLM_RESPONSES", false),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "restaurant-booking-be"),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			SenderEmail: getEnv("SMTP_SENDER_EMAIL", "bookings@example.com"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("500ms", "10s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

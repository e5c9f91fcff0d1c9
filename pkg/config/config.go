package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Knowledge KnowledgeConfig
	Geo       GeoConfig
	Chatwoot  ChatwootConfig
	Webhook   WebhookConfig
	Memory    MemoryConfig
	Profile   ProfileConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string // json or console
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// DatabaseConfig is only used when Enabled, i.e. DB_HOST is set.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type KnowledgeConfig struct {
	URL             string
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	MaxQueryRunes   int
}

type GeoConfig struct {
	PlacesPath  string
	AliasesPath string
	PlacesURL   string
}

type ChatwootConfig struct {
	BaseURL   string
	AccountID string
	APIToken  string
	Timeout   time.Duration
}

type WebhookConfig struct {
	Token        string
	SeenCapacity int
}

type MemoryConfig struct {
	Capacity int
	TTL      time.Duration
}

type ProfileConfig struct {
	Path string
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work as well
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	bodyLimitMB, _ := strconv.Atoi(getEnv("SERVER_BODY_LIMIT_MB", "1"))
	cacheTTL, _ := strconv.Atoi(getEnv("KNOWLEDGE_CACHE_TTL", "60"))
	refreshInterval, _ := strconv.Atoi(getEnv("KNOWLEDGE_REFRESH_INTERVAL", "0"))
	fetchTimeout, _ := strconv.Atoi(getEnv("KNOWLEDGE_FETCH_TIMEOUT", "15"))
	maxQueryRunes, _ := strconv.Atoi(getEnv("MAX_QUERY_RUNES", "2000"))
	chatwootTimeout, _ := strconv.Atoi(getEnv("CHATWOOT_TIMEOUT", "10"))
	seenCapacity, _ := strconv.Atoi(getEnv("WEBHOOK_SEEN_CAPACITY", "5000"))
	memoryCapacity, _ := strconv.Atoi(getEnv("CHOICE_MEMORY_CAPACITY", "2000"))
	memoryTTL, _ := strconv.Atoi(getEnv("CHOICE_MEMORY_TTL_MINUTES", "30"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", getEnv("PORT", "10000")),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			BodyLimit:    bodyLimitMB << 20,
		},
		Database: DatabaseConfig{
			Enabled:  os.Getenv("DB_HOST") != "",
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tasfiat_brain"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Knowledge: KnowledgeConfig{
			URL:             getEnv("KNOWLEDGE_URL", getEnv("KNOWLEDGE_V5_URL", "")),
			CacheTTL:        time.Duration(cacheTTL) * time.Second,
			RefreshInterval: time.Duration(refreshInterval) * time.Second,
			FetchTimeout:    time.Duration(fetchTimeout) * time.Second,
			MaxQueryRunes:   maxQueryRunes,
		},
		Geo: GeoConfig{
			PlacesPath:  getEnv("GEO_PLACES_PATH", "data/places.json"),
			AliasesPath: getEnv("GEO_ALIASES_PATH", "data/aliases.json"),
			PlacesURL:   getEnv("GEO_PLACES_URL", ""),
		},
		Chatwoot: ChatwootConfig{
			BaseURL:   getEnv("CHATWOOT_BASE_URL", "https://app.chatwoot.com"),
			AccountID: getEnv("CHATWOOT_ACCOUNT_ID", ""),
			APIToken:  getEnv("CHATWOOT_API_TOKEN", ""),
			Timeout:   time.Duration(chatwootTimeout) * time.Second,
		},
		Webhook: WebhookConfig{
			Token:        getEnv("WEBHOOK_TOKEN", ""),
			SeenCapacity: seenCapacity,
		},
		Memory: MemoryConfig{
			Capacity: memoryCapacity,
			TTL:      time.Duration(memoryTTL) * time.Minute,
		},
		Profile: ProfileConfig{
			Path: getEnv("PROFILE_PATH", "profile.yaml"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

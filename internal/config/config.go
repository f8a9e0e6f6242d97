// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	DocDB     DocDBConfig
	Vault     VaultConfig
	Matrix    MatrixConfig
	Albert    AlbertConfig
	Bot       BotConfig
	AllowList AllowListConfig
	Log       LogConfig
}

// ServerConfig holds the admin HTTP server configuration.
type ServerConfig struct {
	Enabled bool
	Host    string
	Port    int
	GinMode string
	// AdminTokenURI resolves the bearer token protecting the admin routes.
	AdminTokenURI string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type     string
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// DocDBConfig holds document database configuration.
type DocDBConfig struct {
	Type     string
	URI      string
	Database string
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type             string
	EncryptionKeyURI string
}

// MatrixConfig holds the chat transport configuration.
type MatrixConfig struct {
	HomeServer  string
	Username    string
	PasswordURI string
	DeviceName  string
	// SyncTimeout is the /sync long-poll timeout.
	SyncTimeout  time.Duration
	JoinOnInvite bool
}

// AlbertConfig holds the answer service configuration.
type AlbertConfig struct {
	APIURL      string
	APITokenURI string
	Model       string
	Mode        string
	WithHistory bool
	Timeout     time.Duration
}

// BotConfig holds the conversational behavior settings.
type BotConfig struct {
	Version       string
	CommandPrefix string
	GroupsUsed    []string
	// ConversationObsolescence is the idle time after which the rolling
	// context is discarded.
	ConversationObsolescence time.Duration
	// MaxRewind bounds the number of turns sent to the answer service.
	MaxRewind      int
	SendRetryDelay time.Duration
	TypingTimeout  time.Duration
	ErrorsRoomID   string
	ContactEmail   string
}

// AllowListConfig holds the access gate configuration.
type AllowListConfig struct {
	Enabled bool
	TTL     time.Duration
	// AllowedDomains is either ["*"] or an explicit list of domains.
	AllowedDomains []string
	// DomainPattern is a regular expression whose first group extracts the
	// domain from a sender identity.
	DomainPattern string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultDomainPattern extracts "example.gouv.fr" from
// "@john.doe-example.gouv.fr1:agent.tchap.gouv.fr". Domains containing a
// dash only keep their last dash-separated part: with the default,
// "developpement-durable.gouv.fr" becomes "durable.gouv.fr". Override
// ALLOWLIST_DOMAIN_PATTERN when USER_ALLOWED_DOMAINS lists such a domain.
const DefaultDomainPattern = `-([^-:]+?)[0-9]*:`

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Enabled: getEnvAsBool("SERVER_ENABLED", true),
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "release"),

			AdminTokenURI: getEnv("ADMIN_API_TOKEN_URI", "dotenv://ADMIN_API_TOKEN"),
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 7*24*3600)) * time.Second,
		},
		DocDB: DocDBConfig{
			Type:     getEnv("DOCDB_TYPE", "mongodb"),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "assistant_bot"),
		},
		Vault: VaultConfig{
			Type:             getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKeyURI: getEnv("SECRETS_ENCRYPTION_KEY_URI", "dotenv://SECRETS_ENCRYPTION_KEY"),
		},
		Matrix: MatrixConfig{
			HomeServer:   getEnv("MATRIX_HOME_SERVER", "https://matrix.agent.tchap.gouv.fr"),
			Username:     getEnv("MATRIX_BOT_USERNAME", ""),
			PasswordURI:  getEnv("MATRIX_BOT_PASSWORD_URI", "dotenv://MATRIX_BOT_PASSWORD"),
			DeviceName:   getEnv("MATRIX_DEVICE_NAME", "assistant-bot"),
			SyncTimeout:  time.Duration(getEnvAsInt("MATRIX_SYNC_TIMEOUT_SECONDS", 30)) * time.Second,
			JoinOnInvite: getEnvAsBool("MATRIX_JOIN_ON_INVITE", true),
		},
		Albert: AlbertConfig{
			APIURL:      getEnv("ALBERT_API_URL", "http://localhost:8090"),
			APITokenURI: getEnv("ALBERT_API_TOKEN_URI", "dotenv://ALBERT_API_TOKEN"),
			Model:       getEnv("ALBERT_MODEL_NAME", "AgentPublic/llama3-instruct-8b"),
			Mode:        getEnv("ALBERT_MODE", "rag"),
			WithHistory: getEnvAsBool("ALBERT_WITH_HISTORY", true),
			Timeout:     time.Duration(getEnvAsInt("ALBERT_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Bot: BotConfig{
			Version:                  getEnv("APP_VERSION", "dev"),
			CommandPrefix:            getEnv("COMMAND_PREFIX", "!"),
			GroupsUsed:               getEnvAsList("GROUPS_USED", []string{"basic", "albert"}),
			ConversationObsolescence: time.Duration(getEnvAsInt("CONVERSATION_OBSOLESCENCE_SECONDS", 15*60)) * time.Second,
			MaxRewind:                getEnvAsInt("ALBERT_MAX_REWIND", 20),
			SendRetryDelay:           time.Duration(getEnvAsInt("SEND_RETRY_DELAY_MS", 1000)) * time.Millisecond,
			TypingTimeout:            time.Duration(getEnvAsInt("TYPING_TIMEOUT_SECONDS", 180)) * time.Second,
			ErrorsRoomID:             getEnv("ERRORS_ROOM_ID", ""),
			ContactEmail:             getEnv("CONTACT_EMAIL", "albert-contact@data.gouv.fr"),
		},
		AllowList: AllowListConfig{
			Enabled:        getEnvAsBool("ALLOWLIST_ENABLED", true),
			TTL:            time.Duration(getEnvAsInt("ALLOWLIST_TTL_SECONDS", 3600)) * time.Second,
			AllowedDomains: getEnvAsList("USER_ALLOWED_DOMAINS", []string{"*"}),
			DomainPattern:  getEnv("ALLOWLIST_DOMAIN_PATTERN", DefaultDomainPattern),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that the bot cannot run without.
func (c *Config) Validate() error {
	if len([]rune(c.Bot.CommandPrefix)) != 1 {
		return fmt.Errorf("COMMAND_PREFIX must be a single character, got %q", c.Bot.CommandPrefix)
	}
	if c.Bot.MaxRewind < 1 {
		return fmt.Errorf("ALBERT_MAX_REWIND must be positive, got %d", c.Bot.MaxRewind)
	}
	if c.Bot.ConversationObsolescence <= 0 {
		return fmt.Errorf("CONVERSATION_OBSOLESCENCE_SECONDS must be positive")
	}
	if len(c.Bot.GroupsUsed) == 0 {
		return fmt.Errorf("GROUPS_USED must name at least one group")
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma-separated environment variable as a list.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

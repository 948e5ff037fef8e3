package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values. Sensitive data has
// no defaults in code and must come from the environment or config file.
type AppConfig struct {
	AppName   string
	AppPort   string
	SiteURL   string
	JWTSecret string

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Moderation and ban policy
	TemporaryBanSeconds int // length of one temporary ban
	PermanentBanCount   int // temporary bans before a permanent one
	PostsPerPage        int

	// Account lifecycle windows, in seconds
	AccountActivationExpiration int
	AccountDeletionInterval     int

	// Background sweeps, in seconds
	UserDeleterInterval int
	EmailSenderInterval int

	RateLimitPerMinute int
	AllowedOrigins     []string

	GinMode string

	// SMTP for outgoing alerts
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool

	// Redis for caching and session revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	GinLogPath    string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads the application configuration. Precedence: .env file ->
// config/config.json -> defaults -> environment variable overrides. It should
// be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Optional .env next to the binary; missing file is fine.
	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTesting replaces the cached configuration. Test helper only.
func SetForTesting(c AppConfig) {
	cfg = c
	loaded = true
}

func loadJSONConfig(path string, out *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func applyDefaults(c *AppConfig) {
	defStr(&c.AppName, "GoMemes")
	defStr(&c.AppPort, "8080")
	defStr(&c.SiteURL, "http://localhost:8080")
	defStr(&c.DBHost, "127.0.0.1")
	defStr(&c.DBPort, "3306")
	defStr(&c.DBUser, "gomemes")
	defStr(&c.DBName, "gomemes")
	defStr(&c.GinMode, "release")
	defStr(&c.LogLevel, "info")
	defStr(&c.LogPath, "logs/app.log")
	defStr(&c.GinLogPath, "logs/gin.log")
	defStr(&c.RedisHost, "127.0.0.1")

	defInt(&c.TemporaryBanSeconds, 24*60*60)
	defInt(&c.PermanentBanCount, 3)
	defInt(&c.PostsPerPage, 5)
	defInt(&c.AccountActivationExpiration, 24*60*60)
	defInt(&c.AccountDeletionInterval, 24*60*60)
	defInt(&c.UserDeleterInterval, 5*60)
	defInt(&c.EmailSenderInterval, 60)
	defInt(&c.RateLimitPerMinute, 60)
	defInt(&c.RedisPort, 6379)
	defInt(&c.SMTPPort, 587)
	defInt(&c.LogMaxSizeMB, 100)
	defInt(&c.LogMaxBackups, 3)
	defInt(&c.LogMaxAgeDays, 7)

	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

func applyEnvOverrides(c *AppConfig) {
	envStr(&c.AppName, "APP_NAME")
	envStr(&c.AppPort, "APP_PORT")
	envStr(&c.SiteURL, "SITE_URL")
	envStr(&c.JWTSecret, "JWT_SECRET")
	envStr(&c.DatabaseURI, "DATABASE_URI")
	envStr(&c.DBHost, "DB_HOST")
	envStr(&c.DBPort, "DB_PORT")
	envStr(&c.DBUser, "DB_USER")
	envStr(&c.DBPassword, "DB_PASSWORD")
	envStr(&c.DBName, "DB_NAME")
	envStr(&c.GinMode, "GIN_MODE")
	envStr(&c.LogLevel, "LOG_LEVEL")
	envStr(&c.LogPath, "LOG_PATH")
	envStr(&c.GinLogPath, "GIN_LOG_PATH")
	envStr(&c.SMTPHost, "SMTP_HOST")
	envStr(&c.SMTPUsername, "SMTP_USERNAME")
	envStr(&c.SMTPPassword, "SMTP_PASSWORD")
	envStr(&c.SMTPFrom, "SMTP_FROM")
	envStr(&c.SMTPFromName, "SMTP_FROM_NAME")
	envStr(&c.RedisHost, "REDIS_HOST")
	envStr(&c.RedisPassword, "REDIS_PASSWORD")

	envInt(&c.TemporaryBanSeconds, "USER_TEMPORARY_BAN")
	envInt(&c.PermanentBanCount, "USER_PERM_BAN_COUNT")
	envInt(&c.PostsPerPage, "POSTS_PER_PAGE")
	envInt(&c.AccountActivationExpiration, "ACCOUNT_ACTIVATION_EXPIRATION")
	envInt(&c.AccountDeletionInterval, "ACCOUNT_DELETION_INTERVAL")
	envInt(&c.UserDeleterInterval, "USER_DELETER_INTERVAL")
	envInt(&c.EmailSenderInterval, "EMAIL_SENDER_INTERVAL")
	envInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	envInt(&c.SMTPPort, "SMTP_PORT")
	envInt(&c.RedisPort, "REDIS_PORT")
	envInt(&c.RedisDB, "REDIS_DB")

	envBool(&c.SMTPTLS, "SMTP_TLS")
	envBool(&c.LogCompress, "LOG_COMPRESS")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if len(origins) > 0 {
			c.AllowedOrigins = origins
		}
	}
}

func defStr(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func defInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"patient-care/internal/platform/logger"
)

// Config agrupa la configuración del servicio leída desde env.
// Con los defaults el servicio levanta solo con stores in-memory.
type Config struct {
	Port string

	// Stores (vacío = no configurado)
	DatabaseDSN   string // Postgres, store principal
	MongoURI      string // documentos de care logs
	MongoDatabase string
	CacheDSN      string // SQLite, cache local / outbox offline

	JWTSecret string
	TokenTTL  time.Duration

	// DevAuth habilita X-Debug-User-ID (sin verificación de token).
	DevAuth bool

	CORSAllowedOrigins []string

	SyncInterval time.Duration

	SentryDSN   string
	Environment string

	LogLevel  logger.Level
	LogFormat logger.Format
	AppName   string
}

// DefaultJWTSecret solo sirve para desarrollo local.
const DefaultJWTSecret = "dev_secret"

func Load() Config {
	return Config{
		Port:               getenv("PORT", "8080"),
		DatabaseDSN:        strings.TrimSpace(os.Getenv("DB_DSN")),
		MongoURI:           strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDatabase:      getenv("MONGODB_DATABASE", "patient_care"),
		CacheDSN:           strings.TrimSpace(os.Getenv("CACHE_DSN")),
		JWTSecret:          getenv("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:           getDuration("TOKEN_TTL", 24*time.Hour),
		DevAuth:            getBool("DEV_AUTH", false),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		SyncInterval:       getDuration("SYNC_INTERVAL", 30*time.Second),
		SentryDSN:          strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		Environment:        getenv("ENVIRONMENT", "development"),
		LogLevel:           logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogFormat:          logger.ParseFormat(os.Getenv("LOG_FORMAT")),
		AppName:            getenv("APP_NAME", "patient-care"),
	}
}

func (c Config) Addr() string {
	return ":" + c.Port
}

// InsecureJWTSecret es true si se usa el secreto por defecto fuera de development.
func (c Config) InsecureJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret && c.Environment != "development"
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getDuration acepta "30s", "5m" o segundos enteros ("45").
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	out := make([]string, 0)
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Config struct {
	App     AppConfig
	Server  ServerConfig
	MongoDB MongoConfig
	Call    CallConfig
	JWT     JWTConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Port        string
	Debug       bool
}

type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	WebSocket    WebSocketConfig
	CORS         CORSConfig
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

// CallConfig controls call lifecycle timing.
type CallConfig struct {
	RingTimeout    time.Duration // unanswered calls are marked missed after this
	EndedDedupeTTL time.Duration // how long finished call IDs are remembered
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	ExpiryHour int
}

var (
	instance *Config
	once     sync.Once
)

// Load loads configuration from environment variables
func Load() *Config {
	once.Do(func() {
		instance = &Config{
			App: AppConfig{
				Name:        getEnv("APP_NAME", "mentorlink"),
				Version:     getEnv("APP_VERSION", "1.0.0"),
				Environment: getEnv("APP_ENV", "development"),
				Port:        getEnv("PORT", "8080"),
				Debug:       getEnvBool("APP_DEBUG", false),
			},
			Server: ServerConfig{
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				WebSocket: WebSocketConfig{
					ReadBufferSize:  getEnvInt("WS_READ_BUFFER_SIZE", 1024),
					WriteBufferSize: getEnvInt("WS_WRITE_BUFFER_SIZE", 1024),
					PingPeriod:      getEnvDuration("WS_PING_PERIOD", 54*time.Second),
					PongWait:        getEnvDuration("WS_PONG_WAIT", 60*time.Second),
					WriteWait:       getEnvDuration("WS_WRITE_WAIT", 10*time.Second),
					MaxMessageSize:  int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
				},
				CORS: CORSConfig{
					AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
				},
			},
			MongoDB: MongoConfig{
				URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database:               getEnv("MONGODB_DATABASE", "mentorlink"),
				MaxPoolSize:            uint64(getEnvInt("MONGODB_MAX_POOL_SIZE", 100)),
				MinPoolSize:            uint64(getEnvInt("MONGODB_MIN_POOL_SIZE", 5)),
				MaxConnIdleTime:        getEnvDuration("MONGODB_MAX_CONN_IDLE_TIME", 30*time.Minute),
				ConnectTimeout:         getEnvDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
				ServerSelectionTimeout: getEnvDuration("MONGODB_SERVER_SELECTION_TIMEOUT", 5*time.Second),
			},
			Call: CallConfig{
				RingTimeout:    getEnvDuration("CALL_RING_TIMEOUT", 30*time.Second),
				EndedDedupeTTL: getEnvDuration("CALL_ENDED_DEDUPE_TTL", 60*time.Second),
			},
			JWT: JWTConfig{
				Secret:     getEnv("JWT_SECRET", "change-me-in-production"),
				Issuer:     getEnv("JWT_ISSUER", "mentorlink-backend"),
				ExpiryHour: getEnvInt("JWT_EXPIRY_HOURS", 72),
			},
		}
	})

	return instance
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

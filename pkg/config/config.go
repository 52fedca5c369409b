package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort             string
	Environment            string
	FirebaseProject        string
	ServiceAccountJSON     string
	ServiceAccountPath     string
	StorageBucket          string
	StorageBackend         string
	RequestTimeout         time.Duration
	HeartbeatInterval      time.Duration
	OnlineWindow           time.Duration
	TypingIdle             time.Duration
	MaxUploadBytes         int64
	SearchLimit            int
	AMQPURL                string
	AMQPExchange           string
	OTLPEndpoint           string
	ServiceName            string
	SendRatePerMinute      int64
	TypingRatePerMinute    int64
	ConversationRatePerMin int64
}

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		FirebaseProject:        getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON:     getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath:     getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:          getEnv("STORAGE_BUCKET", "chat-attachments"),
		StorageBackend:         getEnv("STORAGE_BACKEND", BackendFirestore),
		RequestTimeout:         getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		HeartbeatInterval:      getEnvAsDuration("HEARTBEAT_INTERVAL", 10*time.Second),
		OnlineWindow:           getEnvAsDuration("ONLINE_WINDOW", 2*time.Minute),
		TypingIdle:             getEnvAsDuration("TYPING_IDLE", 2*time.Second),
		MaxUploadBytes:         getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20), // 10 MB
		SearchLimit:            int(getEnvAsInt64("SEARCH_LIMIT", 5)),
		AMQPURL:                getEnv("AMQP_URL", ""),
		AMQPExchange:           getEnv("AMQP_EXCHANGE", "chat.events"),
		OTLPEndpoint:           getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:            getEnv("SERVICE_NAME", "directchat"),
		SendRatePerMinute:      getEnvAsInt64("SEND_RATE_PER_MINUTE", 60),
		TypingRatePerMinute:    getEnvAsInt64("TYPING_RATE_PER_MINUTE", 600),
		ConversationRatePerMin: getEnvAsInt64("CONVERSATION_RATE_PER_MINUTE", 20),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

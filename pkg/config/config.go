package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	Environment      string
	DatabasePath     string
	JWTSecret        string
	CORSOrigins      string
	RedisAddr        string
	RedisChannel     string
	VAPIDPublicKey   string
	VAPIDPrivateKey  string
	AssistantMinWait time.Duration
	AssistantMaxWait time.Duration
	WelcomeWait      time.Duration
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/whisper.db"),
		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisChannel:     getEnv("REDIS_CHANNEL", "whisper-feed"),
		VAPIDPublicKey:   getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:  getEnv("VAPID_PRIVATE_KEY", ""),
		AssistantMinWait: parseWait(getEnv("ASSISTANT_MIN_WAIT", "1000"), time.Second),
		AssistantMaxWait: parseWait(getEnv("ASSISTANT_MAX_WAIT", "1500"), 1500*time.Millisecond),
		WelcomeWait:      parseWait(getEnv("WELCOME_WAIT", "500"), 500*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// parseWait accepts either a Go duration string or a plain millisecond count.
func parseWait(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

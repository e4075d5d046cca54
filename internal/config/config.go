package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	ListenAddr string

	DatabaseURL string

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	BcryptCost int

	KafkaBrokers []string
	EventsTopic  string

	LogLevel string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ListenAddr: getenv("AUTH_ADDR", ":8080"),

		DatabaseURL: must(os.Getenv("DATABASE_URL"), "DATABASE_URL"),

		AccessSecret:  []byte(must(os.Getenv("ACCESS_TOKEN_SECRET"), "ACCESS_TOKEN_SECRET")),
		RefreshSecret: []byte(must(os.Getenv("REFRESH_TOKEN_SECRET"), "REFRESH_TOKEN_SECRET")),
		AccessTTL:     durationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:    durationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		BcryptCost: intDefault("BCRYPT_COST", bcrypt.DefaultCost),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:  getenv("USER_EVENTS_TOPIC", "user_events"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func must(v, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration in %s: %v, using default %s", key, err, def)
		return def
	}
	return d
}

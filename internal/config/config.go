package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Scorekeeping API
	APIBaseURL string
	APIToken   string

	// Game
	GameID string

	// Polling
	PollInterval time.Duration

	// Durable mutation queue
	QueueDBPath string

	// Spectator mirror fanout
	FanoutAddr string

	// Feed
	LabelsPath string
	FeedSize   int

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL: envStr("SCORESYNC_API_URL", "https://api.courtside.app"),
		APIToken:   envStr("SCORESYNC_API_TOKEN", ""),

		GameID: envStr("SCORESYNC_GAME_ID", ""),

		PollInterval: time.Duration(envInt("SCORESYNC_POLL_INTERVAL_SEC", 3)) * time.Second,

		QueueDBPath: envStr("SCORESYNC_QUEUE_DB", "scoresync_queue.db"),

		FanoutAddr: envStr("SCORESYNC_FANOUT_ADDR", ":8787"),

		LabelsPath: envStr("SCORESYNC_LABELS_PATH", "internal/config/feed_labels.yaml"),
		FeedSize:   envInt("SCORESYNC_FEED_SIZE", 5),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the service configuration, read once from the environment.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string
	Interview     InterviewConfig
}

// InterviewConfig holds every tunable threshold of the coverage/completion
// engine. The idle warnings and the idle completion trigger both read from
// this struct so the two can never drift apart.
type InterviewConfig struct {
	// DebounceQuiet is the quiet period before a coverage evaluation fires.
	DebounceQuiet time.Duration

	// IdleCompleteAfter is how long a session may sit without transcript
	// activity before the completion policy auto-completes it.
	IdleCompleteAfter time.Duration

	// IdleMinUserTurns is the floor of user turns required before idle
	// completion may fire. Prevents near-empty sessions from auto-completing.
	IdleMinUserTurns int

	// MaxMessages is the hard ceiling on total transcript entries.
	MaxMessages int

	// CheckpointEvery saves a checkpoint on every Nth transcript event.
	CheckpointEvery int
}

func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "snapintake"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		Interview:     DefaultInterviewConfig(),
	}
}

func DefaultInterviewConfig() InterviewConfig {
	return InterviewConfig{
		DebounceQuiet:     time.Duration(getEnvInt("COVERAGE_DEBOUNCE_MS", 2000)) * time.Millisecond,
		IdleCompleteAfter: time.Duration(getEnvInt("IDLE_COMPLETE_MINUTES", 5)) * time.Minute,
		IdleMinUserTurns:  getEnvInt("IDLE_MIN_USER_TURNS", 10),
		MaxMessages:       getEnvInt("MAX_MESSAGES", 50),
		CheckpointEvery:   getEnvInt("CHECKPOINT_EVERY", 4),
	}
}

// IdleWarnAfter is when the first "still there?" warning appears.
func (c InterviewConfig) IdleWarnAfter() time.Duration {
	return c.IdleCompleteAfter - 2*time.Minute
}

// IdleUrgentAfter is when the "auto-complete imminent" warning appears.
func (c InterviewConfig) IdleUrgentAfter() time.Duration {
	return c.IdleCompleteAfter - time.Minute
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

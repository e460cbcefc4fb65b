package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server Config
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Capture Config
	FFmpegPath      string
	HLSDir          string
	FrameRate       int
	DefaultSourceID string

	// Start wait tuning. WriteTimeout must stay above StartTimeout because
	// the start request blocks until the first segment shows up.
	StartTimeout  time.Duration
	PollInterval  time.Duration
	StopTimeout   time.Duration
	StderrTailLen int
}

func New() *Config {
	return &Config{
		// Server
		Port:         getEnvAsInt("PROJECTOR_PORT", 8000),
		ReadTimeout:  getEnvAsDuration("PROJECTOR_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("PROJECTOR_WRITE_TIMEOUT", 30*time.Second),

		// Capture
		FFmpegPath:      getEnv("PROJECTOR_FFMPEG", "ffmpeg"),
		HLSDir:          getEnv("PROJECTOR_HLS_DIR", "/tmp/projector-stream"),
		FrameRate:       getEnvAsInt("PROJECTOR_FRAMERATE", 30),
		DefaultSourceID: getEnv("PROJECTOR_DEFAULT_SOURCE", "3"),

		// Start wait
		StartTimeout:  getEnvAsDuration("PROJECTOR_START_TIMEOUT", 10*time.Second),
		PollInterval:  getEnvAsDuration("PROJECTOR_POLL_INTERVAL", 250*time.Millisecond),
		StopTimeout:   getEnvAsDuration("PROJECTOR_STOP_TIMEOUT", 2*time.Second),
		StderrTailLen: getEnvAsInt("PROJECTOR_STDERR_TAIL", 500),
	}
}

// Addr returns the listen address for the control server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mmynk/kopa/pkg/logging"
)

// RemindersOff disables the reminder scheduler when used as REMINDER_CRON.
const RemindersOff = "off"

type Config struct {
	// HTTP server
	Port            string
	ShutdownTimeout time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Identity provider tokens
	JWTSecret string
	JWTIssuer string

	// AMQP; events go to the log when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string

	// Reminders
	ReminderCron string
	ReminderLead time.Duration
}

// RemindersEnabled reports whether the reminder sweep should be scheduled.
func (c *Config) RemindersEnabled() bool {
	return c.ReminderCron != "" && c.ReminderCron != RemindersOff
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	// .env is a local development convenience; its absence is not an error.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DBPath: getEnv("DB_PATH", "./data/kopa.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kopa.events"),

		ReminderCron: getEnv("REMINDER_CRON", "0 8 * * *"),
		ReminderLead: getEnvDuration("REMINDER_LEAD", 48*time.Hour),
	}
}

// Validate returns every problem found, joined into one error.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT secret must be at least 32 bytes")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RemindersEnabled() {
		if _, err := cron.ParseStandard(c.ReminderCron); err != nil {
			problems = append(problems, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderCron, err))
		}
	}
	if c.ReminderLead < 0 {
		problems = append(problems, fmt.Sprintf("invalid reminder lead %v: must not be negative", c.ReminderLead))
	}

	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

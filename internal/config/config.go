package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              int
	DatabaseURL       string
	NatsURL           string
	SpreadsheetID     string
	SheetName         string
	SheetsToken       string
	IncludeTranscript bool
	DataDir           string
	ChunkMaxTokens    int
	LogLevel          string
	SlackBotToken     string
	SlackAlertChannel string
}

func Load() Config {
	return Config{
		Port:              envInt("PORT", 8600),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		NatsURL:           envStr("NATS_URL", ""),
		SpreadsheetID:     envStr("SHEETS_SPREADSHEET_ID", ""),
		SheetName:         envStr("SHEETS_SHEET_NAME", "Sheet1"),
		SheetsToken:       envStr("SHEETS_API_TOKEN", ""),
		IncludeTranscript: envBool("LOG_RAW_TRANSCRIPT", false),
		DataDir:           envStr("DATA_DIR", "data"),
		ChunkMaxTokens:    envInt("RULES_CHUNK_MAX_TOKENS", 800),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackAlertChannel: envStr("SLACK_ALERT_CHANNEL", ""),
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

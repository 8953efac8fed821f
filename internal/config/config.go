package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultDenylistFile = "List of IDs not to be exported.txt"

type Config struct {
	DBPath    string
	OutputDir string

	SnapshotEncoding string
	CommitEvery      int
	DenylistFile     string
	ExportFormat     string

	LogLevel  string
	LogPretty bool

	MetricsTextfile string

	RequestsDir string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailRateLimitRPS int

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ListenerProvider     string
	ListenerMailbox      string
	ListenerIntervalSec  int
	ListenerFetchMax     int
	ListenerProcessBatch int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "iams.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		SnapshotEncoding: getEnv("SNAPSHOT_ENCODING", "utf-16le"),
		CommitEvery:      getEnvInt("COMMIT_EVERY", 1000),
		DenylistFile:     getEnv("DENYLIST_FILE", DefaultDenylistFile),
		ExportFormat:     strings.ToLower(getEnv("EXPORT_FORMAT", "csv")),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogPretty: getEnvBool("LOG_PRETTY", true),

		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),

		RequestsDir: getEnv("REQUESTS_DIR", filepath.Join(cwd, "data", "requests")),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailRateLimitRPS: getEnvInt("GMAIL_RATE_LIMIT_RPS", 5),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ListenerProvider:     strings.ToLower(getEnv("REQUEST_LISTENER_PROVIDER", "imap")),
		ListenerMailbox:      getEnv("REQUEST_LISTENER_MAILBOX", "INBOX"),
		ListenerIntervalSec:  getEnvInt("REQUEST_LISTENER_INTERVAL_SEC", 60),
		ListenerFetchMax:     getEnvInt("REQUEST_LISTENER_FETCH_MAX", 20),
		ListenerProcessBatch: getEnvInt("REQUEST_LISTENER_PROCESS_BATCH", 20),
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.CommitEvery <= 0 {
		return fmt.Errorf("COMMIT_EVERY must be positive, got %d", c.CommitEvery)
	}
	switch c.ExportFormat {
	case "csv", "xlsx", "both":
	default:
		return fmt.Errorf("EXPORT_FORMAT must be csv, xlsx or both, got %q", c.ExportFormat)
	}
	return nil
}

func (c Config) DenylistPath(dbPath string) string {
	if filepath.IsAbs(c.DenylistFile) {
		return c.DenylistFile
	}
	return filepath.Join(filepath.Dir(dbPath), c.DenylistFile)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required value: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

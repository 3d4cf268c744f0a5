package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	ServerPort      int
	LogLevel        string
	LogFormat       string
	CORSAllowOrigin string

	ERPAPIBaseURL          string
	ERPAPIToken            string
	ERPRateLimitRPS        int
	ERPTimeoutMs           int
	IncrementalLookbackHrs int
	IncrementalLookbackDay int

	MatchOKThreshold     float64
	MatchReviewThreshold float64
	MatchGapThreshold    float64

	SessionTTLMin   int
	SessionSweepSec int
	UploadTTLMin    int

	SendDelayMs        int
	SendLockTimeoutSec int
	SendUnlockPhrase   string
	QuoteFileLabel     string

	MailProvider    string
	MailSimulate    bool
	MailFromAddress string
	MailFromName    string
	SendGridAPIKey  string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	IntakeProvider     string
	IntakeLabel        string
	IntakeIntervalSec  int
	IntakeFetchMax     int
	IntakeProcessBatch int
	IntakeAutoReport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		ServerPort:      getEnvInt("SERVER_PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),

		ERPAPIBaseURL:          getEnv("ERP_API_BASE_URL", "https://erp.example.com/api/v1"),
		ERPAPIToken:            getEnv("ERP_API_TOKEN", ""),
		ERPRateLimitRPS:        getEnvInt("ERP_RATE_LIMIT_RPS", 5),
		ERPTimeoutMs:           getEnvInt("ERP_TIMEOUT_MS", 30000),
		IncrementalLookbackHrs: getEnvInt("ERP_INCREMENTAL_HOURS", 24),
		IncrementalLookbackDay: getEnvInt("ERP_INCREMENTAL_DAYS", 2),

		MatchOKThreshold:     getEnvFloat("MATCH_OK_THRESHOLD", 0.90),
		MatchReviewThreshold: getEnvFloat("MATCH_REVIEW_THRESHOLD", 0.72),
		MatchGapThreshold:    getEnvFloat("MATCH_GAP_THRESHOLD", 0.08),

		SessionTTLMin:   getEnvInt("SESSION_TTL_MIN", 120),
		SessionSweepSec: getEnvInt("SESSION_SWEEP_SEC", 60),
		UploadTTLMin:    getEnvInt("UPLOAD_TTL_MIN", 120),

		SendDelayMs:        getEnvInt("SEND_DELAY_MS", 2000),
		SendLockTimeoutSec: getEnvInt("SEND_LOCK_TIMEOUT_SEC", 300),
		SendUnlockPhrase:   getEnv("SEND_UNLOCK_PHRASE", ""),
		QuoteFileLabel:     getEnv("QUOTE_FILE_LABEL", "quotation"),

		MailProvider:    getEnv("MAIL_PROVIDER", "gmail"),
		MailSimulate:    getEnvBool("MAIL_SIMULATE", false),
		MailFromAddress: getEnv("MAIL_FROM_ADDRESS", ""),
		MailFromName:    getEnv("MAIL_FROM_NAME", "Chandlery Procurement"),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		IntakeProvider:     getEnv("INTAKE_PROVIDER", "gmail"),
		IntakeLabel:        getEnv("INTAKE_LABEL", "INBOX"),
		IntakeIntervalSec:  getEnvInt("INTAKE_INTERVAL_SEC", 30),
		IntakeFetchMax:     getEnvInt("INTAKE_FETCH_MAX", 20),
		IntakeProcessBatch: getEnvInt("INTAKE_PROCESS_BATCH", 20),
		IntakeAutoReport:   getEnvBool("INTAKE_AUTO_REPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
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

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
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

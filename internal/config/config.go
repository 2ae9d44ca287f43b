// Package config loads server configuration from command-line flags,
// environment variables, an optional .env file and defaults, in that order
// of precedence.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
	Verify   VerifyConfig
	Audit    AuditConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // Base directory for the SQLite file, auth key and audit journal
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DatabaseConfig selects and locates the ledger store.
type DatabaseConfig struct {
	Driver string // sqlite or postgres
	Path   string // SQLite file (default: {data}/ledger.db)
	DSN    string // Postgres connection string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// AuthConfig holds operator authentication configuration.
type AuthConfig struct {
	KeyPath       string        // Hex-encoded PASETO key file (default: {data}/auth.key)
	TokenDuration time.Duration // Operator token lifetime
	Operators     string        // name:role:argon2-hash entries separated by ';'
	// Set from KeyPath by auth.LoadOrGenerateKey during startup.
	TokenKey []byte
}

// LedgerConfig holds points-economy defaults.
type LedgerConfig struct {
	ReferralBonus int64    // Seeded into settings on first start
	KeyCodeLength int      // Random characters per generated key code
	Owners        []string // Chat user ids that are always admins
}

// VerifyConfig configures the Telegram channel-membership checker.
type VerifyConfig struct {
	BotToken         string
	APIBaseURL       string
	RequiredChannels []string // Seeded into settings on first start
	Timeout          time.Duration
	RPS              float64 // Outbound getChatMember calls per second per channel
	Burst            int
}

// AuditConfig configures the audit pipeline.
type AuditConfig struct {
	JournalPath string // Badger directory (default: {data}/audit)
	QueueSize   int
	Journal     bool // Write events to the Badger journal as well as the log
}

// LoadConfig loads configuration from the process's command line.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pointsbot", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local data")

	dbDriver := fs.String("db-driver", "", "Ledger store driver (sqlite, postgres)")
	dbPath := fs.String("db-path", "", "SQLite database file")
	dbDSN := fs.String("db-dsn", "", "Postgres connection string")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins")

	authKeyPath := fs.String("auth-key-path", "", "Path to the token key file")
	tokenDuration := fs.String("token-duration", "", "Operator token lifetime (default: 24h)")

	referralBonus := fs.String("referral-bonus", "", "Default referral bonus (default: 1)")
	keyCodeLength := fs.String("key-code-length", "", "Random characters per key code (default: 8)")
	owners := fs.String("owners", "", "Comma-separated owner chat ids")

	botToken := fs.String("bot-token", "", "Telegram bot token for membership checks")
	requiredChannels := fs.String("required-channels", "", "Comma-separated default required channels")
	verifyTimeout := fs.String("verify-timeout", "", "Membership check timeout (default: 5s)")

	journalPath := fs.String("audit-journal-path", "", "Audit journal directory")
	auditQueue := fs.String("audit-queue-size", "", "Audit queue capacity (default: 1024)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Driver: getConfigValue(*dbDriver, "DB_DRIVER", DriverSQLite),
			Path:   getConfigValue(*dbPath, "DB_PATH", ""),
			DSN:    getConfigValue(*dbDSN, "DB_DSN", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "SERVER_ALLOWED_ORIGINS", "")),
		},
		Auth: AuthConfig{
			KeyPath:   getConfigValue(*authKeyPath, "AUTH_KEY_PATH", ""),
			Operators: getConfigValue("", "AUTH_OPERATORS", ""),
		},
		Ledger: LedgerConfig{
			KeyCodeLength: getIntConfigValue(*keyCodeLength, "LEDGER_KEY_CODE_LENGTH", 8),
			Owners:        splitList(getConfigValue(*owners, "LEDGER_OWNERS", "")),
		},
		Verify: VerifyConfig{
			BotToken:         getConfigValue(*botToken, "TELEGRAM_BOT_TOKEN", ""),
			APIBaseURL:       getConfigValue("", "TELEGRAM_API_URL", "https://api.telegram.org"),
			RequiredChannels: splitList(getConfigValue(*requiredChannels, "VERIFY_REQUIRED_CHANNELS", "")),
			Burst:            getIntConfigValue("", "VERIFY_BURST", 5),
		},
		Audit: AuditConfig{
			JournalPath: getConfigValue(*journalPath, "AUDIT_JOURNAL_PATH", ""),
			QueueSize:   getIntConfigValue(*auditQueue, "AUDIT_QUEUE_SIZE", 1024),
			Journal:     getBoolConfigValue("", "AUDIT_JOURNAL", true),
		},
	}

	bonusStr := getConfigValue(*referralBonus, "LEDGER_REFERRAL_BONUS", "1")
	bonus, err := strconv.ParseInt(bonusStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid referral bonus %q: %w", bonusStr, err)
	}
	cfg.Ledger.ReferralBonus = bonus

	rpsStr := getConfigValue("", "VERIFY_RPS", "20")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid verify rps %q: %w", rpsStr, err)
	}
	cfg.Verify.RPS = rps

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
		name     string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", "write timeout"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout"},
		{&cfg.Auth.TokenDuration, *tokenDuration, "AUTH_TOKEN_DURATION", "24h", "token duration"},
		{&cfg.Verify.Timeout, *verifyTimeout, "VERIFY_TIMEOUT", "5s", "verify timeout"},
	}
	for _, d := range durations {
		s := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, s, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
//
//nolint:gocyclo // One check per setting.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}
	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("sqlite database path cannot be empty after expansion")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", c.Database.Driver)
	}

	if c.Ledger.ReferralBonus < 0 {
		return errors.New("referral bonus must not be negative")
	}
	if c.Ledger.KeyCodeLength < 4 || c.Ledger.KeyCodeLength > 32 {
		return fmt.Errorf("key code length must be between 4 and 32, got %d", c.Ledger.KeyCodeLength)
	}

	if c.Verify.Timeout <= 0 {
		return errors.New("verify timeout must be positive")
	}
	if c.Verify.RPS <= 0 || c.Verify.Burst < 1 {
		return errors.New("verify rate limit needs a positive rps and a burst of at least 1")
	}

	if c.Audit.QueueSize < 1 {
		return errors.New("audit queue size must be at least 1")
	}

	if c.Auth.TokenDuration <= 0 {
		return errors.New("token duration must be positive")
	}

	return nil
}

// IsOwner reports whether userID is a configured owner.
func (c *Config) IsOwner(userID string) bool {
	return slices.Contains(c.Ledger.Owners, userID)
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data directory and the paths derived from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, "PointsBot", "data")); err != nil {
		return err
	}
	if c.Database.Driver == DriverSQLite {
		if c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(c.App.DataPath, "ledger.db")); err != nil {
			return err
		}
	}
	if c.Auth.KeyPath, err = expandPath(c.Auth.KeyPath, filepath.Join(c.App.DataPath, "auth.key")); err != nil {
		return err
	}
	if c.Audit.JournalPath, err = expandPath(c.Audit.JournalPath, filepath.Join(c.App.DataPath, "audit")); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}

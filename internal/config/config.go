// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it.
package config

import (
    "errors"
    "fmt"
    "log/slog"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"

    "github.com/tinoosan/bizbooks/internal/ledger"
)

// Config holds the application configuration.
type Config struct {
    HTTPAddr        string
    DatabaseURL     string
    DefaultCurrency string
    DevSeed         bool

    LogLevel  slog.Level
    LogFormat string

    ReadTimeout     time.Duration
    WriteTimeout    time.Duration
    ShutdownTimeout time.Duration

    FBR FBR
}

// FBR configures digital-invoicing submission. It is disabled when URL is empty.
type FBR struct {
    URL        string
    Token      string
    Timeout    time.Duration
    ScenarioID string
    Seller     ledger.Org
}

// Enabled reports whether submission is configured.
func (f FBR) Enabled() bool { return f.URL != "" }

// Load reads .env (if any) and the environment, then validates.
func Load() (*Config, error) {
    _ = godotenv.Load()
    return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Tests pass a map lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
    get := func(k, def string) string {
        if v := strings.TrimSpace(getenv(k)); v != "" {
            return v
        }
        return def
    }
    var problems []string
    dur := func(k string, def time.Duration) time.Duration {
        v := get(k, "")
        if v == "" {
            return def
        }
        d, err := time.ParseDuration(v)
        if err != nil || d <= 0 {
            problems = append(problems, k+" must be a positive duration")
            return def
        }
        return d
    }
    seed, err := parseBool(get("DEV_SEED", "false"))
    if err != nil {
        problems = append(problems, "DEV_SEED must be a boolean")
    }

    cfg := &Config{
        HTTPAddr:        get("HTTP_ADDR", ":8080"),
        DatabaseURL:     get("DATABASE_URL", ""),
        DefaultCurrency: strings.ToUpper(get("DEFAULT_CURRENCY", ledger.DefaultCurrency)),
        DevSeed:         seed,
        LogLevel:        ParseLogLevel(get("LOG_LEVEL", "info")),
        LogFormat:       strings.ToLower(get("LOG_FORMAT", "json")),
        ReadTimeout:     dur("HTTP_READ_TIMEOUT", 5*time.Second),
        WriteTimeout:    dur("HTTP_WRITE_TIMEOUT", 10*time.Second),
        ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", 10*time.Second),
        FBR: FBR{
            URL:        get("FBR_URL", ""),
            Token:      get("FBR_TOKEN", ""),
            Timeout:    dur("FBR_TIMEOUT", 15*time.Second),
            ScenarioID: get("FBR_SCENARIO_ID", ""),
            Seller: ledger.Org{
                Name:     get("FBR_SELLER_NAME", ""),
                NTN:      get("FBR_SELLER_NTN", ""),
                Province: get("FBR_SELLER_PROVINCE", ""),
                Address:  get("FBR_SELLER_ADDRESS", ""),
            },
        },
    }
    if len(problems) > 0 {
        return nil, errors.New("invalid configuration: " + strings.Join(problems, "; "))
    }
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
    if !ledger.SupportedCurrency(c.DefaultCurrency) {
        return fmt.Errorf("DEFAULT_CURRENCY %q is not supported", c.DefaultCurrency)
    }
    if c.LogFormat != "json" && c.LogFormat != "text" {
        return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
    }
    if c.FBR.Enabled() {
        var missing []string
        if c.FBR.Token == "" {
            missing = append(missing, "FBR_TOKEN")
        }
        if c.FBR.Seller.NTN == "" {
            missing = append(missing, "FBR_SELLER_NTN")
        }
        if c.FBR.Seller.Name == "" {
            missing = append(missing, "FBR_SELLER_NAME")
        }
        if len(missing) > 0 {
            return errors.New("FBR_URL is set but missing: " + strings.Join(missing, ", "))
        }
    }
    return nil
}

// ParseLogLevel maps env values to a slog level; unknown values mean info.
func ParseLogLevel(s string) slog.Level {
    switch strings.ToLower(s) {
    case "debug":
        return slog.LevelDebug
    case "warn", "warning":
        return slog.LevelWarn
    case "error", "err":
        return slog.LevelError
    default:
        return slog.LevelInfo
    }
}

func parseBool(s string) (bool, error) {
    switch strings.ToLower(s) {
    case "yes", "y", "on":
        return true, nil
    case "no", "n", "off":
        return false, nil
    }
    return strconv.ParseBool(s)
}

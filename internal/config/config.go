package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultBrokerEndpoint  = "https://www.homebroker.com.ar"
	defaultBCRABaseURL     = "https://api.bcra.gob.ar"
	defaultPollInterval    = 300 * time.Second
	defaultErrorInterval   = 60 * time.Second
	defaultHTTPTimeout     = 30 * time.Second
	defaultSubscribeWindow = 10 * time.Second
	defaultRefreshHour     = 20
	defaultActiveStart     = 0
	defaultActiveEnd       = 24
	defaultQuotesTable     = "intraday_quotes"
	defaultRatesTable      = "bcra_rates"
	defaultUploadMode      = UploadModeUpsert
	defaultUpsertKey       = "symbol"
	defaultRatesFrom       = "2003-01-01"
)

// Upload modes supported by the store uploader.
const (
	UploadModeInsert = "insert"
	UploadModeUpsert = "upsert"
)

// Config keeps the runtime configuration for the poller, the subscriber
// and the derived-metrics job.
type Config struct {
	Broker BrokerConfig
	Store  StoreConfig
	BCRA   BCRAConfig
	Poll   PollConfig

	// HTTPTimeout bounds every outbound HTTP call.
	HTTPTimeout time.Duration
}

// BrokerConfig holds the broker session credentials and endpoint.
type BrokerConfig struct {
	ID              int
	DNI             string
	User            string
	Password        string
	Endpoint        string
	SubscribeWindow time.Duration
}

// StoreConfig holds the remote table-store connection and upload mode.
type StoreConfig struct {
	URL         string
	APIKey      string
	QuotesTable string
	RatesTable  string
	UploadMode  string
	UpsertKey   string
}

// BCRAConfig holds the public macro-statistics API settings. The public
// API needs no token; the field exists for gated deployments.
type BCRAConfig struct {
	BaseURL string
	Token   string
}

// PollConfig holds the loop cadence and gating settings.
type PollConfig struct {
	Interval        time.Duration
	ErrorInterval   time.Duration
	RefreshHour     int
	ActiveStartHour int
	ActiveEndHour   int
	RatesFrom       time.Time
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	brokerID, err := requireInt("BROKER_ID")
	if err != nil {
		return nil, err
	}

	dni, err := requireString("DNI")
	if err != nil {
		return nil, err
	}
	user, err := requireString("BROKER_USER")
	if err != nil {
		return nil, err
	}
	password, err := requireString("BROKER_PASSWORD")
	if err != nil {
		return nil, err
	}

	storeURL, err := requireString("SUPABASE_URL")
	if err != nil {
		return nil, err
	}
	storeKey, err := requireString("SUPABASE_API_KEY")
	if err != nil {
		return nil, err
	}

	interval, err := getDuration("POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}
	errorInterval, err := getDuration("ERROR_INTERVAL", defaultErrorInterval)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := getDuration("HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	subscribeWindow, err := getDuration("SUBSCRIBE_WINDOW", defaultSubscribeWindow)
	if err != nil {
		return nil, err
	}

	refreshHour, err := getInt("RATES_REFRESH_HOUR", defaultRefreshHour)
	if err != nil {
		return nil, err
	}
	activeStart, err := getInt("ACTIVE_START_HOUR", defaultActiveStart)
	if err != nil {
		return nil, err
	}
	activeEnd, err := getInt("ACTIVE_END_HOUR", defaultActiveEnd)
	if err != nil {
		return nil, err
	}

	ratesFrom, err := getDate("RATES_FROM", defaultRatesFrom)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Broker: BrokerConfig{
			ID:              brokerID,
			DNI:             dni,
			User:            user,
			Password:        password,
			Endpoint:        getString("BROKER_ENDPOINT", defaultBrokerEndpoint),
			SubscribeWindow: subscribeWindow,
		},
		Store: StoreConfig{
			URL:         storeURL,
			APIKey:      storeKey,
			QuotesTable: getString("QUOTES_TABLE", defaultQuotesTable),
			RatesTable:  getString("RATES_TABLE", defaultRatesTable),
			UploadMode:  getString("UPLOAD_MODE", defaultUploadMode),
			UpsertKey:   getString("UPSERT_KEY", defaultUpsertKey),
		},
		BCRA: BCRAConfig{
			BaseURL: getString("BCRA_BASE_URL", defaultBCRABaseURL),
			Token:   os.Getenv("BCRA_TOKEN"),
		},
		Poll: PollConfig{
			Interval:        interval,
			ErrorInterval:   errorInterval,
			RefreshHour:     refreshHour,
			ActiveStartHour: activeStart,
			ActiveEndHour:   activeEnd,
			RatesFrom:       ratesFrom,
		},
		HTTPTimeout: httpTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.UploadMode {
	case UploadModeInsert, UploadModeUpsert:
	default:
		return fmt.Errorf("UPLOAD_MODE must be %q or %q, got %q", UploadModeInsert, UploadModeUpsert, c.Store.UploadMode)
	}
	if c.Store.UpsertKey == "" {
		return errors.New("UPSERT_KEY cannot be empty")
	}
	if c.Poll.Interval <= 0 || c.Poll.ErrorInterval <= 0 {
		return errors.New("POLL_INTERVAL and ERROR_INTERVAL must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.Poll.RefreshHour < 0 || c.Poll.RefreshHour > 23 {
		return fmt.Errorf("RATES_REFRESH_HOUR must be between 0 and 23, got %d", c.Poll.RefreshHour)
	}
	if c.Poll.ActiveStartHour < 0 || c.Poll.ActiveStartHour > 23 {
		return fmt.Errorf("ACTIVE_START_HOUR must be between 0 and 23, got %d", c.Poll.ActiveStartHour)
	}
	if c.Poll.ActiveEndHour < 1 || c.Poll.ActiveEndHour > 24 {
		return fmt.Errorf("ACTIVE_END_HOUR must be between 1 and 24, got %d", c.Poll.ActiveEndHour)
	}
	if c.Poll.ActiveStartHour >= c.Poll.ActiveEndHour {
		return fmt.Errorf("active window is empty: start %d >= end %d", c.Poll.ActiveStartHour, c.Poll.ActiveEndHour)
	}
	return nil
}

func requireString(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func requireInt(key string) (int, error) {
	value, err := requireString(key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to duration: %w", key, value, err)
	}
	return parsed, nil
}

func getDate(key, fallback string) (time.Time, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		value = fallback
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("convert %s value %q to date: %w", key, value, err)
	}
	return parsed, nil
}

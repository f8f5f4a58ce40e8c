package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	OutputPath    string
	ObjectKey     string
	Rows          int
	Customers     int
	StartDate     time.Time
	EndDate       time.Time
	Seed          int64
	APIBaseURL    string
	APIKey        string
	TriggerReload bool
	HTTPTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		OutputPath:  "data/sales_data_sample_cleaned.csv",
		Rows:        2823,
		Customers:   92,
		StartDate:   time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2005, 5, 31, 0, 0, 0, 0, time.UTC),
		Seed:        time.Now().UTC().UnixNano(),
		APIBaseURL:  "http://localhost:8000",
		HTTPTimeout: 30 * time.Second,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	applyString(lookup, "SALESQUERY_SEED_OUTPUT", &cfg.OutputPath)
	applyString(lookup, "SALESQUERY_SEED_OBJECT_KEY", &cfg.ObjectKey)
	applyString(lookup, "SALESQUERY_SEED_API_URL", &cfg.APIBaseURL)
	applyString(lookup, "SALESQUERY_SEED_API_KEY", &cfg.APIKey)
	if err := applyInt(lookup, "SALESQUERY_SEED_ROWS", &cfg.Rows); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SALESQUERY_SEED_CUSTOMERS", &cfg.Customers); err != nil {
		return Config{}, err
	}
	if err := applyDate(lookup, "SALESQUERY_SEED_START_DATE", &cfg.StartDate); err != nil {
		return Config{}, err
	}
	if err := applyDate(lookup, "SALESQUERY_SEED_END_DATE", &cfg.EndDate); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "SALESQUERY_SEED_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SALESQUERY_SEED_TRIGGER_RELOAD", &cfg.TriggerReload); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SALESQUERY_SEED_HTTP_TIMEOUT", &cfg.HTTPTimeout); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}

func (c Config) Validate() error {
	if c.OutputPath == "" && c.ObjectKey == "" {
		return fmt.Errorf("SALESQUERY_SEED_OUTPUT or SALESQUERY_SEED_OBJECT_KEY is required")
	}
	if c.Rows <= 0 {
		return fmt.Errorf("SALESQUERY_SEED_ROWS must be > 0")
	}
	if c.Customers <= 0 {
		return fmt.Errorf("SALESQUERY_SEED_CUSTOMERS must be > 0")
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("SALESQUERY_SEED_END_DATE must be after SALESQUERY_SEED_START_DATE")
	}
	if c.TriggerReload && strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("SALESQUERY_SEED_API_URL is required when SALESQUERY_SEED_TRIGGER_RELOAD is set")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("SALESQUERY_SEED_HTTP_TIMEOUT must be > 0")
	}
	return nil
}

func applyString(lookup LookupFunc, key string, dst *string) {
	if raw, ok := lookup(key); ok {
		*dst = strings.TrimSpace(raw)
	}
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyDate(lookup LookupFunc, key string, dst *time.Time) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

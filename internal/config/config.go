package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	ObjectStoreLocal = "local"
	ObjectStoreS3    = "s3"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	ObjectStore   ObjectStoreConfig
	Dataset       DatasetConfig
	Pipeline      PipelineConfig
	AI            AIConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CORSAllowedOrigins is a comma separated list; "*" allows any origin.
	CORSAllowedOrigins string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type ObjectStoreConfig struct {
	Backend          string
	LocalDir         string
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type DatasetConfig struct {
	CSVPath        string
	CSVObjectKey   string
	SnapshotName   string
	LoadOnStart    bool
	ReloadInterval time.Duration
}

type PipelineConfig struct {
	MaxParameterColumns int
	MaxDistinctValues   int
	ResultRowLimit      int
	QueryTimeout        time.Duration
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// LoadFromEnv reads an optional .env file from the working directory and then
// resolves the configuration from the process environment. Values already set
// in the environment win over the file.
func LoadFromEnv(serviceName string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SALESQUERY_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SALESQUERY_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SALESQUERY_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SALESQUERY_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SALESQUERY_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SALESQUERY_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SALESQUERY_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "SALESQUERY_HTTP_CORS_ORIGINS", &cfg.HTTP.CORSAllowedOrigins) },
		func() error { return applyString(lookup, "SALESQUERY_DB_DRIVER", &cfg.Database.Driver) },
		func() error { return applyString(lookup, "SALESQUERY_DB_DSN", &cfg.Database.DSN) },
		func() error { return applyInt(lookup, "SALESQUERY_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "SALESQUERY_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "SALESQUERY_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "SALESQUERY_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyBool(lookup, "SALESQUERY_DB_AUTO_MIGRATE", &cfg.Database.AutoMigrate) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_BACKEND", &cfg.ObjectStore.Backend) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_LOCAL_DIR", &cfg.ObjectStore.LocalDir) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "SALESQUERY_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "SALESQUERY_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "SALESQUERY_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "SALESQUERY_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyString(lookup, "SALESQUERY_DATASET_CSV_PATH", &cfg.Dataset.CSVPath) },
		func() error { return applyString(lookup, "SALESQUERY_DATASET_CSV_OBJECT_KEY", &cfg.Dataset.CSVObjectKey) },
		func() error { return applyString(lookup, "SALESQUERY_DATASET_SNAPSHOT_NAME", &cfg.Dataset.SnapshotName) },
		func() error { return applyBool(lookup, "SALESQUERY_DATASET_LOAD_ON_START", &cfg.Dataset.LoadOnStart) },
		func() error {
			return applyDuration(lookup, "SALESQUERY_DATASET_RELOAD_INTERVAL", &cfg.Dataset.ReloadInterval)
		},
		func() error {
			return applyInt(lookup, "SALESQUERY_PIPELINE_MAX_PARAMETER_COLUMNS", &cfg.Pipeline.MaxParameterColumns)
		},
		func() error {
			return applyInt(lookup, "SALESQUERY_PIPELINE_MAX_DISTINCT_VALUES", &cfg.Pipeline.MaxDistinctValues)
		},
		func() error { return applyInt(lookup, "SALESQUERY_PIPELINE_RESULT_ROW_LIMIT", &cfg.Pipeline.ResultRowLimit) },
		func() error {
			return applyDuration(lookup, "SALESQUERY_PIPELINE_QUERY_TIMEOUT", &cfg.Pipeline.QueryTimeout)
		},
		func() error { return applyString(lookup, "SALESQUERY_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "SALESQUERY_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "SALESQUERY_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SALESQUERY_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "SALESQUERY_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "SALESQUERY_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "SALESQUERY_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SALESQUERY_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "SALESQUERY_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "SALESQUERY_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.ObjectStore.Backend = strings.ToLower(cfg.ObjectStore.Backend)
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)

	// Unset (or zero) write timeouts follow the model and query timeouts so a
	// slow answer is not cut off mid-response.
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = cfg.QuestionBudget()
	}

	// GEMINI_API_KEY is the variable the Gemini SDK documents.
	if cfg.AI.APIKey == "" && cfg.AI.Provider == ProviderGemini {
		if err := applyString(lookup, "GEMINI_API_KEY", &cfg.AI.APIKey); err != nil {
			return Config{}, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

const (
	// modelCallsPerQuestion is the longest chain of model calls one question
	// makes: parameter check, SQL, then summary or no-data narration.
	modelCallsPerQuestion = 3
	responseHeadroom      = 15 * time.Second
)

// QuestionBudget is the worst-case time one /query request may take.
func (c Config) QuestionBudget() time.Duration {
	return modelCallsPerQuestion*c.AI.Timeout + c.Pipeline.QueryTimeout + responseHeadroom
}

func validate(cfg Config) error {
	if cfg.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("invalid SALESQUERY_DB_DRIVER: %q", cfg.Database.Driver)
	}
	switch cfg.ObjectStore.Backend {
	case ObjectStoreLocal, ObjectStoreS3:
	default:
		return fmt.Errorf("invalid SALESQUERY_OBJECTSTORE_BACKEND: %q", cfg.ObjectStore.Backend)
	}
	switch cfg.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid SALESQUERY_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	if cfg.Pipeline.MaxParameterColumns < 0 || cfg.Pipeline.MaxDistinctValues < 0 || cfg.Pipeline.ResultRowLimit < 0 {
		return fmt.Errorf("pipeline limits must be >= 0")
	}
	if cfg.Dataset.ReloadInterval < 0 {
		return fmt.Errorf("dataset reload interval must be >= 0")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "salesquery-api"},
		HTTP: HTTPConfig{
			Address:            ":8000",
			ReadTimeout:        5 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: "*",
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             "data/sales_data.db",
			MaxOpenConns:    4,
			MaxIdleConns:    4,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		ObjectStore: ObjectStoreConfig{
			Backend:          ObjectStoreLocal,
			LocalDir:         "data/objects",
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "salesquery",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Dataset: DatasetConfig{
			CSVPath:        "data/sales_data_sample_cleaned.csv",
			SnapshotName:   "orders",
			LoadOnStart:    false,
			ReloadInterval: 0,
		},
		Pipeline: PipelineConfig{
			MaxParameterColumns: 5,
			MaxDistinctValues:   100,
			ResultRowLimit:      200,
			QueryTimeout:        30 * time.Second,
		},
		AI: AIConfig{
			Provider:    ProviderGemini,
			BaseURL:     "https://api.openai.com",
			Model:       "gemini-2.0-flash",
			Temperature: 0.1,
			Timeout:     60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
		cfg.HTTP.CORSAllowedOrigins = ""
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}

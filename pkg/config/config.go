package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSentimentURL is the public fear & greed index endpoint.
const DefaultSentimentURL = "https://api.alternative.me/fng/?limit=0"

// ConfigSource defines an interface for loading configuration from various sources.
type ConfigSource interface {
	Get(key string) (string, bool)
	GetWithDefault(key, defaultValue string) string
}

// EnvConfigSource loads configuration from environment variables.
type EnvConfigSource struct{}

// Get retrieves an environment variable.
func (e *EnvConfigSource) Get(key string) (string, bool) {
	val := os.Getenv(key)
	return val, val != ""
}

// GetWithDefault retrieves an environment variable or returns a default value.
func (e *EnvConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := e.Get(key); ok {
		return val
	}
	return defaultValue
}

// FileConfigSource loads configuration from a JSON or YAML file.
type FileConfigSource struct {
	data map[string]interface{}
}

// NewFileConfigSource creates a new file-based config source.
// Supports both JSON and YAML files based on file extension.
func NewFileConfigSource(filePath string) (*FileConfigSource, error) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseFileConfig(filePath, fileData)
}

func parseFileConfig(filePath string, fileData []byte) (*FileConfigSource, error) {
	data := make(map[string]interface{})

	if strings.HasSuffix(filePath, ".yaml") || strings.HasSuffix(filePath, ".yml") {
		if err := yaml.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	} else if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		return nil, fmt.Errorf("unsupported config file format, use .json, .yaml, or .yml")
	}

	return &FileConfigSource{data: data}, nil
}

// Get retrieves a value from the config file using dot notation (e.g., "azure.storage.connection_string").
func (f *FileConfigSource) Get(key string) (string, bool) {
	keys := strings.Split(key, ".")
	var current interface{} = f.data

	for _, k := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		val, exists := m[k]
		if !exists {
			return "", false
		}
		current = val
	}

	switch v := current.(type) {
	case string:
		return v, true
	case map[string]interface{}, []interface{}, nil:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// GetWithDefault retrieves a value from the config file or returns a default.
func (f *FileConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := f.Get(key); ok {
		return val
	}
	return defaultValue
}

// Config holds application configuration.
type Config struct {
	// Blob Storage configuration
	StorageConnectionString   string
	StorageAccountName        string
	StorageAccountKey         string
	StorageUseManagedIdentity bool

	// Service Bus configuration (blob lifecycle events)
	ServiceBusConnectionString string
	EventsQueue                string

	// Sentiment index endpoint
	SentimentURL string

	// HTTP Server configuration
	HTTPPort               int
	HTTPReadTimeout        int // seconds
	HTTPWriteTimeout       int // seconds
	HTTPIdleTimeout        int // seconds
	RateLimitRPS           float64
	RateLimitBurst         int
	SlowRequestThresholdMs int64

	// Auth configuration
	AuthSecret string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, console

	// Application configuration
	AppName     string
	AppVersion  string
	Environment string // dev, staging, prod

	// Telemetry configuration
	NewRelicLicenseKey string
	SlackWebhookURL    string
	SlackChannel       string

	// Retry / circuit breaker configuration
	RetryMaxAttempts        int
	RetryInitialDelay       int // milliseconds
	RetryMaxDelay           int // milliseconds
	BreakerFailureThreshold int
}

// setting names a value by its environment key and its nested file path.
type setting struct {
	env  string
	path string
}

var (
	keyConnectionString   = setting{"AZURE_STORAGE_CONNECTION_STRING", "azure.storage.connection_string"}
	keyAccountName        = setting{"AZURE_STORAGE_ACCOUNT_NAME", "azure.storage.account_name"}
	keyAccountKey         = setting{"AZURE_STORAGE_ACCOUNT_KEY", "azure.storage.account_key"}
	keyManagedIdentity    = setting{"AZURE_STORAGE_USE_MANAGED_IDENTITY", "azure.storage.use_managed_identity"}
	keyServiceBusConn     = setting{"AZURE_SERVICEBUS_CONNECTION_STRING", "azure.servicebus.connection_string"}
	keyEventsQueue        = setting{"EVENTS_QUEUE", "azure.servicebus.queue"}
	keySentimentURL       = setting{"SENTIMENT_URL", "sentiment.url"}
	keyHTTPPort           = setting{"HTTP_PORT", "http.port"}
	keyHTTPReadTimeout    = setting{"HTTP_READ_TIMEOUT", "http.read_timeout"}
	keyHTTPWriteTimeout   = setting{"HTTP_WRITE_TIMEOUT", "http.write_timeout"}
	keyHTTPIdleTimeout    = setting{"HTTP_IDLE_TIMEOUT", "http.idle_timeout"}
	keyRateLimitRPS       = setting{"RATE_LIMIT_RPS", "http.rate_limit_rps"}
	keyRateLimitBurst     = setting{"RATE_LIMIT_BURST", "http.rate_limit_burst"}
	keySlowRequest        = setting{"SLOW_REQUEST_THRESHOLD_MS", "http.slow_request_threshold_ms"}
	keyAuthSecret         = setting{"AUTH_JWT_SECRET", "auth.jwt_secret"}
	keyLogLevel           = setting{"LOG_LEVEL", "log.level"}
	keyLogFormat          = setting{"LOG_FORMAT", "log.format"}
	keyAppName            = setting{"APP_NAME", "app.name"}
	keyAppVersion         = setting{"APP_VERSION", "app.version"}
	keyEnvironment        = setting{"ENVIRONMENT", "app.environment"}
	keyNewRelicLicense    = setting{"NEW_RELIC_LICENSE_KEY", "newrelic.license_key"}
	keySlackWebhook       = setting{"SLACK_WEBHOOK_URL", "slack.webhook_url"}
	keySlackChannel       = setting{"SLACK_CHANNEL", "slack.channel"}
	keyRetryMaxAttempts   = setting{"RETRY_MAX_ATTEMPTS", "retry.max_attempts"}
	keyRetryInitialDelay  = setting{"RETRY_INITIAL_DELAY", "retry.initial_delay_ms"}
	keyRetryMaxDelay      = setting{"RETRY_MAX_DELAY", "retry.max_delay_ms"}
	keyBreakerFailureTrip = setting{"BREAKER_FAILURE_THRESHOLD", "retry.breaker_failure_threshold"}
)

// LoadConfig loads configuration from the provided source.
// Every setting is looked up by its environment key first, then by its file path.
func LoadConfig(source ConfigSource) (*Config, error) {
	cfg := &Config{}

	getString := func(s setting, defaultValue string) string {
		if val, ok := source.Get(s.env); ok {
			return val
		}
		return source.GetWithDefault(s.path, defaultValue)
	}

	getInt := func(s setting, defaultValue int) (int, error) {
		str := getString(s, "")
		if str == "" {
			return defaultValue, nil
		}
		val, err := strconv.Atoi(str)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q", s.env, str)
		}
		return val, nil
	}

	getBool := func(s setting) (bool, error) {
		str := getString(s, "")
		if str == "" {
			return false, nil
		}
		val, err := strconv.ParseBool(str)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %q", s.env, str)
		}
		return val, nil
	}

	var err error
	ints := []struct {
		dst *int
		key setting
		def int
	}{
		{&cfg.HTTPPort, keyHTTPPort, 8080},
		{&cfg.HTTPReadTimeout, keyHTTPReadTimeout, 30},
		{&cfg.HTTPWriteTimeout, keyHTTPWriteTimeout, 30},
		{&cfg.HTTPIdleTimeout, keyHTTPIdleTimeout, 120},
		{&cfg.RateLimitBurst, keyRateLimitBurst, 0},
		{&cfg.RetryMaxAttempts, keyRetryMaxAttempts, 1},
		{&cfg.RetryInitialDelay, keyRetryInitialDelay, 100},
		{&cfg.RetryMaxDelay, keyRetryMaxDelay, 5000},
		{&cfg.BreakerFailureThreshold, keyBreakerFailureTrip, 0},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	slow, err := getInt(keySlowRequest, 2000)
	if err != nil {
		return nil, err
	}
	cfg.SlowRequestThresholdMs = int64(slow)

	if rps := getString(keyRateLimitRPS, ""); rps != "" {
		cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number for %s: %q", keyRateLimitRPS.env, rps)
		}
	}

	if cfg.StorageUseManagedIdentity, err = getBool(keyManagedIdentity); err != nil {
		return nil, err
	}

	cfg.StorageConnectionString = getString(keyConnectionString, "")
	cfg.StorageAccountName = getString(keyAccountName, "")
	cfg.StorageAccountKey = getString(keyAccountKey, "")

	cfg.ServiceBusConnectionString = getString(keyServiceBusConn, "")
	cfg.EventsQueue = getString(keyEventsQueue, "blob-events")

	cfg.SentimentURL = getString(keySentimentURL, DefaultSentimentURL)
	cfg.AuthSecret = getString(keyAuthSecret, "")

	cfg.LogLevel = getString(keyLogLevel, "info")
	cfg.LogFormat = getString(keyLogFormat, "console")

	cfg.AppName = getString(keyAppName, "blobkit")
	cfg.AppVersion = getString(keyAppVersion, "1.0.0")
	cfg.Environment = getString(keyEnvironment, "dev")

	cfg.NewRelicLicenseKey = getString(keyNewRelicLicense, "")
	cfg.SlackWebhookURL = getString(keySlackWebhook, "")
	cfg.SlackChannel = getString(keySlackChannel, "")

	return cfg, nil
}

// HasStorageCredentials reports whether a real storage backend can be built.
func (c *Config) HasStorageCredentials() bool {
	return c.StorageConnectionString != "" || c.StorageAccountName != ""
}

// Validate checks the settings needed to reach the storage account.
func (c *Config) Validate() error {
	if !c.HasStorageCredentials() {
		return fmt.Errorf("storage connection string not configured: set %s or %s in the config file",
			keyConnectionString.env, keyConnectionString.path)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", keyRetryMaxAttempts.env)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(&EnvConfigSource{})
}

// LoadConfigFromFile loads configuration from a JSON or YAML file.
// Environment variables will override file values if both are set.
func LoadConfigFromFile(filePath string) (*Config, error) {
	fileSource, err := NewFileConfigSource(filePath)
	if err != nil {
		return nil, err
	}

	// Create a composite source that checks env first, then file
	composite := NewCompositeConfigSource(&EnvConfigSource{}, fileSource)

	return LoadConfig(composite)
}

// CompositeConfigSource checks multiple config sources in order.
type CompositeConfigSource struct {
	sources []ConfigSource
}

// NewCompositeConfigSource returns a source that consults sources in order.
func NewCompositeConfigSource(sources ...ConfigSource) *CompositeConfigSource {
	return &CompositeConfigSource{sources: sources}
}

// Get retrieves a value from the first source that has it.
func (c *CompositeConfigSource) Get(key string) (string, bool) {
	for _, source := range c.sources {
		if val, ok := source.Get(key); ok {
			return val, true
		}
	}
	return "", false
}

// GetWithDefault retrieves a value from sources or returns default.
func (c *CompositeConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := c.Get(key); ok {
		return val
	}
	return defaultValue
}

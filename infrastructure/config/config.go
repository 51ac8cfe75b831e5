package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion          string
	DynamoDBTable      string
	GuardianIndexName  string // GSI1 - guardian to subject lookups
	AlertKindIndexName string // GSI2 - alert counts by kind
	EventBusName       string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Push delivery
	PushEndpoint      string
	PushServerKey     string
	NotifyOnZoneEnter bool

	// WebSocket delivery (live dashboard)
	WebSocketEndpoint string
	ConnectionsTable  string

	// Locking
	SubjectLockTTL     time.Duration
	SubjectLockTimeout time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	MetricsNamespace string
	EnableMetrics    bool
	EnableTracing    bool
	EnableCORS       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:      getEnv("SERVER_ADDRESS", ":8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		AWSRegion:          getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:      getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "guard")),
		GuardianIndexName:  getEnv("GUARDIAN_INDEX_NAME", "GuardianIndex"),
		AlertKindIndexName: getEnv("ALERT_KIND_INDEX_NAME", "AlertKindIndex"),
		EventBusName:       getEnv("EVENT_BUS_NAME", "guard-events"),

		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		PushEndpoint:      getEnv("PUSH_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
		PushServerKey:     getEnv("PUSH_SERVER_KEY", ""),
		NotifyOnZoneEnter: getEnvBool("NOTIFY_ON_ZONE_ENTER", false),

		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),
		ConnectionsTable:  getEnv("CONNECTIONS_TABLE", "guard-connections"),

		SubjectLockTTL:     getEnvDuration("SUBJECT_LOCK_TTL", 10*time.Second),
		SubjectLockTimeout: getEnvDuration("SUBJECT_LOCK_TIMEOUT", 5*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "guard-backend"),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Guard"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		EnableCORS:       getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
		if c.PushServerKey == "" {
			return fmt.Errorf("PUSH_SERVER_KEY is required in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

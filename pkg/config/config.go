// Package config provides configuration management for authkit.
//
// Values come from defaults, an optional YAML/JSON config file, and
// environment variables (highest precedence). The environment variable
// names match the ones the deployment already uses, e.g.
// DEFAULT_ADMIN_USERNAME and MONGODB_HOST.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// MongoConfig holds connection parameters for the durable document store.
type MongoConfig struct {
	// ConnectionString, when set, is used verbatim and the individual
	// host/port/credential fields are ignored.
	ConnectionString string `mapstructure:"connection_string"`

	Host       string `mapstructure:"host" validate:"required"`
	Port       string `mapstructure:"port" validate:"required"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	AuthSource string `mapstructure:"auth_source"`
	Database   string `mapstructure:"database" validate:"required"`

	UsersCollection    string `mapstructure:"users_collection" validate:"required"`
	SessionsCollection string `mapstructure:"sessions_collection" validate:"required"`

	// ConnectTimeout bounds the initial connectivity probe.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// URI returns the connection string for the store, building one from the
// individual fields when no explicit string is configured.
func (m MongoConfig) URI() string {
	if m.ConnectionString != "" {
		return m.ConnectionString
	}
	if m.Username != "" && m.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s", m.Username, m.Password, m.Host, m.Port, m.AuthSource)
	}
	return fmt.Sprintf("mongodb://%s:%s/", m.Host, m.Port)
}

// Config holds the full service configuration.
type Config struct {
	// Bootstrap credentials for the default administrator. The password
	// default is a placeholder; operators must override it in production.
	AdminUsername string `mapstructure:"admin_username" validate:"required,min=3"`
	AdminPassword string `mapstructure:"admin_password" validate:"required,min=6"`

	SessionExpireHours int `mapstructure:"session_expire_hours" validate:"min=1"`
	MinPasswordLength  int `mapstructure:"min_password_length" validate:"min=1"`

	// File store paths for the local fallback/mirror backend.
	UsersFile    string `mapstructure:"users_file" validate:"required"`
	SessionsFile string `mapstructure:"sessions_file" validate:"required"`

	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// RequireLoginForAnalysis gates the hosting application's analysis
	// pages. The auth core only carries the value.
	RequireLoginForAnalysis bool `mapstructure:"require_login_for_analysis"`

	Mongo MongoConfig `mapstructure:"mongo"`
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionExpireHours) * time.Hour
}

// envBindings maps config keys to their environment variable names.
var envBindings = map[string]string{
	"admin_username":             "DEFAULT_ADMIN_USERNAME",
	"admin_password":             "DEFAULT_ADMIN_PASSWORD",
	"session_expire_hours":       "SESSION_EXPIRE_HOURS",
	"min_password_length":        "MIN_PASSWORD_LENGTH",
	"users_file":                 "AUTH_USERS_FILE",
	"sessions_file":              "AUTH_SESSIONS_FILE",
	"listen_addr":                "AUTH_LISTEN_ADDR",
	"require_login_for_analysis": "REQUIRE_LOGIN_FOR_ANALYSIS",
	"mongo.connection_string":    "MONGODB_CONNECTION_STRING",
	"mongo.host":                 "MONGODB_HOST",
	"mongo.port":                 "MONGODB_PORT",
	"mongo.username":             "MONGODB_USERNAME",
	"mongo.password":             "MONGODB_PASSWORD",
	"mongo.auth_source":          "MONGODB_AUTH_SOURCE",
	"mongo.database":             "MONGODB_DATABASE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "Trade123456")
	v.SetDefault("session_expire_hours", 24)
	v.SetDefault("min_password_length", 6)
	v.SetDefault("users_file", "data/users.json")
	v.SetDefault("sessions_file", "data/sessions.json")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("require_login_for_analysis", false)

	v.SetDefault("mongo.host", "localhost")
	v.SetDefault("mongo.port", "27017")
	v.SetDefault("mongo.username", "admin")
	v.SetDefault("mongo.password", "Trade123456")
	v.SetDefault("mongo.auth_source", "admin")
	v.SetDefault("mongo.database", "tradingagents")
	v.SetDefault("mongo.users_collection", "auth_users")
	v.SetDefault("mongo.sessions_collection", "auth_sessions")
	v.SetDefault("mongo.connect_timeout", 5*time.Second)
}

// Load builds the configuration from defaults, the optional config file
// at path, and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration, ignoring the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

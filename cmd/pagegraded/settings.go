package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// settings are the daemon's process settings. Each is read from the
// environment variable of the same name upper-cased (PORT, DATABASE_URL,
// ...) or from an optional settings file.
type settings struct {
	Port            string `mapstructure:"port"`
	LogLevel        string `mapstructure:"log_level"`
	DatabaseURL     string `mapstructure:"database_url"`
	APIKey          string `mapstructure:"api_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	ConfigFile      string `mapstructure:"pagegrade_config"`
	ReportCacheSize int    `mapstructure:"report_cache_size"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	StorageBackend   string `mapstructure:"storage_backend"`
	StorageBucket    string `mapstructure:"storage_bucket"`
	StoragePrefix    string `mapstructure:"storage_prefix"`
	StorageRegion    string `mapstructure:"storage_region"`
	StorageEndpoint  string `mapstructure:"storage_endpoint"`
	LocalStoragePath string `mapstructure:"local_storage_path"`
	AWSAccessKey     string `mapstructure:"aws_access_key_id"`
	AWSSecretKey     string `mapstructure:"aws_secret_access_key"`
}

var settingKeys = []string{
	"port", "log_level", "database_url", "api_key", "webhook_secret", "pagegrade_config", "report_cache_size",
	"redis_addr", "redis_password", "redis_db",
	"storage_backend", "storage_bucket", "storage_prefix", "storage_region", "storage_endpoint", "local_storage_path",
	"aws_access_key_id", "aws_secret_access_key",
}

// flagKeys maps command-line flags to the settings they override.
var flagKeys = map[string]string{
	"port":      "port",
	"log-level": "log_level",
}

// loadSettings reads settings from path (when non-empty), the environment
// and flags. Flags set on the command line win over the environment, which
// wins over the file. flags may be nil.
func loadSettings(path string, flags *pflag.FlagSet) (*settings, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("report_cache_size", 100)
	v.SetDefault("redis_db", 0)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about; bind every env var.
	for _, key := range settingKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind --%s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings failed: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings failed: %w", err)
	}
	return &s, nil
}

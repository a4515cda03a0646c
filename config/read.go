package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Alijeyrad/destek_backend/pkg/constants"
)

var GlobalConf *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")

	v.SetDefault("authentication.default_password_length", 12)
	v.SetDefault("authentication.session_ttl_minutes", 60*24*30)
	v.SetDefault("authentication.profile_timeout_seconds", 5)
	v.SetDefault("authentication.profile_cache_ttl_minutes", 60*24)
	v.SetDefault("authentication.recovery.write_timeout_seconds", 5)
	v.SetDefault("authentication.paseto.mode", "local")
	v.SetDefault("authentication.paseto.issuer", "destek-api")
	v.SetDefault("authentication.paseto.audience", "destek-app")
	v.SetDefault("authentication.paseto.access_ttl_minutes", 15)
	v.SetDefault("authentication.paseto.refresh_ttl_days", 30)

	v.SetDefault("authorization.casbin_model_path", "config/casbin_model.conf")
	v.SetDefault("authorization.enable_audit", true)
	v.SetDefault("authorization.health_check_enabled", true)

	v.SetDefault("push.url", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("push.timeout_seconds", 10)

	v.SetDefault("tickets.max_photos", 5)
	v.SetDefault("tickets.inline_photo_max_kb", 300)
	v.SetDefault("tickets.phone_region", "TR")
	v.SetDefault("tickets.upload_max_mb", 10)

	v.SetDefault("feed.head_size", 20)
	v.SetDefault("feed.default_page_size", 20)
	v.SetDefault("feed.max_page_size", 100)

	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.queue_size", 256)
	v.SetDefault("dispatch.task_timeout_seconds", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)
}

func ReadConfig(configPath string) (*Config, error) {
	// A .env next to the config (or in the working directory) is loaded
	// first so its values reach viper through AutomaticEnv. Existing
	// environment variables win.
	for _, p := range []string{filepath.Join(configPath, ".env"), ".env"} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", p, err)
		}
	}

	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. DESTEK_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read the config file (optional in Docker environments)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if os.Getenv(constants.EnvPrefix+"_DATABASE_HOST") == "" {
			return nil, fmt.Errorf("no config file in %q and %s_DATABASE_HOST is unset", configPath, constants.EnvPrefix)
		}
	}

	// Unmarshal only sees env vars for keys viper already knows about.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if config.CasbinDatabase.Host == "" {
		config.CasbinDatabase = config.Database
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

var envKeys = []string{
	"database.host", "database.port", "database.user", "database.password", "database.dbname", "database.sslmode",
	"redis.addr", "redis.password", "redis.db",
	"nats.url",
	"authentication.paseto.local_key_hex", "authentication.paseto.secret_key_hex", "authentication.paseto.public_key_hex",
	"authentication.paseto.issuer", "authentication.paseto.audience",
	"authentication.admin_emails",
	"authentication.recovery.rest_url", "authentication.recovery.rest_token",
	"s3.endpoint", "s3.region", "s3.access_key_id", "s3.secret_access_key", "s3.bucket",
	"email.enabled", "email.from", "email.smtp.host", "email.smtp.port", "email.smtp.username", "email.smtp.password",
	"sms.enabled", "sms.smsir.api_key", "sms.smsir.template_id",
	"push.enabled", "push.access_token",
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}

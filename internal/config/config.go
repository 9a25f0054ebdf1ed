package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the server configuration. Every key can come from the
// environment (upper-cased, e.g. DATABASE_URL) or an optional config.yaml.
type Config struct {
	Port        string `mapstructure:"port" validate:"required,numeric"`
	Environment string `mapstructure:"environment" validate:"required,oneof=dev test prod"`
	DatabaseURL string `mapstructure:"database_url"`
	TablePrefix string `mapstructure:"table_prefix"`
	CORSOrigins string `mapstructure:"cors_origins"`

	// Auth: JWKSURL for asymmetric tokens, JWTSecret for HS256. One is required.
	JWKSURL   string `mapstructure:"jwks_url" validate:"omitempty,url"`
	JWTSecret string `mapstructure:"jwt_secret"`

	StorageBackend    string `mapstructure:"storage_backend" validate:"required,oneof=s3 memory"`
	S3Bucket          string `mapstructure:"s3_bucket" validate:"required_if=StorageBackend s3"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3KeyPrefix       string `mapstructure:"s3_key_prefix"`
	S3MaxRetries      int    `mapstructure:"s3_max_retries" validate:"gte=0"`

	LeaseBackend string `mapstructure:"lease_backend" validate:"required,oneof=postgres badger memory"`
	BadgerPath   string `mapstructure:"badger_path" validate:"required_if=LeaseBackend badger"`
	JobsEnabled  bool   `mapstructure:"jobs_enabled"`

	TrashRetention time.Duration `mapstructure:"trash_retention" validate:"gt=0"`
	MaxTreeDepth   int           `mapstructure:"max_tree_depth" validate:"gt=0"`

	LogDir      string `mapstructure:"log_dir"`
	LogMaxFiles int    `mapstructure:"log_max_files" validate:"gte=1"`
}

var validate = validator.New()

// Load reads configuration from the environment and an optional config.yaml
// in the working directory, applies defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = tablePrefixFor(cfg.Environment)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "dev")
	v.SetDefault("database_url", "")
	v.SetDefault("table_prefix", "")
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("jwks_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("storage_backend", "s3")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key_id", "")
	v.SetDefault("s3_secret_access_key", "")
	v.SetDefault("s3_key_prefix", "")
	v.SetDefault("s3_max_retries", 3)
	v.SetDefault("lease_backend", "postgres")
	v.SetDefault("badger_path", "")
	v.SetDefault("jobs_enabled", true)
	v.SetDefault("trash_retention", DefaultTrashRetention)
	v.SetDefault("max_tree_depth", DefaultMaxTreeDepth)
	v.SetDefault("log_dir", "")
	v.SetDefault("log_max_files", 10)
}

// Validate checks struct tags plus the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.JWKSURL == "" && cfg.JWTSecret == "" {
		return fmt.Errorf("auth: one of jwks_url or jwt_secret must be set")
	}
	if cfg.DatabaseURL == "" && cfg.LeaseBackend == "postgres" {
		return fmt.Errorf("lease_backend: postgres requires database_url")
	}
	if cfg.DatabaseURL == "" && cfg.Environment == "prod" {
		return fmt.Errorf("database_url: required in prod")
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// tablePrefixFor derives the table prefix from the environment
func tablePrefixFor(env string) string {
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// EnvPrefix is the prefix for all environment variables, e.g.
// ALTO_BACKUP_DIR maps to the backup_dir key.
const EnvPrefix = "ALTO"

// DefaultDateFormat is the human-readable timestamp layout embedded in
// backup and error directory names.
const DefaultDateFormat = "2006-01-02_15-04-05"

// Config holds all settings for backup, restore and retention. Every field
// has a default; environment variables override an optional YAML file.
type Config struct {
	BackupDir             string `mapstructure:"backup_dir"`
	RetentionDays         int    `mapstructure:"retention_days"`
	MinBackups            int    `mapstructure:"min_backups"`
	CompressionLevel      int    `mapstructure:"compression_level"`
	ErrorLogRetentionDays int    `mapstructure:"error_log_retention_days"`
	ErrorLogDir           string `mapstructure:"error_log_dir"`
	DateFormat            string `mapstructure:"date_format"`
	Timestamp             int64  `mapstructure:"timestamp"`

	DBContainer string `mapstructure:"db_container"`
	DBUser      string `mapstructure:"db_user"`
	DBPassword  string `mapstructure:"db_password"`
	DBName      string `mapstructure:"db_name"`

	UploadsDir string `mapstructure:"uploads_dir"`
	LogLevel   string `mapstructure:"log_level"`

	VaultAddress    string `mapstructure:"vault_address"`
	VaultToken      string `mapstructure:"vault_token"`
	VaultRole       string `mapstructure:"vault_role"`
	VaultRoleID     string `mapstructure:"vault_role_id"`
	VaultRoleName   string `mapstructure:"vault_role_name"`
	VaultStaticPath string `mapstructure:"vault_static_path"`
}

// Load reads the configuration: a .env file if present, then defaults,
// then an optional YAML file at path, then ALTO_-prefixed environment
// variables (which win).
func (c *Config) Load(path string) error {
	// Missing .env is the normal case outside a compose deployment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	c.normalize()
	return c.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backup_dir", "./backups")
	v.SetDefault("retention_days", 30)
	v.SetDefault("min_backups", 5)
	v.SetDefault("compression_level", 6)
	v.SetDefault("error_log_retention_days", 14)
	v.SetDefault("error_log_dir", "")
	v.SetDefault("date_format", DefaultDateFormat)
	v.SetDefault("timestamp", 0)
	v.SetDefault("db_container", "directus-db")
	v.SetDefault("db_user", "directus")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "directus")
	v.SetDefault("uploads_dir", "./uploads")
	v.SetDefault("log_level", "info")
	v.SetDefault("vault_address", "")
	v.SetDefault("vault_token", "")
	v.SetDefault("vault_role", "")
	v.SetDefault("vault_role_id", "")
	v.SetDefault("vault_role_name", "")
	v.SetDefault("vault_static_path", "")
}

// normalize fills derived fields.
func (c *Config) normalize() {
	if c.DateFormat == "" {
		c.DateFormat = DefaultDateFormat
	}
	if c.ErrorLogDir == "" {
		c.ErrorLogDir = filepath.Join(c.BackupDir, "error_logs")
	}
}

// Validate rejects configurations that no fallback can repair.
func (c *Config) Validate() error {
	if c.BackupDir == "" {
		return fmt.Errorf("%w: backup_dir must not be empty", ErrValidateConfig)
	}
	if c.UploadsDir == "" {
		return fmt.Errorf("%w: uploads_dir must not be empty", ErrValidateConfig)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return fmt.Errorf(
			"%w: compression_level %d out of range 0-9",
			ErrValidateConfig, c.CompressionLevel,
		)
	}
	if c.RetentionDays < 0 || c.MinBackups < 0 || c.ErrorLogRetentionDays < 0 {
		return fmt.Errorf("%w: retention settings must not be negative", ErrValidateConfig)
	}
	return nil
}

// Now returns the pipeline's notion of the current instant. A non-zero
// timestamp override pins it, which makes runs reproducible.
func (c *Config) Now() time.Time {
	if c.Timestamp > 0 {
		return time.Unix(c.Timestamp, 0)
	}
	return time.Now()
}

// CompressionEnabled reports whether the dump should be gzipped.
// Level 0 stores the dump raw.
func (c *Config) CompressionEnabled() bool {
	return c.CompressionLevel > 0
}

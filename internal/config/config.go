package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address                string   `mapstructure:"address"`
	Port                   int      `mapstructure:"port"`
	Mode                   string   `mapstructure:"mode"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite / postgres
	Path         string `mapstructure:"path"`
	DSN          string `mapstructure:"dsn"`
	LogMode      bool   `mapstructure:"log_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	Issuer        string `mapstructure:"issuer"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

type SecurityConfig struct {
	BcryptCost        int    `mapstructure:"bcrypt_cost"`
	EncryptionKey     string `mapstructure:"encryption_key"`
	EmailDomain       string `mapstructure:"email_domain"`
	MinPasswordLength int    `mapstructure:"min_password_length"`
	MaxFailedLogins   int    `mapstructure:"max_failed_logins"`
	LockoutMinutes    int    `mapstructure:"lockout_minutes"`
}

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json / console
}

// AttendanceConfig holds the verification thresholds used when marking.
type AttendanceConfig struct {
	MinFaceConfidence   float64 `mapstructure:"min_face_confidence"`
	BeaconTxPower       float64 `mapstructure:"beacon_tx_power"`
	PathLossExponent    float64 `mapstructure:"path_loss_exponent"`
	MaxBeaconDistanceM  float64 `mapstructure:"max_beacon_distance_m"`
	SyncBatchLimit      int     `mapstructure:"sync_batch_limit"`
	MaxClockSkewSeconds int     `mapstructure:"max_clock_skew_seconds"`
}

type AppSubConfig struct {
	Timezone              string `mapstructure:"timezone"`
	PageSize              int    `mapstructure:"page_size"`
	SessionCleanupMinutes int    `mapstructure:"session_cleanup_minutes"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Security   SecurityConfig   `mapstructure:"security"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	App        AppSubConfig     `mapstructure:"app"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/attendsync.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.log_mode", false)
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "attendsync")
	v.SetDefault("jwt.expire_minutes", 30)

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.email_domain", "@iiitdm.ac.in")
	v.SetDefault("security.min_password_length", 6)
	v.SetDefault("security.max_failed_logins", 5)
	v.SetDefault("security.lockout_minutes", 10)

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("attendance.min_face_confidence", 0.80)
	v.SetDefault("attendance.beacon_tx_power", -59.0)
	v.SetDefault("attendance.path_loss_exponent", 2.0)
	v.SetDefault("attendance.max_beacon_distance_m", 10.0)
	v.SetDefault("attendance.sync_batch_limit", 50)
	v.SetDefault("attendance.max_clock_skew_seconds", 120)

	v.SetDefault("app.timezone", "Asia/Kolkata")
	v.SetDefault("app.page_size", 20)
	v.SetDefault("app.session_cleanup_minutes", 15)
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// A missing file is not an error: defaults and ATS_* environment
// variables still apply. If path is empty, ./config.yaml is tried.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. ATS_SERVER_PORT=9000; only keys with a
	// default or a file entry are picked up by Unmarshal
	v.SetEnvPrefix("ATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("config: database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Attendance.MinFaceConfidence < 0 || c.Attendance.MinFaceConfidence > 1 {
		return fmt.Errorf("config: attendance.min_face_confidence must be within [0,1]")
	}
	if c.Attendance.PathLossExponent <= 0 {
		return errors.New("config: attendance.path_loss_exponent must be positive")
	}
	return nil
}

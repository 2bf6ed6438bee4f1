package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	// Driver is either "sqlite" or "mysql".
	Driver string `mapstructure:"driver"`
	// DSN is used verbatim when set. Otherwise sqlite uses Path and mysql
	// assembles one from the MySQL block.
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"`
	MySQL           MySQLConfig   `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

type MySQLConfig struct {
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Params   map[string]string `mapstructure:"params"`
}

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", "spatula.db")
	v.SetDefault("db.maxOpenConns", 25)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetime", 5*time.Minute)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("db.mysql.user", "spatula")
	v.SetDefault("db.mysql.host", "127.0.0.1")
	v.SetDefault("db.mysql.port", 3306)
	v.SetDefault("db.mysql.database", "spatula")
}

// LoadConfig loads configuration from config.yaml and environment variables.
// A missing config file is not an error; defaults and SPATULA_* variables apply.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom behaves like LoadConfig but reads the given file when path
// is not empty. An explicit path that cannot be read is an error.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("./")
		v.AddConfigPath("$HOME/.spatula/")
		v.AddConfigPath("/etc/spatula/")
	}

	// SPATULA_DB_DRIVER overrides db.driver, and so on.
	v.SetEnvPrefix("SPATULA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports configuration that cannot be used to start the app.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.DB.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode: %s", c.Server.Mode)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 TRACKER_SERVER_PORT
const EnvPrefix = "TRACKER"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Task         TaskConfig         `mapstructure:"task"`
	Log          LogConfig          `mapstructure:"log"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// 存储驱动
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, memory
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Poll     int    `mapstructure:"poll"` // 订阅轮询间隔，秒
}

type TaskConfig struct {
	Interval         int `mapstructure:"interval"`           // 秒
	ArchiveAfterDays int `mapstructure:"archive_after_days"` // 0 表示不自动归档
}

// NotificationConfig 提及通知分发
type NotificationConfig struct {
	Mode     string `mapstructure:"mode"` // sequential, concurrent
	PoolSize int    `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch c.Notification.Mode {
	case "sequential", "concurrent":
	default:
		return fmt.Errorf("unsupported notification mode: %q", c.Notification.Mode)
	}
	if c.Task.Interval <= 0 {
		return fmt.Errorf("task.interval must be positive, got %d", c.Task.Interval)
	}
	if c.Task.ArchiveAfterDays < 0 {
		return fmt.Errorf("task.archive_after_days must not be negative, got %d", c.Task.ArchiveAfterDays)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "issuetracker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.poll", 2)
	v.SetDefault("task.interval", 60)
	v.SetDefault("task.archive_after_days", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("notification.mode", "sequential")
	v.SetDefault("notification.pool_size", 8)
}

// Load 读取配置：.env -> config.yaml -> TRACKER_* 环境变量。
// configFile 非空时只读取该文件。
func Load(configFile string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/issuetracker")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

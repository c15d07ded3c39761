// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Conf 是进程级配置，只在 main 中通过 Init 赋值。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Directory     DirectoryConfig     `mapstructure:"directory"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
// Driver 取值 mysql 或 sqlite，sqlite 仅用于本地开发。
type DatabaseConfig struct {
	Driver string       `mapstructure:"driver"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用 Redis。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储目录变更事件所用的 Kafka 配置。Brokers 为空时不发布事件。
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// ElasticsearchConfig 存储组织检索索引的配置。Addresses 为空时不启用。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// DirectoryConfig 存储目录业务本身的参数。
type DirectoryConfig struct {
	// MaxActivityDepth 是活动树允许的最大层级，根节点为第 1 层。
	MaxActivityDepth int `mapstructure:"max_activity_depth"`
	// RecursiveQueries 为 false 时改用逐层 BFS 展开子孙，适配不支持 WITH RECURSIVE 的数据库。
	RecursiveQueries bool `mapstructure:"recursive_queries"`
	DefaultPageSize  int  `mapstructure:"default_page_size"`
	MaxPageSize      int  `mapstructure:"max_page_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)
	v.SetDefault("database.mysql.conn_max_lifetime_minutes", 60)
	v.SetDefault("database.sqlite.path", "directory.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "directory-events")
	v.SetDefault("kafka.group_id", "org-directory-indexer")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("elasticsearch.index_name", "organizations")
	v.SetDefault("directory.max_activity_depth", 3)
	v.SetDefault("directory.recursive_queries", true)
	v.SetDefault("directory.default_page_size", 100)
	v.SetDefault("directory.max_page_size", 1000)
}

// Load 读取指定路径的 YAML 配置，并允许 ORGDIR_ 前缀的环境变量覆盖。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("orgdir")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 加载配置到 Conf，失败时直接 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Storage  StorageConfig
	Export   ExportConfig
	Ingest   IngestConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
// Driver 为 postgres 或 sqlite；sqlite 只用 Path
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ProviderConfig 外部微调服务配置
type ProviderConfig struct {
	BaseURL    string
	Token      string
	AuthScheme string
	Timeout    int
	CacheTTL   int
}

// StorageConfig 上传文件归档配置
type StorageConfig struct {
	Type     string // none, local, minio
	BasePath string
	MinIO    MinIOConfig
}

// MinIOConfig MinIO 配置
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ExportConfig 导出配置
type ExportConfig struct {
	BatchSize int
}

// IngestConfig 批量导入配置
type IngestConfig struct {
	Concurrency int
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("FINETUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTimeout 请求外部服务的超时时间
func (c *ProviderConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetCacheTTL 列表缓存过期时间，<=0 表示不缓存
func (c *ProviderConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "finetune-admin")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	// 导出是长连接流式响应，写超时为 0 表示不限制
	v.SetDefault("server.writeTimeout", 0)

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "finetune")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "./data/finetune.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Provider
	v.SetDefault("provider.baseUrl", "http://localhost:9000")
	v.SetDefault("provider.token", "")
	v.SetDefault("provider.authScheme", "Bearer")
	v.SetDefault("provider.timeout", 120)
	v.SetDefault("provider.cacheTtl", 60)

	// Storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.basePath", "./data/uploads")
	v.SetDefault("storage.minio.bucket", "finetune-uploads")

	// Export / Ingest
	v.SetDefault("export.batchSize", 10000)
	v.SetDefault("ingest.concurrency", 4)
}

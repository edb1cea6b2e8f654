package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	Queue    QueueConfig
	Upload   UploadConfig
	Process  ProcessConfig
	Metrics  MetricsConfig
	Tracing  TracingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	Mode    string
	BaseURL string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConnections int
	MinConnections int
}

// StorageConfig selects where uploads and optimized artifacts live.
// Backend is "disk" (default) or "minio".
type StorageConfig struct {
	Backend      string
	UploadDir    string
	OptimizedDir string
	KeepUploads  bool
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	SSL       bool
	Location  string
	URLExpiry time.Duration
}

type QueueConfig struct {
	Enabled     bool
	Host        string
	Port        int
	User        string
	Password    string
	Queue       string
	Exchange    string
	RoutingKey  string
	ConsumerTag string
	MaxWorkers  int
}

type UploadConfig struct {
	MaxFileSize int64
	MaxFiles    int
}

type ProcessConfig struct {
	Timeout time.Duration
}

type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
}

type LogConfig struct {
	Level string
}

// ConnectionString generates the connection string for the PostgreSQL database
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// AMQPURL generates the connection string for RabbitMQ
func (c *QueueConfig) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

// Load returns the application configuration from environment variables
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The deployment platform sets a bare PORT; honor it alongside SERVER_PORT.
	_ = viper.BindEnv("server.port", "SERVER_PORT", "PORT")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	unmarshalConfig(&config)

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 4000)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.base.url", "http://localhost:4000")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "optimizer_pro")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max.connections", 10)
	viper.SetDefault("database.min.connections", 2)

	// Storage defaults
	viper.SetDefault("storage.backend", "disk")
	viper.SetDefault("storage.upload.dir", "uploads")
	viper.SetDefault("storage.optimized.dir", "optimized")
	viper.SetDefault("storage.keep.uploads", true)

	// MinIO defaults (used when storage.backend=minio)
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.access.key", "minioadmin")
	viper.SetDefault("minio.secret.key", "minioadmin")
	viper.SetDefault("minio.bucket", "images")
	viper.SetDefault("minio.ssl", false)
	viper.SetDefault("minio.location", "us-east-1")
	viper.SetDefault("minio.url.expiry", 24*time.Hour)

	// Queue defaults
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "rabbitmq")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.queue", "image_events")
	viper.SetDefault("queue.exchange", "optimizer_pro")
	viper.SetDefault("queue.routing.key", "image.optimized")
	viper.SetDefault("queue.consumer.tag", "upload_janitor")
	viper.SetDefault("queue.max.workers", 5)

	// Upload defaults
	viper.SetDefault("upload.max.file.size", int64(50*1024*1024))
	viper.SetDefault("upload.max.files", 10)

	// Processing defaults
	viper.SetDefault("process.timeout", 30*time.Second)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.endpoint", "/metrics")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service.name", "optimizer-pro")
	viper.SetDefault("tracing.service.version", "1.0.0")
	viper.SetDefault("tracing.environment", "development")
	viper.SetDefault("tracing.otlp.endpoint", "localhost:4317")

	// Log defaults
	viper.SetDefault("log.level", "info")
}

func unmarshalConfig(config *Config) {
	// Server config
	config.Server.Host = viper.GetString("server.host")
	config.Server.Port = viper.GetInt("server.port")
	config.Server.Mode = viper.GetString("server.mode")
	config.Server.BaseURL = viper.GetString("server.base.url")

	// Database config
	config.Database.Host = viper.GetString("database.host")
	config.Database.Port = viper.GetInt("database.port")
	config.Database.User = viper.GetString("database.user")
	config.Database.Password = viper.GetString("database.password")
	config.Database.DBName = viper.GetString("database.dbname")
	config.Database.SSLMode = viper.GetString("database.sslmode")
	config.Database.MaxConnections = viper.GetInt("database.max.connections")
	config.Database.MinConnections = viper.GetInt("database.min.connections")

	// Storage config
	config.Storage.Backend = viper.GetString("storage.backend")
	config.Storage.UploadDir = viper.GetString("storage.upload.dir")
	config.Storage.OptimizedDir = viper.GetString("storage.optimized.dir")
	config.Storage.KeepUploads = viper.GetBool("storage.keep.uploads")

	// MinIO config
	config.MinIO.Endpoint = viper.GetString("minio.endpoint")
	config.MinIO.AccessKey = viper.GetString("minio.access.key")
	config.MinIO.SecretKey = viper.GetString("minio.secret.key")
	config.MinIO.Bucket = viper.GetString("minio.bucket")
	config.MinIO.SSL = viper.GetBool("minio.ssl")
	config.MinIO.Location = viper.GetString("minio.location")
	config.MinIO.URLExpiry = viper.GetDuration("minio.url.expiry")

	// Queue config
	config.Queue.Enabled = viper.GetBool("queue.enabled")
	config.Queue.Host = viper.GetString("queue.host")
	config.Queue.Port = viper.GetInt("queue.port")
	config.Queue.User = viper.GetString("queue.user")
	config.Queue.Password = viper.GetString("queue.password")
	config.Queue.Queue = viper.GetString("queue.queue")
	config.Queue.Exchange = viper.GetString("queue.exchange")
	config.Queue.RoutingKey = viper.GetString("queue.routing.key")
	config.Queue.ConsumerTag = viper.GetString("queue.consumer.tag")
	config.Queue.MaxWorkers = viper.GetInt("queue.max.workers")

	// Upload config
	config.Upload.MaxFileSize = viper.GetInt64("upload.max.file.size")
	config.Upload.MaxFiles = viper.GetInt("upload.max.files")

	// Processing config
	config.Process.Timeout = viper.GetDuration("process.timeout")

	// Metrics config
	config.Metrics.Enabled = viper.GetBool("metrics.enabled")
	config.Metrics.Endpoint = viper.GetString("metrics.endpoint")

	// Tracing config
	config.Tracing.Enabled = viper.GetBool("tracing.enabled")
	config.Tracing.ServiceName = viper.GetString("tracing.service.name")
	config.Tracing.ServiceVersion = viper.GetString("tracing.service.version")
	config.Tracing.Environment = viper.GetString("tracing.environment")
	config.Tracing.OTLPEndpoint = viper.GetString("tracing.otlp.endpoint")

	// Log config
	config.Log.Level = viper.GetString("log.level")
}

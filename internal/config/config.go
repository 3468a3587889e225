package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	// DriverSQLX хранилище на sqlx (по умолчанию)
	DriverSQLX = "sqlx"
	// DriverGorm хранилище на GORM
	DriverGorm = "gorm"

	minSecretLen = 32
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL,required"`
	ServerPort    string `env:"SERVER_PORT" envDefault:"8080"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlx"`

	// Секрет подписи сессий, раньше был зашит в код
	SessionSecret string        `env:"SESSION_SECRET,required,unset"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`

	ModulesDir string `env:"MODULES_DIR" envDefault:"modules"`
	UploadsDir string `env:"UPLOADS_DIR" envDefault:"uploads"`
	// PublicBaseURL префикс для ссылки запуска модуля, например https://lms.example.com
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// Ограничения на загрузку и распаковку
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"209715200"`
	MaxExtractBytes   int64         `env:"MAX_EXTRACT_BYTES" envDefault:"1073741824"`
	MaxEntryBytes     int64         `env:"MAX_ENTRY_BYTES" envDefault:"268435456"`
	MaxArchiveEntries int           `env:"MAX_ARCHIVE_ENTRIES" envDefault:"20000"`
	ExtractTimeout    time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"2m"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`
	UploadConcurrency int           `env:"UPLOAD_CONCURRENCY" envDefault:"5"`
	ReconcileGrace    time.Duration `env:"RECONCILE_GRACE" envDefault:"10m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	MetricsEnabled bool    `env:"METRICS_ENABLED" envDefault:"true"`
	AuthRatePerSec float64 `env:"AUTH_RATE_PER_SEC" envDefault:"1"`
	AuthRateBurst  int     `env:"AUTH_RATE_BURST" envDefault:"10"`

	// Настройки для MinIO, блок необязательный:
	// без MINIO_ENDPOINT исходные архивы не сохраняются
	MinioEndpoint        string `env:"MINIO_ENDPOINT"`
	MinioAccessKeyID     string `env:"MINIO_ACCESS_KEY_ID"`
	MinioSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY,unset"`
	MinioUseSSL          bool   `env:"MINIO_USE_SSL"`
	MinioBucketName      string `env:"MINIO_BUCKET_NAME" envDefault:"module-archives"`
	MinioRegion          string `env:"MINIO_REGION" envDefault:"us-east-1"`

	// RabbitMQ тоже необязателен: без него повторной очистки нет
	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL"`
		RabbitMQQueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"module_cleanup_queue"`
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, которые env.Parse проверить не может.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SessionSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.StorageDriver != DriverSQLX && c.StorageDriver != DriverGorm {
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q (use %q or %q)", c.StorageDriver, DriverSQLX, DriverGorm))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.MaxUploadBytes <= 0 || c.MaxExtractBytes <= 0 || c.MaxEntryBytes <= 0 || c.MaxArchiveEntries <= 0 {
		errs = append(errs, errors.New("upload and extraction limits must be positive"))
	}
	if c.UploadConcurrency <= 0 {
		errs = append(errs, errors.New("UPLOAD_CONCURRENCY must be positive"))
	}
	if c.ModulesDir == "" || c.UploadsDir == "" {
		errs = append(errs, errors.New("MODULES_DIR and UPLOADS_DIR must be set"))
	}

	return errors.Join(errs...)
}

// ArchiveStoreEnabled сообщает, настроено ли хранилище исходных архивов.
func (c *Config) ArchiveStoreEnabled() bool {
	return c.MinioEndpoint != ""
}

// QueueEnabled сообщает, настроена ли очередь задач очистки.
func (c *Config) QueueEnabled() bool {
	return c.RabbitMQ.RabbitMQURL != ""
}

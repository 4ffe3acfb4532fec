package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Model        ModelConfig
	Safety       SafetyConfig
	Inventory    InventoryConfig
	Predictive   PredictiveConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Worker       WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHARMA_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMA_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"PHARMA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMA_DB_DSN"`
	Driver string `envconfig:"PHARMA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PHARMA_DB_HOST"`
	Port     int    `envconfig:"PHARMA_DB_PORT" default:"5432"`
	User     string `envconfig:"PHARMA_DB_USER"`
	Password string `envconfig:"PHARMA_DB_PASSWORD"`
	Name     string `envconfig:"PHARMA_DB_NAME"`
	SSLMode  string `envconfig:"PHARMA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHARMA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if strings.EqualFold(d.Driver, DriverSQLite) {
		d.DSN = "file:pharma.db?_pragma=busy_timeout(5000)"
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMA_REDIS_URL"`
	Address      string        `envconfig:"PHARMA_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PHARMA_JWT_SECRET"`
	Issuer                 string `envconfig:"PHARMA_JWT_ISSUER" default:"pharma-backend"`
	ExpirationMinutes      int    `envconfig:"PHARMA_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"PHARMA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHARMA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHARMA_AUTO_MIGRATE" default:"false"`

	// PrescriptionOverride lets demo environments approve prescription
	// medicines. Safety validation ignores it outside dev.
	PrescriptionOverride bool `envconfig:"PHARMA_PRESCRIPTION_OVERRIDE" default:"false"`
}

type ModelConfig struct {
	BaseURL        string        `envconfig:"PHARMA_MODEL_BASE_URL" default:"http://localhost:11434"`
	ChatModel      string        `envconfig:"PHARMA_MODEL_CHAT" default:"llama3.2"`
	EmbeddingModel string        `envconfig:"PHARMA_MODEL_EMBEDDING" default:"nomic-embed-text"`
	Timeout        time.Duration `envconfig:"PHARMA_MODEL_TIMEOUT" default:"10s"`
}

type SafetyConfig struct {
	MaxDosagePerDay  int `envconfig:"PHARMA_SAFETY_MAX_DOSAGE_PER_DAY" default:"10"`
	WarnDosagePerDay int `envconfig:"PHARMA_SAFETY_WARN_DOSAGE_PER_DAY" default:"6"`
}

type InventoryConfig struct {
	ProcurementTarget   int `envconfig:"PHARMA_INVENTORY_PROCUREMENT_TARGET" default:"200"`
	ProcurementFloor    int `envconfig:"PHARMA_INVENTORY_PROCUREMENT_FLOOR" default:"100"`
	HighPriorityBelow   int `envconfig:"PHARMA_INVENTORY_HIGH_PRIORITY_BELOW" default:"20"`
	DefaultLowThreshold int `envconfig:"PHARMA_INVENTORY_DEFAULT_LOW_THRESHOLD" default:"50"`
}

type PredictiveConfig struct {
	AlertThresholdDays int `envconfig:"PHARMA_PREDICTIVE_ALERT_THRESHOLD_DAYS" default:"3"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PHARMA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	ProcurementTopic string `envconfig:"PHARMA_PUBSUB_PROCUREMENT_TOPIC" default:"pharma-procurement-signals"`
}

type WorkerConfig struct {
	RefillSweepInterval time.Duration `envconfig:"PHARMA_WORKER_REFILL_SWEEP_INTERVAL" default:"1h"`
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProductService = "product-service"
	OrderService   = "order-service"
)

type Config struct {
	Server         ServerConfig
	Logger         LoggerConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Azure          AzureStorageConfig
	ProductService ProductServiceConfig
}

type ServerConfig struct {
	AppEnv      string
	ServiceName string
	HTTPPort    string
	GRPCPort    string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	URL               string
	Host              string
	Port              string
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   int
	ConnMaxIdleTime   int
	ConnectMaxRetries int
	ConnectRetryDelay time.Duration
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the parts.
func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ListTTL  time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type KafkaConfig struct {
	Brokers          []string
	StockAlertsTopic string
	OrdersTopic      string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type AzureStorageConfig struct {
	AccountName    string
	AccountKey     string
	ContainerName  string
	Endpoint       string
	SASExpiryHours int
}

// Configured reports whether both account credentials are present.
func (c AzureStorageConfig) Configured() bool {
	return c.AccountName != "" && c.AccountKey != ""
}

func (c AzureStorageConfig) SASExpiry() time.Duration {
	return time.Duration(c.SASExpiryHours) * time.Hour
}

// ServiceURL is the blob endpoint for the account, or Endpoint when overridden.
func (c AzureStorageConfig) ServiceURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/") + "/"
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountName)
}

type ProductServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

type serviceDefaults struct {
	httpPort string
	grpcPort string
	dbName   string
}

var defaults = map[string]serviceDefaults{
	ProductService: {httpPort: "8000", grpcPort: "50051", dbName: "products"},
	OrderService:   {httpPort: "8001", grpcPort: "50052", dbName: "orders"},
}

// LoadEnv reads the configuration of the given service from the environment.
func LoadEnv(service string) *Config {
	d, ok := defaults[service]
	if !ok {
		d = defaults[ProductService]
	}

	return &Config{
		Server: ServerConfig{
			AppEnv:      getEnv("APP_ENV", "dev"),
			ServiceName: getEnv("SERVICE_NAME", service),
			HTTPPort:    getEnv("HTTP_PORT", d.httpPort),
			GRPCPort:    getEnv("GRPC_PORT", d.grpcPort),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			URL:               getEnv("DATABASE_URL", ""),
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnv("POSTGRES_PORT", "5432"),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", d.dbName),
			SSLMode:           getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:      getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:      getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:   getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime:   getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			ConnectMaxRetries: getEnvInt("DB_CONNECT_MAX_RETRIES", 10),
			ConnectRetryDelay: getEnvDuration("DB_CONNECT_RETRY_DELAY", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			ListTTL:  getEnvDuration("REDIS_LIST_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:          getEnvSlice("KAFKA_BROKERS", nil),
			StockAlertsTopic: getEnv("KAFKA_TOPIC_STOCK_ALERTS", "products.stock-alerts"),
			OrdersTopic:      getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
		},
		Azure: AzureStorageConfig{
			AccountName:    getEnv("AZURE_STORAGE_ACCOUNT_NAME", ""),
			AccountKey:     getEnv("AZURE_STORAGE_ACCOUNT_KEY", ""),
			ContainerName:  getEnv("AZURE_STORAGE_CONTAINER_NAME", "product-images"),
			Endpoint:       getEnv("AZURE_STORAGE_ENDPOINT", ""),
			SASExpiryHours: getEnvInt("AZURE_SAS_TOKEN_EXPIRY_HOURS", 24),
		},
		ProductService: ProductServiceConfig{
			BaseURL: strings.TrimRight(getEnv("PRODUCT_SERVICE_URL", "http://localhost:8000"), "/"),
			Timeout: getEnvDuration("PRODUCT_SERVICE_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// bare integers are seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"testing"
	"time"
)

func TestLoadEnv_ServiceDefaults(t *testing.T) {
	tests := []struct {
		service  string
		httpPort string
		grpcPort string
		dbName   string
	}{
		{ProductService, "8000", "50051", "products"},
		{OrderService, "8001", "50052", "orders"},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			cfg := LoadEnv(tt.service)
			if cfg.Server.HTTPPort != tt.httpPort {
				t.Errorf("HTTPPort = %q, want %q", cfg.Server.HTTPPort, tt.httpPort)
			}
			if cfg.Server.GRPCPort != tt.grpcPort {
				t.Errorf("GRPCPort = %q, want %q", cfg.Server.GRPCPort, tt.grpcPort)
			}
			if cfg.Postgres.DBName != tt.dbName {
				t.Errorf("DBName = %q, want %q", cfg.Postgres.DBName, tt.dbName)
			}
			if cfg.Server.ServiceName != tt.service {
				t.Errorf("ServiceName = %q, want %q", cfg.Server.ServiceName, tt.service)
			}
		})
	}
}

func TestLoadEnv_StartupRetryDefaults(t *testing.T) {
	cfg := LoadEnv(ProductService)
	if cfg.Postgres.ConnectMaxRetries != 10 {
		t.Errorf("ConnectMaxRetries = %d, want 10", cfg.Postgres.ConnectMaxRetries)
	}
	if cfg.Postgres.ConnectRetryDelay != 5*time.Second {
		t.Errorf("ConnectRetryDelay = %v, want 5s", cfg.Postgres.ConnectRetryDelay)
	}
}

func TestLoadEnv_AzureStorage(t *testing.T) {
	t.Run("unconfigured without credentials", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCOUNT_NAME", "")
		t.Setenv("AZURE_STORAGE_ACCOUNT_KEY", "")
		cfg := LoadEnv(ProductService)
		if cfg.Azure.Configured() {
			t.Fatal("expected storage to be unconfigured")
		}
		if cfg.Azure.ContainerName != "product-images" {
			t.Errorf("ContainerName = %q, want product-images", cfg.Azure.ContainerName)
		}
		if cfg.Azure.SASExpiry() != 24*time.Hour {
			t.Errorf("SASExpiry = %v, want 24h", cfg.Azure.SASExpiry())
		}
	})

	t.Run("configured", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCOUNT_NAME", "shopimages")
		t.Setenv("AZURE_STORAGE_ACCOUNT_KEY", "a2V5")
		t.Setenv("AZURE_SAS_TOKEN_EXPIRY_HOURS", "2")
		cfg := LoadEnv(ProductService)
		if !cfg.Azure.Configured() {
			t.Fatal("expected storage to be configured")
		}
		if got, want := cfg.Azure.ServiceURL(), "https://shopimages.blob.core.windows.net/"; got != want {
			t.Errorf("ServiceURL = %q, want %q", got, want)
		}
		if cfg.Azure.SASExpiry() != 2*time.Hour {
			t.Errorf("SASExpiry = %v, want 2h", cfg.Azure.SASExpiry())
		}
	})

	t.Run("endpoint override", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ENDPOINT", "http://127.0.0.1:10000/devstoreaccount1/")
		cfg := LoadEnv(ProductService)
		if got, want := cfg.Azure.ServiceURL(), "http://127.0.0.1:10000/devstoreaccount1/"; got != want {
			t.Errorf("ServiceURL = %q, want %q", got, want)
		}
	})
}

func TestPostgresConfig_DSN(t *testing.T) {
	t.Run("assembled from parts", func(t *testing.T) {
		c := PostgresConfig{
			Host: "db", Port: "5432", User: "shop", Password: "p@ss", DBName: "products", SSLMode: "disable",
		}
		want := "postgres://shop:p%40ss@db:5432/products?sslmode=disable"
		if got := c.DSN(); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})

	t.Run("url wins", func(t *testing.T) {
		c := PostgresConfig{URL: "postgres://u:p@h/db", Host: "ignored"}
		if got := c.DSN(); got != "postgres://u:p@h/db" {
			t.Errorf("DSN() = %q", got)
		}
	})
}

func TestLoadEnv_ParsesTypedValues(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_CONNECT_RETRY_DELAY", "3")
	t.Setenv("REDIS_LIST_TTL", "90s")
	t.Setenv("PRODUCT_SERVICE_URL", "http://products:8000/")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadEnv(OrderService)

	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.Kafka.Enabled() {
		t.Error("expected kafka to be enabled")
	}
	if cfg.Postgres.ConnectRetryDelay != 3*time.Second {
		t.Errorf("ConnectRetryDelay = %v, want 3s", cfg.Postgres.ConnectRetryDelay)
	}
	if cfg.Redis.ListTTL != 90*time.Second {
		t.Errorf("ListTTL = %v, want 90s", cfg.Redis.ListTTL)
	}
	if cfg.ProductService.BaseURL != "http://products:8000" {
		t.Errorf("BaseURL = %q", cfg.ProductService.BaseURL)
	}
	if cfg.Postgres.MaxOpenConns != 10 {
		t.Errorf("MaxOpenConns = %d, want fallback 10", cfg.Postgres.MaxOpenConns)
	}
	if cfg.Redis.Enabled() {
		t.Error("expected redis to be disabled without REDIS_ADDR")
	}
}

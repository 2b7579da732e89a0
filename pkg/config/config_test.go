package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
service_name = "cart-service"

[http]
port = 9001

[database]
driver = "mysql"
dsn = "user:pass@tcp(127.0.0.1:3306)/shop"

[cart]
cache_ttl_seconds = 60
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Port != 9001 {
		t.Errorf("http.port = %d", cfg.HTTP.Port)
	}
	if cfg.GRPC.Port != 50051 {
		t.Errorf("grpc.port default = %d", cfg.GRPC.Port)
	}
	if cfg.Messaging.Driver != "none" {
		t.Errorf("messaging.driver = %q", cfg.Messaging.Driver)
	}
	if cfg.Cart.CacheTTLSeconds != 60 || cfg.Cart.GuestRateLimit != 30 {
		t.Errorf("cart = %+v", cfg.Cart)
	}
	if cfg.Auth.Issuer != "storefront" {
		t.Errorf("auth.issuer = %q", cfg.Auth.Issuer)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_DATABASE_DSN", "override-dsn")
	t.Setenv("APP_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "override-dsn" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServiceName: "cart",
			HTTP:        HTTPConfig{Port: 8080},
			GRPC:        GRPCConfig{Port: 50051},
			Database:    DatabaseConfig{Driver: "mysql", DSN: "dsn"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"no service name", func(c *Config) { c.ServiceName = "" }, "service_name"},
		{"bad http port", func(c *Config) { c.HTTP.Port = 70000 }, "HTTP port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "unsupported database driver"},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }, "DSN"},
		{"kafka without brokers", func(c *Config) { c.Messaging.Driver = "kafka" }, "brokers"},
		{"rabbitmq without url", func(c *Config) { c.Messaging.Driver = "rabbitmq" }, "rabbitmq.url"},
		{"negative ttl", func(c *Config) { c.Cart.CacheTTLSeconds = -1 }, "cache_ttl_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cfg.Environment != "dev" || cfg.Messaging.Driver != "none" {
					t.Errorf("defaults not filled: %+v", cfg)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

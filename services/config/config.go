// Package config loads service configuration from the environment with
// development defaults, so binaries run locally without any setup.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type ServerConfig struct {
	HTTPPort int
	GRPCPort int
}

type EngineConfig struct {
	MaxWorkers     int
	MaxPosition    float64
	ImbalanceDepth int
	Annualization  float64
	MakerFee       float64
	TakerFee       float64
}

type ClickHouseConfig struct {
	Addr     string
	HTTPURL  string
	Database string
	Table    string
	Username string
	Password string
}

type MonitoringConfig struct {
	Namespace string
}

type Config struct {
	Environment string
	Server      ServerConfig
	Engine      EngineConfig
	ClickHouse  ClickHouseConfig
	Monitoring  MonitoringConfig
}

// Load reads configuration from the environment. Every key has a working
// development default; only credentials for non-local stores need to be set.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: envStr("APP_ENV", "dev"),
		Server: ServerConfig{
			HTTPPort: envInt("HTTP_PORT", 8080),
			GRPCPort: envInt("GRPC_PORT", 9091),
		},
		Engine: EngineConfig{
			MaxWorkers:     envInt("ENGINE_MAX_WORKERS", 4),
			MaxPosition:    envFloat("ENGINE_MAX_POSITION", 1.0),
			ImbalanceDepth: envInt("ENGINE_IMBALANCE_DEPTH", 10),
			Annualization:  envFloat("ENGINE_ANNUALIZATION", 252),
			MakerFee:       envFloat("ENGINE_MAKER_FEE", 0.0002),
			TakerFee:       envFloat("ENGINE_TAKER_FEE", 0.0005),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     envStr("CLICKHOUSE_ADDR", "localhost:9000"),
			HTTPURL:  envStr("CLICKHOUSE_HTTP_URL", "http://localhost:8123"),
			Database: envStr("CLICKHOUSE_DATABASE", "zaphft"),
			Table:    envStr("CLICKHOUSE_TABLE", "l2_snapshots"),
			Username: envStr("CLICKHOUSE_USER", "zaphft"),
			Password: envStr("CLICKHOUSE_PASSWORD", ""),
		},
		Monitoring: MonitoringConfig{
			Namespace: envStr("METRICS_NAMESPACE", "zaphft"),
		},
	}
	if cfg.Server.HTTPPort == cfg.Server.GRPCPort {
		return nil, fmt.Errorf("HTTP_PORT and GRPC_PORT must differ (both %d)", cfg.Server.HTTPPort)
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

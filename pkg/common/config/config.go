package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// RootConfig holds configuration for the search query planner / root
// node.
type RootConfig struct {
	NodeID         string
	BindAddr       string
	RESTPort       int
	MetastoreAddr  string
	LogLevel       string
	MetricsPort    int
	MaxConcurrent  int
	RequestTimeout time.Duration
}

// LoadRootConfig loads root node configuration from file.
func LoadRootConfig(cfgFile string) (*RootConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("node_id", getHostname())
	v.SetDefault("bind_addr", "0.0.0.0")
	v.SetDefault("rest_port", 9200)
	v.SetDefault("metastore_addr", "localhost:9301")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_port", 9401)
	v.SetDefault("max_concurrent", 1000)
	v.SetDefault("request_timeout", "30s")

	// Load config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("root")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/quidditch/")
		v.AddConfigPath("$HOME/.quidditch/")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix("QUIDDITCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &RootConfig{
		NodeID:         v.GetString("node_id"),
		BindAddr:       v.GetString("bind_addr"),
		RESTPort:       v.GetInt("rest_port"),
		MetastoreAddr:  v.GetString("metastore_addr"),
		LogLevel:       v.GetString("log_level"),
		MetricsPort:    v.GetInt("metrics_port"),
		MaxConcurrent:  v.GetInt("max_concurrent"),
		RequestTimeout: v.GetDuration("request_timeout"),
	}

	return cfg, nil
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

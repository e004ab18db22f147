package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string        `yaml:"port"`
	DataDir       string        `yaml:"data_dir"`
	GatewayToken  string        `yaml:"gateway_token"`
	GatewayDMURL  string        `yaml:"gateway_dm_url"`
	ServerOwnerID string        `yaml:"server_owner_id"`
	SyncHookURL   string        `yaml:"sync_hook_url"`
	AdminIDs      []string      `yaml:"admin_ids"`
	ScanInterval  time.Duration `yaml:"scan_interval"`
	Retention     int           `yaml:"backup_retention"`
	GinMode       string        `yaml:"gin_mode"`
}

// Load reads configuration from the environment, with an optional YAML
// overlay pointed at by TASKBOT_CONFIG.
func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DataDir:       getEnv("DATA_DIR", "data"),
		GatewayToken:  getEnv("GATEWAY_TOKEN", ""),
		GatewayDMURL:  getEnv("GATEWAY_DM_URL", ""),
		ServerOwnerID: getEnv("SERVER_OWNER_ID", ""),
		SyncHookURL:   getEnv("SYNC_HOOK_URL", ""),
		AdminIDs:      splitList(getEnv("ADMIN_IDS", "")),
		ScanInterval:  getEnvDuration("SCAN_INTERVAL", 5*time.Minute),
		Retention:     getEnvInt("BACKUP_RETENTION", 5),
		GinMode:       getEnv("GIN_MODE", "debug"),
	}

	if path := os.Getenv("TASKBOT_CONFIG"); path != "" {
		cfg.overlay(path)
	}
	return cfg
}

func (c *Config) overlay(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config file %s not readable, using environment only: %v", path, err)
		return
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		log.Printf("config file %s not parseable, using environment only: %v", path, err)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	log.Printf("invalid %s value %q, using default", key, value)
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	log.Printf("invalid %s value %q, using default", key, value)
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

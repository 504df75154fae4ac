package config

import (
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerHost string `yaml:"serverHost"`
	ServerPort int    `yaml:"serverPort"`

	StoreURL       string `yaml:"storeUrl"`
	StoreContainer string `yaml:"storeContainer"`
	StoreToken     string `yaml:"storeToken"`
	DatabaseName   string `yaml:"databaseName"`

	CacheCapacity     int           `yaml:"cacheCapacity"`
	CompactMinEntries int           `yaml:"compactMinEntries"`
	CompactMinBytes   int64         `yaml:"compactMinBytes"`
	PollInterval      time.Duration `yaml:"pollInterval"`

	ChangesPubPort int `yaml:"changesPubPort"`
}

func LoadConfig() Config {
	godotenv.Load(".env")
	cfg := Config{
		ServerHost:        envOr("SERVER_HOST", "0.0.0.0"),
		ServerPort:        envInt("SERVER_PORT", 3000),
		StoreURL:          os.Getenv("STORE_URL"),
		StoreContainer:    envOr("STORE_CONTAINER", "docdb"),
		StoreToken:        os.Getenv("STORE_TOKEN"),
		DatabaseName:      envOr("DATABASE_NAME", "default"),
		CacheCapacity:     envInt("CACHE_CAPACITY", 256),
		CompactMinEntries: envInt("COMPACT_MIN_ENTRIES", 500),
		CompactMinBytes:   int64(envInt("COMPACT_MIN_BYTES", 4<<20)),
		PollInterval:      envDuration("POLL_INTERVAL", 15*time.Second),
		ChangesPubPort:    envInt("CHANGES_PUB_PORT", 0),
	}
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		applyFile(&cfg, file)
	}
	return cfg
}

func applyFile(cfg *Config, file string) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return
	}
	yaml.Unmarshal(raw, cfg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

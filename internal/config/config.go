package config

import (
	"encoding/json"
	"os"
)

// Config is the top-level server configuration loaded from file/env.
type Config struct {
	DataDir         string `json:"dataDir"`
	HTTPAddr        string `json:"httpAddr"`
	Fsync           string `json:"fsync"` // always|interval|never
	FsyncIntervalMs int    `json:"fsyncIntervalMs"`

	Bus BusConfig `json:"bus"`

	CacheTTLSeconds   int `json:"cacheTtlSeconds"`
	CacheSweepSeconds int `json:"cacheSweepSeconds"`

	ActorIdleSeconds   int `json:"actorIdleSeconds"`
	ReminderScanMs     int `json:"reminderScanMs"`
	QueryMaxCountLimit int `json:"queryMaxCountLimit"`

	Retention RetentionDefaults `json:"retention"`
}

// BusConfig selects and parameterizes the event-bus backend.
type BusConfig struct {
	Backend   string `json:"backend"` // pebble|redis
	RedisAddr string `json:"redisAddr"`
	// PubSubName is the logical pub/sub component name carried on every
	// publish, mirroring the platform's named-component model.
	PubSubName string `json:"pubSubName"`
	Topic      string `json:"topic"`
}

// RetentionDefaults captures the server-wide retention windows (in days)
// applied to repositories that do not override them.
type RetentionDefaults struct {
	SaveDays                  float64 `json:"saveDays"`
	CheckpointDays            float64 `json:"checkpointDays"`
	DiffCacheDays             float64 `json:"diffCacheDays"`
	DirectoryVersionCacheDays float64 `json:"directoryVersionCacheDays"`
	LogicalDeleteDays         float64 `json:"logicalDeleteDays"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		Fsync:           "always",
		FsyncIntervalMs: 5,
		Bus: BusConfig{
			Backend:    "pebble",
			PubSubName: "graceevents",
			Topic:      "graceeventstream",
		},
		CacheTTLSeconds:    120,
		CacheSweepSeconds:  300,
		ActorIdleSeconds:   600,
		ReminderScanMs:     500,
		QueryMaxCountLimit: 1000,
		Retention: RetentionDefaults{
			SaveDays:                  7,
			CheckpointDays:            30,
			DiffCacheDays:             7,
			DirectoryVersionCacheDays: 7,
			LogicalDeleteDays:         30,
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

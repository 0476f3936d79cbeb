package config

import (
	"os"
	"strconv"
)

// FromEnv overlays GRACE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("GRACE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GRACE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("GRACE_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("GRACE_BUS_BACKEND"); v != "" {
		cfg.Bus.Backend = v
	}
	if v := os.Getenv("GRACE_BUS_REDIS_ADDR"); v != "" {
		cfg.Bus.RedisAddr = v
	}
	if v := os.Getenv("GRACE_BUS_PUBSUB"); v != "" {
		cfg.Bus.PubSubName = v
	}
	if v := os.Getenv("GRACE_BUS_TOPIC"); v != "" {
		cfg.Bus.Topic = v
	}
	if v := os.Getenv("GRACE_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv("GRACE_ACTOR_IDLE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ActorIdleSeconds = n
		}
	}
	if v := os.Getenv("GRACE_REMINDER_SCAN_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReminderScanMs = n
		}
	}
	if v := os.Getenv("GRACE_RETENTION_SAVE_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Retention.SaveDays = f
		}
	}
	if v := os.Getenv("GRACE_RETENTION_CHECKPOINT_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Retention.CheckpointDays = f
		}
	}
	if v := os.Getenv("GRACE_RETENTION_LOGICAL_DELETE_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Retention.LogicalDeleteDays = f
		}
	}
}

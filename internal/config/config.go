package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/aditus.db"

	// Engine
	BiometricMinConfidence float64 // matches below this are rejected
	DedupWindowSeconds     int     // duplicate event-id suppression window
	PeakResetHour          int     // 0-23, local time

	// Audit retention
	AuditRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)
}

func FromEnv() Config {
	addr := getenvDefault("ADITUS_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("ADITUS_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("ADITUS_DB_PATH", "./data/aditus.db")

	minConfidence := getenvFloat("ADITUS_BIOMETRIC_MIN_CONFIDENCE", 0.85)
	dedupWindow := getenvInt("ADITUS_DEDUP_WINDOW_SECONDS", 120)
	resetHour := getenvInt("ADITUS_PEAK_RESET_HOUR", 4)

	retentionDays := getenvInt("ADITUS_AUDIT_RETENTION_DAYS", 0)
	pruneInterval := getenvInt("ADITUS_PRUNE_INTERVAL_HOURS", 6)

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		BiometricMinConfidence: minConfidence,
		DedupWindowSeconds:     dedupWindow,
		PeakResetHour:          resetHour,

		AuditRetentionDays: retentionDays,
		PruneIntervalHours: pruneInterval,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return def
	}
	return f
}

package util

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of the environment variable key, or defaultVal
// when the variable is unset or empty.
func GetEnv(key string, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetEnvAsInt returns the environment variable parsed as int, falling back
// to defaultVal on absence or parse failure.
func GetEnvAsInt(key string, defaultVal int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetEnvAsInt64 returns the environment variable parsed as int64, falling
// back to defaultVal on absence or parse failure.
func GetEnvAsInt64(key string, defaultVal int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetEnvAsBool returns the environment variable parsed via strconv.ParseBool,
// falling back to defaultVal on absence or parse failure.
func GetEnvAsBool(key string, defaultVal bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// GetEnvAsDuration returns the environment variable parsed via
// time.ParseDuration, falling back to defaultVal on absence or parse failure.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// GetEnvAsFloat64 returns the environment variable parsed as float64,
// falling back to defaultVal on absence or parse failure.
func GetEnvAsFloat64(key string, defaultVal float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

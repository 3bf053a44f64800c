// Package env contains utilities to manage environment variables and
// process-level configuration loading
package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load attempts to populate the process environment from a .env file in the
// current working directory. Absence of the file is not an error: the
// process environment is authoritative either way.
func Load() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file found, using process environment")
	}
}

// GetEnv reads an environment variable or returns a default value
func GetEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// GetEnvAsInt reads an environment variable into an integer or returns a
// default value
func GetEnvAsInt(key string, defaultVal int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

// GetEnvAsBool reads an environment variable into a boolean or returns a
// default value
func GetEnvAsBool(key string, defaultVal bool) bool {
	valueStr := GetEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultVal
}

// GetEnvAsDuration reads an environment variable as a number of seconds and
// returns it as a time.Duration, or returns a default value
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Second
	}
	return defaultVal
}

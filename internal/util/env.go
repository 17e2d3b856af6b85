package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func GetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return ""
	}
	return value
}

func GetEnvString(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	return value
}

func GetEnvNumeric(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	returnValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}

	return returnValue
}

func GetEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	returnValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}

	return returnValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	if value == "true" || value == "false" {
		return value == "true"
	}

	return defaultValue
}

// GetEnvDuration parses values like "15m" or "90s".
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// GetEnvList splits a comma separated variable, dropping empty entries. It
// returns nil when the variable is unset.
func GetEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
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

// GraphConfigFromEnv starts from wordgraph.DefaultConfig and overrides every
// value that has a GRAPH_* variable set. The result is validated.
//
//   - GRAPH_MIN_FREQUENCY: default minimum frequency
//   - GRAPH_MIN_TOKEN_LENGTH: shortest token kept, in runes
//   - GRAPH_STOP_WORDS: comma separated list replacing the default stop words
//   - GRAPH_NODE_SCALE_X / GRAPH_NODE_SCALE_Y: radius per occurrence
//   - GRAPH_NODE_RADIUS_X_MIN/MAX, GRAPH_NODE_RADIUS_Y_MIN/MAX: radius bounds
func GraphConfigFromEnv() (wordgraph.Config, error) {
	cfg := wordgraph.DefaultConfig()

	cfg.MinFrequency = GetEnvInt("GRAPH_MIN_FREQUENCY", cfg.MinFrequency)
	cfg.MinTokenLength = GetEnvInt("GRAPH_MIN_TOKEN_LENGTH", cfg.MinTokenLength)
	if words := GetEnvList("GRAPH_STOP_WORDS"); words != nil {
		cfg.StopWords = words
	}

	size := &cfg.NodeSize
	size.ScaleX = GetEnvNumeric("GRAPH_NODE_SCALE_X", size.ScaleX)
	size.ScaleY = GetEnvNumeric("GRAPH_NODE_SCALE_Y", size.ScaleY)
	size.MinRadiusX = GetEnvNumeric("GRAPH_NODE_RADIUS_X_MIN", size.MinRadiusX)
	size.MaxRadiusX = GetEnvNumeric("GRAPH_NODE_RADIUS_X_MAX", size.MaxRadiusX)
	size.MinRadiusY = GetEnvNumeric("GRAPH_NODE_RADIUS_Y_MIN", size.MinRadiusY)
	size.MaxRadiusY = GetEnvNumeric("GRAPH_NODE_RADIUS_Y_MAX", size.MaxRadiusY)

	if err := cfg.Validate(); err != nil {
		return wordgraph.Config{}, err
	}
	return cfg, nil
}

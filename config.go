package instructagent

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ──────────────────────────────────────────────
// Configuration — environment driven
// ──────────────────────────────────────────────
//
// Defaults target a local LM Studio server. Every value can be overridden
// through environment variables or a .env file in the working directory.

// Endpoint defaults.
const (
	DefaultAPIBase = "http://localhost:1234/v1"
	DefaultModel   = "lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF"
)

// Config holds the runtime configuration of the harness.
// Use NewConfigFromEnv() to load it from environment variables.
type Config struct {
	// APIBase is the OpenAI-compatible endpoint base URL.
	APIBase string
	// APIKey is sent as a Bearer token. LM Studio ignores it.
	APIKey string
	// Model is the model identifier sent on every completion request.
	Model string
	// Temperature is the sampling temperature.
	Temperature float64
	// AgentType tags the reasoning style. It is logged, not interpreted.
	AgentType string
	// Verbose enables per-turn trace spans on the console.
	Verbose bool
	// MaxIterations caps the tool loop within one user turn.
	MaxIterations int
	// Timeout bounds each LLM request, in seconds.
	Timeout int
	// RedisAddr selects the Redis-backed session store when non-empty.
	RedisAddr string
	// HistoryWindow is the number of messages kept per session.
	HistoryWindow int
}

// NewConfigFromEnv loads configuration from environment variables. A .env
// file in the working directory is applied first; real environment variables
// always win. Malformed numeric or boolean values fall back to defaults.
func NewConfigFromEnv() *Config {
	loadDotEnv()
	return &Config{
		APIBase:       strings.TrimRight(getEnv("OPENAI_API_BASE", DefaultAPIBase), "/"),
		APIKey:        getEnv("OPENAI_API_KEY", "not-needed"),
		Model:         getEnv("MODEL_NAME", DefaultModel),
		Temperature:   toFloat(getEnv("TEMPERATURE", "0.0"), 0.0),
		AgentType:     getEnv("AGENT_TYPE", "chat-zero-shot-react-description"),
		Verbose:       toBool(getEnv("AGENT_VERBOSE", "true")),
		MaxIterations: toInt(getEnv("AGENT_MAX_ITERATIONS", "3"), 3),
		Timeout:       toInt(getEnv("AGENT_TIMEOUT", "30"), 30),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		HistoryWindow: toInt(getEnv("HISTORY_WINDOW", "20"), 20),
	}
}

// Summary returns a human-readable configuration summary with the API key
// masked.
func (c *Config) Summary() string {
	return fmt.Sprintf(
		"API Base: %s\nModel: %s\nAPI Key: %s\nTemperature: %g\nAgent Type: %s\nVerbose: %v\nMax Iterations: %d\nTimeout: %ds\nHistory Window: %d\nSession Store: %s",
		c.APIBase,
		c.Model,
		maskKey(c.APIKey),
		c.Temperature,
		c.AgentType,
		c.Verbose,
		c.MaxIterations,
		c.Timeout,
		c.HistoryWindow,
		defaultStr(c.RedisAddr, "in-memory"),
	)
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "***"
	}
	return key[:4] + "***"
}

// --- internal helpers ---

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.TrimSpace(val)
}

func toBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func toInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func toFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

func defaultStr(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// loadDotEnv attempts to load a .env file from the current directory.
// It silently ignores errors (file not found, parse errors).
func loadDotEnv() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

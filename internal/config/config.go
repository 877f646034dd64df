// Package config provides configuration management for Aftercare.
// It loads settings from environment variables with the AFTERCARE_ prefix
// and provides sensible defaults for all configuration options.
//
// Clinical thresholds (retrieval confidence, urgency keyword tiers) are
// configuration rather than hard-coded constants so they can be tuned
// against a labeled validation set without a rebuild.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration settings for the Aftercare application.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Security  SecurityConfig
	Retrieval RetrievalConfig
	Triage    TriageConfig
	Session   SessionConfig
	Patients  PatientsConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 8080)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains knowledge store configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for the sqlite backend (default: ./data)
	PostgresDSN   string // Postgres connection string for the pgvector backend
}

// LLMConfig contains language-model provider configuration.
type LLMConfig struct {
	LLMProvider          string        // LLM provider: ollama, openai (default: ollama)
	OllamaURL            string        // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string        // Ollama model for completion (default: qwen2.5:7b)
	OllamaEmbeddingModel string        // Ollama model for embeddings (default: nomic-embed-text)
	OpenAIAPIKey         string        // OpenAI API key
	OpenAIModel          string        // OpenAI completion model (default: gpt-4o-mini)
	OpenAIEmbeddingModel string        // OpenAI embedding model (default: text-embedding-3-small)
	Timeout              time.Duration // Per-call completion timeout (default: 20s)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// RetrievalConfig tunes the retrieval engine and its web-search fallback.
type RetrievalConfig struct {
	TopK          int           // Chunks fetched per query (default: 5)
	MinConfidence float64       // Top-score threshold below which the web fallback fires (default: 0.45)
	MaxWebResults int           // Web results merged into a response (default: 5)
	SearchTimeout time.Duration // Web search call timeout (default: 8s)
	StoreTimeout  time.Duration // Knowledge store query timeout (default: 10s)
}

// TriageConfig holds the urgency keyword tiers. Matching anywhere in the user
// text or answer text promotes the turn to that tier; the highest tier wins.
type TriageConfig struct {
	EmergencyKeywords []string
	UrgentKeywords    []string
}

// SessionConfig tunes session lifecycle behavior.
type SessionConfig struct {
	TurnTimeout time.Duration // Upper bound on one PostMessage call (default: 30s)
	IdleTimeout time.Duration // Idle duration after which a session is evictable (default: 30m)
}

// PatientsConfig locates the read-only patient discharge records.
type PatientsConfig struct {
	DataFile string // Path to the patients JSON file (default: ./data/patients.json)
}

// defaultEmergencyKeywords are phrases that always classify as an emergency.
var defaultEmergencyKeywords = []string{
	"chest pain", "can't breathe", "cannot breathe", "severe pain",
	"unconscious", "bleeding heavily", "stroke", "heart attack",
	"seizure", "suicidal",
}

// defaultUrgentKeywords are phrases that classify as urgent unless an
// emergency keyword also matches.
var defaultUrgentKeywords = []string{
	"high fever", "severe swelling", "swelling", "sudden weight gain",
	"difficulty breathing", "shortness of breath", "confusion",
	"severe headache", "blood in", "can't urinate", "extreme pain",
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the AFTERCARE_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("AFTERCARE_PORT", 8080),
			Host: getEnv("AFTERCARE_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("AFTERCARE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("AFTERCARE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("AFTERCARE_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			LLMProvider:          getEnv("AFTERCARE_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("AFTERCARE_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("AFTERCARE_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("AFTERCARE_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("AFTERCARE_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("AFTERCARE_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbeddingModel: getEnv("AFTERCARE_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:              getEnvDuration("AFTERCARE_LLM_TIMEOUT", 20*time.Second),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("AFTERCARE_SECURITY_MODE", "development"),
			APIToken:     getEnv("AFTERCARE_API_TOKEN", ""),
		},
		Retrieval: RetrievalConfig{
			TopK:          getEnvInt("AFTERCARE_RETRIEVAL_TOP_K", 5),
			MinConfidence: getEnvFloat("AFTERCARE_RETRIEVAL_MIN_CONFIDENCE", 0.45),
			MaxWebResults: getEnvInt("AFTERCARE_MAX_WEB_RESULTS", 5),
			SearchTimeout: getEnvDuration("AFTERCARE_SEARCH_TIMEOUT", 8*time.Second),
			StoreTimeout:  getEnvDuration("AFTERCARE_STORE_TIMEOUT", 10*time.Second),
		},
		Triage: TriageConfig{
			EmergencyKeywords: getEnvList("AFTERCARE_EMERGENCY_KEYWORDS", defaultEmergencyKeywords),
			UrgentKeywords:    getEnvList("AFTERCARE_URGENT_KEYWORDS", defaultUrgentKeywords),
		},
		Session: SessionConfig{
			TurnTimeout: getEnvDuration("AFTERCARE_TURN_TIMEOUT", 30*time.Second),
			IdleTimeout: getEnvDuration("AFTERCARE_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		},
		Patients: PatientsConfig{
			DataFile: getEnv("AFTERCARE_PATIENTS_FILE", "./data/patients.json"),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "30s", "5m")
// or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated list environment variable or returns
// the default slice. Entries are trimmed and lowercased; empty entries are
// dropped.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

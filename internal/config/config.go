package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all recall configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Engine      EngineConfig      `toml:"engine"`
	LLM         LLMConfig         `toml:"llm"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// EngineConfig mirrors the memory engine's tuning knobs so they can live
// in the config file. Zero values defer to the engine's own defaults.
type EngineConfig struct {
	PromotionThreshold int     `toml:"promotion_threshold"`
	RetrievalBoost     float64 `toml:"retrieval_boost"`
	AgingFactor        float64 `toml:"aging_factor"`
	ActivationSteps    int     `toml:"activation_steps"`
	ActivationDecay    float64 `toml:"activation_decay"`
	SimilarityWeight   float64 `toml:"similarity_weight"`
	ActivationWeight   float64 `toml:"activation_weight"`
	EmbeddingDims      int     `toml:"embedding_dims"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"`        // "claude-cli", "anthropic", "ollama"
	Model          string `toml:"model"`           // e.g. "haiku", "sonnet"
	OllamaURL      string `toml:"ollama_url"`
	OllamaModel    string `toml:"ollama_model"`    // e.g. "llama3.2"
	Embedder       string `toml:"embedder"`        // "ollama", "openai", "tfidf", "auto"
	EmbeddingModel string `toml:"embedding_model"` // e.g. "nomic-embed-text"
	Extractor      string `toml:"extractor"`       // "llm", "keyword", "auto"
	AnthropicKey   string `toml:"anthropic_key"`
	OpenAIKey      string `toml:"openai_key"`
}

// MaintenanceConfig schedules the serve daemon's retention and snapshot
// cycles. Intervals are in minutes; 0 disables a cycle.
type MaintenanceConfig struct {
	RetentionInterval int `toml:"retention_interval"`
	SnapshotInterval  int `toml:"snapshot_interval"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37788,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:       "claude-cli",
			Model:          "haiku",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "llama3.2",
			Embedder:       "auto",
			EmbeddingModel: "nomic-embed-text",
			Extractor:      "auto",
		},
		Maintenance: MaintenanceConfig{
			RetentionInterval: 10,
			SnapshotInterval:  5,
		},
	}
}

// DefaultPath returns the default config path: ~/.recall/config.toml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".recall", "config.toml")
}

// Load reads the TOML config at path layered over Default(). A missing
// file is fine: defaults plus environment apply. A .env file in the
// working directory is honored before environment lookups.
func Load(path string) (Config, error) {
	cfg := Default()

	// Optional everywhere; ignore a missing .env
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays environment variables on the loaded config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("RECALL_DB"); v != "" {
		cfg.Database.Path = v
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

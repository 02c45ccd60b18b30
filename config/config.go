package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr    string `mapstructure:"addr"`
			Enabled bool   `mapstructure:"enabled"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	RateLimit    RateLimitConfig    `mapstructure:"rateLimit"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding"`
	RAG          RAGConfig          `mapstructure:"rag"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// RateLimitConfig groups the per-entry-point admission policies.
type RateLimitConfig struct {
	SweepInterval time.Duration   `mapstructure:"sweepInterval"`
	RAG           RateLimitPolicy `mapstructure:"rag"`
	Chat          RateLimitPolicy `mapstructure:"chat"`
}

// RateLimitPolicy configures one entry point's admission window.
type RateLimitPolicy struct {
	MaxRequests int           `mapstructure:"maxRequests"`
	Window      time.Duration `mapstructure:"window"`
}

// EmbeddingConfig configures the vectorization client and its cache.
type EmbeddingConfig struct {
	Model         string        `mapstructure:"model"`
	Dimensions    int           `mapstructure:"dimensions"`
	MaxInputChars int           `mapstructure:"maxInputChars"`
	CacheTTL      time.Duration `mapstructure:"cacheTTL"`
	CacheMaxItems int           `mapstructure:"cacheMaxItems"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// RAGConfig configures the question answering pipeline.
type RAGConfig struct {
	TopK                int           `mapstructure:"topK"`
	MaxResults          int           `mapstructure:"maxResults"`
	SimilarityThreshold float64       `mapstructure:"similarityThreshold"`
	CacheTTL            time.Duration `mapstructure:"cacheTTL"`
	QueryTimeout        time.Duration `mapstructure:"queryTimeout"`
	MaxHistoryTurns     int           `mapstructure:"maxHistoryTurns"`
	MaxContextChars     int           `mapstructure:"maxContextChars"`
}

// OrchestratorConfig configures the multi-agent run.
type OrchestratorConfig struct {
	AgentTopK           int           `mapstructure:"agentTopK"`
	SimilarityThreshold float64       `mapstructure:"similarityThreshold"`
	RunTimeout          time.Duration `mapstructure:"runTimeout"`
	MaxPartners         int           `mapstructure:"maxPartners"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}

package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration settings
type Config struct {
	// Repository to analyze
	RepoPath string `yaml:"repo_path" mapstructure:"repo_path"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// History scanning limits
	History HistoryConfig `yaml:"history" mapstructure:"history"`

	// Feature weights for the conflict probability model
	Weights WeightsConfig `yaml:"weights" mapstructure:"weights"`

	// Probability and confidence thresholds
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`

	// Optional semantic similarity provider
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "sqlite", "postgres"
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
}

type HistoryConfig struct {
	// MaxCommits bounds history walks when learning patterns at startup
	MaxCommits int           `yaml:"max_commits" mapstructure:"max_commits"`
	GitTimeout time.Duration `yaml:"git_timeout" mapstructure:"git_timeout"`
	// GitRateLimit caps git subprocess spawns per second in batch paths
	GitRateLimit int `yaml:"git_rate_limit" mapstructure:"git_rate_limit"`
}

// WeightsConfig is the tunable weight distribution of the linear conflict
// model. The weights are empirically chosen, not derived; they must sum to
// 1.0 (see Normalized).
type WeightsConfig struct {
	Overlap       float64 `yaml:"overlap" mapstructure:"overlap"`
	AuthorHistory float64 `yaml:"author_history" mapstructure:"author_history"`
	FileHistory   float64 `yaml:"file_history" mapstructure:"file_history"`
	Complexity    float64 `yaml:"complexity" mapstructure:"complexity"`
	Temporal      float64 `yaml:"temporal" mapstructure:"temporal"`
	Semantic      float64 `yaml:"semantic" mapstructure:"semantic"`
}

// Sum returns the total weight mass.
func (w WeightsConfig) Sum() float64 {
	return w.Overlap + w.AuthorHistory + w.FileHistory + w.Complexity + w.Temporal + w.Semantic
}

// Normalized reports whether the weights sum to 1.0 within tolerance.
func (w WeightsConfig) Normalized() bool {
	return math.Abs(w.Sum()-1.0) < 1e-9
}

type ThresholdsConfig struct {
	// FilterCutoff is the engine-level emission threshold: files whose
	// probability is <= cutoff are dropped from PredictConflicts output.
	FilterCutoff float64 `yaml:"filter_cutoff" mapstructure:"filter_cutoff"`
	// HighRisk marks a file as high risk in the aggregate counts
	HighRisk float64 `yaml:"high_risk" mapstructure:"high_risk"`
	// MaxProbability caps conflict probability below 1.0
	MaxProbability float64 `yaml:"max_probability" mapstructure:"max_probability"`
	MinConfidence  float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	MaxConfidence  float64 `yaml:"max_confidence" mapstructure:"max_confidence"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "", "openai"
	OpenAIKey string `yaml:"openai_key" mapstructure:"openai_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	CachePath string `yaml:"cache_path" mapstructure:"cache_path"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		RepoPath: ".",
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".gitintel", "patterns.db"),
		},
		History: HistoryConfig{
			MaxCommits:   1000,
			GitTimeout:   30 * time.Second,
			GitRateLimit: 20,
		},
		Weights: WeightsConfig{
			Overlap:       0.25,
			AuthorHistory: 0.20,
			FileHistory:   0.20,
			Complexity:    0.15,
			Temporal:      0.10,
			Semantic:      0.10,
		},
		Thresholds: ThresholdsConfig{
			FilterCutoff:   0.30,
			HighRisk:       0.70,
			MaxProbability: 0.98,
			MinConfidence:  0.50,
			MaxConfidence:  0.98,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			CachePath: filepath.Join(homeDir, ".gitintel", "semantic.db"),
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("repo_path", cfg.RepoPath)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("history", cfg.History)
	v.SetDefault("weights", cfg.Weights)
	v.SetDefault("thresholds", cfg.Thresholds)
	v.SetDefault("embedding", cfg.Embedding)

	// Load from environment variables
	v.SetEnvPrefix("GITINTEL")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath(".gitintel")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".gitintel"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if !c.Weights.Normalized() {
		return fmt.Errorf("feature weights must sum to 1.0, got %.4f", c.Weights.Sum())
	}
	if c.Thresholds.MaxProbability <= 0 || c.Thresholds.MaxProbability >= 1.0 {
		return fmt.Errorf("max_probability must be in (0,1), got %.2f", c.Thresholds.MaxProbability)
	}
	if c.Thresholds.MinConfidence > c.Thresholds.MaxConfidence {
		return fmt.Errorf("min_confidence %.2f exceeds max_confidence %.2f",
			c.Thresholds.MinConfidence, c.Thresholds.MaxConfidence)
	}
	switch c.Storage.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.History.MaxCommits <= 0 {
		c.History.MaxCommits = 1000
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

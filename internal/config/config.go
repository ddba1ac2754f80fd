package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultMaxChars is the default character budget applied to document text.
	DefaultMaxChars = 3000

	// DefaultChunkSize is the default character count per text chunk for indexing.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default character overlap between adjacent chunks.
	DefaultChunkOverlap = 50

	// DefaultTopK is the default number of chunks returned by retrieval.
	DefaultTopK = 3
)

// Oracle and embedder providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Config holds all configuration for graphrag.
type Config struct {
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	QA       QAConfig       `mapstructure:"qa"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	API      APIConfig      `mapstructure:"api"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI      string        `mapstructure:"uri"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}", c.URI, c.Username, maskAPIKey(c.Password), c.Database)
}

// QdrantConfig holds Qdrant vector database connection settings.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	GRPCPort   int    `mapstructure:"grpc_port"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
	APIKey     string `mapstructure:"api_key"`
}

// OracleConfig holds language model settings for extraction, inference and
// query translation.
type OracleConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	BaseURL         string        `mapstructure:"base_url"`
}

// APIKey returns the key for the configured provider.
func (c OracleConfig) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// String returns a safe representation of OracleConfig with API keys masked.
func (c OracleConfig) String() string {
	return fmt.Sprintf("OracleConfig{Provider:%s, Model:%s, APIKey:%s}", c.Provider, c.Model, maskAPIKey(c.APIKey()))
}

// EmbedderConfig holds embedding service settings.
type EmbedderConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Dimension uint64        `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
	APIKey    string        `mapstructure:"api_key"`
}

// String returns a safe representation of EmbedderConfig with the API key masked.
func (c EmbedderConfig) String() string {
	return fmt.Sprintf("EmbedderConfig{Provider:%s, Model:%s, Dimension:%d, APIKey:%s}", c.Provider, c.Model, c.Dimension, maskAPIKey(c.APIKey))
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	MaxChars      int           `mapstructure:"max_chars"`
	ChunkSize     int           `mapstructure:"chunk_size"`
	ChunkOverlap  int           `mapstructure:"chunk_overlap"`
	Parallelism   int           `mapstructure:"parallelism"`
	PairTimeout   time.Duration `mapstructure:"pair_timeout"`
	FailurePolicy string        `mapstructure:"failure_policy"`
}

// QAConfig holds question-answering settings.
type QAConfig struct {
	AllowedKeywords []string      `mapstructure:"allowed_keywords"`
	TopK            int           `mapstructure:"top_k"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the default locations and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, or from the default locations when
// path is empty, then applies environment variables. A .env file in the
// working directory is loaded first; existing environment variables win.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.timeout", 30*time.Second)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.grpc_port", 6334)
	v.SetDefault("qdrant.collection", "graphrag_chunks")
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant.api_key", "")

	v.SetDefault("oracle.provider", ProviderAnthropic)
	v.SetDefault("oracle.model", "claude-haiku-4-5-20251001")
	v.SetDefault("oracle.max_tokens", 1024)
	v.SetDefault("oracle.timeout", 30*time.Second)
	v.SetDefault("oracle.base_url", "")

	v.SetDefault("embedder.provider", ProviderOllama)
	v.SetDefault("embedder.model", "nomic-embed-text")
	v.SetDefault("embedder.base_url", "http://localhost:11434")
	v.SetDefault("embedder.dimension", 768)
	v.SetDefault("embedder.timeout", 60*time.Second)

	v.SetDefault("ingest.max_chars", DefaultMaxChars)
	v.SetDefault("ingest.chunk_size", DefaultChunkSize)
	v.SetDefault("ingest.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("ingest.parallelism", 4)
	v.SetDefault("ingest.pair_timeout", 30*time.Second)
	v.SetDefault("ingest.failure_policy", "skip")

	v.SetDefault("qa.allowed_keywords", []string{"MATCH", "OPTIONAL", "WITH", "RETURN", "UNWIND", "CALL", "MERGE"})
	v.SetDefault("qa.top_k", DefaultTopK)
	v.SetDefault("qa.query_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".openclaw-graphrag"))
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("OPENCLAW_GRAPHRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map well-known provider env vars
	_ = v.BindEnv("oracle.anthropic_api_key", "OPENCLAW_GRAPHRAG_ORACLE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("oracle.openai_api_key", "OPENCLAW_GRAPHRAG_ORACLE_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("embedder.api_key", "OPENCLAW_GRAPHRAG_EMBEDDER_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("neo4j.uri", "OPENCLAW_GRAPHRAG_NEO4J_URI", "NEO4J_URI")
	_ = v.BindEnv("neo4j.username", "OPENCLAW_GRAPHRAG_NEO4J_USERNAME", "NEO4J_USERNAME")
	_ = v.BindEnv("neo4j.password", "OPENCLAW_GRAPHRAG_NEO4J_PASSWORD", "NEO4J_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK: use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant.host must not be empty")
	}
	if c.Qdrant.GRPCPort <= 0 || c.Qdrant.GRPCPort > 65535 {
		return fmt.Errorf("qdrant.grpc_port must be between 1 and 65535")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection must not be empty")
	}
	switch c.Oracle.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("oracle.provider must be %q or %q, got %q", ProviderAnthropic, ProviderOpenAI, c.Oracle.Provider)
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle.max_tokens must be greater than 0")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be greater than 0")
	}
	switch c.Embedder.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("embedder.provider must be %q or %q, got %q", ProviderOllama, ProviderOpenAI, c.Embedder.Provider)
	}
	if c.Embedder.Dimension == 0 {
		return fmt.Errorf("embedder.dimension must be greater than 0")
	}
	if c.Ingest.MaxChars <= 0 {
		return fmt.Errorf("ingest.max_chars must be greater than 0")
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be greater than 0")
	}
	if c.Ingest.ChunkOverlap < 0 {
		return fmt.Errorf("ingest.chunk_overlap must be >= 0")
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap (%d) must be less than ingest.chunk_size (%d)", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Ingest.Parallelism <= 0 {
		return fmt.Errorf("ingest.parallelism must be greater than 0")
	}
	if c.Ingest.PairTimeout <= 0 {
		return fmt.Errorf("ingest.pair_timeout must be greater than 0")
	}
	switch strings.ToLower(c.Ingest.FailurePolicy) {
	case "skip", "warn":
	default:
		return fmt.Errorf("ingest.failure_policy must be \"skip\" or \"warn\", got %q", c.Ingest.FailurePolicy)
	}
	if len(c.QA.AllowedKeywords) == 0 {
		return fmt.Errorf("qa.allowed_keywords must not be empty")
	}
	if c.QA.TopK <= 0 {
		return fmt.Errorf("qa.top_k must be greater than 0")
	}
	if c.QA.QueryTimeout <= 0 {
		return fmt.Errorf("qa.query_timeout must be greater than 0")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Package config layers ingestion settings from defaults, a YAML file and
// environment variables, the way the teacher's cobra CLI does for its own
// settings (viper + godotenv + yaml.v3).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all ingestion-service settings.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Neo4j   Neo4jConfig   `yaml:"neo4j"`
	Filter  FilterConfig  `yaml:"filter"`
	Parser  ParserConfig  `yaml:"parser"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Type        string `yaml:"type"` // "postgres" or "sqlite"
	PostgresDSN string `yaml:"postgres_dsn"`
	LocalPath   string `yaml:"local_path"`
}

type Neo4jConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type FilterConfig struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes"`
	ExtraExcludes    []string `yaml:"extra_excludes"`
}

type ParserConfig struct {
	EnableTreeSitterGo bool `yaml:"enable_tree_sitter_go"`
	MaxExcerptLines    int  `yaml:"max_excerpt_lines"`
	CrossFileRefs      bool `yaml:"cross_file_refs"`
}

type IngestConfig struct {
	Workers         int           `yaml:"workers"`
	CloneTimeout    time.Duration `yaml:"clone_timeout"`
	ParseTimeout    time.Duration `yaml:"parse_timeout"`
	StreamBatchSize int           `yaml:"stream_batch_size"`
	BulkBatchSize   int           `yaml:"bulk_batch_size"`
	CheckpointPath  string        `yaml:"checkpoint_path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
	OutputFile string `yaml:"output_file"`
}

// Default returns the baseline configuration applied before any file or
// environment overrides.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".kgctl", "local.db"),
		},
		Neo4j: Neo4jConfig{
			Enabled:  false,
			URI:      "bolt://localhost:7687",
			Database: "neo4j",
		},
		Filter: FilterConfig{
			MaxFileSizeBytes: 1 << 20, // 1MB
		},
		Parser: ParserConfig{
			EnableTreeSitterGo: false,
			MaxExcerptLines:    50,
			CrossFileRefs:      true,
		},
		Ingest: IngestConfig{
			Workers:         20,
			CloneTimeout:    300 * time.Second,
			ParseTimeout:    30 * time.Second,
			StreamBatchSize: 25,
			BulkBatchSize:   50,
			CheckpointPath:  filepath.Join(homeDir, ".kgctl", "checkpoints.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment variables STORAGE_TYPE, POSTGRES_DSN, LOCAL_DB_PATH,
// NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, INGEST_WORKERS and LOG_LEVEL,
// in that order of precedence.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("filter", cfg.Filter)
	v.SetDefault("parser", cfg.Parser)
	v.SetDefault("ingest", cfg.Ingest)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("KGCTL")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".kgctl")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".kgctl"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadEnvFiles() {
	envFiles := []string{".env.local", ".env", ".env.example"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err == nil {
				continue
			}
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".kgctl", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

func applyEnvOverrides(cfg *Config) {
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if p := os.Getenv("LOCAL_DB_PATH"); p != "" {
		cfg.Storage.LocalPath = expandPath(p)
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
		cfg.Neo4j.Enabled = true
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Neo4j.Password = pass
	}
	if workers := os.Getenv("INGEST_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Ingest.Workers = n
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes c to path as YAML via viper, creating parent directories.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("storage", c.Storage)
	v.Set("neo4j", c.Neo4j)
	v.Set("filter", c.Filter)
	v.Set("parser", c.Parser)
	v.Set("ingest", c.Ingest)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

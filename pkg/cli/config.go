package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/index"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	configPath string
	logLevel   string

	// Record store
	storage     string
	sqlitePath  string
	postgresDSN string
	fsProject   string
	fsDatabase  string

	// Summary index
	indexBackend string
	indexDir     string
	pgvectorDSN  string

	// Embedding provider
	embedder       string
	embeddingModel string
	geminiAPIKey   string
	openaiAPIKey   string
	embeddingDims  int64
	cacheEntries   int64

	// UseCase tuning
	maxSearchResults int64
	maxListResults   int64
	embedBatchSize   int64
}

// fileConfig mirrors the YAML configuration file. Flags and environment
// variables take precedence over file values.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
	Storage  struct {
		Backend     string `yaml:"backend"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
		Project     string `yaml:"firestore_project"`
		Database    string `yaml:"firestore_database"`
	} `yaml:"storage"`
	Index struct {
		Backend     string `yaml:"backend"`
		Dir         string `yaml:"dir"`
		PGVectorDSN string `yaml:"pgvector_dsn"`
	} `yaml:"index"`
	Embedder struct {
		Provider     string `yaml:"provider"`
		Model        string `yaml:"model"`
		GeminiAPIKey string `yaml:"gemini_api_key"`
		OpenAIAPIKey string `yaml:"openai_api_key"`
		Dimensions   int64  `yaml:"dimensions"`
		BatchSize    int64  `yaml:"batch_size"`
	} `yaml:"embedder"`
	Limits struct {
		MaxSearchResults int64 `yaml:"max_search_results"`
		MaxListResults   int64 `yaml:"max_list_results"`
	} `yaml:"limits"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML configuration file",
			Sources:     cli.EnvVars("KIOKU_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KIOKU_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "Record store backend (sqlite, postgres, firestore, memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("KIOKU_STORAGE"),
			Destination: &cfg.storage,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "Path to the SQLite database file",
			Value:       "kioku.db",
			Sources:     cli.EnvVars("KIOKU_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL DSN for the record store",
			Sources:     cli.EnvVars("KIOKU_POSTGRES_DSN"),
			Destination: &cfg.postgresDSN,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("KIOKU_FIRESTORE_PROJECT"),
			Destination: &cfg.fsProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("KIOKU_FIRESTORE_DATABASE"),
			Destination: &cfg.fsDatabase,
		},
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Summary index backend (chromem, pgvector)",
			Value:       "chromem",
			Sources:     cli.EnvVars("KIOKU_INDEX"),
			Destination: &cfg.indexBackend,
		},
		&cli.StringFlag{
			Name:        "index-dir",
			Usage:       "Directory for the embedded index (empty keeps it in memory)",
			Value:       "kioku-index",
			Sources:     cli.EnvVars("KIOKU_INDEX_DIR"),
			Destination: &cfg.indexDir,
		},
		&cli.StringFlag{
			Name:        "pgvector-dsn",
			Usage:       "PostgreSQL DSN for the pgvector index",
			Sources:     cli.EnvVars("KIOKU_PGVECTOR_DSN"),
			Destination: &cfg.pgvectorDSN,
		},
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding provider (gemini, openai, mock)",
			Value:       "gemini",
			Sources:     cli.EnvVars("KIOKU_EMBEDDER"),
			Destination: &cfg.embedder,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "API key for the Gemini embedding API",
			Sources:     cli.EnvVars("KIOKU_GEMINI_API_KEY", "GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "API key for the OpenAI embeddings API",
			Sources:     cli.EnvVars("KIOKU_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.IntFlag{
			Name:        "embedding-dims",
			Usage:       "Embedding dimensionality",
			Value:       768,
			Sources:     cli.EnvVars("KIOKU_EMBEDDING_DIMS"),
			Destination: &cfg.embeddingDims,
		},
		&cli.IntFlag{
			Name:        "cache-entries",
			Usage:       "Max cached query embeddings (0 disables the cache)",
			Value:       1024,
			Sources:     cli.EnvVars("KIOKU_CACHE_ENTRIES"),
			Destination: &cfg.cacheEntries,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Override the provider's default embedding model",
			Sources:     cli.EnvVars("KIOKU_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embed-batch-size",
			Usage:       "Batch size for re-embedding during reconcile",
			Value:       32,
			Sources:     cli.EnvVars("KIOKU_EMBED_BATCH_SIZE"),
			Destination: &cfg.embedBatchSize,
		},
		&cli.IntFlag{
			Name:        "max-search-results",
			Usage:       "Upper bound on search result count",
			Value:       20,
			Sources:     cli.EnvVars("KIOKU_MAX_SEARCH_RESULTS"),
			Destination: &cfg.maxSearchResults,
		},
		&cli.IntFlag{
			Name:        "max-list-results",
			Usage:       "Upper bound on list page size",
			Value:       100,
			Sources:     cli.EnvVars("KIOKU_MAX_LIST_RESULTS"),
			Destination: &cfg.maxListResults,
		},
	}
}

// load applies the YAML configuration file, if any. Values set explicitly by
// flag or environment variable are kept.
func (cfg *config) load(c *cli.Command) error {
	if cfg.configPath == "" {
		return nil
	}

	raw, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
	}

	apply := func(flag string, dst *string, v string) {
		if v != "" && !c.IsSet(flag) {
			*dst = v
		}
	}
	apply("log-level", &cfg.logLevel, file.LogLevel)
	apply("storage", &cfg.storage, file.Storage.Backend)
	apply("sqlite-path", &cfg.sqlitePath, file.Storage.SQLitePath)
	apply("postgres-dsn", &cfg.postgresDSN, file.Storage.PostgresDSN)
	apply("firestore-project", &cfg.fsProject, file.Storage.Project)
	apply("firestore-database", &cfg.fsDatabase, file.Storage.Database)
	apply("index", &cfg.indexBackend, file.Index.Backend)
	apply("index-dir", &cfg.indexDir, file.Index.Dir)
	apply("pgvector-dsn", &cfg.pgvectorDSN, file.Index.PGVectorDSN)
	apply("embedder", &cfg.embedder, file.Embedder.Provider)
	apply("embedding-model", &cfg.embeddingModel, file.Embedder.Model)
	apply("gemini-api-key", &cfg.geminiAPIKey, file.Embedder.GeminiAPIKey)
	apply("openai-api-key", &cfg.openaiAPIKey, file.Embedder.OpenAIAPIKey)

	applyInt := func(flag string, dst *int64, v int64) {
		if v > 0 && !c.IsSet(flag) {
			*dst = v
		}
	}
	applyInt("embedding-dims", &cfg.embeddingDims, file.Embedder.Dimensions)
	applyInt("embed-batch-size", &cfg.embedBatchSize, file.Embedder.BatchSize)
	applyInt("max-search-results", &cfg.maxSearchResults, file.Limits.MaxSearchResults)
	applyInt("max-list-results", &cfg.maxListResults, file.Limits.MaxListResults)
	return nil
}

// loggerContext attaches a logger at the configured level writing to w.
func (cfg *config) loggerContext(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(cfg.logLevel, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository creates the configured record store
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.storage {
	case "memory":
		return repository.NewMemory(), nil
	case "sqlite":
		if cfg.sqlitePath == "" {
			return nil, goerr.New("sqlite-path is required")
		}
		return repository.NewSQLite(cfg.sqlitePath)
	case "postgres":
		if cfg.postgresDSN == "" {
			return nil, goerr.New("postgres-dsn is required")
		}
		return repository.NewPostgres(ctx, cfg.postgresDSN)
	case "firestore":
		if cfg.fsProject == "" {
			return nil, goerr.New("firestore-project is required")
		}
		return repository.NewFirestore(ctx, cfg.fsProject, cfg.fsDatabase)
	default:
		return nil, goerr.New("unknown storage backend", goerr.V("storage", cfg.storage))
	}
}

// newIndex creates the configured summary index
func (cfg *config) newIndex(ctx context.Context) (index.Index, error) {
	switch cfg.indexBackend {
	case "chromem":
		return index.NewChromem(cfg.indexDir)
	case "pgvector":
		if cfg.pgvectorDSN == "" {
			return nil, goerr.New("pgvector-dsn is required")
		}
		return index.NewPGVector(ctx, cfg.pgvectorDSN, int(cfg.embeddingDims))
	default:
		return nil, goerr.New("unknown index backend", goerr.V("index", cfg.indexBackend))
	}
}

// newEmbedder creates the configured embedding provider, wrapped in a cache
// when cache-entries is positive
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	var embedder adapter.Embedder
	switch cfg.embedder {
	case "gemini":
		if cfg.geminiAPIKey == "" {
			return nil, goerr.New("gemini-api-key is required")
		}
		opts := []adapter.GeminiOption{adapter.WithGeminiDimensions(int(cfg.embeddingDims))}
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithGeminiModel(cfg.embeddingModel))
		}
		g, err := adapter.NewGemini(ctx, cfg.geminiAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		embedder = g
	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		opts := []adapter.OpenAIOption{adapter.WithOpenAIDimensions(int(cfg.embeddingDims))}
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithOpenAIModel(cfg.embeddingModel))
		}
		embedder = adapter.NewOpenAI(cfg.openaiAPIKey, opts...)
	case "mock":
		embedder = adapter.NewMockEmbedder()
	default:
		return nil, goerr.New("unknown embedding provider", goerr.V("embedder", cfg.embedder))
	}

	if cfg.cacheEntries > 0 {
		cached, err := adapter.NewCachedEmbedder(embedder, cfg.cacheEntries)
		if err != nil {
			return nil, err
		}
		embedder = cached
	}
	return embedder, nil
}

// newUseCase wires the full stack. The returned closer releases both the
// record store and the index.
func (cfg *config) newUseCase(ctx context.Context) (*memory.UseCase, func(), error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	idx, err := cfg.newIndex(ctx)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}

	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		_ = repo.Close()
		_ = idx.Close()
		return nil, nil, err
	}

	closer := func() {
		if err := idx.Close(); err != nil {
			logging.Default().Warn("failed to close index", "error", err)
		}
		if err := repo.Close(); err != nil {
			logging.Default().Warn("failed to close repository", "error", err)
		}
	}
	uc := memory.New(repo, idx, embedder,
		memory.WithMaxSearchResults(int(cfg.maxSearchResults)),
		memory.WithMaxListResults(int(cfg.maxListResults)),
		memory.WithEmbedBatchSize(int(cfg.embedBatchSize)),
	)
	return uc, closer, nil
}

package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/toktik-backend/internal/platform/envutil"
	"github.com/yungbote/toktik-backend/internal/platform/gcp"
)

type LogSettings struct {
	Mode             string `yaml:"mode"`
	Level            string `yaml:"level"`
	RedactionEnabled bool   `yaml:"redaction_enabled"`
	HashSalt         string `yaml:"hash_salt"`
}

type GCPSettings struct {
	CredentialsFile     string `yaml:"credentials_file"`
	CredentialsJSON     string `yaml:"credentials_json"`
	ObjectStorageMode   string `yaml:"object_storage_mode"`
	StorageEmulatorHost string `yaml:"storage_emulator_host"`
	// InspectObjects enables Cloud Storage lookups that add size and content
	// type to ingested metadata.
	InspectObjects bool `yaml:"inspect_objects"`
}

type AnalysisSettings struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxPolls      int           `yaml:"max_polls"`
	MinConfidence float64       `yaml:"min_confidence"`
	SubmitRate    float64       `yaml:"submit_rate"`
}

type VectorSettings struct {
	Provider string `yaml:"provider"`
	// ProviderSource records whether Provider was set explicitly or derived
	// from the object storage mode.
	ProviderSource string `yaml:"-"`

	PineconeAPIKey     string `yaml:"pinecone_api_key"`
	PineconeAPIVersion string `yaml:"pinecone_api_version"`
	PineconeBaseURL    string `yaml:"pinecone_base_url"`
	PineconeIndexName  string `yaml:"pinecone_index_name"`
	PineconeIndexHost  string `yaml:"pinecone_index_host"`
	PineconeNamespace  string `yaml:"pinecone_namespace"`

	QdrantURL        string `yaml:"qdrant_url"`
	QdrantCollection string `yaml:"qdrant_collection"`
	QdrantNamespace  string `yaml:"qdrant_namespace"`

	Timeout time.Duration `yaml:"timeout"`
	// BreakerFailures consecutive failures open the index breaker for
	// BreakerTimeout. Zero disables it.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

type EmbeddingSettings struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Dim      int    `yaml:"dim"`
	Warmup   bool   `yaml:"warmup"`

	HFBaseURL  string `yaml:"hf_base_url"`
	HFAPIToken string `yaml:"hf_api_token"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	// OpenAIModel is separate from Model, which names a HuggingFace repo.
	OpenAIModel string `yaml:"openai_model"`

	Timeout time.Duration `yaml:"timeout"`
}

type RedisSettings struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type RecommendSettings struct {
	PageSize         int `yaml:"page_size"`
	BufferMultiplier int `yaml:"buffer_multiplier"`
}

type OtelSettings struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	Port            string        `yaml:"port"`
	ServiceName     string        `yaml:"service_name"`
	Environment     string        `yaml:"environment"`
	Version         string        `yaml:"version"`
	IngestTimeout   time.Duration `yaml:"ingest_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_allowed_origins"`

	Log       LogSettings       `yaml:"log"`
	GCP       GCPSettings       `yaml:"gcp"`
	Analysis  AnalysisSettings  `yaml:"analysis"`
	Vector    VectorSettings    `yaml:"vector"`
	Embedding EmbeddingSettings `yaml:"embedding"`
	Redis     RedisSettings     `yaml:"redis"`
	Recommend RecommendSettings `yaml:"recommend"`
	Otel      OtelSettings      `yaml:"otel"`
}

const (
	VectorProviderPinecone = "pinecone"
	VectorProviderQdrant   = "qdrant"

	EmbeddingProviderHF     = "hf"
	EmbeddingProviderOpenAI = "openai"

	providerSourceExplicit = "explicit"
	providerSourceMode     = "object_storage_mode_default"
)

func defaultConfig() Config {
	return Config{
		Port:            "8080",
		ServiceName:     "toktik-backend",
		Environment:     "development",
		IngestTimeout:   3 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		Log: LogSettings{
			Mode:             "development",
			RedactionEnabled: true,
		},
		Analysis: AnalysisSettings{
			PollInterval:  5 * time.Second,
			MaxPolls:      20,
			MinConfidence: 0.5,
			SubmitRate:    2,
		},
		Vector: VectorSettings{
			PineconeIndexName: "toktik",
			QdrantURL:         "http://localhost:6333",
			QdrantCollection:  "toktik",
			Timeout:           30 * time.Second,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Embedding: EmbeddingSettings{
			Provider: EmbeddingProviderHF,
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
			Dim:      384,
			Warmup:   true,
			Timeout:  60 * time.Second,
		},
		Redis: RedisSettings{TTL: 24 * time.Hour},
		Recommend: RecommendSettings{
			PageSize:         5,
			BufferMultiplier: 3,
		},
		Otel: OtelSettings{SampleRatio: 1},
	}
}

// LoadConfig layers defaults, the optional YAML file named by
// TOKTIK_CONFIG_PATH and the environment, in that order.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path, ok := envutil.Lookup("TOKTIK_CONFIG_PATH"); ok {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := finalizeConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)
	cfg.IngestTimeout = envutil.Duration("INGEST_TIMEOUT", cfg.IngestTimeout)
	cfg.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.CORSOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)

	cfg.Log.Mode = envutil.String("LOG_MODE", cfg.Log.Mode)
	cfg.Log.Level = envutil.String("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.RedactionEnabled = envutil.Bool("LOG_REDACTION_ENABLED", cfg.Log.RedactionEnabled)
	cfg.Log.HashSalt = envutil.String("LOG_HASH_SALT", cfg.Log.HashSalt)

	cfg.GCP.CredentialsFile = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCP.CredentialsFile)
	cfg.GCP.CredentialsJSON = envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", cfg.GCP.CredentialsJSON)
	cfg.GCP.ObjectStorageMode = envutil.String("OBJECT_STORAGE_MODE", cfg.GCP.ObjectStorageMode)
	cfg.GCP.StorageEmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.GCP.StorageEmulatorHost)
	cfg.GCP.InspectObjects = envutil.Bool("OBJECT_INSPECTION_ENABLED", cfg.GCP.InspectObjects)

	cfg.Analysis.PollInterval = envutil.Duration("ANALYSIS_POLL_INTERVAL", cfg.Analysis.PollInterval)
	cfg.Analysis.MaxPolls = envutil.Int("ANALYSIS_MAX_POLLS", cfg.Analysis.MaxPolls)
	cfg.Analysis.MinConfidence = envutil.Float("ANALYSIS_MIN_CONFIDENCE", cfg.Analysis.MinConfidence)
	cfg.Analysis.SubmitRate = envutil.Float("ANALYSIS_SUBMIT_RATE", cfg.Analysis.SubmitRate)

	cfg.Vector.Provider = envutil.String("VECTOR_PROVIDER", cfg.Vector.Provider)
	cfg.Vector.PineconeAPIKey = envutil.String("PINECONE_API_KEY", cfg.Vector.PineconeAPIKey)
	cfg.Vector.PineconeAPIVersion = envutil.String("PINECONE_API_VERSION", cfg.Vector.PineconeAPIVersion)
	cfg.Vector.PineconeBaseURL = envutil.String("PINECONE_BASE_URL", cfg.Vector.PineconeBaseURL)
	cfg.Vector.PineconeIndexName = envutil.String("PINECONE_INDEX_NAME", cfg.Vector.PineconeIndexName)
	cfg.Vector.PineconeIndexHost = envutil.String("PINECONE_INDEX_HOST", cfg.Vector.PineconeIndexHost)
	cfg.Vector.PineconeNamespace = envutil.String("PINECONE_NAMESPACE", cfg.Vector.PineconeNamespace)
	cfg.Vector.QdrantURL = envutil.String("QDRANT_URL", cfg.Vector.QdrantURL)
	cfg.Vector.QdrantCollection = envutil.String("QDRANT_COLLECTION", cfg.Vector.QdrantCollection)
	cfg.Vector.QdrantNamespace = envutil.String("QDRANT_NAMESPACE", cfg.Vector.QdrantNamespace)
	cfg.Vector.BreakerFailures = envutil.Int("VECTOR_BREAKER_FAILURES", cfg.Vector.BreakerFailures)
	cfg.Vector.BreakerTimeout = envutil.Duration("VECTOR_BREAKER_TIMEOUT", cfg.Vector.BreakerTimeout)

	cfg.Embedding.Provider = envutil.String("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = envutil.String("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dim = envutil.Int("EMBEDDING_DIM", cfg.Embedding.Dim)
	cfg.Embedding.Warmup = envutil.Bool("EMBEDDING_WARMUP", cfg.Embedding.Warmup)
	cfg.Embedding.HFBaseURL = envutil.String("HF_BASE_URL", cfg.Embedding.HFBaseURL)
	cfg.Embedding.HFAPIToken = envutil.String("HF_API_TOKEN", cfg.Embedding.HFAPIToken)
	cfg.Embedding.OpenAIAPIKey = envutil.String("OPENAI_API_KEY", cfg.Embedding.OpenAIAPIKey)
	cfg.Embedding.OpenAIBaseURL = envutil.String("OPENAI_BASE_URL", cfg.Embedding.OpenAIBaseURL)
	cfg.Embedding.OpenAIModel = envutil.String("OPENAI_EMBEDDING_MODEL", cfg.Embedding.OpenAIModel)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTL = envutil.Duration("PREFERENCE_CACHE_TTL", cfg.Redis.TTL)

	cfg.Recommend.PageSize = envutil.Int("RECOMMEND_PAGE_SIZE", cfg.Recommend.PageSize)
	cfg.Recommend.BufferMultiplier = envutil.Int("RECOMMEND_BUFFER_MULTIPLIER", cfg.Recommend.BufferMultiplier)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)
}

// finalizeConfig normalizes enums and derives the vector provider from the
// object storage mode when none was chosen.
func finalizeConfig(cfg *Config) error {
	mode, err := gcp.ResolveStorageMode(cfg.GCP.ObjectStorageMode, cfg.GCP.StorageEmulatorHost)
	if err != nil {
		return err
	}
	cfg.GCP.ObjectStorageMode = string(mode)

	provider := strings.ToLower(strings.TrimSpace(cfg.Vector.Provider))
	if provider == "" {
		provider = vectorProviderForMode(mode)
		cfg.Vector.ProviderSource = providerSourceMode
	} else {
		cfg.Vector.ProviderSource = providerSourceExplicit
	}
	cfg.Vector.Provider = provider

	cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider))
	switch cfg.Embedding.Provider {
	case EmbeddingProviderHF, EmbeddingProviderOpenAI:
	default:
		return fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}

	var errs []error
	if cfg.Embedding.Dim <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", cfg.Embedding.Dim))
	}
	if cfg.Analysis.MaxPolls <= 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MAX_POLLS must be positive, got %d", cfg.Analysis.MaxPolls))
	}
	if cfg.Analysis.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_POLL_INTERVAL must not be negative"))
	}
	if cfg.Recommend.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("RECOMMEND_PAGE_SIZE must be positive, got %d", cfg.Recommend.PageSize))
	}
	if cfg.Recommend.BufferMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("RECOMMEND_BUFFER_MULTIPLIER must be positive, got %d", cfg.Recommend.BufferMultiplier))
	}
	return errors.Join(errs...)
}

func vectorProviderForMode(mode gcp.ObjectStorageMode) string {
	if mode == gcp.ObjectStorageModeGCSEmulator {
		return VectorProviderQdrant
	}
	return VectorProviderPinecone
}

func (c Config) Address() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

func (c Config) StorageConfig() gcp.StorageConfig {
	return gcp.StorageConfig{
		Mode:         gcp.ObjectStorageMode(c.GCP.ObjectStorageMode),
		EmulatorHost: c.GCP.StorageEmulatorHost,
		Credentials:  c.credentials(),
	}
}

func (c Config) credentials() gcp.Credentials {
	return gcp.Credentials{JSON: c.GCP.CredentialsJSON, File: c.GCP.CredentialsFile}
}

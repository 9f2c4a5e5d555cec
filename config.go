package krrs

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Retriever providers.
const (
	ProviderBleveLocal = "bleve-local"
)

// Defaults for loop guards and retrieval.
const (
	// DefaultRetrieveK is the number of documents fetched per
	// retrieve_documents call.
	DefaultRetrieveK = 1

	// DefaultMaxCritiquePasses bounds the critique loop. After this many
	// passes the machine forces Responding with the best answer so far.
	DefaultMaxCritiquePasses = 3

	// DefaultMaxToolRounds bounds specialist/tooling round-trips within
	// one invocation; when exceeded the machine forces Critiquing.
	DefaultMaxToolRounds = 8
)

// Config holds everything an invocation needs. It is passed explicitly at
// orchestrator construction; there are no process-wide mutable defaults.
type Config struct {
	// UserID is the tenant id. Every indexed document is stamped with it
	// and every retrieval filters on it. Required.
	UserID string `yaml:"user_id"`

	// RetrieverProvider selects the vector-store backend.
	RetrieverProvider string `yaml:"retriever_provider"`

	// IndexPath is the on-disk location of the local index.
	IndexPath string `yaml:"index_path"`

	// EmbeddingModel identifies the text encoder. The bleve-local
	// provider is term-based and ignores it; the field stays on the
	// configuration surface for providers that need one.
	EmbeddingModel string `yaml:"embedding_model"`

	// RetrieveK is the result count per retrieval. Defaults to 1.
	RetrieveK int `yaml:"retrieve_k"`

	// SearchKwargs are provider-specific search parameters.
	SearchKwargs map[string]any `yaml:"search_kwargs"`

	// EnableWebSearch allows the web_search capability; when off, a
	// failed retrieval does not suggest searching the web.
	EnableWebSearch bool `yaml:"enable_web_search"`

	// SearchProvider selects the web-search backend
	// (tavily, brave, duckduckgo).
	SearchProvider string `yaml:"search_provider"`

	// ResponseModel is the model id used by specialists and critique.
	ResponseModel string `yaml:"response_model"`

	// QueryModel is the (typically cheaper) model id used for
	// classification.
	QueryModel string `yaml:"query_model"`

	// MaxCritiquePasses and MaxToolRounds bound the loop; zero means the
	// default.
	MaxCritiquePasses int `yaml:"max_critique_passes"`
	MaxToolRounds     int `yaml:"max_tool_rounds"`
}

// DefaultConfig returns a Config populated from the environment.
func DefaultConfig() Config {
	cfg := Config{
		UserID:            os.Getenv("USER_ID"),
		RetrieverProvider: ProviderBleveLocal,
		IndexPath:         DefaultIndexPath(),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),
		RetrieveK:         DefaultRetrieveK,
		SearchProvider:    os.Getenv("SEARCH_PROVIDER"),
		ResponseModel:     os.Getenv("RESPONSE_MODEL"),
		QueryModel:        os.Getenv("QUERY_MODEL"),
		MaxCritiquePasses: DefaultMaxCritiquePasses,
		MaxToolRounds:     DefaultMaxToolRounds,
	}
	if v := os.Getenv("KRRS_RETRIEVER_PROVIDER"); v != "" {
		cfg.RetrieverProvider = v
	}
	if v := os.Getenv("RETRIEVE_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.RetrieveK = k
		}
	}
	if v := os.Getenv("ENABLE_WEB_SEARCH"); v != "" {
		cfg.EnableWebSearch, _ = strconv.ParseBool(v)
	}
	return cfg
}

// LoadConfig reads a YAML config file over the environment defaults.
// A missing file is not an error; the environment defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration before any state-machine step runs.
// Failures surface as hard errors before any user-facing output is produced.
func (c *Config) Validate() error {
	if c.UserID == "" || c.UserID == "default_user" {
		return ErrMissingUserID
	}
	switch c.RetrieverProvider {
	case "", ProviderBleveLocal:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedProvider, c.RetrieverProvider)
	}
	return nil
}

// critiquePasses returns the effective critique guard.
func (c *Config) critiquePasses() int {
	if c.MaxCritiquePasses > 0 {
		return c.MaxCritiquePasses
	}
	return DefaultMaxCritiquePasses
}

// toolRounds returns the effective tool-round guard.
func (c *Config) toolRounds() int {
	if c.MaxToolRounds > 0 {
		return c.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

// retrieveK returns the effective per-call retrieval count.
func (c *Config) retrieveK() int {
	if c.RetrieveK > 0 {
		return c.RetrieveK
	}
	return DefaultRetrieveK
}

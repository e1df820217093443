package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConfig marks configuration problems that must stop the process before any stage runs
var ErrConfig = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Feedback   FeedbackConfig   `yaml:"feedback" mapstructure:"feedback"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Sources    []Source         `yaml:"sources" mapstructure:"sources"`
}

// LLMConfig configures the text-generation backend
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`     // anthropic, openai, groq, ollama
	Model       string  `yaml:"model,omitempty" mapstructure:"model"` // empty selects the provider default
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// FetchConfig configures feed retrieval
type FetchConfig struct {
	Timeout          int    `yaml:"timeout" mapstructure:"timeout"` // seconds, per feed
	ItemsPerFeed     int    `yaml:"items_per_feed" mapstructure:"items_per_feed"`
	MinTitleLength   int    `yaml:"min_title_length" mapstructure:"min_title_length"`
	MaxBodyLength    int    `yaml:"max_body_length" mapstructure:"max_body_length"`
	InterSourceDelay int    `yaml:"inter_source_delay_ms" mapstructure:"inter_source_delay_ms"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes         int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots    bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// PipelineConfig configures one generation run
type PipelineConfig struct {
	MaxArticles     int    `yaml:"max_articles" mapstructure:"max_articles"`
	MaxClaims       int    `yaml:"max_claims" mapstructure:"max_claims"`
	FactsPerArticle int    `yaml:"facts_per_article" mapstructure:"facts_per_article"`
	Pacing          int    `yaml:"pacing_ms" mapstructure:"pacing_ms"` // between generation calls
	AutoPublish     bool   `yaml:"auto_publish" mapstructure:"auto_publish"`
	PromptFile      string `yaml:"prompt_file,omitempty" mapstructure:"prompt_file"`
	RunTimeout      int    `yaml:"run_timeout" mapstructure:"run_timeout"` // seconds, 0 = unbounded
}

// ValidationConfig holds the candidate acceptance thresholds
type ValidationConfig struct {
	MinClaimLength  int      `yaml:"min_claim_length" mapstructure:"min_claim_length"`
	BannedPhrases   []string `yaml:"banned_phrases" mapstructure:"banned_phrases"`
	CategoryPhrases []string `yaml:"category_phrases" mapstructure:"category_phrases"`
}

// FeedbackConfig configures the reported-claim guidance
type FeedbackConfig struct {
	Limit          int  `yaml:"limit" mapstructure:"limit"`
	MinReportCount int  `yaml:"min_report_count" mapstructure:"min_report_count"`
	Analyze        bool `yaml:"analyze" mapstructure:"analyze"` // ask the LLM to summarize patterns
	AnalyzeLimit   int  `yaml:"analyze_limit" mapstructure:"analyze_limit"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// CacheConfig configures the generation response cache
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir,omitempty" mapstructure:"dir"`
	TTL     int    `yaml:"ttl" mapstructure:"ttl"` // hours
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr       string `yaml:"addr" mapstructure:"addr"`
	CronSecret string `yaml:"cron_secret,omitempty" mapstructure:"cron_secret"`
}

// ScheduleConfig configures the in-process daily run
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Spec    string `yaml:"spec" mapstructure:"spec"` // cron spec with seconds field
}

// LogConfig configures structured logging
type LogConfig struct {
	Mode  string `yaml:"mode" mapstructure:"mode"` // development, production
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Timeout:     60,
			MaxTokens:   1000,
			Temperature: 0.7,
		},
		Fetch: FetchConfig{
			Timeout:          5,
			ItemsPerFeed:     3,
			MinTitleLength:   15,
			MaxBodyLength:    1000,
			InterSourceDelay: 500,
			UserAgent:        "RealityCheck/0.1 (+https://github.com/ppiankov/realitycheck)",
			MaxBytes:         5 * 1024 * 1024,
		},
		Pipeline: PipelineConfig{
			MaxArticles:     15,
			MaxClaims:       20,
			FactsPerArticle: 1,
			Pacing:          1000,
			AutoPublish:     true,
		},
		Validation: ValidationConfig{
			MinClaimLength:  20,
			BannedPhrases:   DefaultBannedPhrases(),
			CategoryPhrases: DefaultCategoryPhrases(),
		},
		Feedback: FeedbackConfig{
			Limit:          5,
			MinReportCount: 1,
			AnalyzeLimit:   20,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "realitycheck.db",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Schedule: ScheduleConfig{
			Spec: "0 0 6 * * *",
		},
		Log: LogConfig{
			Mode:  "production",
			Level: "info",
		},
		Sources: DefaultSources(),
	}
}

// DefaultBannedPhrases lists meta-commentary that leaks how a false claim was built
func DefaultBannedPhrases() []string {
	return []string{
		"the key part",
		"key detail",
		"the false claim",
		"the true claim",
		"i changed",
		"was changed",
		"meaningful change",
		"plausible but wrong",
		"opposite outcome",
		"this claim is false",
		"this claim is true",
	}
}

// DefaultCategoryPhrases lists feed-category text that is not a news statement
func DefaultCategoryPhrases() []string {
	return []string{"topics:", "breaking news", "reports on"}
}

// FetchTimeout returns the per-feed timeout, 5s when unset
func (c FetchConfig) FetchTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// Delay returns the pause between consecutive sources
func (c FetchConfig) Delay() time.Duration {
	return time.Duration(c.InterSourceDelay) * time.Millisecond
}

// PacingInterval returns the minimum spacing between generation calls
func (c PipelineConfig) PacingInterval() time.Duration {
	return time.Duration(c.Pacing) * time.Millisecond
}

// Validate checks the configuration for problems that make a run impossible
func (c Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic", "claude", "openai", "groq":
		if c.LLM.APIKey == "" {
			problems = append(problems, fmt.Sprintf("llm.api_key is required for provider %q", c.LLM.Provider))
		}
	case "ollama":
	case "":
		problems = append(problems, "llm.provider is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown llm.provider %q", c.LLM.Provider))
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store.driver %q (supported: postgres, sqlite)", c.Store.Driver))
	}

	if len(c.Sources) == 0 {
		problems = append(problems, "at least one source is required")
	}
	for i, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			problems = append(problems, fmt.Sprintf("sources[%d] needs both name and url", i))
		}
	}

	if c.Pipeline.MaxArticles < 0 || c.Pipeline.MaxClaims < 0 || c.Pipeline.FactsPerArticle < 0 {
		problems = append(problems, "pipeline caps must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

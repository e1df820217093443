package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/realitycheck/internal/model"
)

const version = "realitycheck v0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "realitycheck",
	Short: "Reality Check - news-literacy claim generator",
	Long: `Reality Check turns the day's headlines into true/false claim pairs for a
news-literacy game.

A run fetches RSS feeds, asks a language model for the headline facts,
rewrites each fact into one accurate and one subtly altered claim, filters
the pairs through local quality rules and stores the survivors. Claims that
players report steer the next run away from the same mistakes.

The generator does not fact-check. A true claim is only as true as its feed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.realitycheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".realitycheck"))
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureEnv maps REALITYCHECK_PIPELINE_MAX_CLAIMS onto pipeline.max_claims and so on
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("REALITYCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)
}

// optionalKeys are omitted from the default YAML, so AutomaticEnv would not see them
var optionalKeys = []string{
	"llm.model", "llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy",
	"store.dsn", "cache.dir", "server.cron_secret", "pipeline.prompt_file",
}

// registerDefaults makes every config key known to viper so env vars can override it
func registerDefaults(v *viper.Viper) {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	for key, value := range flatten("", tree) {
		v.SetDefault(key, value)
	}
	for _, key := range optionalKeys {
		_ = v.BindEnv(key)
	}
}

func flatten(prefix string, tree map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// loadConfig merges defaults, config file and environment. Commands that
// generate claims call Validate on the result; store-only commands do not.
func loadConfig() (model.Config, error) {
	cfg, err := decodeConfig(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// decodeConfig starts from a zero Config: the defaults are already registered
// in v, and decoding over non-empty slices would keep stale default entries.
func decodeConfig(v *viper.Viper) (model.Config, error) {
	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	applyEnvCredentials(&cfg)
	return cfg, nil
}

// overrideProvider switches backends. Model, key and base URL belong to the
// previous provider, so they are dropped and credentials re-read from the environment.
func overrideProvider(cfg *model.Config, provider string) {
	cfg.LLM.Provider = provider
	cfg.LLM.Model = ""
	cfg.LLM.APIKey = ""
	cfg.LLM.BaseURL = ""
	applyEnvCredentials(cfg)
}

// applyEnvCredentials fills secrets from the conventional provider variables
func applyEnvCredentials(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" && strings.EqualFold(cfg.Store.Driver, "postgres") {
		cfg.Store.DSN = dsn
	}
}

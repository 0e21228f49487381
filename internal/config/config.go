// Package config loads and validates the application configuration from a
// JSON file. Configuration errors are fatal: the pipeline refuses to start
// on a missing file, malformed JSON or absent required keys.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	PDFInputPath       string `mapstructure:"pdf_input_path"`
	ParametersJSONPath string `mapstructure:"parameters_json_path"`
	OutputDirectory    string `mapstructure:"output_directory"`
	LogFilePath        string `mapstructure:"log_file_path"`
	LLMModelName       string `mapstructure:"llm_model_name"`

	MaxPagesPerPrompt int `mapstructure:"max_pages_per_prompt"`
	PageOverlapChars  int `mapstructure:"page_overlap_chars"`
	MaxTokensPerPage  int `mapstructure:"max_tokens_per_page"`
	RetryAttempts     int `mapstructure:"retry_attempts"`
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`

	KeywordsConfigPath string `mapstructure:"keywords_config_path"`
	ResultsDBPath      string `mapstructure:"results_db_path"`
	LogLevel           string `mapstructure:"log_level"`
}

// requiredKeys must all be present in the configuration file.
var requiredKeys = []string{
	"pdf_input_path",
	"parameters_json_path",
	"output_directory",
	"log_file_path",
	"llm_model_name",
}

// Load reads the JSON configuration file at path and applies defaults for
// the optional tuning keys.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("max_pages_per_prompt", 3)
	v.SetDefault("page_overlap_chars", 500)
	v.SetDefault("max_tokens_per_page", 4000)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("keywords_config_path", "config/keywords.json")
	v.SetDefault("results_db_path", "")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if !v.IsSet(key) || v.GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration keys: %v", missing)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks that the configured input files exist and the numeric
// tuning keys are sane.
func (c *Config) validate() error {
	for _, p := range []struct{ key, path string }{
		{"pdf_input_path", c.PDFInputPath},
		{"parameters_json_path", c.ParametersJSONPath},
	} {
		if _, err := os.Stat(p.path); err != nil {
			return fmt.Errorf("%s: file not found: %s", p.key, p.path)
		}
	}
	if c.MaxPagesPerPrompt <= 0 {
		return fmt.Errorf("max_pages_per_prompt must be positive, got %d", c.MaxPagesPerPrompt)
	}
	if c.MaxTokensPerPage <= 0 {
		return fmt.Errorf("max_tokens_per_page must be positive, got %d", c.MaxTokensPerPage)
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry_attempts must be positive, got %d", c.RetryAttempts)
	}
	return nil
}

// APIKey returns the extraction API key from the environment.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return "", fmt.Errorf("required environment variable not set: OPENAI_API_KEY")
	}
	return key, nil
}

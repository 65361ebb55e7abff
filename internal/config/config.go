// Package config loads the core's runtime configuration: a flat Config
// struct populated from environment variables, an optional .env file (via
// the sibling dotenv.go), and an optional config.yaml — all three layered
// through github.com/spf13/viper. Reference values are in SPEC_FULL.md §6.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "ISIPYTHON"

// Config holds every tunable the core needs to run standalone.
type Config struct {
	InterpreterCmd []string `mapstructure:"interpreter_cmd"`
	TempDir        string   `mapstructure:"temp_dir"`

	IdleBudget        time.Duration `mapstructure:"idle_budget"`
	GradeCaseTimeout  time.Duration `mapstructure:"grade_case_timeout"`
	BufferCapacity    int           `mapstructure:"buffer_capacity"`
	CourtesySleep     time.Duration `mapstructure:"courtesy_sleep"`
	GraderConcurrency int           `mapstructure:"grader_concurrency"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`

	TestCasesFile string `mapstructure:"test_cases_file"`

	HTTPPort int    `mapstructure:"http_port"`
	LogDir   string `mapstructure:"log_dir"`
}

func withDefaults(v *viper.Viper) {
	v.SetDefault("interpreter_cmd", []string{"python3"})
	v.SetDefault("temp_dir", "")
	v.SetDefault("idle_budget", 10*time.Second)
	v.SetDefault("grade_case_timeout", 10*time.Second)
	v.SetDefault("buffer_capacity", 100)
	v.SetDefault("courtesy_sleep", 500*time.Millisecond)
	v.SetDefault("grader_concurrency", 1)
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("test_cases_file", "")
	v.SetDefault("http_port", 8080)
	v.SetDefault("log_dir", "logs")
}

// Load reads configuration from (in ascending priority) config.yaml at
// configPath (if non-empty and present), a .env file (via LoadDotEnv, which
// does not override already-set process environment variables unless
// DOTENV_OVERRIDE=true), and
// ISIPYTHON_-prefixed environment variables. A missing configPath is not an
// error: env vars and defaults alone are a valid configuration.
func Load(configPath string) (Config, error) {
	if err := LoadDotEnv(""); err != nil {
		return Config{}, err
	}

	v := viper.New()
	withDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

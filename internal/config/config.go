// Package config loads optiscreen configuration from YAML files, a .env file
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "OPTISCREEN"

// Config represents the complete application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	RapidAPI RapidAPIConfig `mapstructure:"rapidapi" yaml:"rapidapi"`
	Treasury TreasuryConfig `mapstructure:"treasury" yaml:"treasury"`
	Cboe     CboeConfig     `mapstructure:"cboe"     yaml:"cboe"`
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Fetch    FetchConfig    `mapstructure:"fetch"    yaml:"fetch"`
	Agent    AgentConfig    `mapstructure:"agent"    yaml:"agent"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path    string `mapstructure:"path"    yaml:"path"`
	Profile string `mapstructure:"profile" yaml:"profile"` // "standard" or "readonly"
}

// APIConfig holds HTTP API server settings. BaseURL is where the commands
// reach this service's own REST API.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	BaseURL     string   `mapstructure:"base_url"     yaml:"base_url"`
}

// RapidAPIConfig holds Seeking Alpha (via RapidAPI) settings.
type RapidAPIConfig struct {
	Key       string  `mapstructure:"key"        yaml:"key"`
	Host      string  `mapstructure:"host"       yaml:"host"`
	BaseURL   string  `mapstructure:"base_url"   yaml:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
	Burst     int     `mapstructure:"burst"      yaml:"burst"`
}

// TreasuryConfig holds the fiscal-data API endpoint.
type TreasuryConfig struct {
	BaseURL  string `mapstructure:"base_url"  yaml:"base_url"`
	CacheTTL int    `mapstructure:"cache_ttl" yaml:"cache_ttl"` // seconds
}

// CboeConfig holds the weeklies download location.
type CboeConfig struct {
	WeekliesURL string `mapstructure:"weeklies_url" yaml:"weeklies_url"`
	CacheTTL    int    `mapstructure:"cache_ttl"    yaml:"cache_ttl"` // seconds
}

// LLMConfig holds OpenAI settings for the due-diligence agent.
type LLMConfig struct {
	OpenAIKey   string  `mapstructure:"openai_key"  yaml:"openai_key"`
	BaseURL     string  `mapstructure:"base_url"    yaml:"base_url"`
	Model       string  `mapstructure:"model"       yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
}

// FetchConfig tunes the upstream polling commands.
type FetchConfig struct {
	Timeout                 int `mapstructure:"timeout"                     yaml:"timeout"` // seconds
	ProfileChunkSize        int `mapstructure:"profile_chunk_size"          yaml:"profile_chunk_size"`
	Concurrency             int `mapstructure:"concurrency"                 yaml:"concurrency"`
	MaxPages                int `mapstructure:"max_pages"                   yaml:"max_pages"`
	MinNextMonthExpirations int `mapstructure:"min_next_month_expirations"  yaml:"min_next_month_expirations"`
	ExpirationWindowDays    int `mapstructure:"expiration_window_days"      yaml:"expiration_window_days"`
}

// AgentConfig holds due-diligence agent settings.
type AgentConfig struct {
	OutputDir    string `mapstructure:"output_dir"    yaml:"output_dir"`
	NewsFeedURL  string `mapstructure:"news_feed_url" yaml:"news_feed_url"` // %s is replaced by the symbol
	MaxHeadlines int    `mapstructure:"max_headlines" yaml:"max_headlines"`
}

// ScheduleConfig holds cron specs for periodic jobs. An empty spec disables the job.
type ScheduleConfig struct {
	Screeners    string   `mapstructure:"screeners"     yaml:"screeners"`
	CboeWeeklies string   `mapstructure:"cboe_weeklies" yaml:"cboe_weeklies"`
	ProfileData  string   `mapstructure:"profile_data"  yaml:"profile_data"`
	PutChecker   string   `mapstructure:"put_checker"   yaml:"put_checker"`
	ScreenerList []string `mapstructure:"screener_list" yaml:"screener_list"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.optiscreen/config.yaml
//  3. /etc/optiscreen/config.yaml
//
// A .env file in the working directory is loaded first. Environment
// variables override config file values, e.g. OPTISCREEN_RAPIDAPI_KEY.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".optiscreen"))
	v.AddConfigPath("/etc/optiscreen")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "data/optiscreen.db")
	v.SetDefault("database.profile", "standard")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.base_url", "http://127.0.0.1:8000")

	v.SetDefault("rapidapi.host", "seeking-alpha.p.rapidapi.com")
	v.SetDefault("rapidapi.base_url", "https://seeking-alpha.p.rapidapi.com")
	v.SetDefault("rapidapi.rate_limit", 5.0)
	v.SetDefault("rapidapi.burst", 5)

	v.SetDefault("treasury.base_url", "https://api.fiscaldata.treasury.gov/services/api/fiscal_service")
	v.SetDefault("treasury.cache_ttl", 3600)

	v.SetDefault("cboe.weeklies_url", "https://www.cboe.com/available_weeklys/get_csv_download/")
	v.SetDefault("cboe.cache_ttl", 3600)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4000)

	v.SetDefault("fetch.timeout", 30)
	v.SetDefault("fetch.profile_chunk_size", 3)
	v.SetDefault("fetch.concurrency", 3)
	v.SetDefault("fetch.max_pages", 50)
	v.SetDefault("fetch.min_next_month_expirations", 3)
	v.SetDefault("fetch.expiration_window_days", 31)

	v.SetDefault("agent.output_dir", "financial_reports")
	v.SetDefault("agent.news_feed_url", "https://seekingalpha.com/api/sa/combined/%s.xml")
	v.SetDefault("agent.max_headlines", 10)

	v.SetDefault("schedule.screeners", "")
	v.SetDefault("schedule.cboe_weeklies", "")
	v.SetDefault("schedule.profile_data", "")
	v.SetDefault("schedule.put_checker", "")
	v.SetDefault("schedule.screener_list", []string{"Stocks by Quant"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads secrets from environment variables. The
// unprefixed names are honoured when the prefixed ones are absent.
func overrideFromEnv(cfg *Config) {
	if key := firstEnv("OPTISCREEN_RAPIDAPI_KEY", "RAPIDAPI_KEY"); key != "" {
		cfg.RapidAPI.Key = key
	}
	if key := firstEnv("OPTISCREEN_LLM_OPENAI_KEY", "OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Addr returns the host:port the API server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

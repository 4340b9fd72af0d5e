package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "RESEARCH_BOT_CONFIG"
	logLevelEnv     = "LOG_LEVEL"
	logFormatEnv    = "LOG_FORMAT"
	dbDriverEnv     = "DB_DRIVER"
	dbPathEnv       = "DB_PATH"
	databaseDSNEnv  = "DATABASE_DSN"
	slackBotEnv     = "SLACK_BOT_TOKEN"
	slackAppEnv     = "SLACK_APP_TOKEN"
	llmAPIKeyEnv    = "NVIDIA_API_KEY"
	llmModelEnv     = "LLM_MODEL"
	jiraServerEnv   = "JIRA_SERVER"
	jiraUserEnv     = "JIRA_USER"
	jiraTokenEnv    = "JIRA_API_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Digest    DigestConfig    `yaml:"digest"`
	Slack     SlackConfig     `yaml:"slack"`
	LLM       LLMConfig       `yaml:"llm"`
	Jira      JiraConfig      `yaml:"jira"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// LoggingConfig sets the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the SQL driver for the configuration store.
// Driver is "sqlite" (DSN is a file path) or "postgres" (DSN is a URL).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when triggers fire. Hour, Minute and Weekday apply
// to every configuration; cadence only picks daily or weekly.
type SchedulerConfig struct {
	Timezone string         `yaml:"timezone"`
	Hour     int            `yaml:"hour"`
	Minute   int            `yaml:"minute"`
	Weekday  string         `yaml:"weekday"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// WeekdayValue parses Weekday, defaulting to Monday.
func (s SchedulerConfig) WeekdayValue() time.Weekday {
	switch strings.ToLower(strings.TrimSpace(s.Weekday)) {
	case "sun", "sunday":
		return time.Sunday
	case "tue", "tuesday":
		return time.Tuesday
	case "wed", "wednesday":
		return time.Wednesday
	case "thu", "thursday":
		return time.Thursday
	case "fri", "friday":
		return time.Friday
	case "sat", "saturday":
		return time.Saturday
	default:
		return time.Monday
	}
}

// DigestConfig tunes how digests are assembled.
type DigestConfig struct {
	MaxPapers   int `yaml:"maxPapers"`
	ChunkBudget int `yaml:"chunkBudget"`
}

// SlackConfig carries the socket-mode credentials.
type SlackConfig struct {
	BotToken string `yaml:"botToken"`
	AppToken string `yaml:"appToken"`
	Debug    bool   `yaml:"debug"`
}

// LLMConfig defines how to contact the OpenAI-compatible chat completions API.
type LLMConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"apiKey"`
	SystemPrompt string  `yaml:"systemPrompt"`
	Temperature  float64 `yaml:"temperature"`
	TopP         float64 `yaml:"topP"`
	MaxTokens    int     `yaml:"maxTokens"`
}

// JiraConfig wires the ticket tracker. An empty server disables it.
type JiraConfig struct {
	Server   string `yaml:"server"`
	User     string `yaml:"user"`
	APIToken string `yaml:"apiToken"`
}

// SourceConfig describes a paper search backend with its scanner strategy.
type SourceConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	URL        string            `yaml:"url"`
	MaxResults int               `yaml:"maxResults"`
	Options    map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An unreadable file falls back to defaults; an invalid scheduler section is an error.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
				cfg.Scheduler = mergeFireTime(cfg.Scheduler, raw)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	if err := cfg.Scheduler.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate range-checks the fire time.
func (s SchedulerConfig) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("config: scheduler hour %d out of range 0-23", s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("config: scheduler minute %d out of range 0-59", s.Minute)
	}
	return nil
}

// mergeFireTime applies hour and minute only when the file sets them, so
// an explicit zero (midnight, on the hour) is kept.
func mergeFireTime(base SchedulerConfig, raw []byte) SchedulerConfig {
	var file struct {
		Scheduler struct {
			Hour   *int `yaml:"hour"`
			Minute *int `yaml:"minute"`
		} `yaml:"scheduler"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return base
	}
	if file.Scheduler.Hour != nil {
		base.Hour = *file.Scheduler.Hour
	}
	if file.Scheduler.Minute != nil {
		base.Minute = *file.Scheduler.Minute
	}
	return base
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(dbDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(slackBotEnv); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv(slackAppEnv); v != "" {
		c.Slack.AppToken = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(jiraServerEnv); v != "" {
		c.Jira.Server = v
	}
	if v := os.Getenv(jiraUserEnv); v != "" {
		c.Jira.User = v
	}
	if v := os.Getenv(jiraTokenEnv); v != "" {
		c.Jira.APIToken = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.Weekday != "" {
		base.Scheduler.Weekday = override.Scheduler.Weekday
	}

	if override.Digest.MaxPapers > 0 {
		base.Digest.MaxPapers = override.Digest.MaxPapers
	}
	if override.Digest.ChunkBudget > 0 {
		base.Digest.ChunkBudget = override.Digest.ChunkBudget
	}

	if override.Slack.BotToken != "" {
		base.Slack.BotToken = override.Slack.BotToken
	}
	if override.Slack.AppToken != "" {
		base.Slack.AppToken = override.Slack.AppToken
	}
	base.Slack.Debug = base.Slack.Debug || override.Slack.Debug

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.SystemPrompt != "" {
		base.LLM.SystemPrompt = override.LLM.SystemPrompt
	}
	if override.LLM.Temperature > 0 {
		base.LLM.Temperature = override.LLM.Temperature
	}
	if override.LLM.TopP > 0 {
		base.LLM.TopP = override.LLM.TopP
	}
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}

	if override.Jira.Server != "" {
		base.Jira = override.Jira
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "research_bot.db"},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			Hour:     9,
			Minute:   0,
			Weekday:  "mon",
			location: tz,
		},
		Digest: DigestConfig{MaxPapers: 15, ChunkBudget: 2500},
		LLM: LLMConfig{
			Endpoint:     "https://integrate.api.nvidia.com/v1/chat/completions",
			Model:        "meta/llama-3.3-70b-instruct",
			SystemPrompt: "You are a research assistant formatting paper summaries for Slack. Use markdown links and emojis.",
			Temperature:  0.2,
			TopP:         0.7,
			MaxTokens:    1024,
		},
		Sources: []SourceConfig{
			{
				Name:       "arxiv",
				Scanner:    "arxiv",
				URL:        "https://arxiv.org/search/",
				MaxResults: 100,
			},
		},
	}
}

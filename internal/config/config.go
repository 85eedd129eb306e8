package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName           = "articlefactory"
	defaultTimezone   = "UTC"
	configPathEnv     = "ARTICLE_FACTORY_CONFIG"
	backlogDSNEnv     = "BACKLOG_DSN"
	backlogDriverEnv  = "BACKLOG_DRIVER"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	webhookURLEnv     = "NOTIFY_WEBHOOK_URL"
	oracleAPIKeyEnv   = "ORACLE_API_KEY"
	logLevelEnv       = "LOG_LEVEL"
)

// Generator and enricher strategies.
const (
	StrategyCommand = "command"
	StrategyLLM     = "llm"
)

// Duplicate-detection modes for backlog keywords.
const (
	DedupBagOfWords = "bag-of-words"
	DedupExact      = "exact"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Content       ContentConfig      `yaml:"content"`
	Backlog       BacklogConfig      `yaml:"backlog"`
	RunLog        RunLogConfig       `yaml:"runLog"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Quality       QualityConfig      `yaml:"quality"`
	Generator     StrategyConfig     `yaml:"generator"`
	Enricher      StrategyConfig     `yaml:"enricher"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Oracle        OracleConfig       `yaml:"oracle"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// LoggingConfig sets the default log level; --verbose overrides it.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ContentConfig locates the live artifact set and its archive.
type ContentConfig struct {
	Dir             string `yaml:"dir"`
	ArchiveDir      string `yaml:"archiveDir"`
	Extension       string `yaml:"extension"`
	Container       string `yaml:"container"`
	DefaultCategory string `yaml:"defaultCategory"`
	SiteURL         string `yaml:"siteUrl"`
}

// BacklogConfig describes the keyword backlog database.
type BacklogConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RunLogConfig says where run records are written and mirrored.
type RunLogConfig struct {
	Dir string   `yaml:"dir"`
	S3  S3Config `yaml:"s3"`
}

// S3Config enables the run-record mirror when Bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// PipelineConfig holds the controller's gates, limits and pacing.
type PipelineConfig struct {
	Generate      int           `yaml:"generate"`
	EnrichLimit   int           `yaml:"enrichLimit"`
	Pacing        time.Duration `yaml:"pacing"`
	AutoPublish   int           `yaml:"autoPublish"`
	Reject        int           `yaml:"reject"`
	EstimatedLift int           `yaml:"estimatedLift"`
	AutoArchive   bool          `yaml:"autoArchive"`
	Dedup         string        `yaml:"dedup"`
}

// QualityConfig holds the scorer's own status cutoffs.
type QualityConfig struct {
	Pass int `yaml:"pass"`
	Fail int `yaml:"fail"`
}

// StrategyConfig selects and parameterizes a generator or enricher.
// Command arguments may use {keyword}, {slug}, {category} and {path}.
type StrategyConfig struct {
	Strategy string        `yaml:"strategy"`
	Command  []string      `yaml:"command"`
	WorkDir  string        `yaml:"workDir"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// OracleConfig points at the catalog used to validate recommendation names.
type OracleConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// WebhookConfig receives the JSON run summary.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines how often scheduled runs happen.
type SchedulerConfig struct {
	Every    time.Duration `yaml:"every"`
	Timezone string        `yaml:"timezone"`
}

// Path returns the config file Load would read, or "" when none exists.
func Path() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	if path, err := xdg.SearchConfigFile(filepath.Join(appName, "config.yaml")); err == nil {
		return path
	}
	return ""
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(Path())
}

// LoadFile reads the named YAML file over the defaults. Unreadable or invalid
// files are logged and ignored.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDerivedDefaults()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(backlogDSNEnv); v != "" {
		c.Backlog.DSN = v
	}

	if v := os.Getenv(backlogDriverEnv); v != "" {
		c.Backlog.Driver = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Notifications.Webhook.URL = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(oracleAPIKeyEnv); v != "" {
		c.Oracle.APIKey = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// applyDerivedDefaults fills values that default to other settings.
func (c *Config) applyDerivedDefaults() {
	if c.Pipeline.AutoPublish == 0 {
		c.Pipeline.AutoPublish = c.Quality.Pass
	}
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			log.Printf("config: unknown timezone %s, reverting to %s", c.Scheduler.Timezone, defaultTimezone)
			c.Scheduler.Timezone = defaultTimezone
		}
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Content: ContentConfig{
			Dir:             "content",
			ArchiveDir:      "archive",
			Extension:       ".astro",
			Container:       "Layout",
			DefaultCategory: "guides",
		},
		Backlog: BacklogConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(xdg.DataHome, appName, "backlog.db"),
		},
		RunLog: RunLogConfig{
			Dir: filepath.Join(xdg.StateHome, appName, "runs"),
		},
		Pipeline: PipelineConfig{
			Generate:      2,
			EnrichLimit:   3,
			Pacing:        2 * time.Second,
			Reject:        40,
			EstimatedLift: 15,
			Dedup:         DedupBagOfWords,
		},
		Quality:   QualityConfig{Pass: 80, Fail: 60},
		Generator: StrategyConfig{Strategy: StrategyCommand, Timeout: 10 * time.Minute},
		Enricher:  StrategyConfig{Strategy: StrategyCommand, Timeout: 10 * time.Minute},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You write well-structured, factual content pages and answer only with the requested JSON.",
			Timeout:      2 * time.Minute,
		},
		Oracle:    OracleConfig{Timeout: 10 * time.Second},
		Scheduler: SchedulerConfig{Every: 24 * time.Hour, Timezone: defaultTimezone},
	}
}

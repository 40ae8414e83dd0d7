package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. HNWATCH_WATCH_PATTERNS.
const EnvPrefix = "HNWATCH"

type Config struct {
	Settings SettingsConfig `yaml:"settings"`
	Watch    WatchConfig    `yaml:"watch"`
	Notify   NotifyConfig   `yaml:"notify"`
	Feed     FeedConfig     `yaml:"feed"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Sinks    SinksConfig    `yaml:"sinks"`
}

type SettingsConfig struct {
	Interval    int `yaml:"interval"`    // seconds between fetcher ticks
	Limit       int `yaml:"limit"`       // stories kept per category
	Concurrency int `yaml:"concurrency"` // parallel item fetches per category
	Timeout     int `yaml:"timeout"`     // seconds allowed for one category refresh
}

func (s SettingsConfig) FetchInterval() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

func (s SettingsConfig) RefreshTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

type WatchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Patterns string `yaml:"patterns"` // comma-separated regular expressions
	Interval int    `yaml:"interval"` // seconds between scans
}

func (w WatchConfig) ScanInterval() time.Duration {
	return time.Duration(w.Interval) * time.Second
}

// PatternList splits Patterns on commas, trimming and dropping blanks.
func (w WatchConfig) PatternList() []string {
	var out []string
	for _, p := range strings.Split(w.Patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type NotifyConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"` // notified ids remembered
}

type FeedConfig struct {
	Source     string  `yaml:"source"` // "firebase" (default) or "hnrss"
	BaseURL    string  `yaml:"base_url" envconfig:"base_url"`
	RSSURL     string  `yaml:"rss_url" envconfig:"rss_url"`
	RatePerSec float64 `yaml:"rate_per_sec" envconfig:"rate_per_sec"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

type SinksConfig struct {
	Log      bool         `yaml:"log"`
	Command  CommandSink  `yaml:"command"`
	Webhooks []Webhook    `yaml:"webhooks" ignored:"true"`
	Redis    RedisSink    `yaml:"redis"`
	Telegram TelegramSink `yaml:"telegram"`
}

// CommandSink runs a local program per story, e.g. a desktop notifier.
// Each argument of Command is a text/template over the story.
type CommandSink struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

type Webhook struct {
	Name         string        `yaml:"name"`
	URL          string        `yaml:"url"`
	Provider     string        `yaml:"provider"` // "generic" (default), "discord", or "misskey"
	PostInterval time.Duration `yaml:"post_interval"`
	APIToken     string        `yaml:"api_token"` // Required for misskey
}

type RedisSink struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	List     string `yaml:"list"`
	MaxLen   int64  `yaml:"max_len" envconfig:"max_len"`
}

type TelegramSink struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id" envconfig:"chat_id"`
}

const DefaultCommand = `terminal-notifier -title "New HN Story" -message {{.Title}} -open {{.Link}}`

// Defaults mirrors the documented option defaults.
func Defaults() Config {
	return Config{
		Settings: SettingsConfig{
			Interval:    300,
			Limit:       15,
			Concurrency: 8,
			Timeout:     60,
		},
		Watch: WatchConfig{
			Interval: 10,
		},
		Notify: NotifyConfig{
			Capacity: 1000,
		},
		Feed: FeedConfig{
			Source:     "firebase",
			BaseURL:    "https://hacker-news.firebaseio.com",
			RSSURL:     "https://hnrss.org",
			RatePerSec: 10,
		},
		Server: ServerConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Sinks: SinksConfig{
			Log: true,
			Command: CommandSink{
				Command: DefaultCommand,
			},
			Redis: RedisSink{
				Channel: "hnwatch:stories",
				MaxLen:  100,
			},
		},
	}
}

// Parse reads path over the defaults, applies environment overrides and
// repairs invalid values. A missing file is not an error.
func Parse(path string) (Config, error) {
	c := Defaults()

	if path != "" {
		if err := loadYaml(path, &c); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Defaults(), fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Defaults(), fmt.Errorf("failed to apply environment: %w", err)
	}

	c.normalize()
	return c, nil
}

// Load is Parse that always yields a usable config. On failure the defaults
// are returned along with the error so the caller can log it.
func Load(path string) (*Config, error) {
	c, err := Parse(path)
	if err != nil {
		d := Defaults()
		return &d, err
	}
	return &c, nil
}

func (c *Config) normalize() {
	d := Defaults()

	if c.Settings.Interval <= 0 {
		c.Settings.Interval = d.Settings.Interval
	}
	if c.Settings.Limit <= 0 {
		c.Settings.Limit = d.Settings.Limit
	}
	if c.Settings.Concurrency <= 0 {
		c.Settings.Concurrency = d.Settings.Concurrency
	}
	if c.Settings.Timeout <= 0 {
		c.Settings.Timeout = d.Settings.Timeout
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = d.Watch.Interval
	}
	if c.Notify.Capacity <= 0 {
		c.Notify.Capacity = d.Notify.Capacity
	}
	switch c.Feed.Source {
	case "firebase", "hnrss":
	default:
		c.Feed.Source = d.Feed.Source
	}
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = d.Feed.BaseURL
	}
	if c.Feed.RSSURL == "" {
		c.Feed.RSSURL = d.Feed.RSSURL
	}
	if c.Feed.RatePerSec <= 0 {
		c.Feed.RatePerSec = d.Feed.RatePerSec
	}
	if c.Sinks.Command.Command == "" {
		c.Sinks.Command.Command = d.Sinks.Command.Command
	}

	// Set default provider
	for i := range c.Sinks.Webhooks {
		if c.Sinks.Webhooks[i].Provider == "" {
			c.Sinks.Webhooks[i].Provider = "generic"
		}
	}
}

func loadYaml(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

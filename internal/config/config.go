package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither -config nor PRICEWATCH_CONFIG is set.
const DefaultPath = "configs/config.yaml"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Domains  []string       `yaml:"domains" validate:"required,min=1,dive,required"`
	DataPath string         `yaml:"data_path" default:"data/domain-price-history.json" validate:"required"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Push     PushConfig     `yaml:"push"`
	Email    EmailConfig    `yaml:"email"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Log      LogConfig      `yaml:"log"`
	Recorder RecorderConfig `yaml:"recorder"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// FetchConfig controls how prices are scraped.
type FetchConfig struct {
	Driver            string            `yaml:"driver" default:"chrome" validate:"oneof=chrome mock"`
	URLTemplate       string            `yaml:"url_template" default:"https://www.dynadot.com/domain/search?domain=%s" validate:"required"`
	PriceSelector     string            `yaml:"price_selector" default:".domain-price" validate:"required"`
	AttemptTimeout    time.Duration     `yaml:"attempt_timeout" default:"2m" validate:"gt=0"`
	NavigationTimeout time.Duration     `yaml:"navigation_timeout" default:"60s" validate:"gt=0"`
	SelectorTimeout   time.Duration     `yaml:"selector_timeout" default:"30s" validate:"gt=0"`
	ChromePath        string            `yaml:"chrome_path"`
	MockPrices        map[string]string `yaml:"mock_prices"`
}

// PushConfig configures the status message channel.
type PushConfig struct {
	Enabled       bool           `yaml:"enabled" default:"true"`
	Provider      string         `yaml:"provider" default:"pushover" validate:"oneof=pushover telegram"`
	User          string         `yaml:"user"`
	Token         string         `yaml:"token"`
	Device        string         `yaml:"device"`
	Sound         string         `yaml:"sound" default:"pushover"`
	Priority      int            `yaml:"priority" validate:"min=-2,max=1"`
	FailurePolicy string         `yaml:"failure_policy" default:"abort" validate:"oneof=abort absorb"`
	Telegram      TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// EmailConfig configures the price change alert channel.
type EmailConfig struct {
	Enabled       bool   `yaml:"enabled"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	Password      string `yaml:"password"`
	Subject       string `yaml:"subject" default:"Domain Price Alert: "`
	SMTPHost      string `yaml:"smtp_host" default:"smtp.gmail.com"`
	SMTPPort      int    `yaml:"smtp_port" default:"587" validate:"min=1,max=65535"`
	FailurePolicy string `yaml:"failure_policy" default:"absorb" validate:"oneof=abort absorb"`
}

type ScheduleConfig struct {
	Cron       string `yaml:"cron" default:"0 0 9 * * *"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type LogConfig struct {
	Level       string `yaml:"level" default:"info"`
	Format      string `yaml:"format" default:"console" validate:"oneof=console json"`
	OutputFile  string `yaml:"output_file"`
	Environment string `yaml:"environment" default:"prod"`
}

type RecorderConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":9102"`
	Path    string `yaml:"path" default:"/metrics"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setList(&cfg.Domains, "PRICEWATCH_DOMAINS")
	setStr(&cfg.DataPath, "PRICEWATCH_DATA_PATH")

	setStr(&cfg.Fetch.Driver, "PRICEWATCH_FETCH_DRIVER")
	setStr(&cfg.Fetch.ChromePath, "CHROME_PATH")

	setStr(&cfg.Push.User, "PUSHOVER_USER")
	setStr(&cfg.Push.Token, "PUSHOVER_TOKEN")
	setStr(&cfg.Push.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Push.Telegram.ChatID, "TELEGRAM_CHAT_ID")

	setStr(&cfg.Email.From, "EMAIL_FROM")
	setStr(&cfg.Email.To, "EMAIL_TO")
	setStr(&cfg.Email.Password, "EMAIL_PASSWORD")

	setStr(&cfg.Schedule.Cron, "PRICEWATCH_CRON")
	setBool(&cfg.Schedule.RunOnStart, "RUN_ON_START")

	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setStr(&cfg.Recorder.SQLitePath, "SQLITE_PATH")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

var validate = validator.New()

// Validate checks field constraints and the credentials of enabled channels.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q validation", ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Push.Enabled {
		switch c.Push.Provider {
		case "pushover":
			if c.Push.User == "" || c.Push.Token == "" {
				return fmt.Errorf("%w: push.user and push.token are required for pushover", ErrInvalidConfig)
			}
		case "telegram":
			if c.Push.Telegram.BotToken == "" || c.Push.Telegram.ChatID == "" {
				return fmt.Errorf("%w: push.telegram.bot_token and push.telegram.chat_id are required", ErrInvalidConfig)
			}
		}
	}
	if c.Email.Enabled {
		if c.Email.From == "" || c.Email.To == "" || c.Email.Password == "" {
			return fmt.Errorf("%w: email.from, email.to and email.password are required", ErrInvalidConfig)
		}
	}
	if c.Fetch.Driver == "chrome" && !strings.Contains(c.Fetch.URLTemplate, "%s") {
		return fmt.Errorf("%w: fetch.url_template must contain %%s", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	return nil
}

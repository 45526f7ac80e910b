package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"

	InputConsole = "console"
	InputWeb     = "web"

	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	PauseConfig   *PauseConfig
	ServerConfig  *ServerConfig
	RedisConfig   *RedisConfig
}

type AppConfig struct {
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	Debug         bool   `envconfig:"DEBUG" default:"false"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"20"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	MaxIterations int    `envconfig:"AGENT_MAX_ITERATIONS" default:"16"`
}

type AIConfig struct {
	Provider string `envconfig:"AI_PROVIDER" default:"gemini"`
	APIKey   string `envconfig:"AI_API_KEY" required:"true"`
	// Model defaults per provider when empty.
	Model string `envconfig:"AI_MODEL"`
}

type BrowserConfig struct {
	Driver         string `envconfig:"BROWSER_DRIVER" default:"playwright"`
	Headless       bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo         int    `envconfig:"BROWSER_SLOW_MO" default:"100"`
	Timeout        int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir    string `envconfig:"BROWSER_USER_DATA_DIR" default:"./browser-data"`
	UseScreenshots bool   `envconfig:"BROWSER_USE_SCREENSHOTS" default:"true"`
}

type PauseConfig struct {
	InputMethod string   `envconfig:"PAUSE_INPUT_METHOD" default:"console"`
	Conditions  []string `envconfig:"PAUSE_CONDITIONS" default:"password_field,login_page,captcha"`
	HistoryFile string   `envconfig:"PAUSE_HISTORY_FILE"`
}

type ServerConfig struct {
	Addr string `envconfig:"SERVER_ADDR"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Key      string `envconfig:"REDIS_KEY" default:"pause:history"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.AIConfig.APIKey) == "" {
		return fmt.Errorf("AI_API_KEY must not be empty")
	}

	var defaultModel string

	switch strings.ToLower(c.AIConfig.Provider) {
	case ProviderGemini:
		defaultModel = DefaultGeminiModel
	case ProviderAnthropic:
		defaultModel = DefaultAnthropicModel
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIConfig.Provider)
	}

	if strings.TrimSpace(c.AIConfig.Model) == "" {
		c.AIConfig.Model = defaultModel
	}

	switch strings.ToLower(c.BrowserConfig.Driver) {
	case DriverPlaywright, DriverChromedp:
	default:
		return fmt.Errorf("unsupported BROWSER_DRIVER %q", c.BrowserConfig.Driver)
	}

	switch strings.ToLower(c.PauseConfig.InputMethod) {
	case InputConsole, InputWeb:
	default:
		return fmt.Errorf("unsupported PAUSE_INPUT_METHOD %q", c.PauseConfig.InputMethod)
	}

	if c.AppConfig.MaxIterations <= 0 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be positive, got %d", c.AppConfig.MaxIterations)
	}

	return nil
}

// ServerEnabled reports whether the HTTP control server has to run.
func (c *Config) ServerEnabled() bool {
	return c.ServerConfig.Addr != "" || strings.EqualFold(c.PauseConfig.InputMethod, InputWeb)
}

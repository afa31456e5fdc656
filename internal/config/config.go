// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Browser() BrowserConfig
	Checks() ChecksConfig
	Report() ReportConfig
	Validation() ValidationConfig
	SetValidationConfig(vc ValidationConfig)

	// Report Setters
	SetReportFormat(string)
	SetReportPath(string)
	SetReportScreenshot(bool)
	SetReportColor(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	ChecksCfg   ChecksConfig   `mapstructure:"checks" yaml:"checks"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	// ValidationCfg gets its marching orders from CLI flags, not the config file.
	ValidationCfg ValidationConfig `mapstructure:"-" yaml:"-"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Checks() ChecksConfig         { return c.ChecksCfg }
func (c *Config) Report() ReportConfig         { return c.ReportCfg }
func (c *Config) Validation() ValidationConfig { return c.ValidationCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetValidationConfig(vc ValidationConfig) { c.ValidationCfg = vc }

// Report Setters
func (c *Config) SetReportFormat(f string)   { c.ReportCfg.Format = f }
func (c *Config) SetReportPath(p string)     { c.ReportCfg.Path = p }
func (c *Config) SetReportScreenshot(b bool) { c.ReportCfg.Screenshot = b }
func (c *Config) SetReportColor(b bool)      { c.ReportCfg.Color = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables report history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ViewportConfig is the browser window size in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout     time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	OperationTimeout  time.Duration  `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// ChecksConfig carries the class names, selectors and thresholds the
// checkers work with.
type ChecksConfig struct {
	MediaClass     string `mapstructure:"media_class" yaml:"media_class"`
	MessageClass   string `mapstructure:"message_class" yaml:"message_class"`
	ContainerClass string `mapstructure:"container_class" yaml:"container_class"`
	SeparatorClass string `mapstructure:"separator_class" yaml:"separator_class"`

	// ScrollContainer is the scrollable message list. Empty means the document.
	ScrollContainer string `mapstructure:"scroll_container" yaml:"scroll_container"`
	ImageSelector   string `mapstructure:"image_selector" yaml:"image_selector"`
	InsertHook      string `mapstructure:"insert_hook" yaml:"insert_hook"`

	OverlapEpsilon float64       `mapstructure:"overlap_epsilon" yaml:"overlap_epsilon"`
	RatioTolerance float64       `mapstructure:"ratio_tolerance" yaml:"ratio_tolerance"`
	JumpThreshold  float64       `mapstructure:"jump_threshold" yaml:"jump_threshold"`
	ScrollSamples  int           `mapstructure:"scroll_samples" yaml:"scroll_samples"`
	Insertions     int           `mapstructure:"insertions" yaml:"insertions"`
	SettleDelay    time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// ClassSelector turns a class name into a CSS class selector.
func ClassSelector(class string) string {
	return "." + strings.TrimPrefix(class, ".")
}

// ReportConfig controls where and how the validation report is written.
type ReportConfig struct {
	Format      string `mapstructure:"format" yaml:"format"`
	Path        string `mapstructure:"path" yaml:"path"`
	ArtifactDir string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
	Screenshot  bool   `mapstructure:"screenshot" yaml:"screenshot"`
	Color       bool   `mapstructure:"color" yaml:"color"`
}

// ValidationConfig holds settings populated from CLI flags for one run.
type ValidationConfig struct {
	Document   string
	Stylesheet string
	URL        string
	StaticOnly bool
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiconform")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 800)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.operation_timeout", "10s")

	// -- Checks --
	v.SetDefault("checks.media_class", "media")
	v.SetDefault("checks.message_class", "message")
	v.SetDefault("checks.container_class", "chat-body")
	v.SetDefault("checks.separator_class", "time-header")
	v.SetDefault("checks.scroll_container", ".chat-body")
	v.SetDefault("checks.image_selector", "img")
	v.SetDefault("checks.insert_hook", "simulateInsertOnce")
	v.SetDefault("checks.overlap_epsilon", 1.0)
	v.SetDefault("checks.ratio_tolerance", 0.02)
	v.SetDefault("checks.jump_threshold", 120.0)
	v.SetDefault("checks.scroll_samples", 3)
	v.SetDefault("checks.insertions", 3)
	v.SetDefault("checks.settle_delay", "500ms")

	// -- Report --
	v.SetDefault("report.format", "json")
	v.SetDefault("report.path", "artifacts/test-report.json")
	v.SetDefault("report.artifact_dir", "artifacts")
	v.SetDefault("report.screenshot", true)
	v.SetDefault("report.color", true)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "UICONFORM_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.ChecksCfg.Validate(); err != nil {
		return fmt.Errorf("checks configuration invalid: %w", err)
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		return fmt.Errorf("viewport width and height must be positive")
	}
	if b.NavigationTimeout <= 0 || b.OperationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout and operation_timeout must be positive durations")
	}
	return nil
}

// Validate checks the checker thresholds.
func (c *ChecksConfig) Validate() error {
	if c.MediaClass == "" || c.MessageClass == "" || c.ContainerClass == "" || c.SeparatorClass == "" {
		return fmt.Errorf("media_class, message_class, container_class and separator_class are required")
	}
	if c.OverlapEpsilon < 0 {
		return fmt.Errorf("overlap_epsilon must not be negative")
	}
	if c.RatioTolerance <= 0 || c.RatioTolerance >= 1 {
		return fmt.Errorf("ratio_tolerance must be between 0 and 1")
	}
	if c.JumpThreshold <= 0 {
		return fmt.Errorf("jump_threshold must be positive")
	}
	if c.ScrollSamples < 3 {
		return fmt.Errorf("scroll_samples must be at least 3")
	}
	if c.Insertions < 3 {
		return fmt.Errorf("insertions must be at least 3")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if c.InsertHook == "" {
		return fmt.Errorf("insert_hook is required")
	}
	return nil
}

// Validate checks the report output settings.
func (r *ReportConfig) Validate() error {
	switch r.Format {
	case "json", "yaml", "sarif":
	default:
		return fmt.Errorf("unsupported report format %q (supported: json, yaml, sarif)", r.Format)
	}
	if r.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

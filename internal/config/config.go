// Package config loads the service configuration from YAML, applies
// DOC2PDF_* environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
	"github.com/alnah/go-doc2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrInvalidEnv      = errors.New("invalid environment override")
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOC2PDF_"

// UserConfigDirName is the directory searched under the user config dir.
const UserConfigDirName = "go-doc2pdf"

// Defaults.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 3000
	DefaultMaxUploadMB     = 50
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 180 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultEngine          = "rod"
	DefaultEngineTimeout   = 120 * time.Second
	DefaultAcquireTimeout  = 30 * time.Second
	DefaultPageTimeout     = 15 * time.Second
	DefaultInputGrace      = 2 * time.Second
	DefaultOutputGrace     = 30 * time.Second
	DefaultQueueSize       = 200
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

// Config holds all service settings. It is read once at startup.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Renderer   RendererConfig   `yaml:"renderer"`
	Office     OfficeConfig     `yaml:"office"`
	Conversion ConversionConfig `yaml:"conversion"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" validate:"omitempty,max=253"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	MaxUploadMB     int           `yaml:"maxUploadMB" validate:"min=1,max=1024"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"min=0"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// RendererConfig configures the headless browser.
type RendererConfig struct {
	Engine         string        `yaml:"engine" validate:"oneof=rod chromedp"`
	PoolSize       int           `yaml:"poolSize" validate:"min=0,max=64"`
	AcquireTimeout time.Duration `yaml:"acquireTimeout" validate:"min=0"`
	PageTimeout    time.Duration `yaml:"pageTimeout" validate:"min=0"`
	BrowserBin     string        `yaml:"browserBin"`
	NoSandbox      bool          `yaml:"noSandbox"`
}

// OfficeConfig configures LibreOffice.
type OfficeConfig struct {
	Binary string `yaml:"binary"` // empty searches PATH
}

// ConversionConfig holds settings shared by every conversion.
type ConversionConfig struct {
	EngineTimeout time.Duration `yaml:"engineTimeout" validate:"min=0"`
	PrintCSS      string        `yaml:"printCSS" validate:"max=65536"`
	Debug         bool          `yaml:"debug"`
}

// SchedulerConfig sizes the work scheduler. Zero selects defaults.
type SchedulerConfig struct {
	Workers       int           `yaml:"workers" validate:"min=0,max=1024"`
	QueueSize     int           `yaml:"queueSize" validate:"min=0,max=100000"`
	ShutdownGrace time.Duration `yaml:"shutdownGrace" validate:"min=0"`
}

// ArtifactsConfig configures where uploads and outputs are stored.
type ArtifactsConfig struct {
	OutputDir   string        `yaml:"outputDir"`
	LocalDir    string        `yaml:"localDir"`
	DebugDir    string        `yaml:"debugDir"`
	InputGrace  time.Duration `yaml:"inputGrace" validate:"min=0"`
	OutputGrace time.Duration `yaml:"outputGrace" validate:"min=0"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			MaxUploadMB:     DefaultMaxUploadMB,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Renderer: RendererConfig{
			Engine:         DefaultEngine,
			AcquireTimeout: DefaultAcquireTimeout,
			PageTimeout:    DefaultPageTimeout,
		},
		Conversion: ConversionConfig{EngineTimeout: DefaultEngineTimeout},
		Scheduler:  SchedulerConfig{QueueSize: DefaultQueueSize},
		Artifacts: ArtifactsConfig{
			InputGrace:  DefaultInputGrace,
			OutputGrace: DefaultOutputGrace,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every field against its constraints and reports the
// first offending field by its dotted YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		return fmt.Errorf("%w: %s: failed %q (value %v)", ErrInvalidConfig, field, ruleOf(fe), fe.Value())
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

func ruleOf(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// LoadConfig loads configuration from a file path or config name, on top
// of DefaultConfig. If nameOrPath contains a path separator it is treated as
// a file path; otherwise it is searched as a name in standard locations.
// A missing file is an error (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DOC2PDF_* variables read through getenv.
// Empty variables are ignored. The result is validated.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(EnvPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not a duration", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v := getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = b
		}
	}

	str("HOST", &c.Server.Host)
	num("PORT", &c.Server.Port)
	num("MAX_UPLOAD_MB", &c.Server.MaxUploadMB)
	dur("READ_TIMEOUT", &c.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	dur("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("RENDERER_ENGINE", &c.Renderer.Engine)
	num("RENDERER_POOL_SIZE", &c.Renderer.PoolSize)
	dur("RENDERER_ACQUIRE_TIMEOUT", &c.Renderer.AcquireTimeout)
	dur("RENDERER_PAGE_TIMEOUT", &c.Renderer.PageTimeout)
	str("BROWSER_BIN", &c.Renderer.BrowserBin)
	flag("NO_SANDBOX", &c.Renderer.NoSandbox)

	str("OFFICE_BIN", &c.Office.Binary)

	dur("ENGINE_TIMEOUT", &c.Conversion.EngineTimeout)
	flag("DEBUG", &c.Conversion.Debug)

	num("WORKERS", &c.Scheduler.Workers)
	num("QUEUE_SIZE", &c.Scheduler.QueueSize)
	dur("SHUTDOWN_GRACE", &c.Scheduler.ShutdownGrace)

	str("OUTPUT_DIR", &c.Artifacts.OutputDir)
	dur("INPUT_GRACE", &c.Artifacts.InputGrace)
	dur("OUTPUT_GRACE", &c.Artifacts.OutputGrace)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.Validate()
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths returns the locations tried for a config name, in order:
// the current directory, then the user config directory.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, UserConfigDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing search path for name.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

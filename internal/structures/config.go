package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"required|in:sqlite,mysql"`
	Path         string `yaml:"path"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
}

type BackupConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir" validate:"required"`
	Interval time.Duration `yaml:"interval"`
	Keep     int           `yaml:"keep"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required"`
}

type AnalysisConfig struct {
	HeartRateEstimator string        `yaml:"heartRateEstimator" validate:"required|in:peak,statistical"`
	RiskPolicy         string        `yaml:"riskPolicy" validate:"required|in:standard,strict"`
	SampleDuration     time.Duration `yaml:"sampleDuration"`
	DefaultDevice      string        `yaml:"defaultDevice"`
	DefaultDuration    int           `yaml:"defaultDuration"`
}

type AuthConfig struct {
	Mode    string        `yaml:"mode" validate:"required|in:jwt,remote"`
	Secret  string        `yaml:"secret"`
	Issuer  string        `yaml:"issuer"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig.Size is in megabytes.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Database  DatabaseConfig `yaml:"database"`
	Backup    BackupConfig   `yaml:"backup"`
	Logger    LoggerConfig   `yaml:"logger"`
	Analysis  AnalysisConfig `yaml:"analysis"`
	Auth      AuthConfig     `yaml:"auth"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}

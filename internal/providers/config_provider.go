package providers

import (
	"ecgd/internal/structures"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/ecgd.db")
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.interval", "24h")
	v.SetDefault("backup.keep", 7)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "logs")
	v.SetDefault("analysis.heartRateEstimator", "peak")
	v.SetDefault("analysis.riskPolicy", "standard")
	v.SetDefault("analysis.sampleDuration", "30s")
	v.SetDefault("analysis.defaultDevice", "AD8232 ECG Sensor")
	v.SetDefault("analysis.defaultDuration", 30)
	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("auth.timeout", "5s")
	v.SetDefault("cache.size", 32)
	v.SetDefault("cache.ttl", "60s")
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setConfigDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	_ = v.BindEnv("logger.level", "ECGD_LOG_LEVEL")
	_ = v.BindEnv("database.driver", "ECGD_DB_DRIVER")
	_ = v.BindEnv("database.path", "ECGD_DB_PATH")
	_ = v.BindEnv("database.dsn", "ECGD_DB_DSN")
	_ = v.BindEnv("auth.mode", "ECGD_AUTH_MODE")
	_ = v.BindEnv("auth.secret", "ECGD_AUTH_SECRET")
	_ = v.BindEnv("auth.url", "ECGD_AUTH_URL")
	_ = v.BindEnv("cache.enabled", "ECGD_CACHE_ENABLED")
	_ = v.BindEnv("cache.size", "ECGD_CACHE_SIZE")
	_ = v.BindEnv("backup.enabled", "ECGD_BACKUP_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "EcgMeasurementDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

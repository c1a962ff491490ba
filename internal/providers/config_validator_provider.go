package providers

import (
	"ecgd/internal/structures"
	"errors"
	"fmt"

	"github.com/gookit/validate"
)

// MaxCacheSizeMB bounds cache.size so a byte count is not taken for megabytes.
const MaxCacheSizeMB = 4096

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}
	return cv.validateDependent()
}

// validateDependent covers rules that depend on another field's value.
func (cv *CnfValidator) validateDependent() error {
	c := cv.conf
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("invalid config: database.path is required for sqlite")
		}
	case "mysql":
		if c.Database.DSN == "" {
			return errors.New("invalid config: database.dsn is required for mysql")
		}
	}
	switch c.Auth.Mode {
	case "jwt":
		if c.Auth.Secret == "" {
			return errors.New("invalid config: auth.secret is required for jwt mode")
		}
	case "remote":
		if c.Auth.URL == "" {
			return errors.New("invalid config: auth.url is required for remote mode")
		}
	}
	if c.Backup.Enabled && c.Backup.Interval <= 0 {
		return errors.New("invalid config: backup.interval must be positive when backups are enabled")
	}
	if c.Cache.Enabled && (c.Cache.Size < 0 || c.Cache.Size > MaxCacheSizeMB) {
		return fmt.Errorf("invalid config: cache.size is in megabytes and must be within [0,%d]", MaxCacheSizeMB)
	}
	if c.Analysis.SampleDuration < 0 {
		return errors.New("invalid config: analysis.sampleDuration must not be negative")
	}
	return nil
}

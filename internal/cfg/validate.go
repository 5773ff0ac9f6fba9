package cfg

import "fmt"

// Validate checks field-level constraints that UnmarshalText can't express
// on its own (cross-field and zero-value checks), mirroring the teacher's
// own separation between per-type parsing and whole-config validation.
func (c *Config) Validate() error {
	if c.Image.Path == "" {
		return fmt.Errorf("image path must not be empty")
	}
	switch c.Image.Driver {
	case "", DriverAuto, DriverExt2, DriverReiserFS:
	default:
		return fmt.Errorf("invalid driver %q: must be one of auto, ext2, reiserfs", c.Image.Driver)
	}
	if c.Image.Offset < 0 {
		return fmt.Errorf("image offset must not be negative, got %d", c.Image.Offset)
	}

	if c.Logging.Severity != "" {
		if _, ok := severityRanking[c.Logging.Severity]; !ok {
			return fmt.Errorf("invalid log severity %q", c.Logging.Severity)
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Logging.Format)
	}
	if c.Logging.LogRotate.MaxFileSizeMB < 0 {
		return fmt.Errorf("log-rotate max-file-size-mb must not be negative")
	}
	if c.Logging.LogRotate.BackupFileCount < 0 {
		return fmt.Errorf("log-rotate backup-file-count must not be negative")
	}
	return nil
}

// EffectiveDriver returns the configured driver, defaulting to DriverAuto.
func (c *Config) EffectiveDriver() DriverName {
	if c.Image.Driver == "" {
		return DefaultDriver
	}
	return c.Image.Driver
}

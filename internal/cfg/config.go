// Package cfg defines gofsw's resolved configuration surface: the image to
// mount, which driver to mount it with, and how to log. Values are bound
// from command-line flags and, optionally, a YAML config file, the same
// way the teacher project layers cobra flags over a viper-backed file.
package cfg

// Config is the fully-resolved configuration for a gofsw invocation.
type Config struct {
	Image   ImageConfig   `yaml:"image" mapstructure:"image"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ImageConfig describes the disk image to mount and how to mount it.
type ImageConfig struct {
	// Path is the disk image or block device to read.
	Path ResolvedPath `yaml:"path" mapstructure:"path"`
	// Driver selects the filesystem driver, or DriverAuto to probe both.
	Driver DriverName `yaml:"driver" mapstructure:"driver"`
	// Offset is the byte offset into Path at which the filesystem itself
	// begins, for images that carry a partition table ahead of the
	// filesystem. Zero means the filesystem starts at the beginning of
	// Path; drivers probe their own superblock offsets relative to it.
	Offset int64 `yaml:"offset" mapstructure:"offset"`
}

// LoggingConfig describes where and how gofsw logs.
type LoggingConfig struct {
	Severity  LogSeverity     `yaml:"severity" mapstructure:"severity"`
	Format    string          `yaml:"format" mapstructure:"format"`
	FilePath  ResolvedPath    `yaml:"file-path" mapstructure:"file-path"`
	LogRotate LogRotateConfig `yaml:"log-rotate" mapstructure:"log-rotate"`
}

// LogRotateConfig mirrors lumberjack.Logger's own rotation knobs.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count" mapstructure:"backup-file-count"`
	Compress        bool `yaml:"compress" mapstructure:"compress"`
}

// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd implements gofsw, a stat/ls/cat-style CLI that exercises the
// fsw core and its ext2/reiserfs drivers end to end, standing in for the
// boot-menu/shell consumers the library itself stays agnostic to.
package cmd

import (
	"fmt"
	"os"

	"github.com/refitfs/gofsw/internal/cfg"
	"github.com/refitfs/gofsw/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	metricsAddr   string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	Config        cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "gofsw",
	Short: "Inspect ext2 and ReiserFS disk images through the gofsw read-only filesystem stack",
	Long: `gofsw is a minimal stat/ls/cat tool built on top of a read-only
ext2/ReiserFS filesystem stack ported from the rEFIt bootloader's fsw
layer. It is not the boot menu itself -- it exists to exercise and
demonstrate the library end to end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := Config.Validate(); err != nil {
			return err
		}
		return logger.Init(logger.Config{
			FilePath: string(Config.Logging.FilePath),
			Severity: string(Config.Logging.Severity),
			Format:   Config.Logging.Format,
			Rotate: logger.RotateConfig{
				MaxFileSizeMB:   Config.Logging.LogRotate.MaxFileSizeMB,
				BackupFileCount: Config.Logging.LogRotate.BackupFileCount,
				Compress:        Config.Logging.LogRotate.Compress,
			},
		})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "Path to a YAML config file")
	flags.String("image", "", "Path to the disk image or block device to mount")
	flags.String("driver", string(cfg.DriverAuto), "Filesystem driver: auto, ext2, or reiserfs")
	flags.Int64("offset", cfg.DefaultImageOffset, "Byte offset into --image at which the filesystem begins")
	flags.String("log-severity", string(cfg.DefaultLogLevel), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF")
	flags.String("log-format", cfg.DefaultLogFormat, "Log output format: text or json")
	flags.String("log-file", "", "Optional log file path (stderr is always written to)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Optional address (e.g. :9090) to serve Prometheus metrics on")

	bindErr = viper.BindPFlag("image.path", flags.Lookup("image"))
	if bindErr == nil {
		bindErr = viper.BindPFlag("image.driver", flags.Lookup("driver"))
	}
	if bindErr == nil {
		bindErr = viper.BindPFlag("image.offset", flags.Lookup("offset"))
	}
	if bindErr == nil {
		bindErr = viper.BindPFlag("logging.severity", flags.Lookup("log-severity"))
	}
	if bindErr == nil {
		bindErr = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	}
	if bindErr == nil {
		bindErr = viper.BindPFlag("logging.file-path", flags.Lookup("log-file"))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			configFileErr = fmt.Errorf("reading config file: %w", err)
			return
		}
	}
	unmarshalErr = viper.Unmarshal(&Config)
}

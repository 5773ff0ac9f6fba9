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

package cfg

const (
	// Logging-level constants

	TRACE   string = "TRACE"
	DEBUG   string = "DEBUG"
	INFO    string = "INFO"
	WARNING string = "WARNING"
	ERROR   string = "ERROR"
	OFF     string = "OFF"
)

const (
	// DefaultImageOffset is 0: the filesystem starts at the beginning of
	// the image. Drivers probe their superblock offsets (1024 for ext2;
	// the 65536/8192 pair for ReiserFS) relative to this start, which a
	// partitioned disk image moves with a non-zero offset.
	DefaultImageOffset int64 = 0

	DefaultDriver   DriverName = DriverAuto
	DefaultLogLevel LogSeverity = InfoLogSeverity
	DefaultLogFormat string     = "text"

	// DefaultLogRotateMaxFileSizeMB is the same 512 MB that logger.Init
	// falls back to when no rotation size is configured.
	DefaultLogRotateMaxFileSizeMB = 512
)

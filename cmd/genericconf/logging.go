// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package genericconf

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLog installs a glog-filtered handler on the root logger, writing
// to stderr and, when file logging is enabled, to a rotated log file.
// Not threadsafe.
func InitLog(logType string, logLevel log.Lvl, fileLoggingConfig *FileLoggingConfig) error {
	output := io.Writer(os.Stderr)
	if fileLoggingConfig.Enable {
		output = io.MultiWriter(output, &lumberjack.Logger{
			Filename:   fileLoggingConfig.File,
			MaxSize:    fileLoggingConfig.MaxSize,
			MaxBackups: fileLoggingConfig.MaxBackups,
			MaxAge:     fileLoggingConfig.MaxAge,
			LocalTime:  fileLoggingConfig.LocalTime,
			Compress:   fileLoggingConfig.Compress,
		})
	}
	format, err := ParseLogType(logType)
	if err != nil {
		return fmt.Errorf("error parsing log type: %w", err)
	}
	glogger := log.NewGlogHandler(log.StreamHandler(output, format))
	glogger.Verbosity(logLevel)
	log.Root().SetHandler(glogger)
	return nil
}

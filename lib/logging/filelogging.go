package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

// Logger returns the process logger. With logFilePath set, output is written
// to a dated file next to that path as well as to stdout.
func Logger(logFilePath string) *lecho.Logger {
	logger := lecho.New(
		os.Stdout, // default to STDOUT
		lecho.WithLevel(log.DEBUG),
		lecho.WithTimestamp(),
	)
	// check if a log file config is set
	if logFilePath != "" {
		file, err := GetLoggingFile(logFilePath, time.Now())
		if err != nil {
			logger.Errorf("failed to create logging file: %v", err)
			return logger
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	}

	return logger
}

// GetLoggingFile opens (appending) the log file for the day of now. The date
// goes before the extension: link2pay.log becomes link2pay-2024-06-01.log.
func GetLoggingFile(path string, now time.Time) (*os.File, error) {
	return os.OpenFile(DatedPath(path, now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
}

func DatedPath(path string, now time.Time) string {
	suffix := now.Format("-2006-01-02")
	extension := filepath.Ext(path)
	if extension == "" {
		return path + suffix + ".log"
	}
	return strings.TrimSuffix(path, extension) + suffix + extension
}

package editsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mployhr/recruitdash/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initialises the logger to write to stdout and a log file.
// An empty logFile gets a timestamped name.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "" {
		logFile = "edit_sim_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

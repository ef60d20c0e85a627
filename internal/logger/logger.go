// Package logger builds the logrus logger shared by both CLIs and the
// component loggers for value detection, backtests and predictors.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a stdout logger at logLevel, or info when the level does
// not parse. Format "json" selects the JSON formatter; anything else logs
// coloured text with full timestamps.
func NewLogger(logLevel, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	return logger
}

package logging

import (
	"github.com/sirupsen/logrus"
)

// New creates the daemon logger. It backs the non-interactive surfaces
// (listener, notifiers, API); operator-facing console output goes through
// the display package instead.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch level {
	case "DEBUG":
		logger.SetLevel(logrus.DebugLevel)
	case "INFO":
		logger.SetLevel(logrus.InfoLevel)
	case "WARN":
		logger.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logger.SetLevel(logrus.ErrorLevel)
	}

	return logger
}

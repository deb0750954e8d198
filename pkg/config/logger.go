package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(s *Settings) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if s != nil && s.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	level := logrus.InfoLevel
	if s != nil {
		if parsed, err := logrus.ParseLevel(s.LogLevel); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
	return log
}

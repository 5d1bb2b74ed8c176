package logger

import (
	"io"
	"os"
	"strings"

	"tanda_circles/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// New builds the application logger from configuration.
// Production and staging log JSON; everything else logs coloured text.
func New(cfg *config.AppConfig) *logrus.Logger {
	return newWithOutput(cfg, os.Stdout)
}

func newWithOutput(cfg *config.AppConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(level)
	}

	env := strings.ToLower(cfg.Environment)
	if env == "production" || env == "staging" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	log.Debugf("Log level set to: %s, environment: %s", log.GetLevel().String(), cfg.Environment)
	return log
}

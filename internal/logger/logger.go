// Package logger builds the JSON logger shared by the net-worth service.
// Session, ledger, quote fetcher and refresh scheduler entries carry a
// "component" field.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a configured logrus.Logger. JSON output is used to keep logs structured.
// Local and dev environments log at debug, test at warn, anything else at info.
func New(env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(parseLevel(env))
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return log
}

func parseLevel(env string) logrus.Level {
	switch strings.ToLower(env) {
	case "local", "dev":
		return logrus.DebugLevel
	case "test":
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}

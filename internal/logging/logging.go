// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at the given level. Production
// output is JSON; development output is human-readable text.
func New(level string, production bool) *logrus.Logger {
	return NewWithWriter(os.Stderr, level, production)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, production bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	if production {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

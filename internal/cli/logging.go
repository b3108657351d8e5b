package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger logs to w, which is stderr outside tests, so reports on stdout
// stay machine-readable.
func newLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return log, nil
}

package logging

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	FormatCommandLine = "cli"
	FormatText        = "text"
	FormatJson        = "json"
)

// Config defines how the checker logs.
type Config struct {
	// Log level, e.g. info, debug etc
	Level string `mapstructure:"level"`
	// Logging format, one of cli, text or json
	Format string `mapstructure:"format"`
}

// Configure applies c to the standard logrus logger.
func Configure(c Config) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return errors.WithStack(err)
	}
	formatter, err := newFormatter(c.Format)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	return nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatCommandLine:
		return &CommandLineFormatter{}, nil
	case FormatText:
		return &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}, nil
	case FormatJson:
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, errors.Errorf("unknown log format: %s. Valid formats are %s, %s and %s", format, FormatCommandLine, FormatText, FormatJson)
	}
}

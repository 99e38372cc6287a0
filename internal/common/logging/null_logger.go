package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullLogger drops every entry. Tests hand it to code they don't want logging.
var NullLogger = newNullLogger()

func newNullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

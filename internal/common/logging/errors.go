package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Field holding the stack trace of a logged error, if one was recorded.
const Stacktrace = "stacktrace"

type causer interface {
	Cause() error
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStacktrace adds err to logger, along with the outermost stack trace recorded in its chain.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	logger = logger.WithError(err)
	if stack := stackOf(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

func stackOf(err error) errors.StackTrace {
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// RootWrapper returns the error wrapping err's root cause, or err itself if it wraps nothing.
// Formatted with %+v, it prints the stack recorded where the chain began.
func RootWrapper(err error) error {
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		next := c.Cause()
		if _, ok := next.(causer); !ok {
			return err
		}
		err = next
	}
}

package logging

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandLineFormatter(t *testing.T) {
	f := &CommandLineFormatter{}

	out, err := f.Format(&logrus.Entry{Level: logrus.InfoLevel, Message: "Connecting..."})
	require.NoError(t, err)
	assert.Equal(t, "Connecting...\n", string(out))

	out, err = f.Format(&logrus.Entry{Level: logrus.ErrorLevel, Message: "insert failed"})
	require.NoError(t, err)
	assert.Equal(t, "ERROR: insert failed\n", string(out))

	out, err = f.Format(&logrus.Entry{Level: logrus.WarnLevel, Message: "slow"})
	require.NoError(t, err)
	assert.Equal(t, "WARN: slow\n", string(out))
}

func TestWithStacktrace(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := errors.WithMessage(errors.New("test error"), "context")
	WithStacktrace(logrus.NewEntry(logger), err).Error("test message")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "test message", entry.Message)
	assert.Equal(t, err, entry.Data[logrus.ErrorKey])
	assert.NotNil(t, entry.Data[Stacktrace])
}

func TestWithStacktrace_NoStack(t *testing.T) {
	logger, hook := test.NewNullLogger()

	WithStacktrace(logrus.NewEntry(logger), assert.AnError).Warn("test message")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	_, ok := entry.Data[Stacktrace]
	assert.False(t, ok)
}

func TestNewFormatter(t *testing.T) {
	tests := map[string]struct {
		format  string
		want    logrus.Formatter
		wantErr bool
	}{
		"default": {format: "", want: &CommandLineFormatter{}},
		"cli":     {format: "cli", want: &CommandLineFormatter{}},
		"json":    {format: "JSON", want: &logrus.JSONFormatter{}},
		"text":    {format: "text", want: &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}},
		"unknown": {format: "xml", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := newFormatter(tc.format)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRootWrapper(t *testing.T) {
	root := errors.New("root")
	wrapped := errors.WithMessage(errors.WithMessage(root, "one"), "two")
	assert.Equal(t, "one: root", RootWrapper(wrapped).Error())
	assert.Equal(t, assert.AnError, RootWrapper(assert.AnError))
	assert.Nil(t, RootWrapper(nil))
}

func TestStackOf(t *testing.T) {
	withStack := errors.WithStack(assert.AnError)
	tests := map[string]struct {
		err  error
		want errors.StackTrace
	}{
		"nil":              {err: nil},
		"no stack":         {err: assert.AnError},
		"stack":            {err: withStack, want: withStack.(stackTracer).StackTrace()},
		"stack under text": {err: errors.WithMessage(withStack, "context"), want: withStack.(stackTracer).StackTrace()},
		"text only":        {err: errors.WithMessage(assert.AnError, "context")},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, stackOf(tc.err))
		})
	}
}

func TestNullLogger(t *testing.T) {
	assert.False(t, NullLogger.IsLevelEnabled(logrus.ErrorLevel))
	assert.NotPanics(t, func() { NullLogger.Error("dropped") })
}

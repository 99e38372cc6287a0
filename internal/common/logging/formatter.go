package logging

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter prints just the message, prefixed with the level for anything louder than info.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Level <= log.WarnLevel {
		return []byte(fmt.Sprintf("%s: %s\n", levelTag(entry.Level), entry.Message)), nil
	}
	return []byte(fmt.Sprintf("%s\n", entry.Message)), nil
}

func levelTag(level log.Level) string {
	switch level {
	case log.PanicLevel, log.FatalLevel:
		return "FATAL"
	case log.ErrorLevel:
		return "ERROR"
	default:
		return "WARN"
	}
}

// Package imlog writes log messages in a regular format that names the
// component, the function and the file being worked on.
package imlog

import (
	"bytes"
	"fmt"
	"log"
	"os"
)

// MaxLogMessageLen is the maximum length of a formatted log message.
const MaxLogMessageLen = 2048

const truncatedLabel = "...(truncated)..."

// IDField is one key/value pair of a logger's component ID.
type IDField struct {
	Key   string
	Value interface{}
}

// Logger formats messages as
//
//	Component[k1=v1;k2=v2].Function(actor): Error "cause" - message
//
// and prints them through Output, or the standard logger when Output is nil.
type Logger struct {
	ComponentName string
	ComponentID   []IDField
	Output        *log.Logger
	// Quiet suppresses Info messages; warnings are always printed.
	Quiet bool
}

// DefaultLogger is used when no dedicated logger is available.
var DefaultLogger = &Logger{ComponentName: "imtool", ComponentID: []IDField{{"PID", os.Getpid()}}}

func (logger *Logger) componentIDs() string {
	if len(logger.ComponentID) == 0 {
		return ""
	}
	var msg bytes.Buffer
	msg.WriteRune('[')
	for i, field := range logger.ComponentID {
		fmt.Fprintf(&msg, "%s=%v", field.Key, field.Value)
		if i < len(logger.ComponentID)-1 {
			msg.WriteRune(';')
		}
	}
	msg.WriteRune(']')
	return msg.String()
}

// Format returns a log message without printing it.
func (logger *Logger) Format(functionName, actorName string, err error, template string, values ...interface{}) string {
	var msg bytes.Buffer
	msg.WriteString(logger.ComponentName)
	msg.WriteString(logger.componentIDs())
	if functionName != "" {
		if msg.Len() > 0 {
			msg.WriteRune('.')
		}
		msg.WriteString(functionName)
	}
	if actorName != "" {
		fmt.Fprintf(&msg, "(%s)", actorName)
	}
	if msg.Len() > 0 {
		msg.WriteString(": ")
	}
	if err != nil {
		fmt.Fprintf(&msg, "Error %q", err.Error())
		if template != "" {
			msg.WriteString(" - ")
		}
	}
	fmt.Fprintf(&msg, template, values...)
	return TruncateString(msg.String(), MaxLogMessageLen)
}

func (logger *Logger) print(msg string) {
	if logger.Output != nil {
		logger.Output.Print(msg)
		return
	}
	log.Print(msg)
}

// Info prints a message. A non-nil err upgrades it to a warning.
func (logger *Logger) Info(functionName, actorName string, err error, template string, values ...interface{}) {
	if err != nil {
		logger.Warning(functionName, actorName, err, template, values...)
		return
	}
	if logger.Quiet {
		return
	}
	logger.print(logger.Format(functionName, actorName, nil, template, values...))
}

// Warning prints a message regardless of Quiet.
func (logger *Logger) Warning(functionName, actorName string, err error, template string, values ...interface{}) {
	logger.print(logger.Format(functionName, actorName, err, template, values...))
}

// With returns a copy of the logger carrying an extra component ID field.
func (logger *Logger) With(key string, value interface{}) *Logger {
	ids := make([]IDField, 0, len(logger.ComponentID)+1)
	ids = append(ids, logger.ComponentID...)
	ids = append(ids, IDField{Key: key, Value: value})
	return &Logger{ComponentName: logger.ComponentName, ComponentID: ids, Output: logger.Output, Quiet: logger.Quiet}
}

// TruncateString returns in unchanged if it fits in maxLength. Otherwise it
// cuts text from the middle and puts "...(truncated)..." in its place.
func TruncateString(in string, maxLength int) string {
	if maxLength < 0 {
		maxLength = 0
	}
	if len(in) <= maxLength {
		return in
	}
	if maxLength <= len(truncatedLabel) {
		return in[:maxLength]
	}
	firstHalfEnd := maxLength/2 - len(truncatedLabel)/2
	secondHalfBegin := len(in) - (maxLength / 2) + len(truncatedLabel)/2
	if maxLength%2 == 0 {
		secondHalfBegin++
	}
	var truncated bytes.Buffer
	truncated.WriteString(in[:firstHalfEnd])
	truncated.WriteString(truncatedLabel)
	truncated.WriteString(in[secondHalfBegin:])
	return truncated.String()
}

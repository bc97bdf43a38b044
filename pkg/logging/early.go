package logging

import (
	"fmt"
	"os"
)

// EarlyLog covers the window before the zap logger exists (config load,
// flag parsing).
type EarlyLog struct{}

func NewEarlyLog() *EarlyLog {
	return &EarlyLog{}
}

func (l *EarlyLog) write(out *os.File, level, msg string, args ...interface{}) {
	fmt.Fprintf(out, level+": "+msg+"\n", args...)
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.write(os.Stderr, "ERROR", msg, args...)
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.write(os.Stderr, "FATAL", msg, args...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write(os.Stderr, "WARN", msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.write(os.Stdout, "INFO", msg, args...)
}

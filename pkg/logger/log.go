package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type (
	LogStatus int
	Level     int
)

const (
	VERBOSE LogStatus = iota
	DEBUG
	INFO
	SUCCESS
	NEW
	REMOVE
	STOP
	WARNING
	ERROR
	FATAL
)

func (e LogStatus) String() string {
	return []string{
		"V",
		"D",
		"I",
		"✓",
		"+",
		"-",
		"X",
		"!",
		"!!",
		"PANIC",
	}[e]
}

func (e LogStatus) Level() Level { return Level(e) }

func (e LogStatus) Color() *color.Color {
	return []*color.Color{
		color.New(color.FgWhite, color.Italic),                // Verbose
		color.New(color.FgWhite, color.Italic),                // Debug
		color.New(color.FgWhite),                              // Info
		color.New(color.FgHiGreen),                            // Success
		color.New(color.FgGreen, color.Italic),                // New
		color.New(color.FgYellow, color.Italic),               // Remove
		color.New(color.FgHiYellow),                           // Stop
		color.New(color.FgYellow, color.Underline),            // Warning
		color.New(color.FgHiRed, color.Bold),                  // Error
		color.New(color.FgHiRed, color.Bold, color.Underline), // Panic
	}[e]
}

// Logger is a named handle in to the process-wide logger manager. Each
// component holds its own via logger.Get, which keeps the emitting
// component visible on every line without threading a logger through
// every constructor.
type Logger interface {
	Emit(LogStatus, string, ...interface{})
	Verbosef(string, ...interface{})
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
	Fatalf(string, ...interface{})

	// Printf satisfies third-party logging interfaces (goose); it
	// emits at INFO.
	Printf(string, ...interface{})
}

type loggerImpl struct {
	name string
}

func (l *loggerImpl) Emit(status LogStatus, message string, interpolations ...interface{}) {
	Log.Emit(status, l.name, message, interpolations...)
}

func (l *loggerImpl) Verbosef(message string, interpolations ...interface{}) {
	l.Emit(VERBOSE, message, interpolations...)
}

func (l *loggerImpl) Debugf(message string, interpolations ...interface{}) {
	l.Emit(DEBUG, message, interpolations...)
}

func (l *loggerImpl) Infof(message string, interpolations ...interface{}) {
	l.Emit(INFO, message, interpolations...)
}

func (l *loggerImpl) Warnf(message string, interpolations ...interface{}) {
	l.Emit(WARNING, message, interpolations...)
}

func (l *loggerImpl) Errorf(message string, interpolations ...interface{}) {
	l.Emit(ERROR, message, interpolations...)
}

func (l *loggerImpl) Fatalf(message string, interpolations ...interface{}) {
	l.Emit(FATAL, message, interpolations...)
}

func (l *loggerImpl) Printf(message string, interpolations ...interface{}) {
	l.Emit(INFO, message, interpolations...)
}

type LoggerManager interface {
	GetLogger(string) Logger
	Emit(LogStatus, string, string, ...interface{})
	SetMinLevel(Level)
}

var Log LoggerManager = &loggerMgr{
	offset:   0,
	minLevel: INFO.Level(),
}

type loggerMgr struct {
	offset   int
	minLevel Level
}

func (l *loggerMgr) GetLogger(name string) Logger {
	return &loggerImpl{name: name}
}

func (l *loggerMgr) SetMinLevel(level Level) {
	l.minLevel = level
}

func (l *loggerMgr) Emit(status LogStatus, name string, message string, interpolations ...interface{}) {
	if status.Level() < l.minLevel {
		return
	}

	l.setNameOffset(len(name))
	padding := strings.Repeat(" ", l.offset-len(name))
	msg := fmt.Sprintf("[%s] %s(%s) %s", name, padding, status, fmt.Sprintf(message, interpolations...))

	status.Color().Print(msg)
}

func (l *loggerMgr) setNameOffset(offset int) {
	if offset > l.offset {
		l.offset = offset
	}
}

func Get(name string) Logger {
	return Log.GetLogger(name)
}

func SetMinLoggingLevel(level Level) {
	Log.SetMinLevel(level)
}

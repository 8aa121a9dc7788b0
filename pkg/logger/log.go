package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type LogStatus int

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

// statusDisplay pairs each status with the glyph and colour used when
// rendering it to the console. Indexed by the LogStatus itself.
var statusDisplay = [...]struct {
	glyph string
	color *color.Color
}{
	VERBOSE: {"V", color.New(color.FgWhite, color.Italic)},
	DEBUG:   {"D", color.New(color.FgWhite, color.Italic)},
	INFO:    {"I", color.New(color.FgWhite)},
	SUCCESS: {"✓", color.New(color.FgHiGreen)},
	NEW:     {"+", color.New(color.FgGreen, color.Italic)},
	REMOVE:  {"-", color.New(color.FgYellow, color.Italic)},
	STOP:    {"X", color.New(color.FgHiYellow)},
	WARNING: {"!", color.New(color.FgYellow, color.Underline)},
	ERROR:   {"!!", color.New(color.FgHiRed, color.Bold)},
	FATAL:   {"PANIC", color.New(color.FgHiRed, color.Bold, color.Underline)},
}

func (e LogStatus) String() string {
	return statusDisplay[e].glyph
}

func (e LogStatus) Color() *color.Color {
	return statusDisplay[e].color
}

type Logger interface {
	Emit(LogStatus, string, ...interface{})
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
	Fatalf(string, ...interface{})
}

type loggerImpl struct {
	name string
}

func (l *loggerImpl) Emit(status LogStatus, message string, interpolations ...interface{}) {
	Log.Emit(status, l.name, message, interpolations...)
}

func (l *loggerImpl) Debugf(message string, interpolations ...interface{}) {
	Log.Emit(DEBUG, l.name, message, interpolations...)
}

func (l *loggerImpl) Infof(message string, interpolations ...interface{}) {
	Log.Emit(INFO, l.name, message, interpolations...)
}

func (l *loggerImpl) Warnf(message string, interpolations ...interface{}) {
	Log.Emit(WARNING, l.name, message, interpolations...)
}

func (l *loggerImpl) Errorf(message string, interpolations ...interface{}) {
	Log.Emit(ERROR, l.name, message, interpolations...)
}

func (l *loggerImpl) Fatalf(message string, interpolations ...interface{}) {
	Log.Emit(FATAL, l.name, message, interpolations...)
}

type LoggerManager interface {
	GetLogger(string) Logger
	Emit(LogStatus, string, string, ...interface{})
	SetMinLoggingLevel(LogStatus)
}

var Log LoggerManager = &loggerMgr{
	minStat: INFO,
}

// loggerMgr renders emitted messages with a padded name column so
// that output from differently-named loggers stays aligned. The
// column only ever widens.
type loggerMgr struct {
	nameColumn int
	minStat    LogStatus
}

func (l *loggerMgr) GetLogger(name string) Logger {
	return &loggerImpl{name: name}
}

// SetMinLoggingLevel controls which statuses are emitted to the
// console. Any status below the level provided is discarded.
func (l *loggerMgr) SetMinLoggingLevel(level LogStatus) {
	l.minStat = level
}

func (l *loggerMgr) Emit(status LogStatus, name string, message string, interpolations ...interface{}) {
	if status < l.minStat {
		return
	}

	if len(name) > l.nameColumn {
		l.nameColumn = len(name)
	}

	padding := strings.Repeat(" ", l.nameColumn-len(name))
	msg := fmt.Sprintf("[%s] %s(%s) %s", name, padding, status, fmt.Sprintf(message, interpolations...))

	status.Color().Print(msg)
}

func Get(name string) Logger {
	return Log.GetLogger(name)
}

// SetMinLoggingLevel adjusts the minimum emitted status on the
// package-level logger manager.
func SetMinLoggingLevel(level LogStatus) {
	Log.SetMinLoggingLevel(level)
}

// Package logger is a thin logrus wrapper tagging every record with the
// object that produced it.
package logger

import (
	"fmt"
	"os"
	"reflect"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

type stringer interface {
	String() string
}

const objectTagLimit = 20

func objToString(obj any) string {
	var s string
	switch v := obj.(type) {
	case nil:
		s = "NIL"
	case stringer:
		s = v.String()
	case string:
		s = v
	default:
		s = reflect.TypeOf(obj).Name()
	}
	if len(s) > objectTagLimit {
		s = s[:objectTagLimit]
	}
	return s
}

// Init sets the global level and formatter. Colors are forced only when
// stdout is a terminal.
func Init(lvl logrus.Level) {
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "2006/02/01 15:04:05",
	})
}

func entry(obj any) *logrus.Entry {
	return logrus.WithField("object", objToString(obj))
}

func Trace(obj any, msg string) {
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		entry(obj).Trace(msg)
	}
}

func Tracef(obj any, msg string, args ...any) {
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		entry(obj).Trace(fmt.Sprintf(msg, args...))
	}
}

func Debug(obj any, msg string) {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		entry(obj).Debug(msg)
	}
}

func Debugf(obj any, msg string, args ...any) {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		entry(obj).Debug(fmt.Sprintf(msg, args...))
	}
}

func Info(obj any, msg string) {
	if logrus.IsLevelEnabled(logrus.InfoLevel) {
		entry(obj).Info(msg)
	}
}

func Infof(obj any, msg string, args ...any) {
	if logrus.IsLevelEnabled(logrus.InfoLevel) {
		entry(obj).Info(fmt.Sprintf(msg, args...))
	}
}

func Warning(obj any, msg string) {
	if logrus.IsLevelEnabled(logrus.WarnLevel) {
		entry(obj).Warning(msg)
	}
}

func Warningf(obj any, msg string, args ...any) {
	if logrus.IsLevelEnabled(logrus.WarnLevel) {
		entry(obj).Warning(fmt.Sprintf(msg, args...))
	}
}

func Error(obj any, msg string) {
	if logrus.IsLevelEnabled(logrus.ErrorLevel) {
		entry(obj).Error(msg)
	}
}

func Errorf(obj any, msg string, args ...any) {
	if logrus.IsLevelEnabled(logrus.ErrorLevel) {
		entry(obj).Error(fmt.Sprintf(msg, args...))
	}
}

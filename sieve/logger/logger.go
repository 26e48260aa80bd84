// Package logger implements async logging for the sieve commands
package logger

import (
	"fmt"
	"os"

	l4g "github.com/MG-RAST/golib/log4go"

	"github.com/MG-RAST/Sieve/sieve/conf"
)

var Log *Logger

type m struct {
	log     string
	lvl     l4g.Level
	message string
}

type Logger struct {
	queue chan m
	logs  map[string]l4g.Logger
}

// Initialize sets up package var Log for use in Info(), Error(), and Perf()
func Initialize() {
	Log = New()
	go Log.Handle()
}

// Info is a short cut function that uses package initialized logger
func Info(message string) {
	Log.Info("run", message)
}

// Debug is a short cut function that uses package initialized logger
func Debug(message string) {
	Log.Debug("run", message)
}

// Error is a short cut function that uses package initialized logger and error log
func Error(message string) {
	Log.Error(message)
}

// Perf is a short cut function that uses package initialized logger and performance log
func Perf(message string) {
	Log.Perf(message)
}

// New configures and returns a new logger. Log writing happens on the queue
// draining goroutine started by Initialize.
func New() *Logger {
	l := &Logger{queue: make(chan m, 1024), logs: map[string]l4g.Logger{}}

	if conf.LOG_OUTPUT == "console" || conf.LOG_OUTPUT == "" {
		for _, name := range []string{"run", "error", "perf"} {
			l.logs[name] = make(l4g.Logger)
			l.logs[name].AddFilter(name, l4g.FINEST, l4g.NewConsoleLogWriter())
		}
		return l
	}

	if conf.LOG_OUTPUT == "none" {
		for _, name := range []string{"run", "error", "perf"} {
			l.logs[name] = make(l4g.Logger)
		}
		return l
	}

	for _, name := range []string{"run", "error", "perf"} {
		l.logs[name] = make(l4g.Logger)
		f := l4g.NewFileLogWriter(conf.PATH_LOGS+"/"+name+".log", false)
		if f == nil {
			fmt.Fprintf(os.Stderr, "ERROR: error creating %s log file\n", name)
			os.Exit(1)
		}
		if conf.LOG_ROTATE {
			l.logs[name].AddFilter(name, l4g.FINEST, f.SetFormat("[%D %T] [%L] %M").SetRotate(true).SetRotateDaily(true))
		} else {
			l.logs[name].AddFilter(name, l4g.FINEST, f.SetFormat("[%D %T] [%L] %M"))
		}
	}
	return l
}

func (l *Logger) Handle() {
	for {
		m := <-l.queue
		l.logs[m.log].Log(m.lvl, "", m.message)
	}
}

func (l *Logger) Log(log string, lvl l4g.Level, message string) {
	l.queue <- m{log: log, lvl: lvl, message: message}
}

func (l *Logger) Debug(log string, message string) {
	l.Log(log, l4g.DEBUG, message)
}

func (l *Logger) Info(log string, message string) {
	l.Log(log, l4g.INFO, message)
}

func (l *Logger) Warning(log string, message string) {
	l.Log(log, l4g.WARNING, message)
}

func (l *Logger) Error(message string) {
	l.Log("error", l4g.ERROR, message)
}

func (l *Logger) Perf(message string) {
	l.Log("perf", l4g.INFO, message)
}

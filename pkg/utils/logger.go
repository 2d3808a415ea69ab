package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger оборачивает logrus с ротацией файлов через lumberjack
type Logger struct {
	log *logrus.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger("info", "")
}

// NewLogger создает логгер с заданным уровнем. Если file не пустой,
// логи пишутся в файл с ротацией, иначе в stdout.
func NewLogger(levelStr, file string) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writer io.Writer = os.Stdout
	if file != "" {
		writer = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
			LocalTime:  true,
		}
	}
	log.SetOutput(writer)

	return &Logger{log: log}
}

// SetDefault заменяет глобальный логгер
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default возвращает глобальный логгер
func Default() *Logger {
	return defaultLogger
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// WithFields возвращает entry со структурными полями
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.log.WithFields(fields)
}

// WithError возвращает entry с полем error
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.log.WithError(err)
}

// Global logging functions
func LogDebug(format string, v ...interface{}) {
	defaultLogger.Debug(format, v...)
}

func LogInfo(format string, v ...interface{}) {
	defaultLogger.Info(format, v...)
}

func LogWarn(format string, v ...interface{}) {
	defaultLogger.Warn(format, v...)
}

func LogError(format string, v ...interface{}) {
	defaultLogger.Error(format, v...)
}

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FieldModule = "module"
	moduleName  = "teamsync"
)

// Init настраивает глобальный logrus: формат, уровень и вывод
func Init(level, format string, reportCaller bool) {
	Configure(logrus.StandardLogger(), os.Stdout, level, format, reportCaller)
}

// Configure применяет настройки к переданному логгеру
func Configure(logger *logrus.Logger, out io.Writer, level, format string, reportCaller bool) {
	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
				logrus.FieldKeyFunc:  "func",
				logrus.FieldKeyFile:  "file",
			},
		})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetReportCaller(reportCaller)
	logger.SetOutput(out)
}

// Component возвращает entry с именем компонента, чтобы логи разных бинарников различались
func Component(name string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		FieldModule: moduleName,
		"component": name,
	})
}

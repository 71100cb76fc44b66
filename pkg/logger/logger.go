package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
// Создается сразу, чтобы пакеты и тесты могли писать в него до вызова Init.
var Log = logrus.New()

// Init настраивает глобальный логгер из переменных окружения.
// Вызывается один раз при старте приложения в main.go.
func Init() {
	// 1. Уровень логирования. По умолчанию - "info", для отладки - "debug".
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	// 2. Форматтер.
	// "json" - для сбора логов.
	// "text" - для удобной разработки.
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if logFormat == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	// 3. Куда писать. Терминальный UI занимает stdout, поэтому LOG_FILE
	// позволяет увести логи в файл.
	Log.SetOutput(os.Stdout)
	if path := os.Getenv("LOG_FILE"); path != "" {
		if err := ToFile(path); err != nil {
			Log.WithError(err).Warn("failed to open LOG_FILE, logging to stdout")
		}
	}
}

// ToFile перенаправляет вывод логгера в файл (дописывает в конец).
func ToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	Log.SetOutput(f)
	return nil
}

// Component возвращает запись логгера с полем component.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

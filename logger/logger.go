package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

var logFile *os.File

// Setup sends log output to stdout and to a dated file under dir.
// Without a successful Setup the logger writes to stdout only.
func Setup(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	fileName := filepath.Join(dir, fmt.Sprintf("app_%s.log", time.Now().Format("02-01-2006")))
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f

	log.SetOutput(io.MultiWriter(os.Stdout, f))
	log.SetLevel(log.LevelInfo)
	log.Info("🚀 Logger initialized successfully!")
	return nil
}

// SetLevel switches the minimum level, e.g. to debug in development.
func SetLevel(level log.Level) {
	log.SetLevel(level)
}

func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func Success(message string) {
	log.Info("✅ " + message)
}

func Error(message string, err error) {
	if err != nil {
		log.Error("❌ " + message + ": " + err.Error())
	} else {
		log.Error("❌ " + message)
	}
}

func Warning(message string) {
	log.Warn("⚠️ " + message)
}

func Debug(message string) {
	log.Debug("🐛 " + message)
}

func Info(message string) {
	log.Info("ℹ️ " + message)
}

func Printf(format string, args ...interface{}) {
	log.Info(fmt.Sprintf("📝 "+format, args...))
}

func Fatal(message string, err error) {
	if err != nil {
		message = message + ": " + err.Error()
	}
	log.Fatal("💥 " + message)
	os.Exit(1)
}

package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"
)

// Formatter renders entries as "timestamp [LEVEL] message".
type Formatter struct {
	TimestampFormat string
	LevelDesc       []string
}

// Format formats a single log entry.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	level := f.LevelDesc[entry.Level]
	if len(entry.Data) == 0 {
		return []byte(fmt.Sprintf("%s [%s] %s\n", timestamp, level, entry.Message)), nil
	}

	fields := ""
	for k, v := range entry.Data {
		fields += fmt.Sprintf(" %s=%v", k, v)
	}
	return []byte(fmt.Sprintf("%s [%s]%s %s\n", timestamp, level, fields, entry.Message)), nil
}

// Init configures logrus with level, formatter and file rotation.
// LOG_LEVEL and LOG_DIRECTORY control behaviour; without a directory
// logs go to stdout only.
func Init() {
	log.SetFormatter(&Formatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		LevelDesc:       []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"},
	})

	if os.Getenv("LOG_LEVEL") == "DEBUG" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	logDir := os.Getenv("LOG_DIRECTORY")
	if logDir == "" {
		log.SetOutput(os.Stdout)
		return
	}

	writer, err := openRotatedLog(logDir)
	if err != nil {
		log.SetOutput(os.Stdout)
		log.Warnf("log rotation unavailable, falling back to stdout: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, writer))
}

// openRotatedLog sets up hourly rotation under a per-day folder, gzipping
// each file after it rotates out.
func openRotatedLog(logDir string) (*rotatelogs.RotateLogs, error) {
	dateFolder := filepath.Join(logDir, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dateFolder, 0755); err != nil {
		return nil, err
	}

	maxAge := 14 * 24 * time.Hour
	return rotatelogs.New(
		fmt.Sprintf("%s/%%Y-%%m-%%d-%%H.server.log", dateFolder),
		rotatelogs.WithLinkName(filepath.Join(dateFolder, "server.log")),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithHandler(rotatelogs.HandlerFunc(func(e rotatelogs.Event) {
			if e.Type() != rotatelogs.FileRotatedEventType {
				return
			}
			compressPreviousFile(e.(*rotatelogs.FileRotatedEvent).PreviousFile())
		})),
	)
}

func compressPreviousFile(path string) {
	if path == "" {
		return
	}

	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		return
	}
	if err := gz.Close(); err != nil {
		return
	}
	os.Remove(path)
}

// Info logs an informational message.
func Info(message string) {
	log.Info(message)
}

// Warn logs a warning.
func Warn(message string) {
	log.Warn(message)
}

// Error logs an error message.
func Error(message string) {
	log.Error(message)
}

// Debug logs a debug message.
func Debug(message string) {
	log.Debug(message)
}

// Fatal logs the message and exits.
func Fatal(message string) {
	log.Fatal(message)
}

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs a formatted warning.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// WithFields logs an informational message with structured context.
func WithFields(fields map[string]interface{}, message string) {
	log.WithFields(log.Fields(fields)).Info(message)
}

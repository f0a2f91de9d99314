package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "studywave").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "studywave.log"), nil
}

// setupLog discards logs unless STUDYWAVE_LOGFILE or debug is set, in which
// case they go to a rotated file. The returned func closes the file.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile := os.Getenv("STUDYWAVE_LOGFILE")
	if logFile == "" {
		if !viper.GetBool("debug") {
			return func() error { return nil }, nil
		}
		p, err := getLogFilePath()
		if err != nil {
			return nil, err
		}
		logFile = p
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, err
	}

	w := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(w)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return w.Close, nil
}

package main

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/secureauthx/secureauthx/internal/config"
)

const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 3
)

// newLogger writes to stderr and, when LOG_FILE is set, to a rotated file.
func newLogger(cfg config.Config) (hclog.Logger, func(), error) {
	var (
		out     io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if cfg.LogFile != "" {
		// Create the file with restrictive permissions before lumberjack
		// opens it.
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		f.Close()

		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, file)
		closeFn = func() { _ = file.Close() }
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       strings.ToLower(cfg.AppName),
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: strings.EqualFold(cfg.LogFormat, "json"),
		Output:     out,
	})
	return logger, closeFn, nil
}

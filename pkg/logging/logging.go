// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package logging configures zerolog for keel processes and builds
// component loggers.
package logging

import (
	"io"
	stdLog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu sync.Mutex
	// logWriter is the destination used by ConfigureGlobalLogging when no
	// writer is passed.
	logWriter io.Writer = os.Stderr
)

// stdLogWriter reformats output of the standard library logger as zerolog
// debug events.
type stdLogWriter struct {
	logger zerolog.Logger
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	message := strings.TrimSuffix(string(p), "\n")

	// stdlog output looks like "2025/05/23 14:40:15 file.go:35: message"
	parts := strings.SplitN(message, " ", 4)
	if len(parts) >= 4 {
		stdTime, err := time.Parse("2006/01/02 15:04:05", parts[0]+" "+parts[1])
		if err == nil {
			w.logger.Debug().
				Str("file", strings.TrimSuffix(parts[2], ":")).
				Time("time", stdTime).
				Msg(parts[3])
			return len(p), nil
		}
	}

	w.logger.Debug().Msg(message)
	return len(p), nil
}

// init keeps early logs quiet until the CLI has read its configuration.
func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

// ConfigureGlobalLogging installs the global logger. format is "json" or
// "text"; a nil writer selects the package writer (stderr by default).
func ConfigureGlobalLogging(levelStr, format string, w io.Writer) error {
	level := ParseLevel(levelStr)
	zerolog.SetGlobalLevel(level)

	if w == nil {
		w = getLogWriter()
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	logContext := zerolog.New(w).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}

	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	stdLog.SetFlags(0)
	stdLog.SetOutput(&stdLogWriter{logger: WithLevelOverride(log.Logger, zerolog.DebugLevel)})

	return nil
}

// ConfigureGlobal only changes the global level; the writer and format
// stay as they are. The config watcher uses it for hot reloads.
func ConfigureGlobal(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Logger.Level(level)
}

// ParseLevel converts a level name to zerolog.Level. Empty or invalid
// names fall back to info.
func ParseLevel(levelString string) zerolog.Level {
	if levelString == "" {
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelString))
	if err != nil {
		log.Error().Err(err).
			Str("logLevel", levelString).
			Msg("Invalid log level provided. Defaulting to info level.")
		return zerolog.InfoLevel
	}
	return level
}

// NewLogger returns a logger for one component writing to the package
// writer.
func NewLogger(component string, level zerolog.Level) zerolog.Logger {
	return NewLoggerWithWriter(component, level, getLogWriter())
}

// NewLoggerWithWriter returns a JSON logger for one component.
func NewLoggerWithWriter(component string, level zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Component derives a child of the global logger tagged with component.
func Component(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

func getLogWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return logWriter
}

// SetLogWriter sets the package writer.
func SetLogWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logWriter = w
}

// LevelOverrideHook upgrades NoLevel events to a target level and drops
// everything when the logger's minimum is above that target.
type LevelOverrideHook struct {
	minSeverity zerolog.Level
	targetLevel zerolog.Level
}

// NewLevelOverrideHook creates a LevelOverrideHook.
func NewLevelOverrideHook(minSeverity, targetLevel zerolog.Level) *LevelOverrideHook {
	return &LevelOverrideHook{
		minSeverity: minSeverity,
		targetLevel: targetLevel,
	}
}

// Run implements zerolog.Hook.
func (h LevelOverrideHook) Run(e *zerolog.Event, currentLevel zerolog.Level, _ string) {
	if h.minSeverity > h.targetLevel {
		e.Discard()
		return
	}

	if currentLevel == zerolog.NoLevel {
		e.Str("level", h.targetLevel.String())
	}
}

// WithLevelOverride attaches a LevelOverrideHook built from logger's level.
func WithLevelOverride(logger zerolog.Logger, targetLevel zerolog.Level) zerolog.Logger {
	return logger.Hook(NewLevelOverrideHook(logger.GetLevel(), targetLevel))
}

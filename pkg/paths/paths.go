// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the name of the default config file inside ConfigDir.
const ConfigFileName = "config.yaml"

// LockFileName is the name of the instance lock inside RuntimeDir.
const LockFileName = "keel.lock"

// ConfigDir returns the config directory for Keel.
// Order: XDG_CONFIG_HOME/keel, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "keel")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "Keel")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "keel")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}

// RuntimeDir returns the directory for per-boot runtime files such as the
// instance lock.
// Order: XDG_RUNTIME_DIR/keel, os.TempDir()/keel.
func RuntimeDir() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "keel")
	}
	return filepath.Join(os.TempDir(), "keel")
}

// LockFile returns the default instance lock path.
func LockFile() string {
	return filepath.Join(RuntimeDir(), LockFileName)
}

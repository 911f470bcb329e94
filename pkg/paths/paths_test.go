// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigDir(t *testing.T) {
	t.Run("XDGOverride", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got := ConfigDir()
		want := filepath.Join("/tmp/xdg-config", "keel")
		if got != want {
			t.Fatalf("ConfigDir() = %s, want %s", got, want)
		}
	})

	t.Run("PlatformDefault", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		switch runtime.GOOS {
		case "windows":
			t.Setenv("AppData", `C:\AppData`)
			want := filepath.Join(`C:\AppData`, "Keel")
			if got := ConfigDir(); got != want {
				t.Fatalf("ConfigDir() = %s, want %s", got, want)
			}
		default:
			t.Setenv("HOME", "/home/tester")
			want := filepath.Join("/home/tester", ".config", "keel")
			if got := ConfigDir(); got != want {
				t.Fatalf("ConfigDir() = %s, want %s", got, want)
			}
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	want := filepath.Join("/tmp/xdg-config", "keel", "config.yaml")
	if got := ConfigFile(); got != want {
		t.Fatalf("ConfigFile() = %s, want %s", got, want)
	}
}

func TestRuntimeDir(t *testing.T) {
	t.Run("XDGOverride", func(t *testing.T) {
		t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
		want := filepath.Join("/run/user/1000", "keel")
		if got := RuntimeDir(); got != want {
			t.Fatalf("RuntimeDir() = %s, want %s", got, want)
		}
	})

	t.Run("TempFallback", func(t *testing.T) {
		t.Setenv("XDG_RUNTIME_DIR", "")
		want := filepath.Join(os.TempDir(), "keel")
		if got := RuntimeDir(); got != want {
			t.Fatalf("RuntimeDir() = %s, want %s", got, want)
		}
	})
}

func TestLockFile(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	want := filepath.Join("/run/user/1000", "keel", "keel.lock")
	if got := LockFile(); got != want {
		t.Fatalf("LockFile() = %s, want %s", got, want)
	}
}

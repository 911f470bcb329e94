// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of keel.
	Version = "dev"
	// Commit holds the current version commit of keel.
	Commit = "none"
	// BuildDate holds the build date of keel.
	BuildDate = "unknown"
	// StartDate holds the start date of keel.
	StartDate = time.Now()
)

// devVersion stands in for Version when the binary was not built with a
// release tag, so constraints can still be evaluated.
const devVersion = "0.0.0-dev"

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("Keel %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
}

// Semver parses Version. Development builds parse as 0.0.0-dev.
func Semver() (*semver.Version, error) {
	v := strings.TrimSpace(Version)
	if v == "" || v == "dev" {
		v = devVersion
	}
	return semver.NewVersion(v)
}

// Satisfies reports whether the running version meets constraint, e.g.
// ">= 0.3, < 1.0". Development builds satisfy every constraint.
func Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	if Version == "dev" {
		return true, nil
	}
	v, err := Semver()
	if err != nil {
		return false, fmt.Errorf("invalid build version %q: %w", Version, err)
	}
	return c.Check(v), nil
}

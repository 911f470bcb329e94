// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package stringutil provides small string helpers for terminal output.
package stringutil

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis flattens s onto one line and shortens it to at most maxRunes
// runes, ending in "..." when truncated. With maxRunes <= 3 there is no
// room for the marker and s is cut short without it.
func Ellipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")

	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	if maxRunes <= 3 {
		return string(r[:maxRunes])
	}
	return string(r[:maxRunes-3]) + "..."
}

// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report koanf key names so errors point at what the user wrote.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" || name == "" {
			name = strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		}
		return name
	})
	return v
}

// ValidationError reports one invalid configuration key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "validation failed"
	}
	if e.Reason == "" {
		return e.Field + ": invalid"
	}
	return e.Field + ": " + e.Reason
}

// Validate checks cfg against its struct tags and the cross-field rules.
// Every failure is returned, joined.
func Validate(cfg Config) error {
	var errs []error

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &ValidationError{Field: fieldPath(fe), Reason: reason(fe)})
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, &ValidationError{Field: "metrics.addr", Reason: "required when metrics.enabled is set"})
	}
	if cfg.Control.DepthTolerance > 0 && cfg.Control.TargetDepth > 0 && cfg.Control.DepthTolerance >= cfg.Control.TargetDepth {
		errs = append(errs, &ValidationError{Field: "control.depth_tolerance", Reason: "must be smaller than control.target_depth"})
	}

	return errors.Join(errs...)
}

// fieldPath strips the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ",")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "hostname_port":
		return "must be host:port"
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}

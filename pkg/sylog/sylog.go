// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sylog provides the levelled, structured logger used by every
// command in this module. It is a thin wrapper around apex/log, giving call
// sites the same Debugf/Infof/Warningf/Errorf surface used throughout the
// build pipeline regardless of which handler (text, JSON) is installed.
package sylog

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
)

var logger = &log.Logger{
	Handler: cli.New(os.Stderr),
	Level:   log.InfoLevel,
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(level log.Level) {
	logger.Level = level
}

// SetVerbose is a convenience for CLI --verbose/--debug flag wiring.
func SetVerbose(verbose bool) {
	if verbose {
		logger.Level = log.DebugLevel
	} else {
		logger.Level = log.InfoLevel
	}
}

// UseJSON switches the handler to structured JSON output on w, for
// machine-readable pipeline logs. Passing nil restores the default CLI
// handler on stderr.
func UseJSON(w *os.File) {
	if w == nil {
		logger.Handler = cli.New(os.Stderr)
		return
	}
	logger.Handler = json.New(w)
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warningf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// WithField returns an entry pre-populated with a structured field, for call
// sites that want to attach e.g. an image reference or SBOM path to every
// subsequent log line in a pipeline stage.
func WithField(key string, value interface{}) *log.Entry {
	return logger.WithField(key, value)
}

// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/ in the manner described in
// DESIGN.md. Licensed under the MIT license.

// Package logging wraps go.uber.org/zap behind the small sink interface
// the core packages log through, so buffer/field/ctlr/nvt/dbcs stay
// free of a zap import and only this package and its callers pay for
// it (spec SPEC_FULL.md AMBIENT STACK, modeled on rcornwell/S370's
// util/logger wrapper around log/slog).
package logging

import (
	"go.uber.org/zap"
)

// Sink is the logging surface the controller and core packages use.
// buffer.Callbacks.Trace and PopupError are satisfied by a *Logger
// directly; Protocol and DBCS methods give those two error classes
// their own level and structured fields (spec §7).
type Sink interface {
	Trace(format string, args ...any)
	PopupError(format string, args ...any)
	Protocol(sessionID, kind string, err error)
	DBCSViolation(sessionID, violation string)
}

// Logger adapts a *zap.SugaredLogger to Sink.
type Logger struct {
	z *zap.SugaredLogger
}

// New builds a Logger. debug raises the core trace/debug output; with
// debug false only warnings and above are emitted, matching the
// production default of both vibetunnel forks.
func New(debug bool) (*Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// NewNop returns a Logger that discards everything, for tests and for
// callers that don't care about diagnostics.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

func (l *Logger) Trace(format string, args ...any) {
	l.z.Debugf(format, args...)
}

func (l *Logger) PopupError(format string, args ...any) {
	l.z.Warnf(format, args...)
}

// Protocol logs a §7 protocol-class error (malformed order, bad
// address, bad command byte) with the session it occurred on.
func (l *Logger) Protocol(sessionID, kind string, err error) {
	l.z.Errorw("protocol error", "session", sessionID, "kind", kind, "error", err)
}

// DBCSViolation logs a §7 DBCS-class error surfaced by the post-
// processor (orphan SO/SI, misaligned RA, overwrite of a half-pair).
func (l *Logger) DBCSViolation(sessionID, violation string) {
	l.z.Warnw("dbcs violation", "session", sessionID, "violation", violation)
}

// Sync flushes any buffered log entries; call before process exit.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
